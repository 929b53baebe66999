// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package constraint keeps the per-building service area and supply chain
// restrictions consulted by the matcher.
package constraint

import (
	"fmt"
	"strings"
	"sync"

	tm "github.com/someonegg/transfermatch"
	"github.com/someonegg/transfermatch/zone"
)

// Direction selects the restriction set of a building: Input applies to
// offers it receives, Output to offers it sends.
type Direction uint8

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	if d == Output {
		return "output"
	}
	return "input"
}

// Classifier answers building type questions owned by the host.
type Classifier interface {
	IsConfigurableBuilding(b tm.BuildingID) bool
	IsSupplyChainCapable(b tm.BuildingID) bool
}

type Restrictions struct {
	AllLocalAreas      bool
	OutsideConnections bool
	Districts          zone.Set
}

func defaultRestrictions() Restrictions {
	return Restrictions{AllLocalAreas: true, OutsideConnections: true}
}

type entry struct {
	input  Restrictions
	output Restrictions
	buffer int
}

func defaultEntry() *entry {
	return &entry{input: defaultRestrictions(), output: defaultRestrictions()}
}

func (e *entry) restrictions(dir Direction) *Restrictions {
	if dir == Output {
		return &e.output
	}
	return &e.input
}

const (
	DefaultOutsideConnectionIntensity = 100
	DefaultOutsideToOutsideMaxPercent = 10
	MaxSupplyBuffer                   = 100
)

// Settings are the global knobs shared by all buildings.
type Settings struct {
	OutsideConnectionIntensity int  `json:"outside_connection_intensity"`
	OutsideToOutsideMaxPercent int  `json:"outside_to_outside_max_percent"`
	DummyTraffic               bool `json:"dummy_traffic"`
}

func DefaultSettings() Settings {
	return Settings{
		OutsideConnectionIntensity: DefaultOutsideConnectionIntensity,
		OutsideToOutsideMaxPercent: DefaultOutsideToOutsideMaxPercent,
	}
}

// Store holds the restrictions of every building. Buildings without an
// entry use the defaults: all local areas and outside connections allowed.
// Store is safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	classifier Classifier
	entries    map[tm.BuildingID]*entry
	links      linkSet
	settings   Settings
}

func NewStore(classifier Classifier) *Store {
	return &Store{
		classifier: classifier,
		entries:    make(map[tm.BuildingID]*entry),
		links:      newLinkSet(),
		settings:   DefaultSettings(),
	}
}

func (s *Store) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// SetSettings clamps percentages into 0-100.
func (s *Store) SetSettings(st Settings) {
	st.OutsideConnectionIntensity = clamp(st.OutsideConnectionIntensity, 0, 100)
	st.OutsideToOutsideMaxPercent = clamp(st.OutsideToOutsideMaxPercent, 0, 100)

	s.mu.Lock()
	s.settings = st
	s.mu.Unlock()
}

// mutable returns the entry of b, creating it, or nil if b cannot be
// configured. Callers hold the write lock.
func (s *Store) mutable(b tm.BuildingID) *entry {
	if b == 0 || !s.classifier.IsConfigurableBuilding(b) {
		return nil
	}
	e, ok := s.entries[b]
	if !ok {
		e = defaultEntry()
		s.entries[b] = e
	}
	return e
}

func (s *Store) entry(b tm.BuildingID) *entry {
	if e, ok := s.entries[b]; ok {
		return e
	}
	return nil
}

func (s *Store) SetAllLocalAreas(dir Direction, b tm.BuildingID, v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e := s.mutable(b); e != nil {
		e.restrictions(dir).AllLocalAreas = v
	}
}

func (s *Store) SetOutsideConnections(dir Direction, b tm.BuildingID, v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e := s.mutable(b); e != nil {
		e.restrictions(dir).OutsideConnections = v
	}
}

func (s *Store) AddDistrictServed(dir Direction, b tm.BuildingID, z zone.DistrictZone) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e := s.mutable(b); e != nil {
		e.restrictions(dir).Districts.Add(z)
	}
}

func (s *Store) RemoveDistrictServed(dir Direction, b tm.BuildingID, z zone.DistrictZone) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e := s.mutable(b); e != nil {
		e.restrictions(dir).Districts.Remove(z)
	}
}

func (s *Store) SetInternalSupplyBuffer(b tm.BuildingID, percent int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e := s.mutable(b); e != nil {
		e.buffer = clamp(percent, 0, MaxSupplyBuffer)
	}
}

func (s *Store) InternalSupplyBuffer(b tm.BuildingID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e := s.entry(b); e != nil {
		return e.buffer
	}
	return 0
}

// Restrictions returns a copy of the restrictions of b in direction dir.
func (s *Store) Restrictions(dir Direction, b tm.BuildingID) Restrictions {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e := s.entry(b)
	if e == nil {
		return defaultRestrictions()
	}
	r := *e.restrictions(dir)
	r.Districts = r.Districts.Clone()
	return r
}

// AddSupplyLink restricts src to deliver to dst and dst to draw from src.
// It is a no-op unless both buildings are supply chain capable.
func (s *Store) AddSupplyLink(src, dst tm.BuildingID) bool {
	if src == 0 || dst == 0 || src == dst {
		return false
	}
	if !s.classifier.IsSupplyChainCapable(src) || !s.classifier.IsSupplyChainCapable(dst) {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.links.add(Link{Source: src, Destination: dst})
}

func (s *Store) RemoveSupplyLink(src, dst tm.BuildingID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.links.remove(Link{Source: src, Destination: dst})
}

func (s *Store) RemoveAllLinksFromSource(src tm.BuildingID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.links.removeFromSource(src)
}

func (s *Store) RemoveAllLinksToDestination(dst tm.BuildingID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.links.removeToDestination(dst)
}

// Destinations lists the buildings src is restricted to deliver to.
func (s *Store) Destinations(src tm.BuildingID) []tm.BuildingID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedIDs(s.links.destinations(src))
}

// Sources lists the buildings dst is restricted to draw from.
func (s *Store) Sources(dst tm.BuildingID) []tm.BuildingID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedIDs(s.links.sources(dst))
}

func (s *Store) Links() []Link {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.links.all()
}

// Admits reports whether building b may exchange offers in direction dir
// with a partner whose home building is other, located in otherZone.
//
// Rules in order: a non-empty supply chain link list is exclusive, outside
// partners need the outside connection toggle, all local areas admits any
// local partner, otherwise the partner zone must be served by the district
// list.
func (s *Store) Admits(dir Direction, b, other tm.BuildingID, otherZone zone.DistrictZone, otherIsOutside bool) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var partners idSet
	if dir == Output {
		partners = s.links.destinations(b)
	} else {
		partners = s.links.sources(b)
	}
	if len(partners) > 0 {
		_, ok := partners[other]
		return ok
	}

	r := defaultRestrictions()
	if e := s.entry(b); e != nil {
		r = *e.restrictions(dir)
	}
	if otherIsOutside {
		return r.OutsideConnections
	}
	if r.AllLocalAreas {
		return true
	}
	return r.Districts.Serves(otherZone)
}

// OnBuildingCreated applies the initial restrictions of a new building. A
// building placed inside a district or park delivers only to that zone and
// is closed to outside connections both ways. Its input keeps accepting
// every local area.
func (s *Store) OnBuildingCreated(b tm.BuildingID, home zone.DistrictZone) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, b)
	e := s.mutable(b)
	if e == nil || home.IsEmpty() {
		return
	}
	e.input.OutsideConnections = false
	e.output = Restrictions{Districts: zone.NewSet(home)}
}

// OnBuildingDestroyed forgets b and every link that references it.
func (s *Store) OnBuildingDestroyed(b tm.BuildingID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, b)
	s.links.removeFromSource(b)
	s.links.removeToDestination(b)
}

// Reset restores the default restrictions of b. Links are kept.
func (s *Store) Reset(b tm.BuildingID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, b)
}

// Describe renders the restrictions of b for diagnostics.
func (s *Store) Describe(b tm.BuildingID) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sb strings.Builder
	fmt.Fprintf(&sb, "building %d", b)

	e := s.entry(b)
	if e == nil {
		e = defaultEntry()
	}
	for _, dir := range []Direction{Input, Output} {
		r := e.restrictions(dir)
		fmt.Fprintf(&sb, "; %v:", dir)

		var partners idSet
		if dir == Output {
			partners = s.links.destinations(b)
		} else {
			partners = s.links.sources(b)
		}
		if len(partners) > 0 {
			fmt.Fprintf(&sb, " only %v", sortedIDs(partners))
			continue
		}

		switch {
		case r.AllLocalAreas:
			sb.WriteString(" all local areas")
		case r.Districts.Len() == 0:
			sb.WriteString(" no local areas")
		default:
			fmt.Fprintf(&sb, " districts %v", r.Districts.Zones())
		}
		if r.OutsideConnections {
			sb.WriteString(", outside connections")
		}
	}
	if e.buffer > 0 {
		fmt.Fprintf(&sb, "; buffer %d%%", e.buffer)
	}
	return sb.String()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
