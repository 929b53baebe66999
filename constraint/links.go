// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package constraint

import (
	"sort"

	tm "github.com/someonegg/transfermatch"
)

// Link is a supply chain edge: Source may only deliver to the destinations
// it is linked to, Destination may only draw from its linked sources.
type Link struct {
	Source      tm.BuildingID `json:"source"`
	Destination tm.BuildingID `json:"destination"`
}

type idSet map[tm.BuildingID]struct{}

// linkSet stores each edge once and indexes it from both ends. All
// mutation goes through add and remove so the two indexes cannot diverge.
type linkSet struct {
	edges    map[Link]struct{}
	bySource map[tm.BuildingID]idSet
	byDest   map[tm.BuildingID]idSet
}

func newLinkSet() linkSet {
	return linkSet{
		edges:    make(map[Link]struct{}),
		bySource: make(map[tm.BuildingID]idSet),
		byDest:   make(map[tm.BuildingID]idSet),
	}
}

func (s *linkSet) add(l Link) bool {
	if _, ok := s.edges[l]; ok {
		return false
	}
	s.edges[l] = struct{}{}
	index(s.bySource, l.Source, l.Destination)
	index(s.byDest, l.Destination, l.Source)
	return true
}

func (s *linkSet) remove(l Link) bool {
	if _, ok := s.edges[l]; !ok {
		return false
	}
	delete(s.edges, l)
	unindex(s.bySource, l.Source, l.Destination)
	unindex(s.byDest, l.Destination, l.Source)
	return true
}

func (s *linkSet) has(l Link) bool {
	_, ok := s.edges[l]
	return ok
}

func (s *linkSet) removeFromSource(src tm.BuildingID) int {
	n := 0
	for dst := range s.bySource[src] {
		if s.remove(Link{Source: src, Destination: dst}) {
			n++
		}
	}
	return n
}

func (s *linkSet) removeToDestination(dst tm.BuildingID) int {
	n := 0
	for src := range s.byDest[dst] {
		if s.remove(Link{Source: src, Destination: dst}) {
			n++
		}
	}
	return n
}

func (s *linkSet) destinations(src tm.BuildingID) idSet { return s.bySource[src] }
func (s *linkSet) sources(dst tm.BuildingID) idSet      { return s.byDest[dst] }

func (s *linkSet) all() []Link {
	ls := make([]Link, 0, len(s.edges))
	for l := range s.edges {
		ls = append(ls, l)
	}
	sort.Slice(ls, func(i, j int) bool {
		if ls[i].Source != ls[j].Source {
			return ls[i].Source < ls[j].Source
		}
		return ls[i].Destination < ls[j].Destination
	})
	return ls
}

func index(m map[tm.BuildingID]idSet, key, val tm.BuildingID) {
	set, ok := m[key]
	if !ok {
		set = make(idSet)
		m[key] = set
	}
	set[val] = struct{}{}
}

func unindex(m map[tm.BuildingID]idSet, key, val tm.BuildingID) {
	set := m[key]
	delete(set, val)
	if len(set) == 0 {
		delete(m, key)
	}
}

func sortedIDs(set idSet) []tm.BuildingID {
	if len(set) == 0 {
		return nil
	}
	ids := make([]tm.BuildingID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
