// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package constraint

import (
	"sort"

	tm "github.com/someonegg/transfermatch"
	"github.com/someonegg/transfermatch/zone"
)

type DirectionRecord struct {
	AllLocalAreas      bool                `json:"all_local_areas"`
	OutsideConnections bool                `json:"outside_connections"`
	Districts          []zone.DistrictZone `json:"districts,omitempty"`
}

type BuildingRecord struct {
	Building             tm.BuildingID   `json:"building"`
	Input                DirectionRecord `json:"input"`
	Output               DirectionRecord `json:"output"`
	InternalSupplyBuffer int             `json:"internal_supply_buffer,omitempty"`
}

// Snapshot is the persisted shape of a Store.
type Snapshot struct {
	Buildings []BuildingRecord `json:"buildings"`
	Links     []Link           `json:"links"`
	Settings  Settings         `json:"settings"`
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Buildings: make([]BuildingRecord, 0, len(s.entries)),
		Links:     s.links.all(),
		Settings:  s.settings,
	}
	for b, e := range s.entries {
		snap.Buildings = append(snap.Buildings, BuildingRecord{
			Building:             b,
			Input:                recordOf(&e.input),
			Output:               recordOf(&e.output),
			InternalSupplyBuffer: e.buffer,
		})
	}
	sort.Slice(snap.Buildings, func(i, j int) bool {
		return snap.Buildings[i].Building < snap.Buildings[j].Building
	})
	return snap
}

// Restore replaces the whole state of the store with snap. Persisted data
// is trusted and not re-checked against the classifier.
func (s *Store) Restore(snap Snapshot) {
	entries := make(map[tm.BuildingID]*entry, len(snap.Buildings))
	for _, rec := range snap.Buildings {
		if rec.Building == 0 {
			continue
		}
		entries[rec.Building] = &entry{
			input:  restrictionsOf(rec.Input),
			output: restrictionsOf(rec.Output),
			buffer: clamp(rec.InternalSupplyBuffer, 0, MaxSupplyBuffer),
		}
	}
	links := newLinkSet()
	for _, l := range snap.Links {
		if l.Source != 0 && l.Destination != 0 && l.Source != l.Destination {
			links.add(l)
		}
	}

	s.mu.Lock()
	s.entries = entries
	s.links = links
	s.mu.Unlock()

	s.SetSettings(snap.Settings)
}

func recordOf(r *Restrictions) DirectionRecord {
	return DirectionRecord{
		AllLocalAreas:      r.AllLocalAreas,
		OutsideConnections: r.OutsideConnections,
		Districts:          r.Districts.Zones(),
	}
}

func restrictionsOf(rec DirectionRecord) Restrictions {
	return Restrictions{
		AllLocalAreas:      rec.AllLocalAreas,
		OutsideConnections: rec.OutsideConnections,
		Districts:          zone.NewSet(rec.Districts...),
	}
}
