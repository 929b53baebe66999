// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scenario

import (
	tm "github.com/someonegg/transfermatch"
	"github.com/someonegg/transfermatch/gateway"
	"github.com/someonegg/transfermatch/zone"
)

// Table is a host world answering classifier questions from the scenario
// tables.
type Table struct {
	buildings map[tm.BuildingID]Building
	vehicles  map[tm.BuildingID]map[tm.Material]int
	homes     map[tm.Endpoint]tm.BuildingID
	zones     map[tm.Endpoint]zone.DistrictZone
}

func NewTable(sc *Scenario) *Table {
	t := &Table{
		buildings: make(map[tm.BuildingID]Building, len(sc.Buildings)),
		vehicles:  make(map[tm.BuildingID]map[tm.Material]int),
		homes:     make(map[tm.Endpoint]tm.BuildingID, len(sc.Endpoints)),
		zones:     make(map[tm.Endpoint]zone.DistrictZone),
	}
	for _, b := range sc.Buildings {
		id := tm.BuildingID(b.ID)
		t.buildings[id] = b
		for name, n := range b.Vehicles {
			m, err := tm.ParseMaterial(name)
			if err != nil {
				continue
			}
			if t.vehicles[id] == nil {
				t.vehicles[id] = make(map[tm.Material]int)
			}
			t.vehicles[id][m] = n
		}
	}
	for _, e := range sc.Endpoints {
		t.homes[e.Endpoint()] = tm.BuildingID(e.Building)
		if e.Zone != nil {
			t.zones[e.Endpoint()] = *e.Zone
		}
	}
	return t
}

// Remove forgets a demolished building.
func (t *Table) Remove(b tm.BuildingID) {
	delete(t.buildings, b)
	delete(t.vehicles, b)
}

func (t *Table) IsConfigurableBuilding(b tm.BuildingID) bool {
	return t.buildings[b].Configurable
}

func (t *Table) IsSupplyChainCapable(b tm.BuildingID) bool {
	return t.buildings[b].SupplyChain
}

func (t *Table) ConnectionModality(b tm.BuildingID) gateway.Modality {
	return t.buildings[b].Outside
}

func (t *Table) ActiveVehicles(b tm.BuildingID, m tm.Material) int {
	return t.vehicles[b][m]
}

func (t *Table) HomeBuilding(e tm.Endpoint) tm.BuildingID {
	if b, ok := e.Building(); ok {
		return b
	}
	return t.homes[e]
}

func (t *Table) HomeZone(e tm.Endpoint) zone.DistrictZone {
	if z, ok := t.zones[e]; ok {
		return z
	}
	return t.buildings[t.HomeBuilding(e)].Zone
}
