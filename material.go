// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transfermatch

import (
	"fmt"
	"strings"
)

type Material uint8

const (
	NoMaterial Material = iota

	Garbage
	Crime
	Sick
	Dead
	Fire
	Mail
	Evacuation
	Student
	Daycare
	Taxi
	RoadMaintenance
	ParkMaintenance
	Snow

	Oil
	Ore
	Logs
	Grain
	Petrol
	Coal
	Lumber
	Food
	Goods
	Fish
	LuxuryProducts

	materialCount
)

// Category selects the orientation of a matching pass.
type Category uint8

const (
	// PushService requests are outgoing offers searching among incoming
	// provider offers.
	PushService Category = iota
	// PullSupplyChain requests are incoming demand offers searching among
	// outgoing supplier offers.
	PullSupplyChain
)

func (c Category) String() string {
	if c == PullSupplyChain {
		return "pull"
	}
	return "push"
}

type materialInfo struct {
	name       string
	category   Category
	bestEffort bool
}

var materials = [materialCount]materialInfo{
	NoMaterial:      {"none", PushService, false},
	Garbage:         {"garbage", PushService, false},
	Crime:           {"crime", PushService, false},
	Sick:            {"sick", PushService, false},
	Dead:            {"dead", PushService, false},
	Fire:            {"fire", PushService, false},
	Mail:            {"mail", PushService, false},
	Evacuation:      {"evacuation", PushService, true},
	Student:         {"student", PushService, false},
	Daycare:         {"daycare", PushService, false},
	Taxi:            {"taxi", PushService, true},
	RoadMaintenance: {"road_maintenance", PushService, false},
	ParkMaintenance: {"park_maintenance", PushService, false},
	Snow:            {"snow", PushService, false},
	Oil:             {"oil", PullSupplyChain, false},
	Ore:             {"ore", PullSupplyChain, false},
	Logs:            {"logs", PullSupplyChain, false},
	Grain:           {"grain", PullSupplyChain, false},
	Petrol:          {"petrol", PullSupplyChain, false},
	Coal:            {"coal", PullSupplyChain, false},
	Lumber:          {"lumber", PullSupplyChain, false},
	Food:            {"food", PullSupplyChain, false},
	Goods:           {"goods", PullSupplyChain, false},
	Fish:            {"fish", PullSupplyChain, false},
	LuxuryProducts:  {"luxury_products", PullSupplyChain, false},
}

func (m Material) Valid() bool {
	return m > NoMaterial && m < materialCount
}

func (m Material) Category() Category {
	if m >= materialCount {
		return PushService
	}
	return materials[m].category
}

// BestEffort reports whether unmatched requests of m are dropped rather
// than reported back to the host.
func (m Material) BestEffort() bool {
	if m >= materialCount {
		return false
	}
	return materials[m].bestEffort
}

func (m Material) String() string {
	if m >= materialCount {
		return fmt.Sprintf("material(%d)", uint8(m))
	}
	return materials[m].name
}

// Materials lists every valid material in catalogue order.
func Materials() []Material {
	ms := make([]Material, 0, materialCount-1)
	for m := NoMaterial + 1; m < materialCount; m++ {
		ms = append(ms, m)
	}
	return ms
}

func ParseMaterial(s string) (Material, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for m := NoMaterial + 1; m < materialCount; m++ {
		if materials[m].name == s {
			return m, nil
		}
	}
	return NoMaterial, fmt.Errorf("%w: %q", ErrUnknownMaterial, s)
}

func (m Material) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMaterial, uint8(m))
	}
	return []byte(m.String()), nil
}

func (m *Material) UnmarshalText(text []byte) error {
	v, err := ParseMaterial(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
