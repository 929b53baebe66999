// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package scenario replays scripted cities through the matching service
// for offline what-if analysis.
package scenario

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	tm "github.com/someonegg/transfermatch"
	"github.com/someonegg/transfermatch/gateway"
	"github.com/someonegg/transfermatch/zone"
)

const DefaultTickInterval = time.Hour

// Scenario is a scripted city: its buildings, their restrictions and the
// offers posted on every tick.
type Scenario struct {
	Name         string        `yaml:"name" validate:"required"`
	Start        time.Time     `yaml:"start"`
	TickInterval time.Duration `yaml:"tick_interval" validate:"gte=0"`
	Seed         int64         `yaml:"seed"`

	Settings     *Settings      `yaml:"settings"`
	Buildings    []Building     `yaml:"buildings" validate:"dive"`
	Restrictions []Restriction  `yaml:"restrictions" validate:"dive"`
	Links        []Link         `yaml:"links" validate:"dive"`
	Endpoints    []EndpointHome `yaml:"endpoints" validate:"dive"`
	Ticks        []Tick         `yaml:"ticks" validate:"required,min=1,dive"`
}

type Settings struct {
	OutsideConnectionIntensity int  `yaml:"outside_connection_intensity" validate:"min=0,max=100"`
	OutsideToOutsideMaxPercent int  `yaml:"outside_to_outside_max_percent" validate:"min=0,max=100"`
	DummyTraffic               bool `yaml:"dummy_traffic"`
}

type Building struct {
	ID           uint32            `yaml:"id" validate:"required"`
	Name         string            `yaml:"name"`
	Zone         zone.DistrictZone `yaml:"zone"`
	Configurable bool              `yaml:"configurable"`
	SupplyChain  bool              `yaml:"supply_chain"`

	// Outside marks an outside connection of the given modality.
	Outside gateway.Modality `yaml:"outside"`
	// Terminal registers the building as a cargo gateway.
	Terminal gateway.Modality `yaml:"terminal"`

	Vehicles map[string]int `yaml:"vehicles"`
}

type Restriction struct {
	Building           uint32              `yaml:"building" validate:"required"`
	Direction          string              `yaml:"direction" validate:"required,oneof=input output"`
	AllLocalAreas      *bool               `yaml:"all_local_areas"`
	OutsideConnections *bool               `yaml:"outside_connections"`
	Districts          []zone.DistrictZone `yaml:"districts"`
	Buffer             *int                `yaml:"buffer" validate:"omitempty,min=0,max=100"`
}

type Link struct {
	Source      uint32 `yaml:"source" validate:"required"`
	Destination uint32 `yaml:"destination" validate:"required,nefield=Source"`
}

// EndpointHome places a vehicle or citizen in its home building.
type EndpointHome struct {
	Kind     string             `yaml:"kind" validate:"required,oneof=vehicle citizen segment"`
	ID       uint32             `yaml:"id" validate:"required"`
	Building uint32             `yaml:"building"`
	Zone     *zone.DistrictZone `yaml:"zone"`
}

type Tick struct {
	Offers  []Offer  `yaml:"offers" validate:"dive"`
	Destroy []uint32 `yaml:"destroy"`
	Expect  *Expect  `yaml:"expect"`
}

type Offer struct {
	Material  tm.Material `yaml:"material" validate:"required"`
	Direction string      `yaml:"direction" validate:"required,oneof=outgoing incoming"`
	Building  uint32      `yaml:"building" validate:"required_without_all=Vehicle Citizen"`
	Vehicle   uint32      `yaml:"vehicle"`
	Citizen   uint32      `yaml:"citizen"`
	X         float32     `yaml:"x"`
	Y         float32     `yaml:"y"`
	Z         float32     `yaml:"z"`
	Amount    int64       `yaml:"amount" validate:"gt=0"`
	Priority  int         `yaml:"priority" validate:"min=0,max=7"`
	Active    bool        `yaml:"active"`
	Exclude   bool        `yaml:"exclude"`
}

type Expect struct {
	Transfers []TransferRecord `yaml:"transfers"`
	Rejected  *int             `yaml:"rejected"`
	Unmatched *int             `yaml:"unmatched"`
}

// Endpoint returns the endpoint posting o.
func (o Offer) Endpoint() tm.Endpoint {
	switch {
	case o.Vehicle != 0:
		return tm.Vehicle(o.Vehicle)
	case o.Citizen != 0:
		return tm.Citizen(o.Citizen)
	}
	return tm.Building(tm.BuildingID(o.Building))
}

func (o Offer) offer() tm.Offer {
	return tm.Offer{
		Material: o.Material,
		Endpoint: o.Endpoint(),
		Position: tm.Position{X: o.X, Y: o.Y, Z: o.Z},
		Amount:   o.Amount,
		Priority: o.Priority,
		Active:   o.Active,
		Exclude:  o.Exclude,
	}
}

func (e EndpointHome) Endpoint() tm.Endpoint {
	switch e.Kind {
	case "vehicle":
		return tm.Vehicle(e.ID)
	case "citizen":
		return tm.Citizen(e.ID)
	}
	return tm.Segment(e.ID)
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if err := validate(&sc); err != nil {
		return nil, err
	}
	if sc.TickInterval == 0 {
		sc.TickInterval = DefaultTickInterval
	}
	if sc.Start.IsZero() {
		sc.Start = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return &sc, nil
}

func validate(sc *Scenario) error {
	if err := validator.New().Struct(sc); err != nil {
		var (
			msgs []string
			errs validator.ValidationErrors
		)
		if errors.As(err, &errs) {
			for _, e := range errs {
				msgs = append(msgs, fmt.Sprintf("%s: %s", e.Namespace(), e.Tag()))
			}
			return fmt.Errorf("invalid scenario: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid scenario: %w", err)
	}

	ids := make(map[uint32]bool, len(sc.Buildings))
	for _, b := range sc.Buildings {
		if ids[b.ID] {
			return fmt.Errorf("invalid scenario: building %d declared twice", b.ID)
		}
		ids[b.ID] = true
		for name := range b.Vehicles {
			if _, err := tm.ParseMaterial(name); err != nil {
				return fmt.Errorf("invalid scenario: building %d: %w", b.ID, err)
			}
		}
	}
	return nil
}
