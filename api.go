// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package transfermatch provides the per-tick offer matching engine of a city
// simulation logistics layer: it pairs demand and supply offers of a material
// while respecting admission constraints supplied by the caller.
package transfermatch

import (
	"errors"
	"fmt"
)

type Matcher interface {
	Match(material Material, pool *Pool, admitter Admitter, handler TransferHandler) (Result, error)
}

// Admitter decides whether two offers may be paired. The engine itself
// rejects identical endpoints and endpoints sharing a home building.
type Admitter interface {
	HomeOf(e Endpoint) BuildingID
	Admit(material Material, outgoing, incoming *Offer) bool
}

type TransferHandler interface {
	StartTransfer(t Transfer) error
}

type TransferHandlerFunc func(t Transfer) error

func (f TransferHandlerFunc) StartTransfer(t Transfer) error {
	return f(t)
}

type BuildingID uint32

type EndpointKind uint8

const (
	NoEndpoint EndpointKind = iota
	BuildingEndpoint
	VehicleEndpoint
	CitizenEndpoint
	SegmentEndpoint
)

func (k EndpointKind) String() string {
	switch k {
	case BuildingEndpoint:
		return "building"
	case VehicleEndpoint:
		return "vehicle"
	case CitizenEndpoint:
		return "citizen"
	case SegmentEndpoint:
		return "segment"
	}
	return "none"
}

// Endpoint identifies the simulation object behind an offer.
type Endpoint struct {
	Kind EndpointKind
	ID   uint32
}

func Building(id BuildingID) Endpoint { return Endpoint{Kind: BuildingEndpoint, ID: uint32(id)} }
func Vehicle(id uint32) Endpoint      { return Endpoint{Kind: VehicleEndpoint, ID: id} }
func Citizen(id uint32) Endpoint      { return Endpoint{Kind: CitizenEndpoint, ID: id} }
func Segment(id uint32) Endpoint      { return Endpoint{Kind: SegmentEndpoint, ID: id} }

func (e Endpoint) IsValid() bool {
	return e.Kind != NoEndpoint && e.ID != 0
}

// Building returns the building id when e refers to a building.
func (e Endpoint) Building() (BuildingID, bool) {
	if e.Kind != BuildingEndpoint {
		return 0, false
	}
	return BuildingID(e.ID), true
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%v:%d", e.Kind, e.ID)
}

type Position struct {
	X, Y, Z float32
}

func (p Position) DistanceSq(q Position) float32 {
	dx, dy, dz := p.X-q.X, p.Y-q.Y, p.Z-q.Z
	return dx*dx + dy*dy + dz*dz
}

const (
	MinPriority   = 0
	MaxPriority   = 7
	PriorityCount = MaxPriority + 1

	// OutsidePriority is reserved for offers originating at outside
	// connections.
	OutsidePriority = 0
)

type Offer struct {
	Material Material
	Endpoint Endpoint
	Position Position
	Amount   int64
	Priority int

	// Active is set when this party physically executes the transfer.
	Active  bool
	Exclude bool
}

type Direction uint8

const (
	Outgoing Direction = iota
	Incoming
)

func (d Direction) String() string {
	if d == Incoming {
		return "incoming"
	}
	return "outgoing"
}

func (d Direction) Opposite() Direction {
	if d == Incoming {
		return Outgoing
	}
	return Incoming
}

type Transfer struct {
	Material Material
	Outgoing Offer
	Incoming Offer
	Amount   int64
}

// Request returns the offer that searched for a partner.
func (t Transfer) Request() Offer {
	if t.Material.Category() == PullSupplyChain {
		return t.Incoming
	}
	return t.Outgoing
}

// Response returns the offer that was found by the search.
func (t Transfer) Response() Offer {
	if t.Material.Category() == PullSupplyChain {
		return t.Outgoing
	}
	return t.Incoming
}

func (t Transfer) Provider() Offer  { return t.Response() }
func (t Transfer) Requester() Offer { return t.Request() }

// Executor returns the endpoint that physically carries out the transfer.
// The incoming side executes unless only the outgoing side is active.
func (t Transfer) Executor() Endpoint {
	if t.Outgoing.Active && !t.Incoming.Active {
		return t.Outgoing.Endpoint
	}
	return t.Incoming.Endpoint
}

type Result struct {
	Material  Material
	Transfers []Transfer
	Amount    int64
	// Unmatched holds request offers left without a partner, except for
	// best-effort materials whose leftovers are dropped silently.
	Unmatched []Offer
}

var (
	ErrInvalidOffer    = errors.New("invalid offer")
	ErrDuplicateOffer  = errors.New("duplicate offer")
	ErrBucketFull      = errors.New("offer bucket full")
	ErrUnknownMaterial = errors.New("unknown material")
)
