// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package logistics wires the offer pool, the matching engine and the
// admission stores into the per-tick service driven by the host
// simulation.
package logistics

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	tm "github.com/someonegg/transfermatch"
	"github.com/someonegg/transfermatch/constraint"
	"github.com/someonegg/transfermatch/gateway"
	"github.com/someonegg/transfermatch/history"
	"github.com/someonegg/transfermatch/metrics"
	"github.com/someonegg/transfermatch/zone"
)

// World answers the questions the matcher cannot answer on its own. It is
// implemented by the host simulation.
type World interface {
	constraint.Classifier
	gateway.Classifier
	history.Classifier

	// HomeBuilding returns the building an endpoint belongs to, or 0.
	HomeBuilding(e tm.Endpoint) tm.BuildingID
	HomeZone(e tm.Endpoint) zone.DistrictZone
}

// Dispatch is a transfer handed to the host for execution.
type Dispatch struct {
	ID   uuid.UUID
	Tick time.Time
	tm.Transfer
}

// Dispatcher executes transfers. It is called while a pass holds the
// service, so it must not post or withdraw offers synchronously.
type Dispatcher interface {
	Dispatch(d Dispatch) error
}

type DispatcherFunc func(d Dispatch) error

func (f DispatcherFunc) Dispatch(d Dispatch) error {
	return f(d)
}

type Options struct {
	BucketCapacity int

	// Seed of the bucket start index generator, 0 seeds from the clock.
	Seed          int64
	HistoryWindow time.Duration
	Hysteresis    float32
	Settings      *constraint.Settings

	Logger  *zap.SugaredLogger
	Metrics metrics.Recorder
}

// PassReport summarizes the matching pass of one material.
type PassReport struct {
	Material  tm.Material
	Transfers int
	Amount    int64
	Unmatched []tm.Offer
	Err       error
}

type Report struct {
	Tick   time.Time
	Passes []PassReport
}

// Failed returns the materials whose pass did not complete.
func (r Report) Failed() []tm.Material {
	var ms []tm.Material
	for _, p := range r.Passes {
		if p.Err != nil {
			ms = append(ms, p.Material)
		}
	}
	return ms
}

func (r Report) Amount() int64 {
	var n int64
	for _, p := range r.Passes {
		n += p.Amount
	}
	return n
}

var (
	ErrInadmissibleOrigin = errors.New("origin outside connection has no cargo gateway")
	ErrPassPanicked       = errors.New("matching pass panicked")
)
