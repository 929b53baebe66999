// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scenario

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	tm "github.com/someonegg/transfermatch"
	"github.com/someonegg/transfermatch/constraint"
	"github.com/someonegg/transfermatch/logistics"
	"github.com/someonegg/transfermatch/metrics"
)

var ErrExpectation = errors.New("expectation not met")

type TransferRecord struct {
	Material tm.Material `yaml:"material"`
	Outgoing uint32      `yaml:"outgoing"`
	Incoming uint32      `yaml:"incoming"`
	Amount   int64       `yaml:"amount"`
}

func (r TransferRecord) String() string {
	return fmt.Sprintf("%v %d->%d x%d", r.Material, r.Outgoing, r.Incoming, r.Amount)
}

type Rejection struct {
	Offer int    `yaml:"offer"`
	Error string `yaml:"error"`
}

type TickOutcome struct {
	Index     int              `yaml:"index"`
	Time      time.Time        `yaml:"time"`
	Transfers []TransferRecord `yaml:"transfers"`
	Rejected  []Rejection      `yaml:"rejected,omitempty"`
	Unmatched int              `yaml:"unmatched"`
	Failed    []tm.Material    `yaml:"failed,omitempty"`

	Dispatches []logistics.Dispatch `yaml:"-"`
}

type Outcome struct {
	Name  string        `yaml:"name"`
	Ticks []TickOutcome `yaml:"ticks"`

	// Snapshot holds the constraint store after the last tick.
	Snapshot constraint.Snapshot `yaml:"-"`
}

func (o *Outcome) Transfers() []TransferRecord {
	var rs []TransferRecord
	for _, t := range o.Ticks {
		rs = append(rs, t.Transfers...)
	}
	return rs
}

type Runner struct {
	Logger         *zap.SugaredLogger
	Metrics        metrics.Recorder
	BucketCapacity int
	Hysteresis     float32
	HistoryWindow  time.Duration

	// Initial is restored into the constraint store after the buildings
	// are created and before the scenario restrictions are applied.
	Initial *constraint.Snapshot
}

// Run plays sc tick by tick. Rejected offers and failed passes are part of
// the outcome, not errors.
func (r *Runner) Run(ctx context.Context, sc *Scenario) (*Outcome, error) {
	log := r.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	seed := sc.Seed
	if seed == 0 {
		seed = 1
	}

	world := NewTable(sc)
	var dispatched []logistics.Dispatch
	svc := logistics.NewService(world, logistics.DispatcherFunc(func(d logistics.Dispatch) error {
		dispatched = append(dispatched, d)
		return nil
	}), logistics.Options{
		BucketCapacity: r.BucketCapacity,
		Seed:           seed,
		HistoryWindow:  r.HistoryWindow,
		Hysteresis:     r.Hysteresis,
		Logger:         log,
		Metrics:        r.Metrics,
	})

	for _, b := range sc.Buildings {
		svc.BuildingCreated(tm.BuildingID(b.ID), b.Zone, b.Terminal)
	}
	if r.Initial != nil {
		svc.Constraints().Restore(*r.Initial)
	}
	if st := sc.Settings; st != nil {
		svc.SetSettings(constraint.Settings{
			OutsideConnectionIntensity: st.OutsideConnectionIntensity,
			OutsideToOutsideMaxPercent: st.OutsideToOutsideMaxPercent,
			DummyTraffic:               st.DummyTraffic,
		})
	}
	applyRestrictions(svc.Constraints(), sc.Restrictions)
	for _, l := range sc.Links {
		if !svc.Constraints().AddSupplyLink(tm.BuildingID(l.Source), tm.BuildingID(l.Destination)) {
			log.Warnw("supply link ignored", "source", l.Source, "destination", l.Destination)
		}
	}

	out := &Outcome{Name: sc.Name}
	for i, tick := range sc.Ticks {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		now := sc.Start.Add(time.Duration(i) * sc.TickInterval)
		to := TickOutcome{Index: i, Time: now}

		for _, b := range tick.Destroy {
			svc.BuildingDestroyed(tm.BuildingID(b))
			world.Remove(tm.BuildingID(b))
		}
		for j, o := range tick.Offers {
			var err error
			if o.Direction == "outgoing" {
				err = svc.PostOutgoingOffer(o.Material, o.offer())
			} else {
				err = svc.PostIncomingOffer(o.Material, o.offer())
			}
			if err != nil {
				to.Rejected = append(to.Rejected, Rejection{Offer: j, Error: err.Error()})
			}
		}

		dispatched = dispatched[:0]
		rep := svc.Tick(now)
		for _, d := range dispatched {
			to.Dispatches = append(to.Dispatches, d)
			to.Transfers = append(to.Transfers, TransferRecord{
				Material: d.Material,
				Outgoing: uint32(world.HomeBuilding(d.Outgoing.Endpoint)),
				Incoming: uint32(world.HomeBuilding(d.Incoming.Endpoint)),
				Amount:   d.Amount,
			})
		}
		for _, p := range rep.Passes {
			to.Unmatched += len(p.Unmatched)
		}
		to.Failed = rep.Failed()

		log.Infow("tick completed",
			"scenario", sc.Name,
			"tick", i,
			"transfers", len(to.Transfers),
			"amount", rep.Amount(),
			"rejected", len(to.Rejected),
			"unmatched", to.Unmatched)
		out.Ticks = append(out.Ticks, to)
	}

	out.Snapshot = svc.Constraints().Snapshot()
	return out, nil
}

func applyRestrictions(store *constraint.Store, rs []Restriction) {
	for _, r := range rs {
		b := tm.BuildingID(r.Building)
		dir := constraint.Input
		if r.Direction == "output" {
			dir = constraint.Output
		}
		if r.AllLocalAreas != nil {
			store.SetAllLocalAreas(dir, b, *r.AllLocalAreas)
		}
		if r.OutsideConnections != nil {
			store.SetOutsideConnections(dir, b, *r.OutsideConnections)
		}
		for _, z := range r.Districts {
			store.AddDistrictServed(dir, b, z)
		}
		if r.Buffer != nil {
			store.SetInternalSupplyBuffer(b, *r.Buffer)
		}
	}
}

// Verify compares out with the expectations written in sc.
func Verify(sc *Scenario, out *Outcome) error {
	var errs []error
	for i, tick := range sc.Ticks {
		if tick.Expect == nil || i >= len(out.Ticks) {
			continue
		}
		got := out.Ticks[i]
		exp := tick.Expect

		if exp.Transfers != nil {
			if len(exp.Transfers) != len(got.Transfers) {
				errs = append(errs, fmt.Errorf("%w: tick %d: want %d transfers %v, got %d %v",
					ErrExpectation, i, len(exp.Transfers), exp.Transfers, len(got.Transfers), got.Transfers))
			} else {
				for k := range exp.Transfers {
					if exp.Transfers[k] != got.Transfers[k] {
						errs = append(errs, fmt.Errorf("%w: tick %d: transfer %d: want %v, got %v",
							ErrExpectation, i, k, exp.Transfers[k], got.Transfers[k]))
					}
				}
			}
		}
		if exp.Rejected != nil && *exp.Rejected != len(got.Rejected) {
			errs = append(errs, fmt.Errorf("%w: tick %d: want %d rejected offers, got %d",
				ErrExpectation, i, *exp.Rejected, len(got.Rejected)))
		}
		if exp.Unmatched != nil && *exp.Unmatched != got.Unmatched {
			errs = append(errs, fmt.Errorf("%w: tick %d: want %d unmatched requests, got %d",
				ErrExpectation, i, *exp.Unmatched, got.Unmatched))
		}
	}
	return errors.Join(errs...)
}
