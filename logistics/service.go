// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package logistics

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	tm "github.com/someonegg/transfermatch"
	"github.com/someonegg/transfermatch/constraint"
	"github.com/someonegg/transfermatch/gateway"
	"github.com/someonegg/transfermatch/history"
	"github.com/someonegg/transfermatch/metrics"
	"github.com/someonegg/transfermatch/zone"
)

// Rejected offers are logged at most this often, the rest are counted only.
const (
	rejectLogInterval = time.Second
	rejectLogBurst    = 10
)

type Service struct {
	world      World
	dispatcher Dispatcher
	log        *zap.SugaredLogger
	metrics    metrics.Recorder
	rejectLog  *rate.Limiter

	constraints *constraint.Store
	gateways    *gateway.Registry
	history     *history.History

	// mu serializes offer posting against matching passes.
	mu     sync.Mutex
	pool   *tm.Pool
	engine *tm.Engine
}

func NewService(world World, dispatcher Dispatcher, opts Options) *Service {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	window := opts.HistoryWindow
	if window <= 0 {
		window = history.DefaultWindow
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	rec := opts.Metrics
	if rec == nil {
		rec = metrics.Nop()
	}

	engine := tm.NewEngine(rand.New(rand.NewSource(seed)))
	if opts.Hysteresis > 0 {
		engine.Hysteresis = opts.Hysteresis
	}

	s := &Service{
		world:       world,
		dispatcher:  dispatcher,
		log:         logger,
		metrics:     rec,
		rejectLog:   rate.NewLimiter(rate.Every(rejectLogInterval), rejectLogBurst),
		constraints: constraint.NewStore(world),
		gateways:    gateway.NewRegistry(world),
		history:     history.New(world, window),
		pool:        tm.NewPool(opts.BucketCapacity),
		engine:      engine,
	}
	if opts.Settings != nil {
		s.constraints.SetSettings(*opts.Settings)
	}
	s.syncLimits()
	return s
}

func (s *Service) Constraints() *constraint.Store { return s.constraints }
func (s *Service) Gateways() *gateway.Registry    { return s.gateways }
func (s *Service) History() *history.History      { return s.history }

func (s *Service) PostOutgoingOffer(m tm.Material, o tm.Offer) error {
	return s.post(tm.Outgoing, m, o)
}

func (s *Service) PostIncomingOffer(m tm.Material, o tm.Offer) error {
	return s.post(tm.Incoming, m, o)
}

func (s *Service) post(dir tm.Direction, m tm.Material, o tm.Offer) error {
	o.Material = m

	if home := s.world.HomeBuilding(o.Endpoint); home != 0 {
		admissible := s.gateways.IsAdmissibleIncoming(home)
		if dir == tm.Outgoing {
			admissible = s.gateways.IsAdmissibleOutgoing(home)
		}
		if !admissible {
			s.rejected(dir, o, metrics.ReasonGateway, ErrInadmissibleOrigin)
			return ErrInadmissibleOrigin
		}
	}

	s.mu.Lock()
	err := s.pool.Add(dir, o)
	s.mu.Unlock()

	if err != nil {
		s.rejected(dir, o, reasonOf(err), err)
		return err
	}
	s.metrics.OfferPosted(m, dir)
	return nil
}

func (s *Service) rejected(dir tm.Direction, o tm.Offer, reason string, err error) {
	s.metrics.OfferRejected(o.Material, reason)
	if s.rejectLog.Allow() {
		s.log.Debugw("offer rejected",
			"material", o.Material,
			"direction", dir,
			"endpoint", o.Endpoint,
			"priority", o.Priority,
			"error", err)
	}
}

func reasonOf(err error) string {
	switch {
	case errors.Is(err, tm.ErrDuplicateOffer):
		return metrics.ReasonDuplicate
	case errors.Is(err, tm.ErrBucketFull):
		return metrics.ReasonFull
	}
	return metrics.ReasonInvalid
}

// WithdrawOffer removes the pending offers of e for m in direction dir.
func (s *Service) WithdrawOffer(dir tm.Direction, m tm.Material, e tm.Endpoint) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pool.Remove(dir, m, e)
}

func (s *Service) Pending(m tm.Material) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pool.Pending(m)
}

// Tick runs one matching pass for every material with pending offers. A
// failing pass is logged and its offers dropped, the other materials are
// not affected.
func (s *Service) Tick(now time.Time) Report {
	s.syncLimits()
	s.history.Advance(now)
	if n := s.history.PurgeAll(now); n > 0 {
		s.log.Debugw("history purged", "entries", n, "tick", now)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rep := Report{Tick: now}
	for _, m := range s.pool.Materials() {
		rep.Passes = append(rep.Passes, s.runPass(m, now))
	}
	return rep
}

func (s *Service) runPass(m tm.Material, now time.Time) (pr PassReport) {
	pr.Material = m
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			pr.Err = fmt.Errorf("%w: %v", ErrPassPanicked, r)
		}
		if pr.Err != nil {
			s.pool.Clear(m)
			s.metrics.PassFailed(m)
			s.log.Errorw("matching pass failed",
				"material", m,
				"tick", now,
				"transfers", pr.Transfers,
				"error", pr.Err)
			return
		}
		s.metrics.PassCompleted(m, time.Since(start), len(pr.Unmatched))
	}()

	handler := tm.TransferHandlerFunc(func(t tm.Transfer) error {
		if err := s.startTransfer(t, now); err != nil {
			return err
		}
		pr.Transfers++
		return nil
	})
	res, err := s.engine.Match(m, s.pool, s, handler)
	pr.Amount = res.Amount
	pr.Unmatched = res.Unmatched
	pr.Err = err
	return pr
}

func (s *Service) startTransfer(t tm.Transfer, now time.Time) error {
	d := Dispatch{ID: uuid.New(), Tick: now, Transfer: t}

	s.log.Debugw("transfer started",
		"id", d.ID,
		"material", t.Material,
		"outgoing", t.Outgoing.Endpoint,
		"incoming", t.Incoming.Endpoint,
		"executor", t.Executor(),
		"amount", t.Amount)

	if err := s.dispatcher.Dispatch(d); err != nil {
		return fmt.Errorf("dispatch transfer %s: %w", d.ID, err)
	}
	s.metrics.TransferStarted(t.Material, t.Amount)

	out, outOK := t.Outgoing.Endpoint.Building()
	in, inOK := t.Incoming.Endpoint.Building()
	if outOK && inOK {
		s.history.Record(t.Material, out, in, now)
	}
	return nil
}

// SetSettings changes the global outside connection knobs.
func (s *Service) SetSettings(st constraint.Settings) {
	s.constraints.SetSettings(st)
	s.syncLimits()
}

func (s *Service) syncLimits() {
	st := s.constraints.Settings()
	s.history.SetLimits(history.Limits{
		OutsideConnectionIntensity: st.OutsideConnectionIntensity,
		OutsideToOutsideMaxPercent: st.OutsideToOutsideMaxPercent,
		DummyTraffic:               st.DummyTraffic,
	})
}

// BuildingCreated applies the initial restrictions of b and registers it
// as a cargo gateway when terminal is not NoModality.
func (s *Service) BuildingCreated(b tm.BuildingID, home zone.DistrictZone, terminal gateway.Modality) {
	s.constraints.OnBuildingCreated(b, home)
	if terminal != gateway.NoModality {
		s.gateways.Register(b, terminal)
	}
}

// BuildingDestroyed forgets everything known about b, including its
// pending offers.
func (s *Service) BuildingDestroyed(b tm.BuildingID) {
	s.constraints.OnBuildingDestroyed(b)
	s.gateways.Deregister(b)
	s.history.Forget(b)

	s.mu.Lock()
	n := s.pool.RemoveEndpoint(tm.Building(b))
	s.mu.Unlock()

	s.log.Debugw("building destroyed", "building", b, "offers", n)
}
