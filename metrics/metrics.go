// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package metrics exposes matching activity as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	tm "github.com/someonegg/transfermatch"
)

const namespace = "transfermatch"

// Offer rejection reasons.
const (
	ReasonGateway   = "gateway"
	ReasonDuplicate = "duplicate"
	ReasonFull      = "bucket_full"
	ReasonInvalid   = "invalid"
)

// Recorder receives matching events. Implementations must be cheap, they
// are called from inside matching passes.
type Recorder interface {
	OfferPosted(m tm.Material, dir tm.Direction)
	OfferRejected(m tm.Material, reason string)
	TransferStarted(m tm.Material, amount int64)
	PassCompleted(m tm.Material, elapsed time.Duration, unmatched int)
	PassFailed(m tm.Material)
}

type nopRecorder struct{}

func (nopRecorder) OfferPosted(tm.Material, tm.Direction)         {}
func (nopRecorder) OfferRejected(tm.Material, string)             {}
func (nopRecorder) TransferStarted(tm.Material, int64)            {}
func (nopRecorder) PassCompleted(tm.Material, time.Duration, int) {}
func (nopRecorder) PassFailed(tm.Material)                        {}

// Nop returns a Recorder that discards everything.
func Nop() Recorder { return nopRecorder{} }

type Collector struct {
	offersPosted     *prometheus.CounterVec
	offersRejected   *prometheus.CounterVec
	transfers        *prometheus.CounterVec
	transferredUnits *prometheus.CounterVec
	unmatched        *prometheus.CounterVec
	passFailures     *prometheus.CounterVec
	passDuration     *prometheus.HistogramVec
}

// NewCollector creates the collectors and registers them with reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		offersPosted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "offers_posted_total",
			Help:      "Offers accepted into the pool",
		}, []string{"material", "direction"}),
		offersRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "offers_rejected_total",
			Help:      "Offers refused at submission",
		}, []string{"material", "reason"}),
		transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "transfers_total",
			Help:      "Transfers started by matching passes",
		}, []string{"material"}),
		transferredUnits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "transferred_amount_total",
			Help:      "Units moved by started transfers",
		}, []string{"material"}),
		unmatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "unmatched_requests_total",
			Help:      "Request offers left without a partner at the end of a pass",
		}, []string{"material"}),
		passFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "pass_failures_total",
			Help:      "Matching passes aborted by an error or panic",
		}, []string{"material"}),
		passDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "pass_duration_seconds",
			Help:      "Wall time of a matching pass",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 8),
		}, []string{"material"}),
	}

	for _, col := range []prometheus.Collector{
		c.offersPosted, c.offersRejected, c.transfers, c.transferredUnits,
		c.unmatched, c.passFailures, c.passDuration,
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Collector) OfferPosted(m tm.Material, dir tm.Direction) {
	c.offersPosted.WithLabelValues(m.String(), dir.String()).Inc()
}

func (c *Collector) OfferRejected(m tm.Material, reason string) {
	c.offersRejected.WithLabelValues(m.String(), reason).Inc()
}

func (c *Collector) TransferStarted(m tm.Material, amount int64) {
	c.transfers.WithLabelValues(m.String()).Inc()
	c.transferredUnits.WithLabelValues(m.String()).Add(float64(amount))
}

func (c *Collector) PassCompleted(m tm.Material, elapsed time.Duration, unmatched int) {
	c.passDuration.WithLabelValues(m.String()).Observe(elapsed.Seconds())
	c.unmatched.WithLabelValues(m.String()).Add(float64(unmatched))
}

func (c *Collector) PassFailed(m tm.Material) {
	c.passFailures.WithLabelValues(m.String()).Inc()
}
