// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package history remembers recent matches between buildings and throttles
// how often the same endpoints, outside connections in particular, are
// matched again.
package history

import (
	"sync"
	"time"

	tm "github.com/someonegg/transfermatch"
	"github.com/someonegg/transfermatch/gateway"
)

// DefaultWindow is thirty simulated days.
const DefaultWindow = 30 * 24 * time.Hour

// Throttle tuning. These mirror long standing game balance values.
const (
	// IntensityPerOrder is how much outside connection intensity buys one
	// concurrent order.
	IntensityPerOrder = 10
	// RoadConnectionMultiplier scales the cap of road outside connections.
	RoadConnectionMultiplier = 4
	// ResponderCapDivisor caps orders to one responder at cap/2.
	ResponderCapDivisor = 2
	// VehicleCapDivisor caps active vehicles at cap/2.
	VehicleCapDivisor = 2
)

type Classifier interface {
	ConnectionModality(b tm.BuildingID) gateway.Modality
	ActiveVehicles(b tm.BuildingID, m tm.Material) int
}

type Limits struct {
	OutsideConnectionIntensity int
	OutsideToOutsideMaxPercent int
	DummyTraffic               bool
}

type record struct {
	responder tm.BuildingID
	at        time.Time
}

type key struct {
	material  tm.Material
	requester tm.BuildingID
}

// History is safe for concurrent use.
type History struct {
	classifier Classifier
	window     time.Duration

	mu      sync.RWMutex
	limits  Limits
	now     time.Time
	entries map[key][]record
}

func New(classifier Classifier, window time.Duration) *History {
	if window <= 0 {
		window = DefaultWindow
	}
	return &History{
		classifier: classifier,
		window:     window,
		entries:    make(map[key][]record),
	}
}

func (h *History) Window() time.Duration {
	return h.window
}

func (h *History) SetLimits(l Limits) {
	h.mu.Lock()
	h.limits = l
	h.mu.Unlock()
}

func (h *History) Limits() Limits {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.limits
}

// Advance moves the simulated clock that decides which entries are still
// concurrent.
func (h *History) Advance(now time.Time) {
	h.mu.Lock()
	h.now = now
	h.mu.Unlock()
}

// Record stores a match between a and b for both of them.
func (h *History) Record(m tm.Material, a, b tm.BuildingID, at time.Time) {
	if a == 0 || b == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	ka, kb := key{m, a}, key{m, b}
	h.entries[ka] = append(h.entries[ka], record{responder: b, at: at})
	h.entries[kb] = append(h.entries[kb], record{responder: a, at: at})
	if at.After(h.now) {
		h.now = at
	}
}

// IsRestricted reports whether another match of m between requester and
// responder would exceed the concurrency limits of either side.
func (h *History) IsRestricted(m tm.Material, requester, responder tm.BuildingID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.restricted(m, requester, responder) || h.restricted(m, responder, requester)
}

func (h *History) restricted(m tm.Material, subject, other tm.BuildingID) bool {
	subjectMod := h.classifier.ConnectionModality(subject)
	bothOutside := subjectMod != gateway.NoModality &&
		h.classifier.ConnectionModality(other) != gateway.NoModality

	if bothOutside && !h.limits.DummyTraffic {
		return true
	}

	limit := h.cap(subjectMod)
	total, toOther, toOutside := h.counts(m, subject, other)

	if total >= limit {
		return true
	}
	if toOther >= atLeastOne(limit/ResponderCapDivisor) {
		return true
	}
	if bothOutside && toOutside >= limit*h.limits.OutsideToOutsideMaxPercent/100 {
		return true
	}
	return h.classifier.ActiveVehicles(subject, m) >= atLeastOne(limit/VehicleCapDivisor)
}

// Cap returns the concurrent order cap of a building of modality mod.
func (h *History) Cap(mod gateway.Modality) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cap(mod)
}

func (h *History) cap(mod gateway.Modality) int {
	intensity := h.limits.OutsideConnectionIntensity
	if intensity < 0 {
		intensity = 0
	}
	c := (intensity + IntensityPerOrder - 1) / IntensityPerOrder
	if mod == gateway.Road {
		c *= RoadConnectionMultiplier
	}
	return c
}

func (h *History) counts(m tm.Material, subject, other tm.BuildingID) (total, toOther, toOutside int) {
	since := h.now.Add(-h.window)
	for _, r := range h.entries[key{m, subject}] {
		if !r.at.After(since) {
			continue
		}
		total++
		if r.responder == other {
			toOther++
		}
		if h.classifier.ConnectionModality(r.responder) != gateway.NoModality {
			toOutside++
		}
	}
	return
}

// Total returns the concurrent orders of requester for m.
func (h *History) Total(m tm.Material, requester tm.BuildingID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total, _, _ := h.counts(m, requester, 0)
	return total
}

func (h *History) ToResponder(m tm.Material, requester, responder tm.BuildingID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, n, _ := h.counts(m, requester, responder)
	return n
}

func (h *History) ToOutside(m tm.Material, requester tm.BuildingID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, _, n := h.counts(m, requester, 0)
	return n
}

// Purge drops entries of m older than the window and returns how many
// were dropped.
func (h *History) Purge(m tm.Material, now time.Time) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	since := now.Add(-h.window)
	n := 0
	for k, rs := range h.entries {
		if k.material != m {
			continue
		}
		n += h.purge(k, rs, since)
	}
	return n
}

func (h *History) PurgeAll(now time.Time) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	since := now.Add(-h.window)
	n := 0
	for k, rs := range h.entries {
		n += h.purge(k, rs, since)
	}
	return n
}

func (h *History) purge(k key, rs []record, since time.Time) int {
	kept := rs[:0]
	for _, r := range rs {
		if r.at.After(since) {
			kept = append(kept, r)
		}
	}
	dropped := len(rs) - len(kept)
	if len(kept) == 0 {
		delete(h.entries, k)
	} else {
		h.entries[k] = kept
	}
	return dropped
}

// Forget drops every entry involving b.
func (h *History) Forget(b tm.BuildingID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for k, rs := range h.entries {
		if k.requester == b {
			delete(h.entries, k)
			continue
		}
		kept := rs[:0]
		for _, r := range rs {
			if r.responder != b {
				kept = append(kept, r)
			}
		}
		if len(kept) == 0 {
			delete(h.entries, k)
		} else {
			h.entries[k] = kept
		}
	}
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
