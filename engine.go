// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transfermatch

import (
	"fmt"
	"math/rand"
)

// DefaultHysteresis is how much closer, as a fraction of the current best
// distance, a lower priority response must be to replace a higher priority
// one.
const DefaultHysteresis = 0.75

var _ Matcher = (*Engine)(nil)

type Engine struct {
	// Hysteresis is compared against distances, not squared distances.
	Hysteresis float32

	rnd *rand.Rand
}

// NewEngine returns an engine drawing bucket start indices from rnd. A nil
// rnd is replaced by a generator seeded with 1.
func NewEngine(rnd *rand.Rand) *Engine {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(1))
	}
	return &Engine{Hysteresis: DefaultHysteresis, rnd: rnd}
}

type candidate struct {
	priority int
	index    int
	distSq   float32
}

// Match runs one matching pass of material over pool. The material's
// buckets are always empty when Match returns, even if the handler failed
// or the pass panicked.
func (e *Engine) Match(material Material, pool *Pool, admitter Admitter, handler TransferHandler) (res Result, err error) {
	res.Material = material
	if !material.Valid() {
		return res, ErrUnknownMaterial
	}
	defer pool.Clear(material)

	reqDir, respDir := orientation(material)

	for prio := MaxPriority; prio > OutsidePriority; prio-- {
		if err = e.matchBucket(&res, pool, reqDir, respDir, prio, admitter, handler); err != nil {
			return res, err
		}
	}
	// Outside connection demand only draws on what local requests left.
	if material.Category() == PullSupplyChain {
		if err = e.matchBucket(&res, pool, reqDir, respDir, OutsidePriority, admitter, handler); err != nil {
			return res, err
		}
	}

	if !material.BestEffort() {
		for prio := MaxPriority; prio >= MinPriority; prio-- {
			res.Unmatched = append(res.Unmatched, pool.buckets[reqDir][material][prio]...)
		}
	}
	return res, nil
}

func orientation(m Material) (request, response Direction) {
	if m.Category() == PullSupplyChain {
		return Incoming, Outgoing
	}
	return Outgoing, Incoming
}

func (e *Engine) matchBucket(res *Result, pool *Pool, reqDir, respDir Direction, prio int,
	admitter Admitter, handler TransferHandler) error {

	material := res.Material
	bucket := pool.bucket(reqDir, material, prio)
	n := len(*bucket)
	if n == 0 {
		return nil
	}
	defer pool.compact(bucket)

	start := e.rnd.Intn(n)
	for k := 0; k < n; k++ {
		req := &(*bucket)[(start+k)%n]
		for req.Amount > 0 {
			c, ok := e.best(pool, material, req, reqDir, respDir, admitter)
			if !ok {
				break
			}

			respBucket := pool.bucket(respDir, material, c.priority)
			resp := &(*respBucket)[c.index]

			delta := minInt64(req.Amount, resp.Amount)
			t := Transfer{Material: material, Amount: delta}
			if reqDir == Outgoing {
				t.Outgoing, t.Incoming = *req, *resp
			} else {
				t.Outgoing, t.Incoming = *resp, *req
			}

			req.Amount -= delta
			resp.Amount -= delta
			if resp.Amount <= 0 {
				pool.removeAt(respBucket, c.index)
			}

			res.Transfers = append(res.Transfers, t)
			res.Amount += delta

			if err := handler.StartTransfer(t); err != nil {
				return fmt.Errorf("start transfer %v -> %v: %w", t.Outgoing.Endpoint, t.Incoming.Endpoint, err)
			}
		}
	}
	return nil
}

// best scans response priorities from high to low. Outside connection
// responses are only considered when no local response qualified.
func (e *Engine) best(pool *Pool, material Material, req *Offer, reqDir, respDir Direction,
	admitter Admitter) (best candidate, found bool) {

	h2 := e.Hysteresis * e.Hysteresis
	reqHome := admitter.HomeOf(req.Endpoint)

	for prio := MaxPriority; prio >= MinPriority; prio-- {
		if prio == OutsidePriority && found {
			break
		}
		bucket := pool.buckets[respDir][material][prio]
		for i := range bucket {
			resp := &bucket[i]
			if resp.Amount <= 0 || resp.Endpoint == req.Endpoint {
				continue
			}
			if reqHome != 0 && admitter.HomeOf(resp.Endpoint) == reqHome {
				continue
			}
			var ok bool
			if reqDir == Outgoing {
				ok = admitter.Admit(material, req, resp)
			} else {
				ok = admitter.Admit(material, resp, req)
			}
			if !ok {
				continue
			}

			d := req.Position.DistanceSq(resp.Position)
			switch {
			case !found:
			case prio == best.priority:
				if d >= best.distSq {
					continue
				}
			default:
				if d >= h2*best.distSq {
					continue
				}
			}
			best = candidate{priority: prio, index: i, distSq: d}
			found = true
		}
	}
	return
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
