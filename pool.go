// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transfermatch

const DefaultBucketCapacity = 256

// Pool holds the offers posted for the next matching pass, bucketed by
// direction, material and priority. It is not safe for concurrent use.
type Pool struct {
	capacity int
	buckets  [2][materialCount][PriorityCount][]Offer
}

func NewPool(capacity int) *Pool {
	if capacity <= 0 {
		capacity = DefaultBucketCapacity
	}
	return &Pool{capacity: capacity}
}

func (p *Pool) Capacity() int {
	return p.capacity
}

// Add posts an offer. The first offer of an endpoint in a bucket wins and
// a full bucket drops the new offer.
func (p *Pool) Add(dir Direction, o Offer) error {
	if !o.Material.Valid() || !o.Endpoint.IsValid() || o.Amount <= 0 ||
		o.Priority < MinPriority || o.Priority > MaxPriority || dir > Incoming {
		return ErrInvalidOffer
	}

	b := p.bucket(dir, o.Material, o.Priority)
	for i := range *b {
		if (*b)[i].Endpoint == o.Endpoint {
			return ErrDuplicateOffer
		}
	}
	if len(*b) >= p.capacity {
		return ErrBucketFull
	}

	*b = append(*b, o)
	return nil
}

// Remove withdraws every offer of endpoint e for material m in direction
// dir and returns how many were removed.
func (p *Pool) Remove(dir Direction, m Material, e Endpoint) int {
	if !m.Valid() || dir > Incoming {
		return 0
	}
	removed := 0
	for prio := MinPriority; prio <= MaxPriority; prio++ {
		b := p.bucket(dir, m, prio)
		for i := 0; i < len(*b); {
			if (*b)[i].Endpoint == e {
				p.removeAt(b, i)
				removed++
				continue
			}
			i++
		}
	}
	return removed
}

// RemoveEndpoint withdraws all offers of e in every material and direction.
func (p *Pool) RemoveEndpoint(e Endpoint) int {
	removed := 0
	for _, m := range Materials() {
		removed += p.Remove(Outgoing, m, e)
		removed += p.Remove(Incoming, m, e)
	}
	return removed
}

func (p *Pool) Count(dir Direction, m Material, priority int) int {
	if !m.Valid() || dir > Incoming || priority < MinPriority || priority > MaxPriority {
		return 0
	}
	return len(p.buckets[dir][m][priority])
}

// Pending returns the number of offers of m in both directions.
func (p *Pool) Pending(m Material) int {
	if !m.Valid() {
		return 0
	}
	n := 0
	for prio := MinPriority; prio <= MaxPriority; prio++ {
		n += len(p.buckets[Outgoing][m][prio]) + len(p.buckets[Incoming][m][prio])
	}
	return n
}

// Bucket returns a copy of a bucket.
func (p *Pool) Bucket(dir Direction, m Material, priority int) []Offer {
	if p.Count(dir, m, priority) == 0 {
		return nil
	}
	b := p.buckets[dir][m][priority]
	out := make([]Offer, len(b))
	copy(out, b)
	return out
}

// Materials returns the materials with pending offers in catalogue order.
func (p *Pool) Materials() []Material {
	var ms []Material
	for _, m := range Materials() {
		if p.hasAny(Outgoing, m) || p.hasAny(Incoming, m) {
			ms = append(ms, m)
		}
	}
	return ms
}

func (p *Pool) Clear(m Material) {
	if !m.Valid() {
		return
	}
	for prio := MinPriority; prio <= MaxPriority; prio++ {
		p.buckets[Outgoing][m][prio] = p.buckets[Outgoing][m][prio][:0]
		p.buckets[Incoming][m][prio] = p.buckets[Incoming][m][prio][:0]
	}
}

func (p *Pool) ClearAll() {
	for _, m := range Materials() {
		p.Clear(m)
	}
}

func (p *Pool) hasAny(dir Direction, m Material) bool {
	for prio := MinPriority; prio <= MaxPriority; prio++ {
		if len(p.buckets[dir][m][prio]) > 0 {
			return true
		}
	}
	return false
}

func (p *Pool) bucket(dir Direction, m Material, priority int) *[]Offer {
	return &p.buckets[dir][m][priority]
}

// removeAt swaps the last offer into i and shrinks the bucket.
func (p *Pool) removeAt(b *[]Offer, i int) {
	last := len(*b) - 1
	(*b)[i] = (*b)[last]
	(*b)[last] = Offer{}
	*b = (*b)[:last]
}

// compact drops exhausted offers, keeping the order of the rest.
func (p *Pool) compact(b *[]Offer) {
	n := 0
	for i := range *b {
		if (*b)[i].Amount > 0 {
			(*b)[n] = (*b)[i]
			n++
		}
	}
	for i := n; i < len(*b); i++ {
		(*b)[i] = Offer{}
	}
	*b = (*b)[:n]
}
