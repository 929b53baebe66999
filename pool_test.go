// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transfermatch

import (
	"errors"
	"testing"
)

func TestPool_Add(t *testing.T) {
	t.Run("Invalid", func(t *testing.T) {
		p := NewPool(0)
		bad := []Offer{
			makeOffer(NoMaterial, Building(1), 0, 1, 1),
			makeOffer(Garbage, Endpoint{}, 0, 1, 1),
			makeOffer(Garbage, Building(1), 0, 0, 1),
			makeOffer(Garbage, Building(1), 0, 1, 8),
			makeOffer(Garbage, Building(1), 0, 1, -1),
		}
		for _, o := range bad {
			if err := p.Add(Outgoing, o); !errors.Is(err, ErrInvalidOffer) {
				t.Errorf("Add(%+v) = %v, want ErrInvalidOffer", o, err)
			}
		}
	})

	t.Run("Duplicate", func(t *testing.T) {
		p := NewPool(0)
		if err := p.Add(Outgoing, makeOffer(Garbage, Building(1), 0, 1, 3)); err != nil {
			t.Fatal(err)
		}
		err := p.Add(Outgoing, makeOffer(Garbage, Building(1), 5, 9, 3))
		if !errors.Is(err, ErrDuplicateOffer) {
			t.Errorf("Expected ErrDuplicateOffer, got %v", err)
		}
		if b := p.Bucket(Outgoing, Garbage, 3); len(b) != 1 || b[0].Amount != 1 {
			t.Errorf("Expected first offer kept, got %+v", b)
		}
		// Other priorities and directions are separate buckets.
		if err := p.Add(Outgoing, makeOffer(Garbage, Building(1), 0, 1, 4)); err != nil {
			t.Errorf("Expected other priority accepted, got %v", err)
		}
		if err := p.Add(Incoming, makeOffer(Garbage, Building(1), 0, 1, 3)); err != nil {
			t.Errorf("Expected other direction accepted, got %v", err)
		}
	})

	t.Run("Full", func(t *testing.T) {
		p := NewPool(2)
		for i := 1; i <= 2; i++ {
			if err := p.Add(Incoming, makeOffer(Coal, Building(BuildingID(i)), 0, 1, 2)); err != nil {
				t.Fatal(err)
			}
		}
		if err := p.Add(Incoming, makeOffer(Coal, Building(3), 0, 1, 2)); !errors.Is(err, ErrBucketFull) {
			t.Errorf("Expected ErrBucketFull, got %v", err)
		}
		b := p.Bucket(Incoming, Coal, 2)
		if len(b) != 2 || b[0].Endpoint != Building(1) || b[1].Endpoint != Building(2) {
			t.Errorf("Expected existing offers untouched, got %+v", b)
		}
	})
}

func TestPool_DefaultCapacity(t *testing.T) {
	if c := NewPool(-1).Capacity(); c != DefaultBucketCapacity {
		t.Errorf("Expected capacity %d, got %d", DefaultBucketCapacity, c)
	}
}

func TestPool_RemoveAndClear(t *testing.T) {
	p := NewPool(0)
	mustAdd(t, p, Outgoing, makeOffer(Goods, Building(1), 0, 1, 1))
	mustAdd(t, p, Outgoing, makeOffer(Goods, Building(1), 0, 1, 5))
	mustAdd(t, p, Outgoing, makeOffer(Goods, Building(2), 0, 1, 5))
	mustAdd(t, p, Incoming, makeOffer(Goods, Building(3), 0, 1, 5))
	mustAdd(t, p, Incoming, makeOffer(Mail, Building(1), 0, 1, 5))

	if n := p.Remove(Outgoing, Goods, Building(1)); n != 2 {
		t.Errorf("Expected 2 removed, got %d", n)
	}
	if n := p.Count(Outgoing, Goods, 5); n != 1 {
		t.Errorf("Expected 1 left at priority 5, got %d", n)
	}

	ms := p.Materials()
	if len(ms) != 2 || ms[0] != Mail || ms[1] != Goods {
		t.Errorf("Expected mail and goods pending, got %v", ms)
	}

	if n := p.RemoveEndpoint(Building(1)); n != 1 {
		t.Errorf("Expected the mail offer removed, got %d", n)
	}

	p.Clear(Goods)
	if n := p.Pending(Goods); n != 0 {
		t.Errorf("Expected goods cleared, got %d", n)
	}
}

func TestMaterial_Catalogue(t *testing.T) {
	if Garbage.Category() != PushService || Coal.Category() != PullSupplyChain {
		t.Error("Unexpected material categories")
	}
	m, err := ParseMaterial(" Luxury_Products ")
	if err != nil || m != LuxuryProducts {
		t.Errorf("ParseMaterial = %v, %v", m, err)
	}
	if _, err := ParseMaterial("uranium"); !errors.Is(err, ErrUnknownMaterial) {
		t.Errorf("Expected ErrUnknownMaterial, got %v", err)
	}
	if len(Materials()) != int(materialCount)-1 {
		t.Errorf("Expected %d materials, got %d", materialCount-1, len(Materials()))
	}
}
