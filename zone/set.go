// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zone

import "sort"

// Set is a set of zones. The zero value is empty and ready to use.
type Set struct {
	m map[DistrictZone]struct{}
}

func NewSet(zones ...DistrictZone) Set {
	var s Set
	for _, z := range zones {
		s.Add(z)
	}
	return s
}

// Add inserts z and reports whether it was absent.
func (s *Set) Add(z DistrictZone) bool {
	if _, ok := s.m[z]; ok {
		return false
	}
	if s.m == nil {
		s.m = make(map[DistrictZone]struct{})
	}
	s.m[z] = struct{}{}
	return true
}

// Remove deletes z and reports whether it was present. Removing the last
// zone leaves an empty set.
func (s *Set) Remove(z DistrictZone) bool {
	if _, ok := s.m[z]; !ok {
		return false
	}
	delete(s.m, z)
	if len(s.m) == 0 {
		s.m = nil
	}
	return true
}

func (s Set) Has(z DistrictZone) bool {
	_, ok := s.m[z]
	return ok
}

func (s Set) Len() int {
	return len(s.m)
}

// Serves reports whether any member shares a district or park with z.
func (s Set) Serves(z DistrictZone) bool {
	if s.Has(z) {
		return true
	}
	for m := range s.m {
		if m.Shares(z) {
			return true
		}
	}
	return false
}

// Zones returns the members ordered by district, then park.
func (s Set) Zones() []DistrictZone {
	if len(s.m) == 0 {
		return nil
	}
	zs := make([]DistrictZone, 0, len(s.m))
	for z := range s.m {
		zs = append(zs, z)
	}
	sort.Slice(zs, func(i, j int) bool {
		if zs[i].District != zs[j].District {
			return zs[i].District < zs[j].District
		}
		return zs[i].Park < zs[j].Park
	})
	return zs
}

func (s Set) Clone() Set {
	return NewSet(s.Zones()...)
}
