// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package zone describes district and park membership of map locations.
package zone

import "fmt"

type DistrictID uint16

type ParkID uint16

// None is the zero district or park.
const None = 0

// DistrictZone is the district and park a location belongs to. Either may
// be None.
type DistrictZone struct {
	District DistrictID `json:"district" yaml:"district"`
	Park     ParkID     `json:"park" yaml:"park"`
}

func District(d DistrictID) DistrictZone { return DistrictZone{District: d} }
func Park(p ParkID) DistrictZone         { return DistrictZone{Park: p} }

func (z DistrictZone) IsEmpty() bool {
	return z.District == None && z.Park == None
}

// Shares reports whether z and o have a district or a park in common. Two
// empty zones share the unzoned area.
func (z DistrictZone) Shares(o DistrictZone) bool {
	if z.IsEmpty() && o.IsEmpty() {
		return true
	}
	return z.District != None && z.District == o.District ||
		z.Park != None && z.Park == o.Park
}

func (z DistrictZone) String() string {
	return fmt.Sprintf("d%d/p%d", z.District, z.Park)
}
