// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package constraint

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tm "github.com/someonegg/transfermatch"
	"github.com/someonegg/transfermatch/zone"
)

// fakeClassifier treats every building as configurable and supply chain
// capable unless listed otherwise.
type fakeClassifier struct {
	fixed    map[tm.BuildingID]bool
	noChains map[tm.BuildingID]bool
}

func newFakeClassifier() *fakeClassifier {
	return &fakeClassifier{
		fixed:    make(map[tm.BuildingID]bool),
		noChains: make(map[tm.BuildingID]bool),
	}
}

func (c *fakeClassifier) IsConfigurableBuilding(b tm.BuildingID) bool { return !c.fixed[b] }
func (c *fakeClassifier) IsSupplyChainCapable(b tm.BuildingID) bool   { return !c.noChains[b] }

// assertSymmetric checks that every destination link has its source twin.
func assertSymmetric(t *testing.T, s *Store) {
	t.Helper()
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for src, dsts := range s.links.bySource {
		for dst := range dsts {
			_, ok := s.links.byDest[dst][src]
			assert.True(t, ok, "destination %d of %d has no reciprocal source", dst, src)
			count++
		}
	}
	for dst, srcs := range s.links.byDest {
		for src := range srcs {
			_, ok := s.links.bySource[src][dst]
			assert.True(t, ok, "source %d of %d has no reciprocal destination", src, dst)
		}
	}
	assert.Equal(t, len(s.links.edges), count)
}

func TestStore_Defaults(t *testing.T) {
	s := NewStore(newFakeClassifier())

	r := s.Restrictions(Input, 5)
	assert.True(t, r.AllLocalAreas)
	assert.True(t, r.OutsideConnections)
	assert.Equal(t, 0, r.Districts.Len())
	assert.True(t, s.Admits(Output, 5, 6, zone.District(3), false))
	assert.True(t, s.Admits(Output, 5, 6, zone.DistrictZone{}, true))
	assert.Equal(t, DefaultSettings(), s.Settings())
}

func TestStore_NotConfigurable(t *testing.T) {
	c := newFakeClassifier()
	c.fixed[7] = true
	s := NewStore(c)

	s.SetAllLocalAreas(Output, 7, false)
	s.SetOutsideConnections(Output, 7, false)
	s.AddDistrictServed(Output, 7, zone.District(1))
	s.SetInternalSupplyBuffer(7, 50)

	r := s.Restrictions(Output, 7)
	assert.True(t, r.AllLocalAreas)
	assert.True(t, r.OutsideConnections)
	assert.Equal(t, 0, r.Districts.Len())
	assert.Equal(t, 0, s.InternalSupplyBuffer(7))
	assert.Empty(t, s.Snapshot().Buildings)
}

func TestStore_DistrictRules(t *testing.T) {
	s := NewStore(newFakeClassifier())
	s.SetAllLocalAreas(Output, 1, false)

	// All local areas off with an empty list admits no local partner.
	assert.False(t, s.Admits(Output, 1, 2, zone.District(4), false))

	s.AddDistrictServed(Output, 1, zone.DistrictZone{District: 4, Park: 9})
	s.AddDistrictServed(Output, 1, zone.DistrictZone{District: 4, Park: 9})
	assert.Equal(t, 1, s.Restrictions(Output, 1).Districts.Len())

	assert.True(t, s.Admits(Output, 1, 2, zone.District(4), false))
	assert.True(t, s.Admits(Output, 1, 2, zone.Park(9), false))
	assert.False(t, s.Admits(Output, 1, 2, zone.District(5), false))
	// Input direction is independent.
	assert.True(t, s.Admits(Input, 1, 2, zone.District(5), false))

	s.RemoveDistrictServed(Output, 1, zone.DistrictZone{District: 4, Park: 9})
	r := s.Restrictions(Output, 1)
	assert.False(t, r.AllLocalAreas)
	assert.Equal(t, 0, r.Districts.Len())
	assert.False(t, s.Admits(Output, 1, 2, zone.District(4), false))
}

func TestStore_OutsideToggle(t *testing.T) {
	s := NewStore(newFakeClassifier())
	s.SetOutsideConnections(Input, 1, false)

	assert.False(t, s.Admits(Input, 1, 900, zone.DistrictZone{}, true))
	assert.True(t, s.Admits(Input, 1, 2, zone.DistrictZone{}, false))
	assert.True(t, s.Admits(Output, 1, 900, zone.DistrictZone{}, true))
}

func TestStore_SupplyLinksAreExclusive(t *testing.T) {
	s := NewStore(newFakeClassifier())
	require.True(t, s.AddSupplyLink(1, 2))
	require.False(t, s.AddSupplyLink(1, 2))

	assert.True(t, s.Admits(Output, 1, 2, zone.District(8), false))
	// 3 would pass the all-local-areas rule but is not a linked partner.
	assert.False(t, s.Admits(Output, 1, 3, zone.DistrictZone{}, false))
	assert.False(t, s.Admits(Output, 1, 900, zone.DistrictZone{}, true))

	assert.True(t, s.Admits(Input, 2, 1, zone.DistrictZone{}, false))
	assert.False(t, s.Admits(Input, 2, 3, zone.DistrictZone{}, false))

	assert.Equal(t, []tm.BuildingID{2}, s.Destinations(1))
	assert.Equal(t, []tm.BuildingID{1}, s.Sources(2))
	assertSymmetric(t, s)
}

func TestStore_SupplyLinkRequiresCapableBuildings(t *testing.T) {
	c := newFakeClassifier()
	c.noChains[3] = true
	s := NewStore(c)

	assert.False(t, s.AddSupplyLink(1, 3))
	assert.False(t, s.AddSupplyLink(3, 1))
	assert.False(t, s.AddSupplyLink(1, 1))
	assert.False(t, s.AddSupplyLink(0, 1))
	assert.Empty(t, s.Links())
}

func TestStore_BulkLinkRemoval(t *testing.T) {
	s := NewStore(newFakeClassifier())
	s.AddSupplyLink(1, 2)
	s.AddSupplyLink(1, 3)
	s.AddSupplyLink(4, 3)
	s.AddSupplyLink(3, 1)

	assert.Equal(t, 2, s.RemoveAllLinksFromSource(1))
	assert.Empty(t, s.Destinations(1))
	assert.Empty(t, s.Sources(2))
	assert.Equal(t, []tm.BuildingID{4}, s.Sources(3))
	assertSymmetric(t, s)

	assert.Equal(t, 1, s.RemoveAllLinksToDestination(3))
	assert.Empty(t, s.Destinations(4))
	assert.Equal(t, []Link{{Source: 3, Destination: 1}}, s.Links())
	assertSymmetric(t, s)
}

func TestStore_SymmetryUnderRandomEdits(t *testing.T) {
	s := NewStore(newFakeClassifier())
	rnd := rand.New(rand.NewSource(3))

	for i := 0; i < 2000; i++ {
		a := tm.BuildingID(rnd.Intn(12) + 1)
		b := tm.BuildingID(rnd.Intn(12) + 1)
		switch rnd.Intn(6) {
		case 0, 1:
			s.AddSupplyLink(a, b)
		case 2:
			s.RemoveSupplyLink(a, b)
		case 3:
			s.RemoveAllLinksFromSource(a)
		case 4:
			s.RemoveAllLinksToDestination(a)
		case 5:
			s.OnBuildingDestroyed(a)
		}
	}
	assertSymmetric(t, s)

	for _, l := range s.Links() {
		assert.Contains(t, s.Destinations(l.Source), l.Destination)
		assert.Contains(t, s.Sources(l.Destination), l.Source)
	}
}

func TestStore_Lifecycle(t *testing.T) {
	t.Run("ZonedBuilding", func(t *testing.T) {
		s := NewStore(newFakeClassifier())
		home := zone.DistrictZone{District: 2, Park: 0}
		s.OnBuildingCreated(10, home)

		out := s.Restrictions(Output, 10)
		assert.False(t, out.AllLocalAreas)
		assert.False(t, out.OutsideConnections)
		assert.Equal(t, []zone.DistrictZone{home}, out.Districts.Zones())

		in := s.Restrictions(Input, 10)
		assert.True(t, in.AllLocalAreas)
		assert.False(t, in.OutsideConnections)
		assert.Zero(t, in.Districts.Len())

		assert.True(t, s.Admits(Output, 10, 11, zone.District(2), false))
		assert.False(t, s.Admits(Output, 10, 11, zone.District(3), false))
		assert.False(t, s.Admits(Output, 10, 900, zone.DistrictZone{}, true))
		assert.True(t, s.Admits(Input, 10, 11, zone.District(3), false))
		assert.True(t, s.Admits(Input, 10, 12, zone.DistrictZone{}, false))
		assert.False(t, s.Admits(Input, 10, 900, zone.DistrictZone{}, true))
	})

	t.Run("UnzonedBuilding", func(t *testing.T) {
		s := NewStore(newFakeClassifier())
		s.SetAllLocalAreas(Input, 10, false)
		s.OnBuildingCreated(10, zone.DistrictZone{})

		r := s.Restrictions(Input, 10)
		assert.True(t, r.AllLocalAreas)
		assert.True(t, r.OutsideConnections)
	})

	t.Run("Destroy", func(t *testing.T) {
		s := NewStore(newFakeClassifier())
		s.OnBuildingCreated(10, zone.District(2))
		s.SetInternalSupplyBuffer(10, 40)
		s.AddSupplyLink(10, 11)
		s.AddSupplyLink(12, 10)
		s.AddSupplyLink(12, 11)

		s.OnBuildingDestroyed(10)

		r := s.Restrictions(Output, 10)
		assert.True(t, r.AllLocalAreas)
		assert.Equal(t, 0, s.InternalSupplyBuffer(10))
		assert.Empty(t, s.Destinations(10))
		assert.Equal(t, []tm.BuildingID{12}, s.Sources(11))
		assert.Equal(t, []Link{{Source: 12, Destination: 11}}, s.Links())
		assertSymmetric(t, s)
	})
}

func TestStore_Buffer(t *testing.T) {
	s := NewStore(newFakeClassifier())
	s.SetInternalSupplyBuffer(1, 250)
	assert.Equal(t, MaxSupplyBuffer, s.InternalSupplyBuffer(1))
	s.SetInternalSupplyBuffer(1, -3)
	assert.Equal(t, 0, s.InternalSupplyBuffer(1))
}

func TestStore_SettingsClamp(t *testing.T) {
	s := NewStore(newFakeClassifier())
	s.SetSettings(Settings{OutsideConnectionIntensity: 140, OutsideToOutsideMaxPercent: -1, DummyTraffic: true})
	assert.Equal(t, Settings{OutsideConnectionIntensity: 100, OutsideToOutsideMaxPercent: 0, DummyTraffic: true}, s.Settings())
}

func TestStore_SnapshotRoundTrip(t *testing.T) {
	s := NewStore(newFakeClassifier())
	s.OnBuildingCreated(3, zone.DistrictZone{District: 1, Park: 2})
	s.AddDistrictServed(Output, 3, zone.Park(5))
	s.SetInternalSupplyBuffer(3, 30)
	s.AddSupplyLink(3, 4)
	s.SetSettings(Settings{OutsideConnectionIntensity: 40, OutsideToOutsideMaxPercent: 20})

	snap := s.Snapshot()

	restored := NewStore(newFakeClassifier())
	restored.Restore(snap)

	assert.Equal(t, snap, restored.Snapshot())
	assert.Equal(t, s.Describe(3), restored.Describe(3))
	assertSymmetric(t, restored)
}

func TestStore_Describe(t *testing.T) {
	s := NewStore(newFakeClassifier())
	s.OnBuildingCreated(3, zone.District(1))
	s.AddSupplyLink(3, 4)
	s.SetInternalSupplyBuffer(3, 30)

	assert.Equal(t,
		"building 3; input: all local areas; output: only [4]; buffer 30%",
		s.Describe(3))
	assert.Equal(t,
		"building 9; input: all local areas, outside connections; output: all local areas, outside connections",
		s.Describe(9))
}
