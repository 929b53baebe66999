// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scenario

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	tm "github.com/someonegg/transfermatch"
	"github.com/someonegg/transfermatch/constraint"
	"github.com/someonegg/transfermatch/gateway"
	"github.com/someonegg/transfermatch/zone"
)

func runFile(t *testing.T, path string) (*Scenario, *Outcome) {
	t.Helper()
	sc, err := Load(path)
	require.NoError(t, err)
	r := &Runner{Logger: zaptest.NewLogger(t).Sugar()}
	out, err := r.Run(context.Background(), sc)
	require.NoError(t, err)
	return sc, out
}

func TestScenarioFiles(t *testing.T) {
	for _, path := range []string{
		"testdata/garbage.yaml",
		"testdata/rail_imports.yaml",
		"testdata/vehicles.yaml",
	} {
		t.Run(path, func(t *testing.T) {
			sc, out := runFile(t, path)
			assert.NoError(t, Verify(sc, out))
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	sc, err := Load("testdata/garbage.yaml")
	require.NoError(t, err)

	assert.Equal(t, "garbage collection", sc.Name)
	assert.Equal(t, DefaultTickInterval, sc.TickInterval)
	assert.False(t, sc.Start.IsZero())
	require.Len(t, sc.Ticks, 1)
	assert.Equal(t, tm.Garbage, sc.Ticks[0].Offers[0].Material)
	assert.Equal(t, tm.Building(1), sc.Ticks[0].Offers[0].Endpoint())
}

func TestLoad_Fields(t *testing.T) {
	sc, err := Load("testdata/rail_imports.yaml")
	require.NoError(t, err)

	assert.Equal(t, 30*time.Minute, sc.TickInterval)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), sc.Start.UTC())
	assert.Equal(t, gateway.Rail, sc.Buildings[1].Terminal)
	assert.Equal(t, gateway.Rail, sc.Buildings[2].Outside)
	assert.Equal(t, []uint32{20}, sc.Ticks[1].Destroy)
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]string{
		"no ticks":  "name: x\n",
		"no name":   "ticks:\n  - offers: []\n",
		"material":  "name: x\nticks:\n  - offers:\n      - {material: plutonium, direction: outgoing, building: 1, amount: 1}\n",
		"direction": "name: x\nticks:\n  - offers:\n      - {material: mail, direction: sideways, building: 1, amount: 1}\n",
		"amount":    "name: x\nticks:\n  - offers:\n      - {material: mail, direction: outgoing, building: 1, amount: 0}\n",
		"priority":  "name: x\nticks:\n  - offers:\n      - {material: mail, direction: outgoing, building: 1, amount: 1, priority: 8}\n",
		"self link": "name: x\nlinks:\n  - {source: 1, destination: 1}\nticks:\n  - offers: []\n",
		"duplicate": "name: x\nbuildings:\n  - {id: 1}\n  - {id: 1}\nticks:\n  - offers: []\n",
		"vehicles":  "name: x\nbuildings:\n  - {id: 1, vehicles: {plutonium: 1}}\nticks:\n  - offers: []\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(body))
			assert.Error(t, err)
		})
	}
}

func TestRunner_InitialSnapshotAndOutcome(t *testing.T) {
	sc, err := Load("testdata/garbage.yaml")
	require.NoError(t, err)

	// a restored restriction keeps the far landfill out of reach
	initial := constraint.Snapshot{
		Buildings: []constraint.BuildingRecord{{
			Building: 2,
			Input:    constraint.DirectionRecord{Districts: []zone.DistrictZone{zone.District(9)}},
			Output:   constraint.DirectionRecord{AllLocalAreas: true, OutsideConnections: true},
		}},
		Settings: constraint.DefaultSettings(),
	}
	out, err := (&Runner{Initial: &initial}).Run(context.Background(), sc)
	require.NoError(t, err)

	assert.Equal(t, []TransferRecord{{Material: tm.Garbage, Outgoing: 1, Incoming: 3, Amount: 3}}, out.Transfers())
	assert.Equal(t, 1, out.Ticks[0].Unmatched)
	require.Len(t, out.Snapshot.Buildings, 1)
	assert.Equal(t, tm.BuildingID(2), out.Snapshot.Buildings[0].Building)

	err = Verify(sc, out)
	assert.ErrorIs(t, err, ErrExpectation)
}

func TestRunner_Cancelled(t *testing.T) {
	sc, err := Load("testdata/garbage.yaml")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = (&Runner{}).Run(ctx, sc)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTable_Homes(t *testing.T) {
	sc, err := Load("testdata/vehicles.yaml")
	require.NoError(t, err)
	w := NewTable(sc)

	assert.Equal(t, tm.BuildingID(2), w.HomeBuilding(tm.Vehicle(501)))
	assert.Equal(t, tm.BuildingID(0), w.HomeBuilding(tm.Vehicle(777)))
	assert.Equal(t, zone.District(1), w.HomeZone(tm.Building(1)))
	assert.True(t, w.IsConfigurableBuilding(2))
	assert.False(t, w.IsConfigurableBuilding(1))

	w.Remove(2)
	assert.False(t, w.IsConfigurableBuilding(2))
}
