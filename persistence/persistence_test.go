// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package persistence

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tm "github.com/someonegg/transfermatch"
	"github.com/someonegg/transfermatch/constraint"
	"github.com/someonegg/transfermatch/zone"
)

type everyBuilding struct{}

func (everyBuilding) IsConfigurableBuilding(tm.BuildingID) bool { return true }
func (everyBuilding) IsSupplyChainCapable(tm.BuildingID) bool   { return true }

func sampleStore() *constraint.Store {
	s := constraint.NewStore(everyBuilding{})
	s.SetAllLocalAreas(constraint.Input, 3, false)
	s.AddDistrictServed(constraint.Input, 3, zone.District(1))
	s.AddDistrictServed(constraint.Input, 3, zone.DistrictZone{District: 2, Park: 5})
	s.SetOutsideConnections(constraint.Output, 4, false)
	s.SetInternalSupplyBuffer(4, 30)
	s.AddSupplyLink(4, 3)
	s.AddSupplyLink(4, 7)
	s.SetSettings(constraint.Settings{
		OutsideConnectionIntensity: 60,
		OutsideToOutsideMaxPercent: 5,
		DummyTraffic:               true,
	})
	return s
}

func restored(snap constraint.Snapshot) constraint.Snapshot {
	s := constraint.NewStore(everyBuilding{})
	s.Restore(snap)
	return s.Snapshot()
}

func newTestRepository(t *testing.T) *SnapshotRepository {
	t.Helper()
	db, err := NewTestConnection()
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	return NewSnapshotRepository(db)
}

func TestSnapshotRepository_SaveAndLoad(t *testing.T) {
	// Arrange
	repo := newTestRepository(t)
	ctx := context.Background()
	want := sampleStore().Snapshot()

	// Act
	require.NoError(t, repo.Save(ctx, "harbor", want))
	got, err := repo.Load(ctx, "harbor")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, want.Settings, got.Settings)
	assert.Equal(t, want.Links, got.Links)
	require.Len(t, got.Buildings, 2)
	assert.Equal(t, []zone.DistrictZone{zone.District(1), {District: 2, Park: 5}}, got.Buildings[0].Input.Districts)
	assert.Equal(t, 30, got.Buildings[1].InternalSupplyBuffer)
	assert.Equal(t, want, restored(got))
}

func TestSnapshotRepository_SaveReplaces(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "harbor", sampleStore().Snapshot()))

	empty := constraint.NewStore(everyBuilding{}).Snapshot()
	require.NoError(t, repo.Save(ctx, "harbor", empty))

	got, err := repo.Load(ctx, "harbor")
	require.NoError(t, err)
	assert.Empty(t, got.Buildings)
	assert.Empty(t, got.Links)
	assert.Equal(t, constraint.DefaultSettings(), got.Settings)
}

func TestSnapshotRepository_ListAndDelete(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "a", sampleStore().Snapshot()))
	require.NoError(t, repo.Save(ctx, "b", sampleStore().Snapshot()))

	names, err := repo.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, names)

	require.NoError(t, repo.Delete(ctx, "a"))

	_, err = repo.Load(ctx, "a")
	assert.ErrorIs(t, err, ErrSaveNotFound)
	got, err := repo.Load(ctx, "b")
	require.NoError(t, err)
	assert.Len(t, got.Links, 2)
}

func TestSnapshotFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saves", "harbor.tms")
	want := sampleStore().Snapshot()
	written := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, WriteFile(path, FileHeader{Save: "harbor", Written: written}, want))

	h, got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, FileVersion, h.Version)
	assert.Equal(t, "harbor", h.Save)
	assert.True(t, written.Equal(h.Written))
	assert.Equal(t, want, restored(got))
}

func TestSnapshotFile_UnsupportedVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.tms")

	var buf bytes.Buffer
	require.NoError(t, writeSnapshot(&buf, FileHeader{Version: 0, Save: "old"}, constraint.Snapshot{}))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	_, _, err := ReadFile(path)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestSnapshotFile_Missing(t *testing.T) {
	_, _, err := ReadFile(filepath.Join(t.TempDir(), "missing.tms"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
