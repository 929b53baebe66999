// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	tm "github.com/someonegg/transfermatch"
	"github.com/someonegg/transfermatch/constraint"
	"github.com/someonegg/transfermatch/zone"
)

var ErrSaveNotFound = errors.New("save not found")

const batchSize = 500

// SnapshotRepository keeps named constraint snapshots.
type SnapshotRepository struct {
	db *gorm.DB
}

func NewSnapshotRepository(db *gorm.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Save replaces the snapshot stored under name.
func (r *SnapshotRepository) Save(ctx context.Context, name string, snap constraint.Snapshot) error {
	buildings := make([]BuildingModel, 0, len(snap.Buildings))
	for _, b := range snap.Buildings {
		m, err := buildingToModel(name, b)
		if err != nil {
			return fmt.Errorf("failed to convert building %d: %w", b.Building, err)
		}
		buildings = append(buildings, m)
	}
	links := make([]LinkModel, 0, len(snap.Links))
	for _, l := range snap.Links {
		links = append(links, LinkModel{
			Save:        name,
			Source:      uint32(l.Source),
			Destination: uint32(l.Destination),
		})
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteSave(tx, name); err != nil {
			return err
		}
		save := SaveModel{
			Name:                       name,
			OutsideConnectionIntensity: snap.Settings.OutsideConnectionIntensity,
			OutsideToOutsideMaxPercent: snap.Settings.OutsideToOutsideMaxPercent,
			DummyTraffic:               snap.Settings.DummyTraffic,
			SavedAt:                    time.Now().UTC(),
		}
		if err := tx.Create(&save).Error; err != nil {
			return fmt.Errorf("failed to create save: %w", err)
		}
		if len(buildings) > 0 {
			if err := tx.CreateInBatches(buildings, batchSize).Error; err != nil {
				return fmt.Errorf("failed to store buildings: %w", err)
			}
		}
		if len(links) > 0 {
			if err := tx.CreateInBatches(links, batchSize).Error; err != nil {
				return fmt.Errorf("failed to store links: %w", err)
			}
		}
		return nil
	})
}

// Load returns the snapshot stored under name.
func (r *SnapshotRepository) Load(ctx context.Context, name string) (constraint.Snapshot, error) {
	var snap constraint.Snapshot
	db := r.db.WithContext(ctx)

	var save SaveModel
	if err := db.Where("name = ?", name).First(&save).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return snap, fmt.Errorf("%w: %s", ErrSaveNotFound, name)
		}
		return snap, fmt.Errorf("failed to find save: %w", err)
	}
	snap.Settings = constraint.Settings{
		OutsideConnectionIntensity: save.OutsideConnectionIntensity,
		OutsideToOutsideMaxPercent: save.OutsideToOutsideMaxPercent,
		DummyTraffic:               save.DummyTraffic,
	}

	var buildings []BuildingModel
	if err := db.Where("save_name = ?", name).Order("building").Find(&buildings).Error; err != nil {
		return snap, fmt.Errorf("failed to load buildings: %w", err)
	}
	snap.Buildings = make([]constraint.BuildingRecord, 0, len(buildings))
	for i := range buildings {
		rec, err := modelToBuilding(&buildings[i])
		if err != nil {
			return snap, fmt.Errorf("failed to convert building %d: %w", buildings[i].Building, err)
		}
		snap.Buildings = append(snap.Buildings, rec)
	}

	var links []LinkModel
	if err := db.Where("save_name = ?", name).Order("source, destination").Find(&links).Error; err != nil {
		return snap, fmt.Errorf("failed to load links: %w", err)
	}
	snap.Links = make([]constraint.Link, 0, len(links))
	for _, l := range links {
		snap.Links = append(snap.Links, constraint.Link{
			Source:      tm.BuildingID(l.Source),
			Destination: tm.BuildingID(l.Destination),
		})
	}

	return snap, nil
}

// List returns the stored save names, most recent first.
func (r *SnapshotRepository) List(ctx context.Context) ([]string, error) {
	var saves []SaveModel
	if err := r.db.WithContext(ctx).Order("saved_at desc, name").Find(&saves).Error; err != nil {
		return nil, fmt.Errorf("failed to list saves: %w", err)
	}
	names := make([]string, 0, len(saves))
	for _, s := range saves {
		names = append(names, s.Name)
	}
	return names, nil
}

func (r *SnapshotRepository) Delete(ctx context.Context, name string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteSave(tx, name)
	})
}

func deleteSave(tx *gorm.DB, name string) error {
	if err := tx.Where("save_name = ?", name).Delete(&LinkModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete links: %w", err)
	}
	if err := tx.Where("save_name = ?", name).Delete(&BuildingModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete buildings: %w", err)
	}
	if err := tx.Where("name = ?", name).Delete(&SaveModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete save: %w", err)
	}
	return nil
}

func buildingToModel(save string, b constraint.BuildingRecord) (BuildingModel, error) {
	in, err := encodeZones(b.Input.Districts)
	if err != nil {
		return BuildingModel{}, err
	}
	out, err := encodeZones(b.Output.Districts)
	if err != nil {
		return BuildingModel{}, err
	}
	return BuildingModel{
		Save:                     save,
		Building:                 uint32(b.Building),
		InputAllLocalAreas:       b.Input.AllLocalAreas,
		InputOutsideConnections:  b.Input.OutsideConnections,
		InputDistricts:           in,
		OutputAllLocalAreas:      b.Output.AllLocalAreas,
		OutputOutsideConnections: b.Output.OutsideConnections,
		OutputDistricts:          out,
		InternalSupplyBuffer:     b.InternalSupplyBuffer,
	}, nil
}

func modelToBuilding(m *BuildingModel) (constraint.BuildingRecord, error) {
	in, err := decodeZones(m.InputDistricts)
	if err != nil {
		return constraint.BuildingRecord{}, err
	}
	out, err := decodeZones(m.OutputDistricts)
	if err != nil {
		return constraint.BuildingRecord{}, err
	}
	return constraint.BuildingRecord{
		Building: tm.BuildingID(m.Building),
		Input: constraint.DirectionRecord{
			AllLocalAreas:      m.InputAllLocalAreas,
			OutsideConnections: m.InputOutsideConnections,
			Districts:          in,
		},
		Output: constraint.DirectionRecord{
			AllLocalAreas:      m.OutputAllLocalAreas,
			OutsideConnections: m.OutputOutsideConnections,
			Districts:          out,
		},
		InternalSupplyBuffer: m.InternalSupplyBuffer,
	}, nil
}

func encodeZones(zs []zone.DistrictZone) (string, error) {
	if len(zs) == 0 {
		return "", nil
	}
	b, err := json.Marshal(zs)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeZones(s string) ([]zone.DistrictZone, error) {
	if s == "" {
		return nil, nil
	}
	var zs []zone.DistrictZone
	if err := json.Unmarshal([]byte(s), &zs); err != nil {
		return nil, err
	}
	return zs, nil
}
