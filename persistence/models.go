// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package persistence

import (
	"time"
)

// SaveModel represents the saves table, one row per named snapshot.
type SaveModel struct {
	Name                       string    `gorm:"column:name;primaryKey"`
	OutsideConnectionIntensity int       `gorm:"column:outside_connection_intensity;not null"`
	OutsideToOutsideMaxPercent int       `gorm:"column:outside_to_outside_max_percent;not null"`
	DummyTraffic               bool      `gorm:"column:dummy_traffic;not null;default:false"`
	SavedAt                    time.Time `gorm:"column:saved_at;not null"`
}

func (SaveModel) TableName() string {
	return "saves"
}

// BuildingModel represents the building_restrictions table
type BuildingModel struct {
	Save                     string `gorm:"column:save_name;primaryKey"`
	Building                 uint32 `gorm:"column:building;primaryKey;autoIncrement:false"`
	InputAllLocalAreas       bool   `gorm:"column:input_all_local_areas;not null"`
	InputOutsideConnections  bool   `gorm:"column:input_outside_connections;not null"`
	InputDistricts           string `gorm:"column:input_districts;type:text"` // JSON array as text
	OutputAllLocalAreas      bool   `gorm:"column:output_all_local_areas;not null"`
	OutputOutsideConnections bool   `gorm:"column:output_outside_connections;not null"`
	OutputDistricts          string `gorm:"column:output_districts;type:text"` // JSON array as text
	InternalSupplyBuffer     int    `gorm:"column:internal_supply_buffer;not null;default:0"`
}

func (BuildingModel) TableName() string {
	return "building_restrictions"
}

// LinkModel represents the supply_links table
type LinkModel struct {
	Save        string `gorm:"column:save_name;primaryKey"`
	Source      uint32 `gorm:"column:source;primaryKey;autoIncrement:false"`
	Destination uint32 `gorm:"column:destination;primaryKey;autoIncrement:false"`
}

func (LinkModel) TableName() string {
	return "supply_links"
}
