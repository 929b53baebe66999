// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config loads the runtime configuration of the matching service.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. TM_OUTSIDE_INTENSITY.
const EnvPrefix = "TM"

type Config struct {
	Matching MatchingConfig `mapstructure:"matching"`
	Outside  OutsideConfig  `mapstructure:"outside"`
	History  HistoryConfig  `mapstructure:"history"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type MatchingConfig struct {
	// Offers per (direction, material, priority) bucket.
	BucketCapacity int `mapstructure:"bucket_capacity" validate:"min=1,max=65536"`

	// Seed of the bucket start index generator. Zero seeds from the clock.
	Seed int64 `mapstructure:"seed"`

	// Fraction of the best distance a lower priority response must beat.
	Hysteresis float64 `mapstructure:"hysteresis" validate:"gt=0,lte=1"`
}

type OutsideConfig struct {
	Intensity               int  `mapstructure:"intensity" validate:"min=0,max=100"`
	OutsideToOutsidePercent int  `mapstructure:"outside_to_outside_percent" validate:"min=0,max=100"`
	DummyTraffic            bool `mapstructure:"dummy_traffic"`
}

type HistoryConfig struct {
	// Window of simulated time during which matches count as concurrent.
	Window time.Duration `mapstructure:"window" validate:"min=1h"`
}

type MetricsConfig struct {
	// Prometheus text file written after a run, none when empty.
	File string `mapstructure:"file"`
}

// LoadConfig reads configuration with this priority:
// 1. Environment variables (TM_ prefix, .env honoured)
// 2. Config file
// 3. Defaults
func LoadConfig(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	registerDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("transfermatch")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration used when nothing is configured.
func Default() *Config {
	v := viper.New()
	registerDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config defaults do not unmarshal: %v", err))
	}
	return &cfg
}

func registerDefaults(v *viper.Viper) {
	v.SetDefault("matching.bucket_capacity", 256)
	v.SetDefault("matching.seed", 0)
	v.SetDefault("matching.hysteresis", 0.75)

	v.SetDefault("outside.intensity", 100)
	v.SetDefault("outside.outside_to_outside_percent", 10)
	v.SetDefault("outside.dummy_traffic", false)

	v.SetDefault("history.window", 30*24*time.Hour)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stderr")

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.path", "transfermatch.db")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("metrics.file", "")
}
