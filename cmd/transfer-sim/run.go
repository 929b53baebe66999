// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/someonegg/transfermatch/config"
	"github.com/someonegg/transfermatch/metrics"
	"github.com/someonegg/transfermatch/persistence"
	"github.com/someonegg/transfermatch/scenario"
)

type runOptions struct {
	scenarioFile string
	outFile      string
	snapshotIn   string
	snapshotOut  string
	save         string
	metricsOut   string
	verify       bool
}

func doRun(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger, opts runOptions) error {
	sc, err := scenario.Load(opts.scenarioFile)
	if err != nil {
		return fmt.Errorf("load scenario file failed: %w", err)
	}
	if sc.Seed == 0 {
		sc.Seed = cfg.Matching.Seed
	}
	if sc.Settings == nil {
		sc.Settings = &scenario.Settings{
			OutsideConnectionIntensity: cfg.Outside.Intensity,
			OutsideToOutsideMaxPercent: cfg.Outside.OutsideToOutsidePercent,
			DummyTraffic:               cfg.Outside.DummyTraffic,
		}
	}

	reg := prometheus.NewRegistry()
	collector, err := metrics.NewCollector(reg)
	if err != nil {
		return fmt.Errorf("create metrics failed: %w", err)
	}

	runner := &scenario.Runner{
		Logger:         log,
		Metrics:        collector,
		BucketCapacity: cfg.Matching.BucketCapacity,
		Hysteresis:     float32(cfg.Matching.Hysteresis),
		HistoryWindow:  cfg.History.Window,
	}
	if opts.snapshotIn != "" {
		h, snap, err := persistence.ReadFile(opts.snapshotIn)
		if err != nil {
			return fmt.Errorf("read snapshot file failed: %w", err)
		}
		log.Infow("snapshot restored", "file", opts.snapshotIn, "save", h.Save, "buildings", len(snap.Buildings))
		runner.Initial = &snap
	}

	out, err := runner.Run(ctx, sc)
	if err != nil {
		return fmt.Errorf("run scenario failed: %w", err)
	}
	log.Infow("scenario finished",
		"scenario", sc.Name,
		"ticks", len(out.Ticks),
		"transfers", len(out.Transfers()))

	if err := writeOutcome(opts.outFile, out); err != nil {
		return fmt.Errorf("write outcome failed: %w", err)
	}

	if opts.snapshotOut != "" {
		h := persistence.FileHeader{Save: sc.Name}
		if err := persistence.WriteFile(opts.snapshotOut, h, out.Snapshot); err != nil {
			return fmt.Errorf("write snapshot file failed: %w", err)
		}
	}

	if opts.save != "" {
		if err := storeSnapshot(ctx, cfg, opts.save, out); err != nil {
			return err
		}
		log.Infow("snapshot stored", "save", opts.save)
	}

	if opts.metricsOut == "" {
		opts.metricsOut = cfg.Metrics.File
	}
	if opts.metricsOut != "" {
		if err := prometheus.WriteToTextfile(opts.metricsOut, reg); err != nil {
			return fmt.Errorf("write metrics file failed: %w", err)
		}
	}

	if opts.verify {
		return scenario.Verify(sc, out)
	}
	return nil
}

func writeOutcome(file string, out *scenario.Outcome) error {
	data, err := yaml.Marshal(out)
	if err != nil {
		return err
	}
	if file == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(file, data, 0644)
}

func storeSnapshot(ctx context.Context, cfg *config.Config, save string, out *scenario.Outcome) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer persistence.Close(db)

	if err := persistence.NewSnapshotRepository(db).Save(ctx, save, out.Snapshot); err != nil {
		return fmt.Errorf("store snapshot failed: %w", err)
	}
	return nil
}
