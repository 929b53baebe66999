// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/someonegg/transfermatch/config"
	"github.com/someonegg/transfermatch/persistence"
)

func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := persistence.NewConnection(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database failed: %w", err)
	}
	if err := persistence.AutoMigrate(db); err != nil {
		persistence.Close(db)
		return nil, fmt.Errorf("migrate database failed: %w", err)
	}
	return db, nil
}

func doExport(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger, save, file string) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer persistence.Close(db)

	snap, err := persistence.NewSnapshotRepository(db).Load(ctx, save)
	if err != nil {
		return fmt.Errorf("load save failed: %w", err)
	}
	if err := persistence.WriteFile(file, persistence.FileHeader{Save: save}, snap); err != nil {
		return fmt.Errorf("write snapshot file failed: %w", err)
	}

	log.Infow("save exported",
		"save", save,
		"file", file,
		"buildings", len(snap.Buildings),
		"links", len(snap.Links))
	return nil
}

func doImport(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger, file, save string) error {
	h, snap, err := persistence.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read snapshot file failed: %w", err)
	}
	if save == "" {
		save = h.Save
	}
	if save == "" {
		return errors.New("no save name given and none stored in the file")
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer persistence.Close(db)

	if err := persistence.NewSnapshotRepository(db).Save(ctx, save, snap); err != nil {
		return fmt.Errorf("store save failed: %w", err)
	}

	log.Infow("save imported",
		"save", save,
		"file", file,
		"written", h.Written,
		"buildings", len(snap.Buildings),
		"links", len(snap.Links))
	return nil
}

func doList(ctx context.Context, cfg *config.Config) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer persistence.Close(db)

	names, err := persistence.NewSnapshotRepository(db).List(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}
