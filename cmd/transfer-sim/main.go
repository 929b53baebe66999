// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/someonegg/transfermatch/config"
)

func main() {
	app := &cli.App{
		Name:  "transfer-sim",
		Usage: "Utility for replaying transfer matching scenarios",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "specify the config file (default ./transfermatch.yaml)",
			},
		},
		Commands: []*cli.Command{
			runCmd,
			exportCmd,
			importCmd,
			listCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Println("Error: ", err)
		os.Exit(1)
	}
}

var runCmd = &cli.Command{
	Name:    "run",
	Usage:   "Run a scenario through the matcher",
	Aliases: []string{"r"},
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "scenario",
			Required: true,
			Usage:    "specify the input scenario.yaml",
		},
		&cli.StringFlag{
			Name:  "out",
			Usage: "specify the output outcome.yaml (default stdout)",
		},
		&cli.StringFlag{
			Name:  "snapshot-in",
			Usage: "specify a snapshot file restored before the first tick",
		},
		&cli.StringFlag{
			Name:  "snapshot-out",
			Usage: "specify the snapshot file written after the last tick",
		},
		&cli.StringFlag{
			Name:  "save",
			Usage: "store the final restrictions in the database under this name",
		},
		&cli.StringFlag{
			Name:  "metrics-out",
			Usage: "specify a prometheus text file for the matching metrics",
		},
		&cli.BoolFlag{
			Name:  "verify",
			Value: true,
			Usage: "fail when the scenario expectations are not met",
		},
	},
	Action: func(ctx *cli.Context) error {
		cfg, log, err := setup(ctx)
		if err != nil {
			return err
		}
		defer log.Sync()

		return doRun(ctx.Context, cfg, log, runOptions{
			scenarioFile: ctx.String("scenario"),
			outFile:      ctx.String("out"),
			snapshotIn:   ctx.String("snapshot-in"),
			snapshotOut:  ctx.String("snapshot-out"),
			save:         ctx.String("save"),
			metricsOut:   ctx.String("metrics-out"),
			verify:       ctx.Bool("verify"),
		})
	},
}

var exportCmd = &cli.Command{
	Name:    "export",
	Usage:   "Export a stored save to a snapshot file",
	Aliases: []string{"e"},
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "save",
			Required: true,
			Usage:    "specify the save name",
		},
		&cli.StringFlag{
			Name:     "file",
			Required: true,
			Usage:    "specify the output snapshot file",
		},
	},
	Action: func(ctx *cli.Context) error {
		cfg, log, err := setup(ctx)
		if err != nil {
			return err
		}
		defer log.Sync()

		return doExport(ctx.Context, cfg, log, ctx.String("save"), ctx.String("file"))
	},
}

var importCmd = &cli.Command{
	Name:    "import",
	Usage:   "Import a snapshot file into the database",
	Aliases: []string{"i"},
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "file",
			Required: true,
			Usage:    "specify the input snapshot file",
		},
		&cli.StringFlag{
			Name:  "save",
			Usage: "specify the save name (default the name stored in the file)",
		},
	},
	Action: func(ctx *cli.Context) error {
		cfg, log, err := setup(ctx)
		if err != nil {
			return err
		}
		defer log.Sync()

		return doImport(ctx.Context, cfg, log, ctx.String("file"), ctx.String("save"))
	},
}

var listCmd = &cli.Command{
	Name:    "list",
	Usage:   "List the stored saves",
	Aliases: []string{"ls"},
	Action: func(ctx *cli.Context) error {
		cfg, log, err := setup(ctx)
		if err != nil {
			return err
		}
		defer log.Sync()

		return doList(ctx.Context, cfg)
	},
}

func setup(ctx *cli.Context) (*config.Config, *zap.SugaredLogger, error) {
	cfg, err := config.LoadConfig(ctx.String("config"))
	if err != nil {
		return nil, nil, fmt.Errorf("load config failed: %w", err)
	}
	log, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger failed: %w", err)
	}
	return cfg, log, nil
}
