// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/jeranaias/askthread/internal/config"
)

// configCommand manages the configuration file.
func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "create, show or change the configuration",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "write a configuration file with the defaults",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "force", Usage: "overwrite an existing file"},
				},
				Action: configInit,
			},
			{
				Name:      "show",
				Usage:     "print the effective configuration, or one key",
				ArgsUsage: "[section.key]",
				Action:    configShow,
			},
			{
				Name:      "set",
				Usage:     "change one key in the configuration file",
				ArgsUsage: "section.key value",
				Action:    configSet,
			},
			{
				Name:   "path",
				Usage:  "print the configuration file path",
				Action: configPath,
			},
		},
	}
}

func configInit(c *cli.Context) error {
	path, err := resolveConfigPath(c)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil && !c.Bool("force") {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.SaveTOML(config.Default(), path); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Wrote %s\n", path)
	return nil
}

func configShow(c *cli.Context) error {
	path, err := resolveConfigPath(c)
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if !c.Args().Present() {
		fmt.Fprintln(c.App.Writer, cfg.String())
		return nil
	}
	value, err := cfg.Get(c.Args().First())
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, value)
	return nil
}

// configSet edits the file only; environment overrides are not persisted.
func configSet(c *cli.Context) error {
	if c.Args().Len() != 2 {
		return cli.Exit("usage: askthread config set section.key value", 2)
	}
	path, err := resolveConfigPath(c)
	if err != nil {
		return err
	}

	cfg := config.Default()
	if _, err := os.Stat(path); err == nil {
		if err := config.LoadTOML(cfg, path); err != nil {
			return err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	key, value := c.Args().Get(0), c.Args().Get(1)
	if err := cfg.Set(key, value); err != nil {
		return err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.SaveTOML(cfg, path); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%s = %s\n", key, value)
	return nil
}

func configPath(c *cli.Context) error {
	path, err := resolveConfigPath(c)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, path)
	return nil
}
