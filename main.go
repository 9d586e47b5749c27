// askthread - a terminal client for conversational documentation Q&A.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "askthread",
		Usage:   "ask questions about your docs and rate the answers",
		Version: fmt.Sprintf("%s (%s, built %s)", Version, GitCommit, BuildDate),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE` (default ~/.askthread/config.toml)",
				EnvVars: []string{"ASKTHREAD_CONFIG"},
			},
			&cli.BoolFlag{
				Name:  "demo",
				Usage: "answer from a built-in demo service instead of the configured one",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "serve Prometheus metrics on `ADDR`, e.g. :9090",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "override log.level (trace, debug, info, warn, error)",
			},
		},
		Action: runTUI,
		Commands: []*cli.Command{
			{
				Name:   "tui",
				Usage:  "full-screen chat (default)",
				Action: runTUI,
			},
			{
				Name:    "repl",
				Aliases: []string{"chat"},
				Usage:   "line-mode chat with history",
				Action:  runREPL,
			},
			{
				Name:      "ask",
				Usage:     "ask one question and print the answer",
				ArgsUsage: "QUESTION (or pipe it on stdin)",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "output format: text, markdown or json",
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Value: 2 * time.Minute,
						Usage: "give up when the answer takes longer",
					},
				},
				Action: runAsk,
			},
			configCommand(),
		},
	}
}
