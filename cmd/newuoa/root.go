// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/curioloop/dfo/internal/bench"
	"github.com/curioloop/dfo/internal/config"
	"github.com/curioloop/dfo/newuoa"
)

// app carries the state shared by the subcommands.
type app struct {
	out, errOut io.Writer

	logLevel   string
	logFormat  string
	configPath string

	level  newuoa.LogLevel
	logger zerolog.Logger
	cfg    config.Config
}

func parseLevel(s string) (newuoa.LogLevel, error) {
	switch s {
	case "noop", "off":
		return newuoa.LogNoop, nil
	case "exit", "":
		return newuoa.LogExit, nil
	case "rho":
		return newuoa.LogRho, nil
	case "eval":
		return newuoa.LogEval, nil
	}
	return newuoa.LogNoop, fmt.Errorf("unknown log level %q", s)
}

func (a *app) setup(cmd *cobra.Command, _ []string) (err error) {
	if a.level, err = parseLevel(a.logLevel); err != nil {
		return
	}

	var w io.Writer
	switch a.logFormat {
	case "console":
		w = zerolog.ConsoleWriter{Out: a.errOut, TimeFormat: time.RFC3339}
	case "json":
		w = a.errOut
	default:
		return fmt.Errorf("unknown log format %q", a.logFormat)
	}
	a.logger = zerolog.New(w).With().Timestamp().Str("run", uuid.NewString()).Logger()

	if a.configPath != "" {
		if a.cfg, err = config.Load(a.configPath); err != nil {
			return
		}
		a.logger.Debug().Str("path", a.configPath).Int("problems", len(a.cfg.Problems)).Msg("config loaded")
	}
	return
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}
	root := &cobra.Command{
		Use:   "newuoa",
		Short: "Derivative-free unconstrained minimization",
		Long: `newuoa minimizes a function of several variables from function values only,
using quadratic models built by least Frobenius norm interpolation inside a trust region.`,
		PersistentPreRunE: a.setup,
		SilenceUsage:      true,
	}
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&a.logLevel, "log-level", "exit", "Optimizer log level (noop, exit, rho, eval)")
	pf.StringVar(&a.logFormat, "log-format", "console", "Log format (console, json)")
	pf.StringVar(&a.configPath, "config", "", "Solver options and problems (.yaml, .json or .toml)")

	root.AddCommand(newRunCmd(a), newBenchCmd(a), newListCmd(a))
	return root
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the benchmark problems",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range bench.Names() {
				fmt.Fprintln(a.out, name)
			}
			return nil
		},
	}
}
