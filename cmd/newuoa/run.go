// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/curioloop/dfo/internal/bench"
	"github.com/curioloop/dfo/internal/config"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		dim     int
		x0      []float64
		npt     int
		rhoBeg  float64
		rhoEnd  float64
		maxEval int
		ftarget float64
	)
	cmd := &cobra.Command{
		Use:   "run <problem>",
		Short: "Minimize one benchmark problem",
		Long: `Runs the optimizer on a registered problem from its standard starting point
or from --x0. Flags override the options of the --config file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			flags := cmd.Flags()
			if flags.Changed("npt") {
				cfg.Npt = npt
			}
			if flags.Changed("rhobeg") {
				cfg.RhoBeg = rhoBeg
			}
			if flags.Changed("rhoend") {
				cfg.RhoEnd = rhoEnd
			}
			if flags.Changed("maxeval") {
				cfg.MaxEval = maxEval
			}
			if flags.Changed("ftarget") {
				cfg.FTarget = &ftarget
			}

			r := bench.Runner{Config: cfg, Logger: a.logger, Level: a.level}
			rep, err := r.Solve(config.ProblemSpec{Name: args[0], Dim: dim, X0: x0})
			if err != nil {
				return err
			}
			printReport(a.out, rep)
			if err := rep.Status.Err(); err != nil {
				return fmt.Errorf("%s: %w", rep.Problem, err)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&dim, "dim", 0, "Problem dimension, 0 for the default of the problem")
	f.Float64SliceVar(&x0, "x0", nil, "Starting point, comma separated")
	f.IntVar(&npt, "npt", 0, "Number of interpolation points, 0 for 2n+1")
	f.Float64Var(&rhoBeg, "rhobeg", 1, "Initial trust-region radius")
	f.Float64Var(&rhoEnd, "rhoend", 1e-6, "Final trust-region radius")
	f.IntVar(&maxEval, "maxeval", 0, "Maximum number of evaluations, 0 for 500n")
	f.Float64Var(&ftarget, "ftarget", 0, "Stop once the objective is at most this value")
	return cmd
}

func formatVector(x []float64) string {
	parts := make([]string, len(x))
	for i, v := range x {
		parts[i] = strconv.FormatFloat(v, 'g', 10, 64)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func printReport(w io.Writer, rep bench.Report) {
	fmt.Fprintf(w, "problem:     %s (n=%d)\n", rep.Problem, rep.N)
	fmt.Fprintf(w, "status:      %s\n", rep.Status)
	fmt.Fprintf(w, "f:           %.10g\n", rep.F)
	fmt.Fprintf(w, "x:           %s\n", formatVector(rep.X))
	fmt.Fprintf(w, "|grad|:      %.3e\n", rep.Grad)
	fmt.Fprintf(w, "evaluations: %d\n", rep.NumEval)
	fmt.Fprintf(w, "iterations:  %d\n", rep.NumIter)
}
