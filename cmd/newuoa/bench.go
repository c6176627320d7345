// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/curioloop/dfo/internal/bench"
	"github.com/curioloop/dfo/internal/config"
)

// defaultSpec picks the smallest dimension the problem accepts, at least 2.
func defaultSpec(name string) (config.ProblemSpec, error) {
	fn, err := bench.Lookup(name)
	if err != nil {
		return config.ProblemSpec{}, err
	}
	n := fn.Dim
	if n == 0 {
		n = max(fn.MinDim, 2, fn.Step)
	}
	return config.ProblemSpec{Name: name, Dim: n}, nil
}

func newBenchCmd(a *app) *cobra.Command {
	var (
		parallel   int
		metricsOut string
	)
	cmd := &cobra.Command{
		Use:   "bench [problem...]",
		Short: "Minimize several benchmark problems concurrently",
		Long: `Runs the problems named on the command line, or else the problems of the --config file,
or else every registered problem, and prints one line per problem.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			names := args
			if len(names) == 0 && len(cfg.Problems) == 0 {
				names = bench.Names()
			}
			if len(names) > 0 {
				cfg.Problems = cfg.Problems[:0:0]
				for _, name := range names {
					spec, err := defaultSpec(name)
					if err != nil {
						return err
					}
					cfg.Problems = append(cfg.Problems, spec)
				}
			}

			r := bench.Runner{Config: cfg, Logger: a.logger, Level: a.level, Parallel: parallel}
			if metricsOut != "" {
				r.Metrics = bench.NewMetrics()
			}
			reports, err := r.Run(cmd.Context())
			if err != nil {
				return err
			}
			if err := printTable(a.out, reports); err != nil {
				return err
			}
			if r.Metrics != nil {
				if err := r.Metrics.WriteFile(metricsOut); err != nil {
					return fmt.Errorf("write metrics: %w", err)
				}
				a.logger.Info().Str("path", metricsOut).Msg("metrics written")
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&parallel, "parallel", 4, "Number of problems solved concurrently")
	f.StringVar(&metricsOut, "metrics-out", "", "Write prometheus metrics to this file")
	return cmd
}

func printTable(w io.Writer, reports []bench.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PROBLEM\tN\tEVALS\tF\tGAP\tGRAD\tSTATUS\tTIME")
	for _, rep := range reports {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.6e\t%.2e\t%.2e\t%s\t%s\n",
			rep.Problem, rep.N, rep.NumEval, rep.F, rep.Gap, rep.Grad, statusWord(rep), rep.Elapsed.Round(time.Microsecond))
	}
	return tw.Flush()
}

func statusWord(rep bench.Report) string {
	if rep.Status.Err() == nil {
		return "ok"
	}
	return rep.Status.String()
}
