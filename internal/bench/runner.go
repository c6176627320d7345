// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bench

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/curioloop/dfo/internal/config"
	"github.com/curioloop/dfo/newuoa"
)

// Report summarizes the run on one problem.
type Report struct {
	Problem string
	N       int
	Status  newuoa.Status
	F       float64
	Gap     float64 // F minus the least value of the problem
	Grad    float64 // norm of the finite-difference gradient at X
	X       []float64
	NumEval int
	NumIter int
	Elapsed time.Duration
}

// Runner solves the problems of a configuration.
type Runner struct {
	Config   config.Config
	Logger   zerolog.Logger
	Level    newuoa.LogLevel
	Metrics  *Metrics // optional
	Parallel int      // concurrent runs, default 1
}

// Solve runs the optimizer on a single problem.
func (r *Runner) Solve(spec config.ProblemSpec) (rep Report, err error) {
	fn, err := Lookup(spec.Name)
	if err != nil {
		return
	}
	n := spec.Dim
	switch {
	case n == 0 && fn.Dim > 0:
		n = fn.Dim
	case n == 0:
		n = max(len(spec.X0), fn.MinDim)
	}
	if err = fn.Check(n); err != nil {
		return
	}

	x0 := spec.X0
	if x0 == nil {
		x0 = fn.Start(n)
	}
	if len(x0) != n {
		err = fmt.Errorf("%s: starting point has %d coordinates, want %d", spec.Name, len(x0), n)
		return
	}

	p := r.Config.Problem(n, fn.Eval)
	if r.Metrics != nil {
		p.Recorder = r.Metrics.For(spec.Name)
	}
	log := &newuoa.Logger{
		Level: r.Level,
		Sink:  r.Logger.With().Str("problem", spec.Name).Int("n", n).Logger(),
	}
	opt, err := p.New(log)
	if err != nil {
		err = fmt.Errorf("%s: %w", spec.Name, err)
		return
	}

	start := time.Now()
	res := opt.Fit(x0, opt.Init())
	rep = Report{
		Problem: spec.Name,
		N:       n,
		Status:  res.Status,
		F:       res.F,
		Gap:     res.F - fn.Optimum,
		X:       res.X,
		NumEval: res.NumEval,
		NumIter: res.NumIter,
		Elapsed: time.Since(start),
	}
	rep.Grad = GradNorm(fn.Eval, res.X)
	return
}

// Run solves every configured problem. Each run owns its workspace, so up to Parallel
// problems are solved at the same time. The reports follow the order of the problems.
func (r *Runner) Run(ctx context.Context) ([]Report, error) {
	specs := r.Config.Problems
	reports := make([]Report, len(specs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, r.Parallel))
	for i, spec := range specs {
		i, spec := i, spec
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rep, err := r.Solve(spec)
			if err != nil {
				return err
			}
			reports[i] = rep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}
