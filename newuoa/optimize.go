// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package newuoa

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// Evaluation evaluates the objective function 𝒇(𝐱) : ℝⁿ → ℝ.
// It is only called with finite points.
type Evaluation func(x []float64) (f float64)

// Termination specifies the stopping criteria for the optimization algorithm.
type Termination struct {
	// The iteration stops when the number of function evaluations reaches the limit.
	MaxEvaluations int
	// The iteration stops when a function value 𝒇ₖ ≤ 𝚏𝚝𝚊𝚛𝚐𝚎𝚝 is found.
	// Note that the zero value is a valid target, use math.Inf(-1) to disable it.
	FTarget float64
}

// DefaultTermination returns the stopping criteria of Powell's NEWUOA for dimension n:
// 500n evaluations and no target value.
func DefaultTermination(n int) Termination {
	return Termination{MaxEvaluations: 500 * n, FTarget: math.Inf(-1)}
}

// Problem specifies the problem for NEWUOA optimizer.
type Problem struct {
	N      int         // The problem dimension
	Npt    int         // The number of interpolation points in [n+2, (n+1)(n+2)/2], default 2n+1
	Eval   Evaluation  // Objective function
	Stop   Termination // Stop condition
	RhoBeg float64     // Initial trust-region radius, default 1
	RhoEnd float64     // Final trust-region radius, default 1e-6

	Radius  *RadiusParams // Optional radius update parameters, default DefaultRadius()
	TrTol   float64       // Relative tolerance of the subproblem solver, default 1e-2
	ArcGrid int           // Angles sampled on the trust-region boundary, default ArcGrid
	MaxHist int           // Number of recent evaluations kept in the history, default 0

	Recorder Recorder // Optional event hook
}

// New creates a new NEWUOA optimizer for given problem.
func (p *Problem) New(logger *Logger) (optimizer *Optimizer, err error) {

	if logger == nil {
		logger = NopLogger()
	}

	n, npt := p.N, p.Npt
	stop := p.Stop
	rhobeg, rhoend := p.RhoBeg, p.RhoEnd
	trtol, grid := p.TrTol, p.ArcGrid

	if npt == 0 {
		npt = 2*n + 1
	}
	if rhobeg == zero {
		rhobeg = one
	}
	if rhoend == zero {
		rhoend = math.Min(1.0e-6, rhobeg)
	}
	if stop.MaxEvaluations == 0 {
		stop.MaxEvaluations = 500 * n
	}
	if math.IsNaN(stop.FTarget) {
		stop.FTarget = math.Inf(-1)
	}
	if trtol == zero {
		trtol = 1.0e-2
	}
	if grid == 0 {
		grid = ArcGrid
	}
	radius := DefaultRadius()
	if p.Radius != nil {
		radius = *p.Radius
	}

	switch {
	case n <= 0:
		err = errors.New("problem dimension must greater than 0")
	case npt < n+2 || npt > (n+1)*(n+2)/2:
		err = fmt.Errorf("interpolation points number must in [%d, %d]", n+2, (n+1)*(n+2)/2)
	case p.Eval == nil:
		err = errors.New("evaluation target is required")
	case !(rhobeg > zero) || math.IsInf(rhobeg, 0):
		err = errors.New("initial trust region radius must greater than 0")
	case !(rhoend > zero) || rhoend > rhobeg:
		err = errors.New("final trust region radius must in (0, rhobeg]")
	case stop.MaxEvaluations < npt+1:
		err = fmt.Errorf("max evaluations must not less than %d", npt+1)
	case !(trtol > zero && trtol < one):
		err = errors.New("subproblem tolerance must in (0, 1)")
	case grid < 3:
		err = errors.New("arc grid must not less than 3")
	case p.MaxHist < 0:
		err = errors.New("history size must not less than 0")
	case !(radius.Eta1 > zero && radius.Eta1 <= radius.Eta2 && radius.Eta2 < one):
		err = errors.New("radius thresholds must satisfy 0 < eta1 <= eta2 < 1")
	case !(radius.Gamma1 > zero && radius.Gamma1 < one && radius.Gamma2 > one):
		err = errors.New("radius factors must satisfy 0 < gamma1 < 1 < gamma2")
	}

	if err != nil {
		return
	}

	optimizer = &Optimizer{
		iterSpec{
			n: n, npt: npt,
			rhobeg: rhobeg, rhoend: rhoend,
			stop:     stop,
			eval:     p.Eval,
			maxHist:  p.MaxHist,
			logger:   *logger,
			recorder: p.Recorder,
			step:     stepParams{radius: radius, trTol: trtol, grid: grid},
		},
	}
	return
}

type iterSpec struct {
	n, npt         int
	rhobeg, rhoend float64
	stop           Termination
	eval           Evaluation
	maxHist        int
	logger         Logger
	recorder       Recorder
	step           stepParams
}

// Optimizer implemented using the NEWUOA algorithm.
type Optimizer struct {
	iterSpec
}

// Workspace contains the state and context of the optimization process.
// Given problem dimension n and interpolation points npt, the dominant storage is the
// inverse interpolation matrix of float64[(npt+n+1)²].
type Workspace struct {
	n, npt int
	model  *Model
	state  TrustRegionState
	hist   *History
	iter   int
}

// Result contains the final result of the optimization process.
type Result struct {
	OK      bool      // Whether the optimization was converged.
	F       float64   // Final function value.
	X       []float64 // Final solution.
	Summary           // Optimization summary.
}

// Summary contains a summary of the optimization process.
type Summary struct {
	Status  Status   // Final status after optimization.
	NumIter int      // Number of trust-region iterations performed.
	NumEval int      // Number of function evaluations performed.
	Rho     float64  // Final lower bound of the trust-region radius.
	History *History // Recent evaluations, nil unless MaxHist > 0.
}

// Init allocate the workspace for NEWUOA optimizer.
// To avoid race conditions, separate workspaces need to be created for each goroutine.
// But multiple workspaces could share one optimizer.
func (o *Optimizer) Init() *Workspace {
	w := new(Workspace)
	w.n, w.npt = o.n, o.npt
	w.model = newModel(o.n, o.npt)
	if o.maxHist > 0 {
		w.hist = newHistory(o.maxHist)
	}
	return w
}

// Fit runs the optimization process using the initial guess x and workspace w.
func (o *Optimizer) Fit(x []float64, w *Workspace) *Result {

	if len(x) != o.n {
		panic("initial x dimension not match problem")
	}

	if w.n != o.n || w.npt != o.npt {
		panic("workspace dimension not match problem")
	}

	driver := iterDriver{
		optimizer: o,
		workspace: w,
		fbest:     math.NaN(),
	}

	res := driver.mainLoop(slices.Clone(x))
	return &Result{
		OK: res == SmallTrRadius || res == TargetAchieved,
		X:  driver.xbest, F: driver.fbest,
		Summary: Summary{
			Status:  res,
			NumIter: w.iter,
			NumEval: w.state.NumEval,
			Rho:     w.state.Rho,
			History: w.hist,
		},
	}
}
