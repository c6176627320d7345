// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package newuoa

import (
	"math"
	"slices"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
)

// iterDriver is the main driver for iterations in an optimization process,
// responsible for managing the flow of the optimization.
type iterDriver struct {
	optimizer *Optimizer
	workspace *Workspace

	xbest []float64 // best evaluated point
	fbest float64
	x     []float64 // scratch for absolute points
}

// initialize evaluates the objective on the initial interpolation set around x0 and
// builds the first model.
func (d *iterDriver) initialize(x0 []float64) Status {
	o, w := d.optimizer, d.workspace
	m, st := w.model, &w.state
	m.reset(x0)

	y := make([]float64, o.n)
	for k := 0; k < o.npt; k++ {
		m.initPoint(k, o.rhobeg, y)
		floats.AddTo(d.x, x0, y)
		if !allFinite(d.x) {
			return NaNX
		}
		f := evaluate(o.eval, d.x)
		st.NumEval++
		d.observe(InitEvaluation, d.x, f, math.NaN())
		m.setPoint(k, y, f)
		switch {
		case math.IsNaN(f) || f >= FuncMax:
			return NaNInfF
		case f <= st.FTarget:
			return TargetAchieved
		}
	}

	if err := m.build(); err != nil || !m.finite() {
		return NaNModel
	}
	return Continue
}

// mainLoop alternates trust-region steps, geometry steps and reductions of rho
// until one of the stopping conditions holds.
func (d *iterDriver) mainLoop(x0 []float64) (status Status) {

	o, w := d.optimizer, d.workspace
	m, st := w.model, &w.state
	eta1 := o.step.radius.Eta1

	d.xbest = slices.Clone(x0)
	d.x = make([]float64, o.n)
	*st = TrustRegionState{
		Delta:   o.rhobeg,
		Rho:     o.rhobeg,
		MaxEval: o.stop.MaxEvaluations,
		FTarget: o.stop.FTarget,
	}
	st.resetRec()
	w.iter = 0
	if w.hist != nil {
		w.hist.reset()
	}
	defer func() { d.printExit(status) }()

	if !allFinite(x0) {
		return InvalidInput
	}
	if status = d.initialize(x0); status != Continue {
		return
	}

	dist := make([]float64, o.npt)
	for {
		w.iter++
		nf := st.NumEval
		out := trustRegionStep(st, m, o.eval, &o.step)
		switch {
		case out.Short:
			d.emit(Event{Op: ShortStep, NumEval: st.NumEval, F: math.NaN(), Fopt: out.Fopt,
				Ratio: math.NaN(), Delta: st.Delta, Rho: st.Rho})
		case st.NumEval > nf:
			d.observe(TrustRegionEval, out.X, out.F, out.Ratio)
		}
		if out.Status != Continue {
			return out.Status
		}
		if !m.finite() {
			return NaNModel
		}

		kmax := m.distsq(m.Xopt(), dist)
		closeSet := dist[kmax] <= 4*st.Delta*st.Delta
		adequateGeo := (out.Short && st.accurate()) || closeSet
		smallTr := math.Max(st.Delta, st.Dnorm) <= st.Rho

		bad := out.Short || out.Knew == NoReplace
		improveGeo := (bad || !(out.Ratio > eta1)) && !adequateGeo
		reduceRho := (bad || !(out.Ratio > zero)) && adequateGeo && smallTr

		if improveGeo {
			if status = d.geometryStep(kmax, dist[kmax]); status != Continue {
				return
			}
			if !m.finite() {
				return NaNModel
			}
		}

		if reduceRho {
			if st.Rho <= o.rhoend {
				return SmallTrRadius
			}
			st.Delta = half * st.Rho
			st.Rho = Redrho(st.Rho, o.rhoend)
			st.Delta = math.Max(st.Delta, st.Rho)
			st.resetRec()
			d.printRho()
		}

		if xopt := m.Xopt(); floats.Dot(xopt, xopt) >= 1.0e3*st.Delta*st.Delta {
			if m.ShiftBase() != nil {
				return NaNModel
			}
		}
	}
}

// geometryStep replaces the interpolation point knew, which lies at squared distance
// distsq from the best point, by a point that makes the interpolation set better poised.
func (d *iterDriver) geometryStep(knew int, distsq float64) Status {
	o, w := d.optimizer, d.workspace
	m, st := w.model, &w.state

	delbar := math.Max(math.Min(tenth*math.Sqrt(distsq), half*st.Delta), st.Rho)
	if xopt := m.Xopt(); delbar*delbar <= 1.0e-3*floats.Dot(xopt, xopt) {
		if m.ShiftBase() != nil {
			return NaNModel
		}
	}

	step := m.Geostep(knew, delbar, o.step.grid)
	vlag, beta := m.VlagBeta(step)
	vquad := m.Quadinc(step)
	fopt := m.Fopt()

	floats.AddTo(d.x, m.Base(), m.Xopt())
	floats.Add(d.x, step)
	if !allFinite(d.x) {
		return NaNX
	}

	f := evaluate(o.eval, d.x)
	st.NumEval++
	moderr := f - fopt - vquad
	st.record(math.Min(delbar, floats.Norm(step, 2)), moderr)
	d.observe(GeometryEval, d.x, f, math.NaN())

	switch {
	case math.IsNaN(f) || f >= FuncMax:
		return NaNInfF
	case f <= st.FTarget:
		return TargetAchieved
	case st.NumEval >= st.MaxEval:
		return BudgetExhausted
	}

	if sigma := beta*m.hinv.At(knew, knew) + vlag[knew]*vlag[knew]; sigma == zero || !finite(sigma) {
		return Continue
	}
	m.UpdateFactorization(knew, beta, vlag)
	m.UpdateModel(knew, moderr, step, f)
	return Continue
}

// observe tracks the best evaluated point and reports the evaluation.
func (d *iterDriver) observe(op Operation, x []float64, f, ratio float64) {
	o, w := d.optimizer, d.workspace
	if !math.IsNaN(f) && (math.IsNaN(d.fbest) || f < d.fbest) {
		copy(d.xbest, x)
		d.fbest = f
	}
	if w.hist != nil {
		w.hist.add(x, f)
	}
	if log := o.logger; log.enable(LogEval) {
		log.event().
			Stringer("op", op).
			Int("nf", w.state.NumEval).
			Float64("f", f).
			Floats64("x", x).
			Msg("function evaluation")
	}
	d.emit(Event{Op: op, NumEval: w.state.NumEval, X: x, F: f, Fopt: d.fbest,
		Ratio: ratio, Delta: w.state.Delta, Rho: w.state.Rho})
}

func (d *iterDriver) emit(ev Event) {
	if r := d.optimizer.recorder; r != nil {
		r.Record(ev)
	}
}

// printRho logs the best point after rho has been reduced.
func (d *iterDriver) printRho() {
	o, w := d.optimizer, d.workspace
	m, st := w.model, &w.state
	if log := o.logger; log.enable(LogRho) {
		floats.AddTo(d.x, m.Base(), m.Xopt())
		log.event().
			Float64("rho", st.Rho).
			Float64("delta", st.Delta).
			Int("nf", st.NumEval).
			Float64("fopt", m.Fopt()).
			Floats64("xopt", d.x).
			Msg("new rho")
	}
	d.emit(Event{Op: RhoReduction, NumEval: st.NumEval, F: math.NaN(), Fopt: m.Fopt(),
		Ratio: math.NaN(), Delta: st.Delta, Rho: st.Rho})
}

// printExit logs the final status and the best point found.
func (d *iterDriver) printExit(status Status) {
	o, st := d.optimizer, &d.workspace.state
	if log := o.logger; log.enable(LogExit) {
		level := zerolog.InfoLevel
		if status.Err() != nil {
			level = zerolog.WarnLevel
		}
		log.Sink.WithLevel(level).
			Stringer("status", status).
			Int("nf", st.NumEval).
			Int("iter", d.workspace.iter).
			Float64("f", d.fbest).
			Floats64("x", d.xbest).
			Msg("NEWUOA finished")
	}
	d.emit(Event{Op: Finished, NumEval: st.NumEval, X: d.xbest, F: d.fbest, Fopt: d.fbest,
		Ratio: math.NaN(), Delta: st.Delta, Rho: st.Rho, Status: status})
}
