// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package newuoa

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Surrogate is a quadratic model of the objective together with the interpolation set
// that defines it. Model is the implementation used by the optimizer.
type Surrogate interface {
	Curvature
	Gradient() []float64
	Base() []float64
	Xopt() []float64
	Fopt() float64
	Quadinc(d []float64) float64
	ShiftBase() error
	VlagBeta(d []float64) (vlag []float64, beta float64)
	ChooseReplacement(d []float64, beta float64, vlag []float64, delta, rho, ratio float64) int
	UpdateFactorization(t int, beta float64, vlag []float64)
	UpdateModel(t int, moderr float64, d []float64, f float64)
	TryAlternative(ratio float64) bool
}

// recLen is the length of the windows of recent step norms and model errors.
const recLen = 3

// TrustRegionState is threaded through the iterations by the driver. The best point
// itself is owned by the Surrogate.
type TrustRegionState struct {
	Delta  float64   // trust-region radius
	Rho    float64   // lower bound of Delta at the current resolution
	S      []float64 // latest trust-region step
	Dnorm  float64   // 𝚖𝚒𝚗(Delta, ‖S‖)
	Crvmin float64   // curvature estimate of the latest subproblem

	NumEval int     // function evaluations so far
	MaxEval int     // evaluation budget
	FTarget float64 // stop once f ≤ FTarget

	dnormRec  [recLen]float64
	moderrRec [recLen]float64
}

// record overwrites the oldest entries of the step norm and model error windows.
func (st *TrustRegionState) record(dnorm, moderr float64) {
	copy(st.dnormRec[:], st.dnormRec[1:])
	copy(st.moderrRec[:], st.moderrRec[1:])
	st.dnormRec[recLen-1] = dnorm
	st.moderrRec[recLen-1] = moderr
}

func (st *TrustRegionState) resetRec() {
	for i := range st.dnormRec {
		st.dnormRec[i] = math.MaxFloat64
		st.moderrRec[i] = math.MaxFloat64
	}
}

// accurate reports whether the recent steps were short and the recent model errors
// were within the error bound ⅛·crvmin·ρ².
func (st *TrustRegionState) accurate() bool {
	bound := 0.125 * st.Crvmin * st.Rho * st.Rho
	for i := 0; i < recLen; i++ {
		if !(math.Abs(st.moderrRec[i]) <= bound) || !(st.dnormRec[i] <= st.Rho) {
			return false
		}
	}
	return true
}

// Outcome is the result of one trust-region iteration.
type Outcome struct {
	X      []float64 // trial point, nil for a short step
	F      float64   // objective value at X, NaN when not evaluated
	Fopt   float64   // best value before the iteration
	Vquad  float64   // predicted change Q(xₒ + S) - Q(xₒ)
	Moderr float64   // f - Q(xₒ + S)
	Ratio  float64   // (F - Fopt)/Vquad
	Delta  float64   // the new trust-region radius
	Knew   int       // replaced interpolation point or NoReplace
	Short  bool      // the step was too short to be evaluated
	Alt    bool      // the model was replaced by the alternative interpolant
	Trs    TrsStatus // termination of the subproblem solver
	Status Status
}

type stepParams struct {
	radius RadiusParams
	trTol  float64
	grid   int
}

// trustRegionStep performs one trust-region iteration: it solves the subproblem,
// evaluates the objective at the trial point, updates the radius and lets the
// surrogate absorb the new point.
func trustRegionStep(st *TrustRegionState, m Surrogate, eval Evaluation, p *stepParams) *Outcome {

	out := &Outcome{F: math.NaN(), Ratio: math.NaN(), Knew: NoReplace, Fopt: m.Fopt()}

	sub := Trsapp(st.Delta, m.Gradient(), m, p.trTol, p.grid)
	st.S, st.Crvmin = sub.S, sub.Crvmin
	out.Trs = sub.Status

	s := sub.S
	dsq := floats.Dot(s, s)
	st.Dnorm = math.Min(st.Delta, math.Sqrt(dsq))

	if st.Dnorm < half*st.Rho {
		out.Short = true
		st.Delta = snap(tenth*st.Delta, st.Rho)
		out.Delta = st.Delta
		return out
	}

	// Keep the interpolation points close to the base point, so that the low-rank
	// representation does not lose accuracy.
	if xopt := m.Xopt(); dsq <= 1.0e-3*floats.Dot(xopt, xopt) {
		if err := m.ShiftBase(); err != nil {
			out.Status = NaNModel
			return out
		}
	}

	vlag, beta := m.VlagBeta(s)
	out.Vquad = m.Quadinc(s)

	x := make([]float64, len(s))
	floats.AddTo(x, m.Base(), m.Xopt())
	floats.Add(x, s)
	out.X = x
	if !allFinite(x) {
		out.Status = NaNX
		return out
	}

	f := evaluate(eval, x)
	st.NumEval++
	out.F = f
	out.Moderr = f - out.Fopt - out.Vquad
	st.record(st.Dnorm, out.Moderr)

	switch {
	case math.IsNaN(f) || f >= FuncMax:
		out.Status = NaNInfF
		return out
	case f <= st.FTarget:
		out.Status = TargetAchieved
		return out
	case st.NumEval >= st.MaxEval:
		out.Status = BudgetExhausted
		return out
	case !(out.Vquad < zero):
		out.Status = ModelFailed
		return out
	}

	out.Ratio = (f - out.Fopt) / out.Vquad
	st.Delta = snap(Trrad(st.Delta, st.Dnorm, out.Ratio, p.radius), st.Rho)
	out.Delta = st.Delta

	out.Knew = m.ChooseReplacement(s, beta, vlag, st.Delta, st.Rho, out.Ratio)
	if out.Knew != NoReplace {
		m.UpdateFactorization(out.Knew, beta, vlag)
		m.UpdateModel(out.Knew, out.Moderr, s, f)
		if st.Delta <= st.Rho {
			out.Alt = m.TryAlternative(out.Ratio)
		}
	}
	return out
}

// snap sets the radius to rho once it is close to (or below) it.
func snap(delta, rho float64) float64 {
	if delta <= 1.5*rho {
		return rho
	}
	return delta
}

// evaluate calls the objective, turning a panic into a NaN value.
func evaluate(eval Evaluation, x []float64) (f float64) {
	defer func() {
		if r := recover(); r != nil {
			f = math.NaN()
		}
	}()
	return eval(x)
}

func allFinite(x []float64) bool {
	for _, v := range x {
		if !finite(v) {
			return false
		}
	}
	return true
}
