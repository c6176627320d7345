// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package newuoa

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Curvature applies the second derivative matrix of a quadratic to a vector.
type Curvature interface {
	// Apply sets hv = H·v. The slices must not overlap.
	Apply(v, hv []float64)
}

// Subproblem is an approximate solution of the trust-region subproblem.
type Subproblem struct {
	S        []float64 // step with ‖S‖ ≤ δ
	Crvmin   float64   // least Rayleigh quotient of the CG directions, 0 on the boundary
	Qred     float64   // predicted reduction Q(0) - Q(S) ≥ 0
	Status   TrsStatus // how the solver terminated
	Iter     int       // CG plus boundary iterations
	Boundary bool      // whether the CG phase reached ‖S‖ = δ
}

// Trsapp approximately solves the trust-region subproblem
//
//	minimize    Q(s) = gᵀs + ½sᵀHs
//	subject to  ‖s‖ ≤ δ
//
// A truncated conjugate gradient method runs for at most n iterations. If it reaches the
// boundary, the step is improved by rotations sᶿ = cosθ·s + sinθ·d on the sphere ‖s‖ = δ,
// where d lies in span{s, g+Hs}, d ⊥ s and ‖d‖ = δ, and θ is chosen by CircleMin.
//
// The CG iteration stops when
//   - ‖g+Hs‖² ≤ tol²·‖g‖²          (converged)
//   - the last reduction ≤ tol·Qred (slow progress)
//   - dᵀs ≤ 0 for a new direction  (rounding errors: positive in exact arithmetic)
//
// H is only accessed through Curvature, so an implicit low-rank part costs O(n·npt).
func Trsapp(delta float64, g []float64, h Curvature, tol float64, grid int) *Subproblem {

	n := len(g)
	res := &Subproblem{S: make([]float64, n)}
	s := res.S

	hs := make([]float64, n) // H·s
	hd := make([]float64, n) // H·d
	gs := make([]float64, n) // residual gradient g + H·s
	d := make([]float64, n)  // search direction

	copy(gs, g)
	gg := floats.Dot(gs, gs)
	switch {
	case !(delta > zero) || !finite(gg):
		res.Status = TrsBreakdown
		return res
	case gg == zero:
		res.Status = TrsConverged
		return res
	}

	delsq := delta * delta
	ggbeg := gg
	tolsq := tol * tol

	// Phase 1: truncated conjugate gradient
	floats.ScaleTo(d, -one, gs)
	dd, ds, ss := gg, zero, zero
	status := TrsBudgetExhausted
	for res.Iter < n {
		res.Iter++

		// α such that ‖s + αd‖ = δ
		temp := delsq - ss
		bstep := temp / (ds + math.Sqrt(ds*ds+dd*temp))

		h.Apply(d, hd)
		dhd := floats.Dot(d, hd)
		if math.IsNaN(bstep) || math.IsNaN(dhd) {
			status = TrsBreakdown
			break
		}

		alpha := bstep
		if dhd > zero {
			if rq := dhd / dd; res.Iter == 1 || rq < res.Crvmin {
				res.Crvmin = rq
			}
			alpha = math.Min(alpha, gg/dhd)
		}

		qadd := alpha * (gg - half*alpha*dhd)
		res.Qred += qadd

		floats.AddScaled(s, alpha, d)
		floats.AddScaled(hs, alpha, hd)
		floats.AddTo(gs, g, hs)

		ggsav := gg
		gg = floats.Dot(gs, gs)
		ss = floats.Dot(s, s)
		if math.IsNaN(gg) {
			status = TrsBreakdown
			break
		}

		if alpha >= bstep || ss >= delsq {
			res.Boundary = true
			break
		}
		if gg <= tolsq*ggbeg {
			status = TrsConverged
			break
		}
		if qadd <= tol*res.Qred {
			status = TrsSlowProgress
			break
		}
		if res.Iter == n {
			break
		}

		// dₖ₊₁ = -(g + Hs) + (‖rₖ₊₁‖²/‖rₖ‖²)·dₖ
		beta := gg / ggsav
		for i := range d {
			d[i] = beta*d[i] - gs[i]
		}
		dd = floats.Dot(d, d)
		ds = floats.Dot(d, s)
		if !(ds > zero) {
			status = TrsBreakdown
			break
		}
	}

	if sn := math.Sqrt(ss); !(sn > zero) || math.IsInf(sn, 0) {
		res.Status = TrsBreakdown
		res.Boundary = false
		return res
	}
	if !res.Boundary {
		res.Status = status
		return res
	}

	// Phase 2: search along the boundary
	res.Crvmin = zero
	res.Status = boundarySearch(res, g, gs, hs, d, hd, h, delsq, ggbeg, gg, tol, grid, max(1, n-res.Iter))
	if sn := floats.Norm(s, 2); sn > delta {
		floats.Scale(delta/sn, s)
	}
	return res
}

// boundarySearch rotates res.S on the sphere ‖s‖ = δ for at most budget iterations.
// gs, hs hold g + Hs and Hs on entry; d, hd are workspace.
func boundarySearch(res *Subproblem, g, gs, hs, d, hd []float64, h Curvature,
	delsq, ggbeg, gg, tol float64, grid, budget int) TrsStatus {

	s := res.S
	tolsq := tol * tol

	for k := 0; k < budget; k++ {
		if gg <= tolsq*ggbeg {
			return TrsConverged
		}

		sg := floats.Dot(s, g)
		shs := floats.Dot(s, hs)
		sgk := sg + shs
		if sgk <= -0.99*math.Sqrt(gg*delsq) {
			// s is almost parallel to -(g + Hs)
			return TrsConverged
		}

		// d = (δ²(g + Hs) - (sᵀ(g + Hs))s) / √(δ²‖g + Hs‖² - (sᵀ(g + Hs))²)
		temp := delsq*gg - sgk*sgk
		if !(temp > 1.0e-12*delsq*gg) {
			return TrsBreakdown
		}
		temp = math.Sqrt(temp)
		ta, tb := delsq/temp, sgk/temp
		for i := range d {
			d[i] = ta*gs[i] - tb*s[i]
		}

		res.Iter++
		h.Apply(d, hd)
		dg := floats.Dot(d, g)
		dhd := floats.Dot(d, hd)
		dhs := floats.Dot(hd, s)

		// Q(cosθ·s + sinθ·d) - ½dᵀHd
		cf := half * (shs - dhd)
		qbeg := sg + cf
		qfun := func(angle float64) float64 {
			cth, sth := math.Cos(angle), math.Sin(angle)
			return (sg+cf*cth)*cth + (dg+dhs*cth)*sth
		}

		angle := CircleMin(qfun, grid)
		reduc := qbeg - qfun(angle)
		if !(reduc > zero) {
			return TrsSlowProgress
		}

		cth, sth := math.Cos(angle), math.Sin(angle)
		for i := range s {
			s[i] = cth*s[i] + sth*d[i]
			hs[i] = cth*hs[i] + sth*hd[i]
		}
		floats.AddTo(gs, g, hs)
		gg = floats.Dot(gs, gs)
		res.Qred += reduc

		if reduc <= tol*res.Qred {
			return TrsSlowProgress
		}
	}
	return TrsBudgetExhausted
}
