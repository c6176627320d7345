// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package newuoa

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var errSingularW = errors.New("newuoa: interpolation matrix is singular")

// initPoint writes the k-th point of the initial interpolation set (relative to x₀) to y:
//
//	y₀ = 0,  yₖ = ρ₀eₖ,  yₙ₊ₖ = -ρ₀eₖ  (k = 1,...,n)
//
// The remaining points are yₖ = ±ρ₀eᵢ ± ρ₀eⱼ, where the sign along eᵢ is that of the
// better of the two points ±ρ₀eᵢ. Hence fval must already hold the first 2n+1 values.
func (m *Model) initPoint(k int, rhobeg float64, y []float64) {
	n := m.n
	for i := range y {
		y[i] = zero
	}
	switch {
	case k == 0:
	case k <= n:
		y[k-1] = rhobeg
	case k <= 2*n:
		y[k-n-1] = -rhobeg
	default:
		// ipt, jpt are 1-based coordinate indices
		itemp := (k - n - 1) / n
		jpt := k - itemp*n - n
		ipt := jpt + itemp
		if ipt > n {
			itemp = jpt
			jpt = ipt - n
			ipt = itemp
		}
		xi, xj := rhobeg, rhobeg
		if m.fval[ipt+n] < m.fval[ipt] {
			xi = -rhobeg
		}
		if m.fval[jpt+n] < m.fval[jpt] {
			xj = -rhobeg
		}
		y[ipt-1] = xi
		y[jpt-1] = xj
	}
}

// setPoint stores the k-th initial point y with value f.
func (m *Model) setPoint(k int, y []float64, f float64) {
	m.xpt.SetRow(k, y)
	m.fval[k] = f
	if f < m.fval[m.kopt] {
		m.kopt = k
	}
}

// build factorizes the initial interpolation matrix and sets Q to the interpolant
// with least Frobenius norm of its second derivative matrix.
func (m *Model) build() error {
	if err := m.factorize(); err != nil {
		return err
	}
	m.hq.Zero()
	m.alternative(m.pq, m.gopt)
	m.itest = 0
	return nil
}

// factorize computes W⁻¹ from scratch.
//
// The points are scaled by s = 𝚖𝚊𝚡‖yₖ‖ first, which turns W into D·Ŵ·D with
// D = 𝚍𝚒𝚊𝚐(s²I, s⁻², s⁻¹I), so that W⁻¹ = D⁻¹Ŵ⁻¹D⁻¹ with a well scaled Ŵ.
func (m *Model) factorize() error {
	n, npt := m.n, m.npt
	dim := npt + n + 1

	scale := zero
	for k := 0; k < npt; k++ {
		scale = math.Max(scale, floats.Norm(m.xpt.RawRowView(k), 2))
	}
	if !(scale > zero) || math.IsInf(scale, 0) {
		return errSingularW
	}

	var ys, gram mat.Dense
	ys.Scale(one/scale, m.xpt)
	gram.Mul(&ys, ys.T())

	w := mat.NewSymDense(dim, nil)
	for i := 0; i < npt; i++ {
		for j := 0; j <= i; j++ {
			t := gram.At(i, j)
			w.SetSym(i, j, half*t*t)
		}
		w.SetSym(i, npt, one)
		for k := 0; k < n; k++ {
			w.SetSym(i, npt+1+k, ys.At(i, k))
		}
	}

	var inv mat.Dense
	if err := inv.Inverse(w); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 1) {
			return errSingularW
		}
	}

	diag := make([]float64, dim)
	for i := range diag {
		switch {
		case i < npt:
			diag[i] = scale * scale
		case i == npt:
			diag[i] = one / (scale * scale)
		default:
			diag[i] = one / scale
		}
	}
	for i := 0; i < dim; i++ {
		for j := i; j < dim; j++ {
			v := half * (inv.At(i, j) + inv.At(j, i)) / (diag[i] * diag[j])
			if math.IsNaN(v) {
				return errSingularW
			}
			m.hinv.SetSym(i, j, v)
		}
	}
	return nil
}

// alternative writes the second derivative coefficients and the gradient at the best
// point of the least Frobenius norm interpolant to pq and g.
func (m *Model) alternative(pq, g []float64) {
	n, npt := m.n, m.npt
	dim := npt + n + 1

	fopt := m.Fopt()
	rhs := make([]float64, dim)
	for k, f := range m.fval {
		rhs[k] = f - fopt
	}
	coef := make([]float64, dim)
	mat.NewVecDense(dim, coef).MulVec(m.hinv, mat.NewVecDense(dim, rhs))

	copy(pq, coef[:npt])
	m.implicitGrad(coef[:npt], coef[npt+1:], m.Xopt(), g)
}

// implicitGrad sets g to the gradient at x of c + bᵀy + ½∑ₖ λₖ(yₖᵀy)².
func (m *Model) implicitGrad(lambda, b, x, g []float64) {
	t := make([]float64, m.npt)
	mat.NewVecDense(m.npt, t).MulVec(m.xpt, mat.NewVecDense(m.n, x))
	for k := range t {
		t[k] *= lambda[k]
	}
	gv := mat.NewVecDense(m.n, g)
	gv.MulVec(m.xpt.T(), mat.NewVecDense(m.npt, t))
	floats.Add(g, b)
}

// ShiftBase moves the base point to the best point. The represented quadratic and the
// gradient at the best point are unchanged; W⁻¹ is recomputed.
func (m *Model) ShiftBase() error {
	n := m.n
	xopt := make([]float64, n)
	copy(xopt, m.Xopt())
	xo := mat.NewVecDense(n, xopt)

	// ∑ₖ pqₖ(yₖyₖᵀ - (yₖ-xₒ)(yₖ-xₒ)ᵀ) = v·xₒᵀ + xₒ·vᵀ - (∑ₖ pqₖ)xₒxₒᵀ with v = ∑ₖ pqₖyₖ
	v := mat.NewVecDense(n, nil)
	v.MulVec(m.xpt.T(), mat.NewVecDense(m.npt, m.pq))
	m.hq.RankTwo(m.hq, one, v, xo)
	m.hq.SymRankOne(m.hq, -floats.Sum(m.pq), xo)

	for k := 0; k < m.npt; k++ {
		floats.Sub(m.xpt.RawRowView(k), xopt)
	}
	floats.Add(m.xbase, xopt)
	return m.factorize()
}

// VlagBeta returns the values of the Lagrange functions at xₒ + d (the first npt entries
// of vlag, followed by the remaining entries of W⁻¹w) and the quantity
//
//	β = ½‖x‖⁴ - wᵀW⁻¹w
//
// where w is the column that x = xₒ + d would contribute to W. The computation is done
// relative to xₒ, which avoids most of the cancellation when ‖d‖ ≪ ‖xₒ‖.
func (m *Model) VlagBeta(d []float64) (vlag []float64, beta float64) {
	n, npt := m.n, m.npt
	dim := npt + n + 1
	xopt := m.Xopt()

	w := m.w
	for k := 0; k < npt; k++ {
		y := m.xpt.RawRowView(k)
		yd := floats.Dot(y, d)
		w[k] = yd * (floats.Dot(y, xopt) + half*yd)
	}
	w[npt] = zero
	copy(w[npt+1:], d)

	vlag = make([]float64, dim)
	mat.NewVecDense(dim, vlag).MulVec(m.hinv, mat.NewVecDense(dim, w))
	whw := floats.Dot(w, vlag)
	vlag[m.kopt] += one

	dx := floats.Dot(d, xopt)
	dsq := floats.Dot(d, d)
	xoptsq := floats.Dot(xopt, xopt)
	beta = dx*dx + dsq*(xoptsq+dx+dx+half*dsq) - whw
	return
}

// ChooseReplacement picks the interpolation point to be replaced by xₒ + d, or NoReplace.
//
// Point k is weighted by the denominator |σₖ| = |β·(W⁻¹)ₖₖ + vlagₖ²| of the update of W⁻¹,
// multiplied by (‖yₖ - xₒ‖²/r²)³ when yₖ lies outside r = 𝚖𝚊𝚡(δ/10, ρ).
// Unless the new point improves on the best one (ratio > 0), the best point is kept and
// a replacement must have weight above one.
func (m *Model) ChooseReplacement(d []float64, beta float64, vlag []float64, delta, rho, ratio float64) int {
	rhosq := math.Max(tenth*delta, rho)
	rhosq *= rhosq

	knew, ktemp := NoReplace, NoReplace
	detrat := zero
	if !(ratio > zero) {
		ktemp = m.kopt
		detrat = one
	}

	xopt := m.Xopt()
	for k := 0; k < m.npt; k++ {
		den := math.Abs(beta*m.hinv.At(k, k) + vlag[k]*vlag[k])
		if distsq := sqDist(m.xpt.RawRowView(k), xopt); distsq > rhosq {
			den *= math.Pow(distsq/rhosq, 3)
		}
		if den > detrat && k != ktemp {
			detrat = den
			knew = k
		}
	}
	return knew
}

// UpdateFactorization revises W⁻¹ when the t-th point is replaced by the point whose
// vlag and β were returned by VlagBeta:
//
//	H⁺ = H + σ⁻¹[α(eₜ-v)(eₜ-v)ᵀ - βHeₜeₜᵀH + τ(Heₜ(eₜ-v)ᵀ + (eₜ-v)eₜᵀH)]
//
// with v = vlag, α = Hₜₜ, τ = vₜ and σ = αβ + τ².
func (m *Model) UpdateFactorization(t int, beta float64, vlag []float64) {
	dim := m.npt + m.n + 1

	ht := mat.Col(nil, t, m.hinv)
	u := make([]float64, dim)
	floats.ScaleTo(u, -one, vlag)
	u[t] += one

	alpha, tau := ht[t], vlag[t]
	sigma := alpha*beta + tau*tau

	hv := mat.NewVecDense(dim, ht)
	uv := mat.NewVecDense(dim, u)
	m.hinv.SymRankOne(m.hinv, alpha/sigma, uv)
	m.hinv.SymRankOne(m.hinv, -beta/sigma, hv)
	m.hinv.RankTwo(m.hinv, tau/sigma, hv, uv)
}

// UpdateModel replaces the t-th interpolation point by xₒ + d with value f, and adds
// moderr times the t-th Lagrange function to Q, which is the change of least Frobenius
// norm that makes Q interpolate f. UpdateFactorization must have been called first.
func (m *Model) UpdateModel(t int, moderr float64, d []float64, f float64) {
	n, npt := m.n, m.npt

	xopt := make([]float64, n)
	copy(xopt, m.Xopt())
	fopt := m.Fopt()

	// the implicit term of the leaving point moves to HQ
	yt := m.xpt.RawRowView(t)
	m.hq.SymRankOne(m.hq, m.pq[t], mat.NewVecDense(n, yt))
	m.pq[t] = zero

	floats.AddTo(yt, xopt, d)
	m.fval[t] = f

	lt := mat.Col(nil, t, m.hinv)
	floats.AddScaled(m.pq, moderr, lt[:npt])

	gl := make([]float64, n)
	m.implicitGrad(lt[:npt], lt[npt+1:], xopt, gl)
	floats.AddScaled(m.gopt, moderr, gl)

	if f < fopt {
		m.kopt = t
		hd := make([]float64, n)
		m.Apply(d, hd)
		floats.Add(m.gopt, hd)
	}
}

// TryAlternative replaces Q by the least Frobenius norm interpolant of fval - fopt when
// the current model has failed three times in a row: the ratio was at most 0.01 while
// ‖∇Q(xₒ)‖² was at least ten times the squared gradient of the alternative.
// It reports whether the replacement happened.
func (m *Model) TryAlternative(ratio float64) bool {
	if ratio > 0.01 {
		m.itest = 0
		return false
	}

	pq := make([]float64, m.npt)
	galt := make([]float64, m.n)
	m.alternative(pq, galt)

	if floats.Dot(m.gopt, m.gopt) < ten*floats.Dot(galt, galt) {
		m.itest = 0
	} else {
		m.itest++
	}
	if m.itest < 3 {
		return false
	}

	m.itest = 0
	m.hq.Zero()
	copy(m.pq, pq)
	copy(m.gopt, galt)
	return true
}
