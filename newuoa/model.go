// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package newuoa

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Model is a quadratic interpolation model of the objective together with its
// interpolation set. With the best point xₒ = xpt[kopt] it reads
//
//	Q(xbase + xₒ + d) = fopt + goptᵀd + ½dᵀ(HQ + ∑ₖ pqₖyₖyₖᵀ)d
//
// where yₖ (row k of xpt) is the k-th interpolation point relative to xbase.
// The second derivative matrix is never formed: HQ is stored explicitly and the
// implicit part is applied through the npt points.
//
// The model also keeps the inverse of the interpolation matrix
//
//	W = [A  e  Yᵀ]    Aᵢⱼ = ½(yᵢᵀyⱼ)²
//	    [eᵀ 0  0 ]
//	    [Y  0  0 ]
//
// which supplies the Lagrange functions of the interpolation set.
type Model struct {
	n, npt int

	xbase []float64     // n
	xpt   *mat.Dense    // npt × n
	fval  []float64     // npt
	kopt  int           // index of the best point
	gopt  []float64     // ∇Q at the best point
	hq    *mat.SymDense // explicit second derivatives
	pq    []float64     // implicit second derivatives

	hinv  *mat.SymDense // W⁻¹, (npt+n+1) × (npt+n+1)
	itest int           // consecutive failures of the current model against the alternative

	w   []float64 // npt+n+1
	tmp []float64 // npt
	wn  []float64 // n
}

func newModel(n, npt int) *Model {
	return &Model{
		n: n, npt: npt,
		xbase: make([]float64, n),
		xpt:   mat.NewDense(npt, n, nil),
		fval:  make([]float64, npt),
		gopt:  make([]float64, n),
		hq:    mat.NewSymDense(n, nil),
		pq:    make([]float64, npt),
		hinv:  mat.NewSymDense(npt+n+1, nil),
		w:     make([]float64, npt+n+1),
		tmp:   make([]float64, npt),
		wn:    make([]float64, n),
	}
}

// reset clears the model before a new run from x0.
func (m *Model) reset(x0 []float64) {
	copy(m.xbase, x0)
	m.kopt, m.itest = 0, 0
	m.xpt.Zero()
	m.hq.Zero()
	clear(m.fval)
	clear(m.gopt)
	clear(m.pq)
}

// Apply sets hv to the second derivative matrix of Q times v.
func (m *Model) Apply(v, hv []float64) {
	vv := mat.NewVecDense(m.n, v)
	hvv := mat.NewVecDense(m.n, hv)
	t := mat.NewVecDense(m.npt, m.tmp)
	u := mat.NewVecDense(m.n, m.wn)

	t.MulVec(m.xpt, vv) // tₖ = pqₖyₖᵀv
	for k, p := range m.pq {
		m.tmp[k] *= p
	}
	hvv.MulVec(m.xpt.T(), t)
	u.MulVec(m.hq, vv)
	hvv.AddVec(hvv, u)
}

// Quadinc returns the predicted change Q(xₒ + d) - Q(xₒ).
func (m *Model) Quadinc(d []float64) float64 {
	hd := make([]float64, m.n)
	m.Apply(d, hd)
	return floats.Dot(d, m.gopt) + half*floats.Dot(d, hd)
}

// Gradient returns ∇Q at the best point. The slice is owned by the model.
func (m *Model) Gradient() []float64 { return m.gopt }

// Base returns the base point. The slice is owned by the model.
func (m *Model) Base() []float64 { return m.xbase }

// Xopt returns the best interpolation point relative to the base point.
func (m *Model) Xopt() []float64 { return m.xpt.RawRowView(m.kopt) }

// Fopt returns the least function value of the interpolation set.
func (m *Model) Fopt() float64 { return m.fval[m.kopt] }

// Point writes xbase + y to x for the k-th interpolation point.
func (m *Model) Point(k int, x []float64) {
	floats.AddTo(x, m.xbase, m.xpt.RawRowView(k))
}

// finite reports whether every coefficient of the model is finite.
func (m *Model) finite() bool {
	sum := floats.Sum(m.gopt) + floats.Sum(m.pq)
	hq := m.hq.RawSymmetric()
	for i := 0; i < m.n; i++ {
		sum += floats.Sum(hq.Data[i*hq.Stride+i : i*hq.Stride+m.n])
	}
	return !math.IsNaN(sum) && !math.IsInf(sum, 0)
}

// distsq sets dist[k] = ‖yₖ - x‖² and returns the index of the largest one.
func (m *Model) distsq(x []float64, dist []float64) int {
	for k := range dist {
		dist[k] = sqDist(m.xpt.RawRowView(k), x)
	}
	return floats.MaxIdx(dist)
}

func sqDist(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}
