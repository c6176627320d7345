// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package newuoa

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// lagrange is the t-th Lagrange function of the interpolation set seen from xₒ:
//
//	ℓ(xₒ + d) - ℓ(xₒ) = gᵀd + ½∑ₖ λₖ(yₖᵀd)²
type lagrange struct {
	m      *Model
	lambda []float64
	g      []float64
	tmp    []float64
}

func (m *Model) lagrange(t int) *lagrange {
	col := mat.Col(nil, t, m.hinv)
	l := &lagrange{m: m, lambda: col[:m.npt], g: make([]float64, m.n), tmp: make([]float64, m.npt)}
	m.implicitGrad(l.lambda, col[m.npt+1:], m.Xopt(), l.g)
	return l
}

func (l *lagrange) Apply(v, hv []float64) {
	t := mat.NewVecDense(l.m.npt, l.tmp)
	t.MulVec(l.m.xpt, mat.NewVecDense(l.m.n, v))
	for k, p := range l.lambda {
		l.tmp[k] *= p
	}
	mat.NewVecDense(l.m.n, hv).MulVec(l.m.xpt.T(), t)
}

func (l *lagrange) value(d, hd []float64) float64 {
	l.Apply(d, hd)
	return floats.Dot(l.g, d) + half*floats.Dot(d, hd)
}

// Geostep returns a step d with ‖d‖ = delbar that makes |ℓₜ(xₒ + d)| large, so that
// replacing the t-th interpolation point by xₒ + d improves the geometry of the set.
//
// The search starts from the better of ±delbar·(yₜ - xₒ)/‖yₜ - xₒ‖ and ±delbar·∇ℓₜ/‖∇ℓₜ‖,
// then rotates d in span{d, ∇ℓₜ(xₒ + d)} along the circle of radius delbar with CircleMin
// while |ℓₜ| grows by more than ten percent.
func (m *Model) Geostep(t int, delbar float64, grid int) []float64 {
	n := m.n
	l := m.lagrange(t)

	d := make([]float64, n)
	hd := make([]float64, n)
	u := make([]float64, n)
	hu := make([]float64, n)
	gd := make([]float64, n)

	lval := zero
	try := func() {
		if v := l.value(u, hu); math.Abs(v) > math.Abs(lval) {
			copy(d, u)
			copy(hd, hu)
			lval = v
		}
	}

	// straight line through xₒ and yₜ
	floats.SubTo(u, m.xpt.RawRowView(t), m.Xopt())
	if un := floats.Norm(u, 2); un > zero {
		floats.Scale(delbar/un, u)
		try()
		floats.Scale(-one, u)
		try()
	}

	// steepest ascent and descent of ℓₜ
	if gn := floats.Norm(l.g, 2); gn > zero {
		floats.ScaleTo(u, delbar/gn, l.g)
		try()
		floats.Scale(-one, u)
		try()
	}
	if lval == zero {
		floats.SubTo(d, m.xpt.RawRowView(t), m.Xopt())
		if dn := floats.Norm(d, 2); dn > zero {
			floats.Scale(delbar/dn, d)
		}
		return d
	}

	delsq := delbar * delbar
	for iter := 0; iter < n; iter++ {
		// ∇ℓₜ(xₒ + d) projected onto the orthogonal complement of d, scaled to delbar
		floats.AddTo(gd, l.g, hd)
		floats.AddScaledTo(u, gd, -floats.Dot(gd, d)/delsq, d)
		un := floats.Norm(u, 2)
		if !(un > 1.0e-10*floats.Norm(gd, 2)) {
			break
		}
		floats.Scale(delbar/un, u)
		l.Apply(u, hu)

		gdd, gdu := floats.Dot(l.g, d), floats.Dot(l.g, u)
		dhd, dhu, uhu := floats.Dot(d, hd), floats.Dot(d, hu), floats.Dot(u, hu)
		lfun := func(angle float64) float64 {
			cth, sth := math.Cos(angle), math.Sin(angle)
			return cth*gdd + sth*gdu + half*(cth*cth*dhd+two*sth*cth*dhu+sth*sth*uhu)
		}

		angle := CircleMin(func(angle float64) float64 { return -math.Abs(lfun(angle)) }, grid)
		lnew := lfun(angle)
		if !(math.Abs(lnew) > math.Abs(lval)) {
			break
		}
		cth, sth := math.Cos(angle), math.Sin(angle)
		for i := range d {
			d[i] = cth*d[i] + sth*u[i]
			hd[i] = cth*hd[i] + sth*hu[i]
		}
		grow := math.Abs(lnew) > 1.1*math.Abs(lval)
		lval = lnew
		if !grow {
			break
		}
	}
	return d
}
