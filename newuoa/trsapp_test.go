// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package newuoa

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

type denseCurvature struct{ h *mat.SymDense }

func (c denseCurvature) Apply(v, hv []float64) {
	n := len(v)
	mat.NewVecDense(n, hv).MulVec(c.h, mat.NewVecDense(n, v))
}

func diagCurvature(d ...float64) denseCurvature {
	h := mat.NewSymDense(len(d), nil)
	for i, v := range d {
		h.SetSym(i, i, v)
	}
	return denseCurvature{h}
}

func quadValue(g []float64, h Curvature, s []float64) float64 {
	hs := make([]float64, len(s))
	h.Apply(s, hs)
	return floats.Dot(g, s) + half*floats.Dot(s, hs)
}

func TestTrsappBoundary(t *testing.T) {
	g := []float64{2, 20}
	h := diagCurvature(2, 20)
	res := Trsapp(0.1, g, h, 1e-2, ArcGrid)

	require.True(t, res.Boundary)
	assert.InDelta(t, 0.1, floats.Norm(res.S, 2), 1e-12)
	assert.Equal(t, 0.0, res.Crvmin)
	assert.Equal(t, TrsConverged, res.Status)
	assert.Less(t, res.S[0], 0.0)
	assert.Less(t, res.S[1], 0.0)

	// least value of Q on the boundary by brute force
	best := math.Inf(1)
	for i := 0; i < 100000; i++ {
		a := 2 * math.Pi * float64(i) / 100000
		best = math.Min(best, quadValue(g, h, []float64{0.1 * math.Cos(a), 0.1 * math.Sin(a)}))
	}
	q := quadValue(g, h, res.S)
	assert.InDelta(t, -q, res.Qred, 1e-12)
	assert.LessOrEqual(t, q, 0.999*best)
}

func TestTrsappInterior(t *testing.T) {
	res := Trsapp(10, []float64{1, -1}, diagCurvature(4, 1), 1e-2, ArcGrid)

	assert.False(t, res.Boundary)
	assert.Equal(t, TrsConverged, res.Status)
	assert.InDeltaSlice(t, []float64{-0.25, 1}, res.S, 1e-12)
	assert.InDelta(t, 0.625, res.Qred, 1e-12)
	assert.Greater(t, res.Crvmin, 0.0)
	assert.Equal(t, 2, res.Iter)
}

func TestTrsappNegativeCurvature(t *testing.T) {
	g := []float64{0.1, 0.1}
	h := diagCurvature(-1, 2)
	res := Trsapp(0.5, g, h, 1e-2, ArcGrid)

	assert.True(t, res.Boundary)
	assert.InDelta(t, 0.5, floats.Norm(res.S, 2), 1e-12)
	assert.Equal(t, 0.0, res.Crvmin)
	assert.Greater(t, res.Qred, 0.0)
	assert.InDelta(t, -quadValue(g, h, res.S), res.Qred, 1e-12)
}

func TestTrsappDegenerate(t *testing.T) {
	h := diagCurvature(1, 1, 1)

	res := Trsapp(1, []float64{0, 0, 0}, h, 1e-2, ArcGrid)
	assert.Equal(t, TrsConverged, res.Status)
	assert.Equal(t, []float64{0, 0, 0}, res.S)
	assert.Equal(t, 0.0, res.Qred)

	res = Trsapp(1, []float64{1, math.NaN(), 0}, h, 1e-2, ArcGrid)
	assert.Equal(t, TrsBreakdown, res.Status)
	assert.Equal(t, []float64{0, 0, 0}, res.S)

	res = Trsapp(0, []float64{1, 0, 0}, h, 1e-2, ArcGrid)
	assert.Equal(t, TrsBreakdown, res.Status)

	res = Trsapp(1, []float64{1, 0, 0}, diagCurvature(math.NaN(), 1, 1), 1e-2, ArcGrid)
	assert.Equal(t, TrsBreakdown, res.Status)
	assert.False(t, res.Boundary)
}

func TestTrsappRandom(t *testing.T) {
	rnd := rand.New(rand.NewPCG(7, 11))
	for trial := 0; trial < 200; trial++ {
		n := 1 + rnd.IntN(8)
		h := mat.NewSymDense(n, nil)
		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				h.SetSym(i, j, rnd.NormFloat64())
			}
		}
		if trial%2 == 0 {
			// positive semi-definite
			var sq mat.SymDense
			sq.SymOuterK(1, h)
			h = &sq
		}
		g := make([]float64, n)
		for i := range g {
			g[i] = rnd.NormFloat64()
		}
		delta := math.Exp(2 * rnd.NormFloat64())
		grid := ArcGrid
		if trial%5 == 0 {
			grid = 8
		}

		c := denseCurvature{h}
		res := Trsapp(delta, g, c, 1e-2, grid)
		q := quadValue(g, c, res.S)

		// Cauchy point
		gg := floats.Dot(g, g)
		ghg := quadValue(make([]float64, n), c, g) * two
		step := delta / math.Sqrt(gg)
		if ghg > zero {
			step = math.Min(step, gg/ghg)
		}
		cauchy := step*gg - half*step*step*ghg

		switch {
		case floats.Norm(res.S, 2) > delta*(1+1e-12):
			t.Fatalf("TestTrsappRandom: step outside the trust region (trial %d)", trial)
		case !(res.Qred >= 0):
			t.Fatalf("TestTrsappRandom: negative reduction %v (trial %d)", res.Qred, trial)
		case math.Abs(q+res.Qred) > 1e-8*math.Max(one, res.Qred):
			t.Fatalf("TestTrsappRandom: reduction %v does not match Q(s) = %v (trial %d)", res.Qred, q, trial)
		case res.Qred < cauchy*(1-1e-10):
			t.Fatalf("TestTrsappRandom: reduction %v below Cauchy reduction %v (trial %d)", res.Qred, cauchy, trial)
		case res.Boundary && res.Crvmin != zero:
			t.Fatalf("TestTrsappRandom: boundary solution with curvature %v (trial %d)", res.Crvmin, trial)
		}
	}
}
