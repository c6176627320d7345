// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bench

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"

	"github.com/curioloop/dfo/newuoa"
)

var cubeEps = math.Pow(math.Nextafter(1, 2)-1, 1.0/3)

// Gradient estimates the gradient of f at x by central differences.
// The step of coordinate i is cbrt(eps)*max(1, |x_i|) with the sign of x_i.
// It costs 2n evaluations beyond the optimizer budget.
func Gradient(f newuoa.Evaluation, x, grad []float64) {
	if len(x) != len(grad) {
		panic("bound check error")
	}
	x = slices.Clone(x)
	for i, v := range x {
		h := math.Copysign(cubeEps, v) * math.Max(1, math.Abs(v))
		x[i] = v - h
		f1 := f(x)
		x[i] = v + h
		f2 := f(x)
		x[i] = v
		grad[i] = (f2 - f1) / (2 * h)
	}
}

// GradNorm is the Euclidean norm of the estimated gradient, NaN when x is unusable.
func GradNorm(f newuoa.Evaluation, x []float64) float64 {
	bad := func(v float64) bool { return math.IsNaN(v) || math.IsInf(v, 0) }
	if len(x) == 0 || slices.ContainsFunc(x, bad) {
		return math.NaN()
	}
	g := make([]float64, len(x))
	Gradient(f, x, g)
	return floats.Norm(g, 2)
}
