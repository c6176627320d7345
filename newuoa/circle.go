// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package newuoa

import "math"

// CircleMin approximately minimizes a 2π-periodic function f of one angle.
//
// f is sampled at θᵢ = 2πi/grid (i = 0,...,grid-1). The best sample θₖ is refined by the
// vertex of the parabola through (θₖ₋₁, θₖ, θₖ₊₁), so the result lies within half a grid
// interval of θₖ. NaN samples are never selected; when all samples are NaN the angle 0 is
// returned. A grid with less than three points falls back to ArcGrid.
func CircleMin(f func(angle float64) float64, grid int) float64 {
	if grid < 3 {
		grid = ArcGrid
	}
	unit := two * math.Pi / float64(grid)

	fval := make([]float64, grid)
	imin := -1
	for i := range fval {
		fval[i] = f(unit * float64(i))
		if math.IsNaN(fval[i]) {
			continue
		}
		if imin < 0 || fval[i] < fval[imin] {
			imin = i
		}
	}
	if imin < 0 {
		return zero
	}

	// fa, fb ≥ 0 unless a neighbour is NaN or ±Inf, in which case no refinement is made.
	fa := fval[(imin+grid-1)%grid] - fval[imin]
	fb := fval[(imin+1)%grid] - fval[imin]
	step := zero
	if finite(fa) && finite(fb) && fa+fb > zero && fa != fb {
		step = half * (fa - fb) / (fa + fb)
	}
	return unit * (float64(imin) + step)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
