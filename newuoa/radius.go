// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package newuoa

import "math"

// RadiusParams controls how the trust-region radius reacts to the reduction ratio.
// It requires 0 < Eta1 ≤ Eta2 < 1, 0 < Gamma1 < 1 < Gamma2.
type RadiusParams struct {
	Eta1, Eta2     float64
	Gamma1, Gamma2 float64
}

// DefaultRadius returns the parameters used by Powell's NEWUOA.
func DefaultRadius() RadiusParams {
	return RadiusParams{Eta1: tenth, Eta2: 0.7, Gamma1: half, Gamma2: two}
}

// Trrad returns the trust-region radius for the next iteration:
//
//	ratio ≤ η₁       →  γ₁‖s‖
//	η₁ < ratio ≤ η₂  →  𝚖𝚊𝚡(δ/2, ‖s‖)
//	ratio > η₂       →  𝚖𝚊𝚡(δ/2, γ₂‖s‖)
//
// A NaN ratio counts as ratio ≤ η₁.
func Trrad(delta, dnorm, ratio float64, p RadiusParams) float64 {
	switch {
	case !(ratio > p.Eta1):
		return p.Gamma1 * dnorm
	case ratio <= p.Eta2:
		return math.Max(half*delta, dnorm)
	default:
		return math.Max(half*delta, p.Gamma2*dnorm)
	}
}

// Redrho returns the next lower bound of the trust-region radius once rho has been
// resolved. It never goes below rhoend.
func Redrho(rho, rhoend float64) float64 {
	ratio := rho / rhoend
	switch {
	case ratio <= 16:
		return rhoend
	case ratio <= 250:
		return math.Sqrt(ratio) * rhoend
	default:
		return tenth * rho
	}
}
