// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package newuoa

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrrad(t *testing.T) {
	p := DefaultRadius()

	tests := []struct {
		name                string
		delta, dnorm, ratio float64
		want                float64
	}{
		{"poor", 1.0, 0.2, 0.05, 0.1},
		{"very successful", 1.0, 0.3, 0.9, 0.6},
		{"very successful short", 1.0, 0.1, 0.9, 0.5},
		{"successful", 1.0, 0.8, 0.5, 0.8},
		{"successful short", 1.0, 0.2, 0.5, 0.5},
		{"at eta1", 1.0, 0.4, 0.1, 0.2},
		{"at eta2", 1.0, 0.4, 0.7, 0.5},
		{"negative", 2.0, 1.0, -3.0, 0.5},
		{"nan", 1.0, 0.4, math.NaN(), 0.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Trrad(tt.delta, tt.dnorm, tt.ratio, p))
		})
	}
}

func TestTrradMonotone(t *testing.T) {
	p := DefaultRadius()
	const delta, dnorm = 1.0, 0.6
	prev := math.Inf(-1)
	for ratio := -1.0; ratio <= 2.0; ratio += 0.01 {
		r := Trrad(delta, dnorm, ratio, p)
		switch {
		case r < prev:
			t.Fatalf("TestTrradMonotone: radius decreased at ratio %v", ratio)
		case r > p.Gamma2*dnorm+delta:
			t.Fatalf("TestTrradMonotone: radius %v too large", r)
		}
		prev = r
	}
}

func TestRedrho(t *testing.T) {
	const rhoend = 1e-6
	assert.Equal(t, rhoend, Redrho(1.5e-5, rhoend))
	assert.Equal(t, rhoend, Redrho(rhoend, rhoend))
	assert.InDelta(t, 1e-5, Redrho(1e-4, rhoend), 1e-18)
	assert.InDelta(t, 1e-2, Redrho(1e-1, rhoend), 1e-15)

	for rho := 1.0; rho > rhoend; rho = Redrho(rho, rhoend) {
		next := Redrho(rho, rhoend)
		assert.Less(t, next, rho)
		assert.GreaterOrEqual(t, next, rhoend)
	}
}
