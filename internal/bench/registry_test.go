// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bench

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNames(t *testing.T) {
	names := Names()
	assert.True(t, slices.IsSorted(names))
	assert.Len(t, names, len(registry))
	for _, name := range names {
		f, err := Lookup(name)
		require.NoError(t, err)
		assert.Equal(t, name, f.Name)
	}
	_, err := Lookup("himmelblau")
	assert.ErrorContains(t, err, "unknown problem")
}

func TestCheck(t *testing.T) {
	cases := []struct {
		name string
		n    int
		ok   bool
	}{
		{"rosenbrock", 2, true},
		{"rosenbrock", 5, true},
		{"rosenbrock", 1, false},
		{"beale", 2, true},
		{"beale", 3, false},
		{"helical-valley", 3, true},
		{"powell-singular", 8, true},
		{"powell-singular", 6, false},
		{"variably-dimensioned", 1, true},
		{"trigonometric", 10, true},
	}
	for _, c := range cases {
		f, err := Lookup(c.name)
		require.NoError(t, err)
		err = f.Check(c.n)
		if c.ok {
			assert.NoError(t, err, "%s n=%d", c.name, c.n)
		} else {
			assert.Error(t, err, "%s n=%d", c.name, c.n)
		}
	}
}

func TestStart(t *testing.T) {
	for _, name := range Names() {
		f, _ := Lookup(name)
		n := f.Dim
		if n == 0 {
			n = max(f.MinDim, 4)
		}
		x := f.Start(n)
		require.Len(t, x, n, name)
		assert.Greater(t, f.Eval(x), f.Optimum, name)
	}

	// Start points are fresh copies.
	f, _ := Lookup("beale")
	x := f.Start(2)
	x[0] = 7
	assert.Equal(t, []float64{1, 1}, f.Start(2))

	f, _ = Lookup("rosenbrock")
	assert.Equal(t, []float64{-1.2, 1, -1.2, 1}, f.Start(4))
	assert.Zero(t, f.Eval([]float64{1, 1, 1, 1}))
}
