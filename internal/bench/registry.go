// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bench runs the optimizer on standard unconstrained test problems.
package bench

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/optimize/functions"

	"github.com/curioloop/dfo/newuoa"
)

// Function is a test problem with its standard starting point.
type Function struct {
	Name    string
	Dim     int // fixed dimension, 0 when any dimension ≥ MinDim is allowed
	MinDim  int
	Step    int // the dimension must be a multiple of Step
	Eval    newuoa.Evaluation
	Start   func(n int) []float64
	Optimum float64 // least value of the objective
}

// Check reports whether the function is defined in dimension n.
func (f Function) Check(n int) error {
	switch {
	case f.Dim > 0 && n != f.Dim:
		return fmt.Errorf("%s is defined for dimension %d only", f.Name, f.Dim)
	case n < f.MinDim:
		return fmt.Errorf("%s needs dimension at least %d", f.Name, f.MinDim)
	case f.Step > 1 && n%f.Step != 0:
		return fmt.Errorf("%s needs a dimension multiple of %d", f.Name, f.Step)
	}
	return nil
}

func fixed(x ...float64) func(int) []float64 {
	return func(int) []float64 { return slices.Clone(x) }
}

func repeat(pattern ...float64) func(int) []float64 {
	return func(n int) []float64 {
		x := make([]float64, n)
		for i := range x {
			x[i] = pattern[i%len(pattern)]
		}
		return x
	}
}

var registry = map[string]Function{
	"rosenbrock": {
		Eval: functions.ExtendedRosenbrock{}.Func, MinDim: 2,
		Start: repeat(-1.2, 1),
	},
	"beale": {
		Eval: functions.Beale{}.Func, Dim: 2,
		Start: fixed(1, 1),
	},
	"helical-valley": {
		Eval: functions.HelicalValley{}.Func, Dim: 3,
		Start: fixed(-1, 0, 0),
	},
	"wood": {
		Eval: functions.Wood{}.Func, Dim: 4,
		Start: fixed(-3, -1, -3, -1),
	},
	"powell-singular": {
		Eval: functions.ExtendedPowellSingular{}.Func, MinDim: 4, Step: 4,
		Start: repeat(3, -1, 0, 1),
	},
	"powell-badly-scaled": {
		Eval: functions.PowellBadlyScaled{}.Func, Dim: 2,
		Start: fixed(0, 1),
	},
	"brown-badly-scaled": {
		Eval: functions.BrownBadlyScaled{}.Func, Dim: 2,
		Start: fixed(1, 1),
	},
	"variably-dimensioned": {
		Eval: functions.VariablyDimensioned{}.Func, MinDim: 1,
		Start: func(n int) []float64 {
			x := make([]float64, n)
			for i := range x {
				x[i] = 1 - float64(i+1)/float64(n)
			}
			return x
		},
	},
	"trigonometric": {
		Eval: functions.Trigonometric{}.Func, MinDim: 1,
		Start: func(n int) []float64 {
			x := make([]float64, n)
			for i := range x {
				x[i] = 1 / float64(n)
			}
			return x
		},
	},
}

func init() {
	for name, f := range registry {
		f.Name = name
		registry[name] = f
	}
}

// Lookup returns the registered function with the given name.
func Lookup(name string) (Function, error) {
	f, ok := registry[name]
	if !ok {
		return Function{}, fmt.Errorf("unknown problem %q", name)
	}
	return f, nil
}

// Names returns the registered function names in order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
