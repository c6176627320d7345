// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package newuoa

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

// fakeSurrogate is a fixed quadratic gᵀd + ½dᵀHd around xbase + xopt.
type fakeSurrogate struct {
	denseCurvature
	g, base, xopt []float64
	fopt          float64

	knew     int
	vquad    float64 // overrides Quadinc when non-zero
	shiftErr error

	shifts, factorUpdates, modelUpdates, alternatives int
}

func newFake(g, base, xopt []float64, h denseCurvature) *fakeSurrogate {
	return &fakeSurrogate{denseCurvature: h, g: g, base: base, xopt: xopt}
}

func (f *fakeSurrogate) Gradient() []float64 { return f.g }
func (f *fakeSurrogate) Base() []float64     { return f.base }
func (f *fakeSurrogate) Xopt() []float64     { return f.xopt }
func (f *fakeSurrogate) Fopt() float64       { return f.fopt }

func (f *fakeSurrogate) Quadinc(d []float64) float64 {
	if f.vquad != 0 {
		return f.vquad
	}
	return quadValue(f.g, f, d)
}

func (f *fakeSurrogate) ShiftBase() error {
	f.shifts++
	if f.shiftErr != nil {
		return f.shiftErr
	}
	floats.Add(f.base, f.xopt)
	for i := range f.xopt {
		f.xopt[i] = 0
	}
	return nil
}

func (f *fakeSurrogate) VlagBeta(d []float64) ([]float64, float64) {
	return make([]float64, len(d)+3), 1
}

func (f *fakeSurrogate) ChooseReplacement([]float64, float64, []float64, float64, float64, float64) int {
	return f.knew
}

func (f *fakeSurrogate) UpdateFactorization(int, float64, []float64)  { f.factorUpdates++ }
func (f *fakeSurrogate) UpdateModel(int, float64, []float64, float64) { f.modelUpdates++ }
func (f *fakeSurrogate) TryAlternative(float64) bool                  { f.alternatives++; return false }

func newState(delta, rho float64) *TrustRegionState {
	st := &TrustRegionState{Delta: delta, Rho: rho, MaxEval: 100, FTarget: math.Inf(-1)}
	st.resetRec()
	return st
}

func defaultStep() *stepParams {
	return &stepParams{radius: DefaultRadius(), trTol: 1e-2, grid: ArcGrid}
}

func mustNotEval(t *testing.T) Evaluation {
	return func([]float64) float64 {
		t.Fatal("objective must not be evaluated")
		return 0
	}
}

func TestStepNaNPoint(t *testing.T) {
	m := newFake([]float64{1, 1}, []float64{math.NaN(), 0}, []float64{0, 0}, diagCurvature(1, 1))
	st := newState(1, 0.1)

	out := trustRegionStep(st, m, mustNotEval(t), defaultStep())
	assert.Equal(t, NaNX, out.Status)
	assert.Equal(t, 0, st.NumEval)
	assert.True(t, math.IsNaN(out.F))
}

func TestStepShort(t *testing.T) {
	m := newFake([]float64{1e-9, 0}, []float64{0, 0}, []float64{0, 0}, diagCurvature(1, 1))
	st := newState(1, 0.1)

	out := trustRegionStep(st, m, mustNotEval(t), defaultStep())
	assert.True(t, out.Short)
	assert.Equal(t, Continue, out.Status)
	assert.Equal(t, 0.1, st.Delta)
	assert.Equal(t, NoReplace, out.Knew)
	assert.Equal(t, 0, st.NumEval)
}

func TestStepSuccess(t *testing.T) {
	m := newFake([]float64{1, 0}, []float64{0, 0}, []float64{0, 0}, diagCurvature(1, 1))
	m.fopt, m.knew = 3, 2
	st := newState(0.5, 0.1)

	eval := func(x []float64) float64 {
		return 3 + x[0] + half*floats.Dot(x, x)
	}
	out := trustRegionStep(st, m, eval, defaultStep())

	require.Equal(t, Continue, out.Status)
	assert.InDeltaSlice(t, []float64{-0.5, 0}, out.X, 1e-12)
	assert.InDelta(t, -0.375, out.Vquad, 1e-12)
	assert.InDelta(t, 2.625, out.F, 1e-12)
	assert.InDelta(t, 1.0, out.Ratio, 1e-12)
	assert.InDelta(t, 0.0, out.Moderr, 1e-12)
	assert.InDelta(t, 1.0, st.Delta, 1e-12)
	assert.Equal(t, 2, out.Knew)
	assert.Equal(t, 1, st.NumEval)
	assert.Equal(t, 1, m.factorUpdates)
	assert.Equal(t, 1, m.modelUpdates)
	assert.Equal(t, 0, m.alternatives)
	assert.Equal(t, 0, m.shifts)
}

func TestStepPoorRatio(t *testing.T) {
	m := newFake([]float64{1, 0}, []float64{0, 0}, []float64{0, 0}, diagCurvature(1, 1))
	st := newState(0.3, 0.25)

	// the objective increases, so the radius collapses onto rho
	out := trustRegionStep(st, m, func(x []float64) float64 { return 1 }, defaultStep())
	require.Equal(t, Continue, out.Status)
	assert.Less(t, out.Ratio, 0.0)
	assert.Equal(t, 0.25, st.Delta)
	assert.Equal(t, 1, m.alternatives)

	m.knew = NoReplace
	out = trustRegionStep(st, m, func(x []float64) float64 { return 1 }, defaultStep())
	assert.Equal(t, NoReplace, out.Knew)
	assert.Equal(t, 1, m.modelUpdates)
	assert.Equal(t, 1, m.alternatives)
}

func TestStepStatus(t *testing.T) {
	fresh := func() *fakeSurrogate {
		return newFake([]float64{1, 0}, []float64{0, 0}, []float64{0, 0}, diagCurvature(1, 1))
	}

	tests := []struct {
		name   string
		eval   Evaluation
		setup  func(st *TrustRegionState, m *fakeSurrogate)
		status Status
	}{
		{"nan", func([]float64) float64 { return math.NaN() }, nil, NaNInfF},
		{"huge", func([]float64) float64 { return 2 * FuncMax }, nil, NaNInfF},
		{"panic", func([]float64) float64 { panic("boom") }, nil, NaNInfF},
		{"target", func([]float64) float64 { return -1 },
			func(st *TrustRegionState, _ *fakeSurrogate) { st.FTarget = 0 }, TargetAchieved},
		{"budget", func([]float64) float64 { return -1 },
			func(st *TrustRegionState, _ *fakeSurrogate) { st.MaxEval = 1 }, BudgetExhausted},
		{"model", func([]float64) float64 { return -1 },
			func(_ *TrustRegionState, m *fakeSurrogate) { m.vquad = 0.5 }, ModelFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, st := fresh(), newState(0.5, 0.1)
			if tt.setup != nil {
				tt.setup(st, m)
			}
			out := trustRegionStep(st, m, tt.eval, defaultStep())
			assert.Equal(t, tt.status, out.Status)
			assert.Equal(t, 1, st.NumEval)
			assert.Equal(t, 0, m.modelUpdates)
		})
	}
}

func TestStepShiftBase(t *testing.T) {
	m := newFake([]float64{1, 0}, []float64{0, 0}, []float64{100, 0}, diagCurvature(1, 1))
	st := newState(0.5, 0.1)

	out := trustRegionStep(st, m, func(x []float64) float64 { return x[0] }, defaultStep())
	require.Equal(t, Continue, out.Status)
	assert.Equal(t, 1, m.shifts)
	assert.Equal(t, []float64{100, 0}, m.base)
	assert.InDeltaSlice(t, []float64{99.5, 0}, out.X, 1e-12)

	m = newFake([]float64{1, 0}, []float64{0, 0}, []float64{100, 0}, diagCurvature(1, 1))
	m.shiftErr = errors.New("singular")
	out = trustRegionStep(st, m, mustNotEval(t), defaultStep())
	assert.Equal(t, NaNModel, out.Status)
}

func TestStateAccurate(t *testing.T) {
	st := newState(0.1, 0.1)
	st.Crvmin = 1
	assert.False(t, st.accurate())

	for i := 0; i < recLen; i++ {
		st.record(0.05, 1e-4)
	}
	assert.True(t, st.accurate())

	st.record(0.2, 1e-4)
	assert.False(t, st.accurate())

	st.resetRec()
	assert.False(t, st.accurate())
}
