// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bench

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/curioloop/dfo/newuoa"
)

// Metrics collects optimizer events into a private prometheus registry.
type Metrics struct {
	reg *prometheus.Registry

	evaluations *prometheus.CounterVec
	shortSteps  *prometheus.CounterVec
	rhoSteps    *prometheus.CounterVec
	runs        *prometheus.CounterVec
	bestValue   *prometheus.GaugeVec
	runEvals    *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them.
func NewMetrics() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "newuoa",
				Name:      "evaluations_total",
				Help:      "Total number of objective evaluations",
			},
			[]string{"problem", "stage"},
		),
		shortSteps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "newuoa",
				Name:      "short_steps_total",
				Help:      "Trust-region steps too short to be evaluated",
			},
			[]string{"problem"},
		),
		rhoSteps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "newuoa",
				Name:      "rho_reductions_total",
				Help:      "Reductions of the lower bound of the trust-region radius",
			},
			[]string{"problem"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "newuoa",
				Name:      "runs_total",
				Help:      "Finished optimization runs by exit status",
			},
			[]string{"problem", "status"},
		),
		bestValue: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "newuoa",
				Name:      "best_value",
				Help:      "Least objective value of the latest run",
			},
			[]string{"problem"},
		),
		runEvals: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "newuoa",
				Name:      "run_evaluations",
				Help:      "Objective evaluations per run",
				Buckets:   prometheus.ExponentialBuckets(10, 2, 10),
			},
			[]string{"problem"},
		),
	}
	m.reg.MustRegister(m.evaluations, m.shortSteps, m.rhoSteps, m.runs, m.bestValue, m.runEvals)
	return m
}

// Registry exposes the underlying registry, e.g. for an HTTP handler.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// WriteFile writes the metrics in the text exposition format.
func (m *Metrics) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, m.reg)
}

// For returns a recorder that labels the events with the problem name.
func (m *Metrics) For(problem string) newuoa.Recorder {
	return problemRecorder{m: m, problem: problem}
}

type problemRecorder struct {
	m       *Metrics
	problem string
}

func (r problemRecorder) Record(ev newuoa.Event) {
	m := r.m
	switch ev.Op {
	case newuoa.InitEvaluation, newuoa.TrustRegionEval, newuoa.GeometryEval:
		m.evaluations.WithLabelValues(r.problem, ev.Op.String()).Inc()
	case newuoa.ShortStep:
		m.shortSteps.WithLabelValues(r.problem).Inc()
	case newuoa.RhoReduction:
		m.rhoSteps.WithLabelValues(r.problem).Inc()
	case newuoa.Finished:
		m.runs.WithLabelValues(r.problem, statusLabel(ev.Status)).Inc()
		m.bestValue.WithLabelValues(r.problem).Set(ev.F)
		m.runEvals.WithLabelValues(r.problem).Observe(float64(ev.NumEval))
	}
}

func statusLabel(s newuoa.Status) string {
	switch s {
	case newuoa.SmallTrRadius:
		return "small_tr_radius"
	case newuoa.TargetAchieved:
		return "ftarget_achieved"
	case newuoa.ModelFailed:
		return "trsubp_failed"
	case newuoa.BudgetExhausted:
		return "maxfun_reached"
	case newuoa.NaNX:
		return "nan_inf_x"
	case newuoa.NaNInfF:
		return "nan_inf_f"
	case newuoa.NaNModel:
		return "nan_inf_model"
	case newuoa.InvalidInput:
		return "invalid_input"
	}
	return "unknown"
}
