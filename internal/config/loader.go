// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config loads solver options and benchmark problem lists from files.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/curioloop/dfo/newuoa"
)

// Radius overrides the trust-region radius update parameters.
type Radius struct {
	Eta1   float64 `json:"eta1" yaml:"eta1" toml:"eta1"`
	Eta2   float64 `json:"eta2" yaml:"eta2" toml:"eta2"`
	Gamma1 float64 `json:"gamma1" yaml:"gamma1" toml:"gamma1"`
	Gamma2 float64 `json:"gamma2" yaml:"gamma2" toml:"gamma2"`
}

// ProblemSpec names a benchmark function, its dimension and an optional starting point.
type ProblemSpec struct {
	Name string    `json:"name" yaml:"name" toml:"name"`
	Dim  int       `json:"dim" yaml:"dim" toml:"dim"`
	X0   []float64 `json:"x0" yaml:"x0" toml:"x0"`
}

// Config holds the solver options and the problems to solve.
// Zero values mean "unspecified" and are replaced by the solver defaults.
type Config struct {
	Npt     int      `json:"npt" yaml:"npt" toml:"npt"`
	RhoBeg  float64  `json:"rho_beg" yaml:"rho_beg" toml:"rho_beg"`
	RhoEnd  float64  `json:"rho_end" yaml:"rho_end" toml:"rho_end"`
	MaxEval int      `json:"max_eval" yaml:"max_eval" toml:"max_eval"`
	FTarget *float64 `json:"ftarget" yaml:"ftarget" toml:"ftarget"`
	TrTol   float64  `json:"tr_tol" yaml:"tr_tol" toml:"tr_tol"`
	ArcGrid int      `json:"arc_grid" yaml:"arc_grid" toml:"arc_grid"`
	MaxHist int      `json:"max_hist" yaml:"max_hist" toml:"max_hist"`
	Radius  *Radius  `json:"radius" yaml:"radius" toml:"radius"`

	Problems []ProblemSpec `json:"problems" yaml:"problems" toml:"problems"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// Problem builds the optimizer problem of dimension n for eval.
// The result still has to be validated by newuoa.Problem.New.
func (c Config) Problem(n int, eval newuoa.Evaluation) newuoa.Problem {
	stop := newuoa.DefaultTermination(n)
	if c.MaxEval > 0 {
		stop.MaxEvaluations = c.MaxEval
	}
	if c.FTarget != nil {
		stop.FTarget = *c.FTarget
	}
	p := newuoa.Problem{
		N:       n,
		Npt:     c.Npt,
		Eval:    eval,
		Stop:    stop,
		RhoBeg:  c.RhoBeg,
		RhoEnd:  c.RhoEnd,
		TrTol:   c.TrTol,
		ArcGrid: c.ArcGrid,
		MaxHist: c.MaxHist,
	}
	if r := c.Radius; r != nil {
		p.Radius = &newuoa.RadiusParams{Eta1: r.Eta1, Eta2: r.Eta2, Gamma1: r.Gamma1, Gamma2: r.Gamma2}
	}
	return p
}
