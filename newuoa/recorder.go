// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package newuoa

// Operation identifies the stage of the optimization that produced an Event.
type Operation int

const (
	InitEvaluation     Operation = iota // evaluation of an initial interpolation point
	TrustRegionEval                     // evaluation of a trust-region trial point
	GeometryEval                        // evaluation of a geometry-improving point
	ShortStep                           // trust-region step too short to be evaluated
	RhoReduction                        // rho reduced to a finer resolution
	Finished                            // the optimization terminated
)

func (o Operation) String() string {
	switch o {
	case InitEvaluation:
		return "init"
	case TrustRegionEval:
		return "trust-region"
	case GeometryEval:
		return "geometry"
	case ShortStep:
		return "short-step"
	case RhoReduction:
		return "rho"
	case Finished:
		return "finished"
	}
	return "unknown"
}

// Event describes one step of the optimization.
// X is only valid during the Record call.
type Event struct {
	Op      Operation
	NumEval int
	X       []float64
	F       float64
	Fopt    float64
	Ratio   float64
	Delta   float64
	Rho     float64
	Status  Status
}

// Recorder receives the events of an optimization run.
// A recorder shared by several workspaces must be safe for concurrent use.
type Recorder interface {
	Record(ev Event)
}
