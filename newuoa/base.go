// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package newuoa

import (
	"errors"
	"fmt"
)

const (
	zero  = 0.0
	tenth = 0.1
	half  = 0.5
	one   = 1.0
	two   = 2.0
	ten   = 10.0
)

// FuncMax is the magnitude above which an objective value is treated as infinite.
const FuncMax = 1.0e30

// ArcGrid is the default number of equally spaced angles sampled by CircleMin.
// It was tuned empirically and is overridable per call.
const ArcGrid = 50

// NoReplace is the replacement index meaning no interpolation point is dropped.
const NoReplace = -1

// Status reports why an iteration (or the whole optimization) stopped.
type Status int

const (
	// Continue the iteration should go on.
	Continue Status = iota
	// SmallTrRadius the trust-region radius reached its lower bound rhoend.
	SmallTrRadius
	// TargetAchieved the objective value reached the target ftarget.
	TargetAchieved
	// ModelFailed a trust-region step failed to reduce the quadratic model.
	ModelFailed
	// BudgetExhausted the number of function evaluations reached its limit.
	BudgetExhausted
	// NaNX a trial point contains NaN or Inf.
	NaNX
	// NaNInfF the objective returned NaN or an (effectively) infinite value.
	NaNInfF
	// NaNModel the quadratic model has non-finite coefficients.
	NaNModel
	// InvalidInput the problem or the initial point is unacceptable.
	InvalidInput
)

// ErrNotConverged is wrapped by Status.Err for every abnormal termination.
var ErrNotConverged = errors.New("newuoa: not converged")

func (s Status) String() string {
	switch s {
	case Continue:
		return "iteration in progress"
	case SmallTrRadius:
		return "the lower bound for the trust region radius is reached"
	case TargetAchieved:
		return "the target function value is achieved"
	case ModelFailed:
		return "a trust region step has failed to reduce the quadratic model"
	case BudgetExhausted:
		return "the objective function has been evaluated MAXFUN times"
	case NaNX:
		return "NaN or Inf occurs in x"
	case NaNInfF:
		return "the objective function returns NaN or nearly infinite values"
	case NaNModel:
		return "NaN occurs in the models"
	case InvalidInput:
		return "invalid input"
	default:
		return fmt.Sprintf("unknown status %d", int(s))
	}
}

// Err returns nil for the two successful exits and an error wrapping ErrNotConverged otherwise.
func (s Status) Err() error {
	switch s {
	case SmallTrRadius, TargetAchieved:
		return nil
	}
	return fmt.Errorf("%w: %s", ErrNotConverged, s)
}

// TrsStatus tells how the trust-region subproblem solver terminated.
type TrsStatus int

const (
	// TrsConverged the residual gradient became small enough.
	TrsConverged TrsStatus = iota
	// TrsSlowProgress the latest iteration added too little to the reduction.
	TrsSlowProgress
	// TrsBudgetExhausted the iteration limit was reached.
	TrsBudgetExhausted
	// TrsBreakdown rounding errors produced a quantity with an impossible sign.
	TrsBreakdown
)

func (s TrsStatus) String() string {
	switch s {
	case TrsConverged:
		return "converged"
	case TrsSlowProgress:
		return "slow progress"
	case TrsBudgetExhausted:
		return "budget exhausted"
	case TrsBreakdown:
		return "numerical breakdown"
	default:
		return fmt.Sprintf("unknown trs status %d", int(s))
	}
}
