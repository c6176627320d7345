// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package newuoa

import (
	"github.com/rs/zerolog"
)

// LogLevel controls the frequency and type of logger output
type LogLevel int

const (
	// LogNoop no output is generated.
	LogNoop LogLevel = 0
	// LogExit print the exit status and the final point.
	LogExit LogLevel = 1
	// LogRho print the best point each time rho is reduced.
	LogRho LogLevel = 2
	// LogEval print every function evaluation.
	LogEval LogLevel = 3
)

// Logger handles logging output for the optimizer.
// Events are written to Sink when their level is enabled.
type Logger struct {
	Level LogLevel
	Sink  zerolog.Logger
}

// NopLogger returns a logger that discards everything.
func NopLogger() *Logger {
	return &Logger{Level: LogNoop, Sink: zerolog.Nop()}
}

func (l *Logger) enable(level LogLevel) bool {
	return l.Level >= level && level > LogNoop
}

func (l *Logger) event() *zerolog.Event {
	return l.Sink.Info()
}
