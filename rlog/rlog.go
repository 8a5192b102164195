// Package rlog is the reactor runtime's structured logging seam, adapted
// from the teacher's package-level Logger interface
// (joeycumines-go-utilpkg/eventloop/logging.go): a small interface the
// Frame core calls into when a connector is opened or sealed (the pool
// Scheduler also logs batch errors through it), backed
// by default by github.com/rs/zerolog rather than the teacher's
// hand-rolled DefaultLogger - the pack's own logiface-zerolog submodule
// establishes zerolog as the house choice for this concern.
package rlog

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger is the structured logging interface every Frame and System
// holds. Unlike the teacher's single package-level global, each System
// carries its own Logger (via WithLogger), so independent Systems in one
// process may log independently.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// zerologAdapter wraps a zerolog.Logger to satisfy Logger.
type zerologAdapter struct {
	z zerolog.Logger
}

// New wraps an existing zerolog.Logger.
func New(z zerolog.Logger) Logger {
	return zerologAdapter{z: z}
}

// NewConsole builds a human-readable zerolog.Logger writing to w at the
// given minimum level - suited to cmd/reactordemo's terminal output, the
// way the pack's logiface-zerolog submodule pairs zerolog with
// mattn/go-colorable/go-isatty for console rendering.
func NewConsole(w io.Writer, level zerolog.Level) Logger {
	z := zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05.000"}).
		Level(level).
		With().Timestamp().Logger()
	return New(z)
}

// NewJSON builds a zerolog.Logger emitting JSON lines to w, suited to
// production/service use where logs are shipped to an aggregator.
func NewJSON(w io.Writer, level zerolog.Level) Logger {
	z := zerolog.New(w).Level(level).With().Timestamp().Logger()
	return New(z)
}

func (a zerologAdapter) Debugf(format string, args ...any) { a.z.Debug().Msgf(format, args...) }
func (a zerologAdapter) Infof(format string, args ...any)  { a.z.Info().Msgf(format, args...) }
func (a zerologAdapter) Warnf(format string, args ...any)  { a.z.Warn().Msgf(format, args...) }
func (a zerologAdapter) Errorf(format string, args ...any) { a.z.Error().Msgf(format, args...) }

type discardLogger struct{}

func (discardLogger) Debugf(string, ...any) {}
func (discardLogger) Infof(string, ...any)  {}
func (discardLogger) Warnf(string, ...any)  {}
func (discardLogger) Errorf(string, ...any) {}

// Discard returns a Logger that drops everything - the zero-configuration
// default for a System that doesn't pass WithLogger.
func Discard() Logger { return discardLogger{} }

// Default returns a console Logger writing to os.Stderr at info level,
// convenient for cmd/reactordemo and ad-hoc debugging.
func Default() Logger { return NewConsole(os.Stderr, zerolog.InfoLevel) }
