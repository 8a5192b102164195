package reactor

import (
	"errors"
	"fmt"
)

// ErrRegistryClosed is a sentinel for a closed registry. It is an
// operational addition, not one of the four error kinds the core
// specification names. No operation in this package returns it: System
// has no shutdown operation, and registry operations never fail this way.
var ErrRegistryClosed = errors.New("reactor: registry is closed")

// NameInUseError is returned by [Frame.OpenConnector] when the requested
// channel name is already bound to a Connector within the Frame.
type NameInUseError struct {
	Frame string
	Name  string
}

func (e *NameInUseError) Error() string {
	return fmt.Sprintf("reactor: channel name %q already in use on frame %q", e.Name, e.Frame)
}

// NestedExecutionError is raised when [Frame.ExecuteBatch] is called from
// a goroutine that is already executing a reactor's code - directly or
// transitively. This is a programmer error: the scheduler must never
// invoke ExecuteBatch for a Frame from inside any Frame's batch.
type NestedExecutionError struct {
	Frame string
}

func (e *NestedExecutionError) Error() string {
	return fmt.Sprintf("reactor: nested ExecuteBatch on frame %q", e.Frame)
}

// FrameTerminatedError is returned when an operation is attempted against
// a Frame whose lifecycle has already reached Terminated.
type FrameTerminatedError struct {
	Frame string
}

func (e *FrameTerminatedError) Error() string {
	return fmt.Sprintf("reactor: frame %q has terminated", e.Frame)
}

// ReactorDiedError wraps a throwable (panic value or error) that escaped a
// reactor's batch execution. It drives forced termination of the owning
// Frame and is re-raised to the Scheduler after the release path runs.
type ReactorDiedError struct {
	Frame string
	Cause any
}

func (e *ReactorDiedError) Error() string {
	return fmt.Sprintf("reactor: frame %q died: %v", e.Frame, e.Cause)
}

// Unwrap enables errors.Is/errors.As to see through to the underlying
// cause, when the cause is itself an error (e.g. a recovered panic that
// carried an error value).
func (e *ReactorDiedError) Unwrap() error {
	if err, ok := e.Cause.(error); ok {
		return err
	}
	return nil
}

// ConfigError reports a [Config] field that fails validation.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("reactor: invalid config field %s: %s", e.Field, e.Message)
}
