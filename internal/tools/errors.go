package tools

import (
	"errors"
	"fmt"
)

// Registry and execution errors.
var (
	// ErrUnknownTool is returned when resolving a name that is not registered.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrDuplicateTool is returned when registering a name twice.
	ErrDuplicateTool = errors.New("tool already registered")

	// ErrToolNameEmpty is returned when a tool has no name.
	ErrToolNameEmpty = errors.New("tool name cannot be empty")

	// ErrToolExecuteNil is returned when a tool has no execute function.
	ErrToolExecuteNil = errors.New("tool execute function cannot be nil")

	// ErrMissingRequiredArg is returned when a required argument is absent.
	ErrMissingRequiredArg = errors.New("missing required argument")

	// ErrToolTimeout is returned when execution exceeds the declared timeout.
	ErrToolTimeout = errors.New("tool execution timed out")

	// ErrToolExecution marks environment-level faults: the tool could not
	// run at all (cannot spawn, cannot open, network unreachable). Target
	// failures use TargetError instead.
	ErrToolExecution = errors.New("tool execution failed")

	// ErrPathEscape is returned when a resolved path leaves the sandbox root.
	ErrPathEscape = errors.New("path escapes sandbox root")
)

// TargetError reports that the tool ran but its target failed: a shell
// command exited nonzero, an HTTP fetch got an error status, a user query
// was rejected. It carries the exit status recorded on the observation.
type TargetError struct {
	Status int
	Reason string
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("target failed (status %d): %s", e.Status, e.Reason)
}

// NewTargetError builds a TargetError with a formatted reason.
func NewTargetError(status int, format string, args ...any) *TargetError {
	return &TargetError{Status: status, Reason: fmt.Sprintf(format, args...)}
}
