// Package engine turns the opaque completion service into one Decision per
// loop iteration: invoke a named tool, or finish with an answer. The control
// loop only depends on the Decider interface, so a deterministic stub can
// replace the LLM in tests without touching the loop.
package engine

import (
	"context"
	"errors"

	"dataworks/internal/tools"
	"dataworks/internal/trace"
)

// ErrMalformedDecision is returned when the completion service's response
// cannot be parsed into a valid decision. The control loop treats this as a
// recoverable invalid_action step, not a fatal error.
var ErrMalformedDecision = errors.New("malformed decision")

// Decision is the engine's single output per cycle: exactly one of Action
// or FinalAnswer is set.
type Decision struct {
	Reasoning   string
	Action      *trace.Action
	FinalAnswer string
}

// IsFinish reports whether the decision ends the run.
func (d *Decision) IsFinish() bool {
	return d.Action == nil
}

// Request carries everything a decider may consider for the next step.
type Request struct {
	Goal      string
	Steps     []trace.Step
	Catalogue []tools.Descriptor

	// Notes are corrective remarks from the control loop, appended after a
	// malformed decision or an unknown-tool action so the next attempt can
	// self-correct.
	Notes []string
}

// Decider produces the next decision for a run. Implementations must be
// safe for use by concurrent runs.
type Decider interface {
	Decide(ctx context.Context, req Request) (*Decision, error)
}
