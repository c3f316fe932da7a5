// Package trace holds the run model: a Task, its append-only Trace, and the
// Steps recorded per loop iteration. A Trace has exactly one writer (the
// control loop of its run); concurrent runs each own an independent Trace.
package trace

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"dataworks/internal/logging"
	"dataworks/internal/tools"
)

// Task is one user-issued goal with its run identity. Immutable once created.
type Task struct {
	ID        string    `json:"id"`
	Goal      string    `json:"goal"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTask creates a task with a fresh run identifier.
func NewTask(goal string) Task {
	return Task{
		ID:        uuid.NewString(),
		Goal:      goal,
		CreatedAt: time.Now().UTC(),
	}
}

// StepStatus classifies the outcome of one loop iteration.
type StepStatus string

const (
	StatusOK            StepStatus = "ok"
	StatusToolError     StepStatus = "tool_error"
	StatusTimeout       StepStatus = "timeout"
	StatusInvalidAction StepStatus = "invalid_action"
)

// Action is a tool invocation chosen by the decision engine.
type Action struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
}

// Step is one ordered record within a Trace. Steps are never mutated after
// being appended.
type Step struct {
	Index       int                `json:"index"`
	Reasoning   string             `json:"reasoning,omitempty"`
	Action      *Action            `json:"action,omitempty"`
	FinalAnswer string             `json:"final_answer,omitempty"`
	Observation *tools.Observation `json:"observation,omitempty"`
	Status      StepStatus         `json:"status"`
	Timestamp   time.Time          `json:"timestamp"`
}

// Trace is the append-only ordered log of one run's steps.
type Trace struct {
	mu    sync.RWMutex
	runID string
	steps []Step
}

// New creates an empty trace for the given run.
func New(runID string) *Trace {
	return &Trace{runID: runID}
}

// RunID returns the owning run's identifier.
func (t *Trace) RunID() string {
	return t.runID
}

// Append records a step, assigning the next index and a timestamp.
// It returns the recorded step.
func (t *Trace) Append(step Step) Step {
	t.mu.Lock()
	defer t.mu.Unlock()

	step.Index = len(t.steps)
	if step.Timestamp.IsZero() {
		step.Timestamp = time.Now().UTC()
	}
	t.steps = append(t.steps, step)
	logging.TraceDebug("run %s: step %d (%s)", t.runID, step.Index, step.Status)
	return step
}

// Len returns the number of recorded steps.
func (t *Trace) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.steps)
}

// Steps returns a copy of the recorded steps in order.
func (t *Trace) Steps() []Step {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Step, len(t.steps))
	copy(out, t.steps)
	return out
}

// Last returns the most recent step and true, or false on an empty trace.
func (t *Trace) Last() (Step, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.steps) == 0 {
		return Step{}, false
	}
	return t.steps[len(t.steps)-1], true
}
