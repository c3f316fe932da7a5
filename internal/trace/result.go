package trace

import "time"

// RunState is the terminal state of a run.
type RunState string

const (
	StateFinished RunState = "finished"
	StateAborted  RunState = "aborted"
)

// AbortReason tags why a run was aborted. Machine-readable; returned to the
// caller alongside the partial trace.
type AbortReason string

const (
	AbortNone                  AbortReason = ""
	AbortBudgetExhausted       AbortReason = "budget_exhausted"
	AbortDeadlineExceeded      AbortReason = "deadline_exceeded"
	AbortRepeatedInvalidAction AbortReason = "repeated_invalid_action"
	AbortRepeatedFailure       AbortReason = "repeated_failure"
	AbortCanceled              AbortReason = "canceled"
)

// RunResult is the outcome of one run: the final answer on a finished run,
// or the abort reason plus the partial trace on an aborted one.
type RunResult struct {
	Task        Task        `json:"task"`
	State       RunState    `json:"state"`
	FinalAnswer string      `json:"final_answer,omitempty"`
	AbortReason AbortReason `json:"abort_reason,omitempty"`
	Steps       []Step      `json:"steps"`
	Started     time.Time   `json:"started"`
	Finished    time.Time   `json:"finished"`
}

// Finished reports whether the run completed with a final answer.
func (r *RunResult) IsFinished() bool {
	return r.State == StateFinished
}
