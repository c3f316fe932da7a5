// Package agent drives the Think→Act→Observe control loop for one task run.
//
// The loop owns the run's Trace exclusively: every dispatched action is
// recorded exactly once, per-step faults become trace entries rather than
// loop failures, and termination is guaranteed by the iteration budget, the
// wall-clock budget, the bounded decision-retry counter, and the anti-loop
// guard on repeated identical failures.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dataworks/internal/engine"
	"dataworks/internal/logging"
	"dataworks/internal/tools"
	"dataworks/internal/trace"
)

// loopState tracks where the state machine is within an iteration.
type loopState string

const (
	stateRunning      loopState = "running"
	stateAwaitingTool loopState = "awaiting_tool"
	stateFinished     loopState = "finished"
	stateAborted      loopState = "aborted"
)

// Config bounds a run. Zero values take the defaults.
type Config struct {
	// MaxIterations caps the number of decision cycles.
	MaxIterations int

	// RunTimeout caps the run's wall-clock time.
	RunTimeout time.Duration

	// DecisionRetries is how many corrective retries are attempted after
	// consecutive malformed or invalid decisions before aborting.
	DecisionRetries int

	// RepeatFailureLimit aborts the run after this many consecutive steps
	// where the same tool+arguments failed with the same observation.
	RepeatFailureLimit int
}

// Default budgets.
const (
	DefaultMaxIterations      = 25
	DefaultRunTimeout         = 10 * time.Minute
	DefaultDecisionRetries    = 2
	DefaultRepeatFailureLimit = 2
)

func (c Config) withDefaults() Config {
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.RunTimeout <= 0 {
		c.RunTimeout = DefaultRunTimeout
	}
	if c.DecisionRetries <= 0 {
		c.DecisionRetries = DefaultDecisionRetries
	}
	if c.RepeatFailureLimit <= 0 {
		c.RepeatFailureLimit = DefaultRepeatFailureLimit
	}
	return c
}

// Loop executes task runs. One Loop may serve concurrent runs; each run
// gets its own Trace and the registry is never mutated.
type Loop struct {
	decider  engine.Decider
	registry *tools.Registry
	cfg      Config
}

// New creates a control loop.
func New(decider engine.Decider, registry *tools.Registry, cfg Config) (*Loop, error) {
	if decider == nil {
		return nil, errors.New("decider is required")
	}
	if registry == nil {
		return nil, errors.New("tool registry is required")
	}
	return &Loop{
		decider:  decider,
		registry: registry,
		cfg:      cfg.withDefaults(),
	}, nil
}

// Run executes one task to completion or abort. The returned result is
// never nil and always carries the (possibly partial) trace; per-step
// faults never surface as errors.
func (l *Loop) Run(ctx context.Context, task trace.Task) *trace.RunResult {
	started := time.Now().UTC()
	tr := trace.New(task.ID)
	catalogue := l.registry.Catalogue()

	runCtx, cancel := context.WithTimeout(ctx, l.cfg.RunTimeout)
	defer cancel()

	state := stateRunning
	logging.Loop("run %s started: %q", task.ID, task.Goal)

	var (
		notes         []string
		invalidStreak int
		failStreak    int
		lastFailKey   string
	)

	abort := func(reason trace.AbortReason) *trace.RunResult {
		logging.LoopWarn("run %s aborted in state %s after %d steps: %s", task.ID, state, tr.Len(), reason)
		state = stateAborted
		return l.result(task, tr, trace.StateAborted, "", reason, started)
	}

	for iteration := 0; ; iteration++ {
		if iteration >= l.cfg.MaxIterations {
			return abort(trace.AbortBudgetExhausted)
		}
		if reason, done := budgetReason(ctx, runCtx); done {
			return abort(reason)
		}

		decision, err := l.decider.Decide(runCtx, engine.Request{
			Goal:      task.Goal,
			Steps:     tr.Steps(),
			Catalogue: catalogue,
			Notes:     notes,
		})
		if err != nil {
			if reason, done := budgetReason(ctx, runCtx); done {
				return abort(reason)
			}
			// Malformed decisions and transient completion faults are
			// recoverable: record, nudge, retry within the bound.
			tr.Append(trace.Step{Status: trace.StatusInvalidAction})
			invalidStreak++
			if invalidStreak > l.cfg.DecisionRetries {
				return abort(trace.AbortRepeatedInvalidAction)
			}
			notes = append(notes, correctiveNote(err))
			logging.LoopDebug("run %s: invalid decision (%d/%d): %v", task.ID, invalidStreak, l.cfg.DecisionRetries, err)
			continue
		}

		if decision.IsFinish() {
			tr.Append(trace.Step{
				Reasoning:   decision.Reasoning,
				FinalAnswer: decision.FinalAnswer,
				Status:      trace.StatusOK,
			})
			state = stateFinished
			logging.Loop("run %s finished in %d steps", task.ID, tr.Len())
			return l.result(task, tr, trace.StateFinished, decision.FinalAnswer, trace.AbortNone, started)
		}

		action := decision.Action
		if !l.registry.Has(action.Tool) {
			tr.Append(trace.Step{
				Reasoning: decision.Reasoning,
				Action:    action,
				Status:    trace.StatusInvalidAction,
			})
			invalidStreak++
			if invalidStreak > l.cfg.DecisionRetries {
				return abort(trace.AbortRepeatedInvalidAction)
			}
			notes = append(notes, fmt.Sprintf("tool %q is not in the catalogue; choose one of the listed tools", action.Tool))
			continue
		}

		// The decision was well-formed; the corrective context is spent.
		invalidStreak = 0
		notes = nil

		state = stateAwaitingTool
		obs, dispatchErr := l.registry.Dispatch(runCtx, action.Tool, action.Args)
		state = stateRunning

		if dispatchErr != nil && errors.Is(dispatchErr, tools.ErrMissingRequiredArg) {
			tr.Append(trace.Step{
				Reasoning: decision.Reasoning,
				Action:    action,
				Status:    trace.StatusInvalidAction,
			})
			invalidStreak++
			if invalidStreak > l.cfg.DecisionRetries {
				return abort(trace.AbortRepeatedInvalidAction)
			}
			notes = append(notes, fmt.Sprintf("invalid arguments for %s: %v", action.Tool, dispatchErr))
			continue
		}

		status := classifyDispatch(dispatchErr)
		step := tr.Append(trace.Step{
			Reasoning:   decision.Reasoning,
			Action:      action,
			Observation: obs,
			Status:      status,
		})

		if reason, done := budgetReason(ctx, runCtx); done {
			// The in-flight tool was already terminated through the
			// run context; record before leaving.
			return abort(reason)
		}

		if status == trace.StatusOK {
			failStreak = 0
			lastFailKey = ""
			continue
		}

		// Anti-loop guard: identical tool+args failing identically in
		// back-to-back steps is an unproductive cycle.
		key := failureKey(action, obs)
		if key == lastFailKey {
			failStreak++
		} else {
			failStreak = 1
			lastFailKey = key
		}
		logging.LoopDebug("run %s: step %d failed (%s), streak %d/%d", task.ID, step.Index, status, failStreak, l.cfg.RepeatFailureLimit)
		if failStreak >= l.cfg.RepeatFailureLimit {
			return abort(trace.AbortRepeatedFailure)
		}
	}
}

func (l *Loop) result(task trace.Task, tr *trace.Trace, state trace.RunState, answer string, reason trace.AbortReason, started time.Time) *trace.RunResult {
	return &trace.RunResult{
		Task:        task,
		State:       state,
		FinalAnswer: answer,
		AbortReason: reason,
		Steps:       tr.Steps(),
		Started:     started,
		Finished:    time.Now().UTC(),
	}
}

// budgetReason distinguishes external cancellation from the run's own
// wall-clock budget.
func budgetReason(parent, run context.Context) (trace.AbortReason, bool) {
	switch {
	case parent.Err() != nil:
		return trace.AbortCanceled, true
	case run.Err() != nil:
		return trace.AbortDeadlineExceeded, true
	default:
		return trace.AbortNone, false
	}
}

func classifyDispatch(err error) trace.StepStatus {
	switch {
	case err == nil:
		return trace.StatusOK
	case errors.Is(err, tools.ErrToolTimeout):
		return trace.StatusTimeout
	default:
		return trace.StatusToolError
	}
}

func correctiveNote(err error) string {
	if errors.Is(err, engine.ErrMalformedDecision) {
		return fmt.Sprintf("the previous response could not be parsed (%v); reply with exactly one JSON object as instructed", err)
	}
	return fmt.Sprintf("the previous decision attempt failed (%v); try again", err)
}

// failureKey identifies a failure for the anti-loop guard: the tool, its
// arguments in canonical form, and the observation it produced. Marshaling
// a map emits keys in sorted order, which gives the canonical form for free.
func failureKey(action *trace.Action, obs *tools.Observation) string {
	args, _ := json.Marshal(action.Args)

	output := ""
	if obs != nil {
		output = obs.Output
	}
	return action.Tool + "\x00" + string(args) + "\x00" + output
}
