package trace

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewTaskAssignsID(t *testing.T) {
	a := NewTask("count wednesdays")
	b := NewTask("count wednesdays")
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("expected unique non-empty run IDs, got %q and %q", a.ID, b.ID)
	}
	if a.Goal != "count wednesdays" {
		t.Errorf("goal = %q", a.Goal)
	}
}

func TestAppendAssignsMonotonicIndexes(t *testing.T) {
	tr := New("run-1")
	for i := 0; i < 5; i++ {
		step := tr.Append(Step{Status: StatusOK})
		if step.Index != i {
			t.Errorf("step index = %d, want %d", step.Index, i)
		}
		if step.Timestamp.IsZero() {
			t.Error("expected timestamp to be stamped")
		}
	}
	if tr.Len() != 5 {
		t.Errorf("len = %d, want 5", tr.Len())
	}
}

func TestTraceIsAppendOnly(t *testing.T) {
	tr := New("run-2")
	tr.Append(Step{Reasoning: "first", Status: StatusOK})
	tr.Append(Step{Reasoning: "second", Status: StatusToolError})

	before := tr.Steps()
	tr.Append(Step{Reasoning: "third", Status: StatusOK})
	after := tr.Steps()

	// The earlier snapshot must be a prefix of the later one.
	if diff := cmp.Diff(before, after[:len(before)]); diff != "" {
		t.Errorf("prefix changed after later appends (-want +got):\n%s", diff)
	}

	// Mutating a returned copy must not affect the trace.
	after[0].Reasoning = "tampered"
	if got := tr.Steps()[0].Reasoning; got != "first" {
		t.Errorf("recorded step was mutated: %q", got)
	}
}

func TestLast(t *testing.T) {
	tr := New("run-3")
	if _, ok := tr.Last(); ok {
		t.Error("Last on empty trace should report false")
	}
	tr.Append(Step{Status: StatusOK})
	tr.Append(Step{Status: StatusTimeout})
	last, ok := tr.Last()
	if !ok || last.Status != StatusTimeout || last.Index != 1 {
		t.Errorf("unexpected last step: %+v ok=%v", last, ok)
	}
}
