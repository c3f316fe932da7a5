package tools

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func stubTool(name string, fn ExecuteFunc) *Tool {
	return &Tool{
		Name:        name,
		Description: "stub",
		SideEffect:  SideEffectReadOnly,
		Execute:     fn,
	}
}

func TestRegisterAndResolve(t *testing.T) {
	reg := NewRegistry()

	tool := stubTool("echo", func(ctx context.Context, args map[string]any) (string, error) {
		return "hello", nil
	})
	if err := reg.Register(tool); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	got, err := reg.Resolve("echo")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got.Name != "echo" {
		t.Errorf("got name %q, want %q", got.Name, "echo")
	}

	if _, err := reg.Resolve("missing"); !errors.Is(err, ErrUnknownTool) {
		t.Errorf("expected ErrUnknownTool, got %v", err)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	reg := NewRegistry()
	tool := stubTool("dupe", func(ctx context.Context, args map[string]any) (string, error) {
		return "", nil
	})

	if err := reg.Register(tool); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	if err := reg.Register(tool); !errors.Is(err, ErrDuplicateTool) {
		t.Errorf("expected ErrDuplicateTool, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Register(&Tool{Name: "", Execute: func(ctx context.Context, args map[string]any) (string, error) { return "", nil }}); !errors.Is(err, ErrToolNameEmpty) {
		t.Errorf("expected ErrToolNameEmpty, got %v", err)
	}
	if err := reg.Register(&Tool{Name: "noexec"}); !errors.Is(err, ErrToolExecuteNil) {
		t.Errorf("expected ErrToolExecuteNil, got %v", err)
	}
}

func TestCatalogueSorted(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		reg.MustRegister(stubTool(name, func(ctx context.Context, args map[string]any) (string, error) {
			return "", nil
		}))
	}

	cat := reg.Catalogue()
	if len(cat) != 3 {
		t.Fatalf("got %d descriptors, want 3", len(cat))
	}
	want := []string{"alpha", "mid", "zeta"}
	for i, d := range cat {
		if d.Name != want[i] {
			t.Errorf("catalogue[%d] = %q, want %q", i, d.Name, want[i])
		}
	}
}

func TestDispatchSuccess(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(stubTool("ok", func(ctx context.Context, args map[string]any) (string, error) {
		return "done", nil
	}))

	obs, err := reg.Dispatch(context.Background(), "ok", nil)
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if obs.Output != "done" || obs.ExitStatus != 0 {
		t.Errorf("unexpected observation: %+v", obs)
	}
}

func TestDispatchUnknownTool(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Dispatch(context.Background(), "nope", nil); !errors.Is(err, ErrUnknownTool) {
		t.Errorf("expected ErrUnknownTool, got %v", err)
	}
}

func TestDispatchMissingRequiredArg(t *testing.T) {
	reg := NewRegistry()
	tool := stubTool("needs", func(ctx context.Context, args map[string]any) (string, error) {
		return "", nil
	})
	tool.Schema = Schema{Required: []string{"path"}}
	reg.MustRegister(tool)

	if _, err := reg.Dispatch(context.Background(), "needs", map[string]any{}); !errors.Is(err, ErrMissingRequiredArg) {
		t.Errorf("expected ErrMissingRequiredArg, got %v", err)
	}
}

func TestDispatchTimeout(t *testing.T) {
	reg := NewRegistry()
	tool := stubTool("slow", func(ctx context.Context, args map[string]any) (string, error) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(5 * time.Second):
			return "too late", nil
		}
	})
	tool.Timeout = 20 * time.Millisecond
	reg.MustRegister(tool)

	start := time.Now()
	obs, err := reg.Dispatch(context.Background(), "slow", nil)
	if !errors.Is(err, ErrToolTimeout) {
		t.Fatalf("expected ErrToolTimeout, got %v", err)
	}
	if obs == nil || obs.ExitStatus == 0 {
		t.Errorf("expected failing observation, got %+v", obs)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("dispatch took %s, expected the declared timeout to bound it", elapsed)
	}
}

func TestDispatchTargetError(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(stubTool("fails", func(ctx context.Context, args map[string]any) (string, error) {
		return "partial output", NewTargetError(2, "exit status 2")
	}))

	obs, err := reg.Dispatch(context.Background(), "fails", nil)
	var te *TargetError
	if !errors.As(err, &te) {
		t.Fatalf("expected TargetError, got %v", err)
	}
	if obs.ExitStatus != 2 {
		t.Errorf("exit status = %d, want 2", obs.ExitStatus)
	}
	if !strings.Contains(obs.Output, "partial output") {
		t.Errorf("observation lost target output: %q", obs.Output)
	}
}

func TestDispatchEnvironmentFault(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(stubTool("broken", func(ctx context.Context, args map[string]any) (string, error) {
		return "", errors.New("cannot spawn process")
	}))

	obs, err := reg.Dispatch(context.Background(), "broken", nil)
	if !errors.Is(err, ErrToolExecution) {
		t.Fatalf("expected ErrToolExecution, got %v", err)
	}
	if obs.ExitStatus != -1 {
		t.Errorf("exit status = %d, want -1", obs.ExitStatus)
	}
}

func TestDispatchTruncatesOutput(t *testing.T) {
	reg := NewRegistry()
	tool := stubTool("chatty", func(ctx context.Context, args map[string]any) (string, error) {
		return strings.Repeat("x", 200), nil
	})
	tool.OutputLimit = 100
	reg.MustRegister(tool)

	obs, err := reg.Dispatch(context.Background(), "chatty", nil)
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if !obs.Truncated {
		t.Error("expected truncated observation")
	}
	if !strings.HasSuffix(obs.Output, TruncationMarker) {
		t.Errorf("expected truncation marker, got %q", obs.Output[len(obs.Output)-30:])
	}
	if len(obs.Output) != 100+len(TruncationMarker) {
		t.Errorf("output length = %d", len(obs.Output))
	}
}
