package shell

import (
	"context"
	"errors"
	"strings"
	"testing"

	"dataworks/internal/tools"
)

func TestRunCommandSuccess(t *testing.T) {
	tool := RunCommandTool(t.TempDir())

	out, err := tool.Execute(context.Background(), map[string]any{"command": "echo hello"})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if strings.TrimSpace(out) != "hello" {
		t.Errorf("output = %q, want hello", out)
	}
}

func TestRunCommandNonzeroExitIsTargetFailure(t *testing.T) {
	tool := RunCommandTool(t.TempDir())

	out, err := tool.Execute(context.Background(), map[string]any{"command": "echo before; exit 3"})
	var te *tools.TargetError
	if !errors.As(err, &te) {
		t.Fatalf("expected TargetError, got %v", err)
	}
	if te.Status != 3 {
		t.Errorf("exit status = %d, want 3", te.Status)
	}
	if !strings.Contains(out, "before") {
		t.Errorf("output before failure was lost: %q", out)
	}
}

func TestRunCommandWorkingDirPinned(t *testing.T) {
	dir := t.TempDir()
	tool := RunCommandTool(dir)

	out, err := tool.Execute(context.Background(), map[string]any{"command": "pwd"})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if !strings.Contains(strings.TrimSpace(out), dir) {
		t.Errorf("pwd = %q, want %q", out, dir)
	}
}

func TestRunCommandEnvPassthrough(t *testing.T) {
	tool := RunCommandTool(t.TempDir())

	out, err := tool.Execute(context.Background(), map[string]any{
		"command": "echo $DATAWORKS_TEST_VAR",
		"env":     map[string]any{"DATAWORKS_TEST_VAR": "injected"},
	})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if strings.TrimSpace(out) != "injected" {
		t.Errorf("output = %q, want injected", out)
	}
}
