package goeval

import (
	"context"
	"errors"
	"strings"
	"testing"

	"dataworks/internal/tools"
)

func TestRunGoSimpleSnippet(t *testing.T) {
	tool := RunGoTool()

	code := `
import "strings"

func Run(input string) (string, error) {
	return strings.ToUpper(input), nil
}
`
	out, err := tool.Execute(context.Background(), map[string]any{"code": code, "input": "hello"})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if out != "HELLO" {
		t.Errorf("out = %q, want HELLO", out)
	}
}

func TestRunGoForbiddenImport(t *testing.T) {
	tool := RunGoTool()

	code := `
import "os/exec"

func Run(input string) (string, error) {
	return "", nil
}
`
	_, err := tool.Execute(context.Background(), map[string]any{"code": code})
	var te *tools.TargetError
	if !errors.As(err, &te) {
		t.Fatalf("expected TargetError, got %v", err)
	}
	if !strings.Contains(te.Reason, "forbidden imports") {
		t.Errorf("reason = %q", te.Reason)
	}
}

func TestRunGoMissingRunFunc(t *testing.T) {
	tool := RunGoTool()

	_, err := tool.Execute(context.Background(), map[string]any{"code": `func NotRun() {}`})
	var te *tools.TargetError
	if !errors.As(err, &te) {
		t.Errorf("expected TargetError for missing Run, got %v", err)
	}
}

func TestRunGoBrokenCodeIsTargetFailure(t *testing.T) {
	tool := RunGoTool()

	_, err := tool.Execute(context.Background(), map[string]any{"code": `func Run(input string) (string, error) {`})
	var te *tools.TargetError
	if !errors.As(err, &te) {
		t.Errorf("expected TargetError for broken code, got %v", err)
	}
}

func TestRunGoReturnedError(t *testing.T) {
	tool := RunGoTool()

	code := `
import "errors"

func Run(input string) (string, error) {
	return "", errors.New("boom")
}
`
	_, err := tool.Execute(context.Background(), map[string]any{"code": code})
	var te *tools.TargetError
	if !errors.As(err, &te) {
		t.Fatalf("expected TargetError, got %v", err)
	}
	if !strings.Contains(te.Reason, "boom") {
		t.Errorf("reason = %q", te.Reason)
	}
}

func TestValidateImportsAlias(t *testing.T) {
	if err := validateImports(`import s "strings"`); err != nil {
		t.Errorf("aliased allowed import rejected: %v", err)
	}
	if err := validateImports(`import x "net/http"`); err == nil {
		t.Error("aliased forbidden import accepted")
	}
}
