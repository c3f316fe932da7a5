// Package goeval provides the sandboxed code execution tool.
//
// Snippets run in a Yaegi interpreter rather than through go build: no
// compilation step, no binary on disk, and a stdlib import whitelist that
// keeps os, os/exec, net, and syscall out of reach. The snippet must define
//
//	func Run(input string) (string, error)
//
// which receives the tool's input argument.
package goeval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"dataworks/internal/logging"
	"dataworks/internal/tools"
)

// allowedPackages is the stdlib import whitelist. Anything doing filesystem,
// process, or network work is excluded; those capabilities have their own
// audited tools.
var allowedPackages = map[string]bool{
	"bytes":           true,
	"encoding/base64": true,
	"encoding/csv":    true,
	"encoding/json":   true,
	"errors":          true,
	"fmt":             true,
	"math":            true,
	"path":            true,
	"path/filepath":   true,
	"regexp":          true,
	"sort":            true,
	"strconv":         true,
	"strings":         true,
	"time":            true,
	"unicode":         true,
}

// RunGoTool returns a tool that evaluates a Go snippet.
func RunGoTool() *tools.Tool {
	return &tools.Tool{
		Name: "run_go",
		Description: "Evaluate a Go snippet in a sandboxed interpreter. " +
			"The snippet must define `func Run(input string) (string, error)`; " +
			"only pure-computation stdlib imports are allowed",
		SideEffect: tools.SideEffectReadOnly,
		Timeout:    30 * time.Second,
		Execute:    executeRunGo,
		Schema: tools.Schema{
			Required: []string{"code"},
			Properties: map[string]tools.Property{
				"code": {
					Type:        "string",
					Description: "Go source defining func Run(input string) (string, error)",
				},
				"input": {
					Type:        "string",
					Description: "Input string passed to Run (default: empty)",
				},
			},
		},
	}
}

func executeRunGo(ctx context.Context, args map[string]any) (string, error) {
	code, _ := args["code"].(string)
	if code == "" {
		return "", fmt.Errorf("code is required")
	}
	input, _ := args["input"].(string)

	if err := validateImports(code); err != nil {
		return "", tools.NewTargetError(1, "%v", err)
	}

	logging.ToolsDebug("run_go: %d bytes of code", len(code))

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return "", fmt.Errorf("%w: cannot load stdlib symbols: %v", tools.ErrToolExecution, err)
	}

	if _, err := i.Eval(wrapCode(code)); err != nil {
		// The snippet did not compile; the agent should fix it and retry.
		return "", tools.NewTargetError(1, "code evaluation failed: %v", err)
	}

	v, err := i.Eval("main.Run")
	if err != nil {
		return "", tools.NewTargetError(1, "Run function not found: %v", err)
	}
	run, ok := v.Interface().(func(string) (string, error))
	if !ok {
		return "", tools.NewTargetError(1, "Run has incorrect signature (expected func(string) (string, error))")
	}

	// Yaegi has no preemption point, so run the snippet in a goroutine
	// and let the deadline win the select.
	resultCh := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				errCh <- fmt.Errorf("snippet panicked: %v", r)
			}
		}()
		out, runErr := run(input)
		if runErr != nil {
			errCh <- runErr
			return
		}
		resultCh <- out
	}()

	select {
	case out := <-resultCh:
		return out, nil
	case runErr := <-errCh:
		return "", tools.NewTargetError(1, "Run returned error: %v", runErr)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// validateImports checks that the code only imports whitelisted packages.
func validateImports(code string) error {
	var forbidden []string

	inBlock := false
	for _, line := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, "import ("):
			inBlock = true
			continue
		case inBlock && strings.HasPrefix(trimmed, ")"):
			inBlock = false
			continue
		}

		var pkg string
		if inBlock {
			pkg = trimmed
		} else if strings.HasPrefix(trimmed, "import ") {
			pkg = strings.TrimPrefix(trimmed, "import ")
		} else {
			continue
		}

		// Strip an alias and the quotes.
		if fields := strings.Fields(pkg); len(fields) > 1 {
			pkg = fields[len(fields)-1]
		}
		pkg = strings.Trim(pkg, `"`)
		if pkg == "" {
			continue
		}
		if !allowedPackages[pkg] {
			forbidden = append(forbidden, pkg)
		}
	}

	if len(forbidden) > 0 {
		return fmt.Errorf("forbidden imports: %v", forbidden)
	}
	return nil
}

// wrapCode wraps the snippet in a main package if needed.
func wrapCode(code string) string {
	if strings.Contains(code, "package main") {
		return code
	}
	return "package main\n\n" + code
}
