package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"dataworks/internal/logging"
)

// Registry holds all available tools and provides lookup and dispatch.
// It is populated once at startup; lookups after that are read-only and
// safe across concurrent runs.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
}

// NewRegistry creates a new empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// Register adds a tool to the registry.
// Returns ErrDuplicateTool if the name already exists.
func (r *Registry) Register(tool *Tool) error {
	if err := tool.Validate(); err != nil {
		return fmt.Errorf("invalid tool: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, tool.Name)
	}
	if tool.SideEffect == "" {
		tool.SideEffect = SideEffectMutating
	}

	r.tools[tool.Name] = tool
	logging.ToolsDebug("registered tool %s (side_effect=%s, timeout=%s)", tool.Name, tool.SideEffect, tool.timeout())
	return nil
}

// MustRegister registers a tool and panics on error.
// Use this for static tool registration at startup.
func (r *Registry) MustRegister(tool *Tool) {
	if err := r.Register(tool); err != nil {
		panic(fmt.Sprintf("failed to register tool %s: %v", tool.Name, err))
	}
}

// Resolve returns a tool by name, or ErrUnknownTool.
func (r *Registry) Resolve(name string) (*Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return tool, nil
}

// Has returns true if a tool with the given name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Catalogue returns descriptors for all registered tools, sorted by name.
// The ordering is stable so the decision engine sees a deterministic view.
func (r *Registry) Catalogue() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t.Descriptor())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Dispatch resolves and executes a tool under its declared timeout.
//
// The returned Observation is always non-nil when the tool was found. The
// error classifies the outcome:
//   - nil: success, ExitStatus 0
//   - wraps ErrToolTimeout: the declared timeout expired
//   - *TargetError: the target failed; the observation carries its output
//   - wraps ErrToolExecution: environment fault, tool could not run
//   - wraps ErrUnknownTool / ErrMissingRequiredArg: dispatch never started
func (r *Registry) Dispatch(ctx context.Context, name string, args map[string]any) (*Observation, error) {
	tool, err := r.Resolve(name)
	if err != nil {
		return nil, err
	}
	if err := r.validateArgs(tool, args); err != nil {
		return nil, err
	}

	start := time.Now()
	execCtx, cancel := context.WithTimeout(ctx, tool.timeout())
	defer cancel()

	logging.ToolsDebug("dispatching %s", tool.Name)
	output, execErr := tool.Execute(execCtx, args)
	duration := time.Since(start)

	obs := &Observation{Output: output, Duration: duration}
	if limit := tool.outputLimit(); len(obs.Output) > limit {
		obs.Output = obs.Output[:limit] + TruncationMarker
		obs.Truncated = true
	}

	switch {
	case execErr == nil:
		logging.ToolsDebug("%s completed in %s (%d bytes)", tool.Name, duration, len(output))
		return obs, nil

	case execCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil:
		obs.ExitStatus = -1
		obs.Output = appendLine(obs.Output, fmt.Sprintf("tool timed out after %s", tool.timeout()))
		logging.Tools("%s timed out after %s", tool.Name, tool.timeout())
		return obs, fmt.Errorf("%w: %s after %s", ErrToolTimeout, tool.Name, tool.timeout())

	case isTargetError(execErr):
		var te *TargetError
		errors.As(execErr, &te)
		obs.ExitStatus = te.Status
		obs.Output = appendLine(obs.Output, te.Reason)
		logging.ToolsDebug("%s target failed: %s", tool.Name, te.Reason)
		return obs, execErr

	default:
		obs.ExitStatus = -1
		obs.Output = appendLine(obs.Output, execErr.Error())
		logging.Tools("%s failed: %v", tool.Name, execErr)
		if errors.Is(execErr, ErrPathEscape) || errors.Is(execErr, ErrToolExecution) {
			return obs, execErr
		}
		return obs, fmt.Errorf("%w: %v", ErrToolExecution, execErr)
	}
}

// validateArgs checks that all required arguments are present.
func (r *Registry) validateArgs(tool *Tool, args map[string]any) error {
	for _, required := range tool.Schema.Required {
		if _, ok := args[required]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingRequiredArg, required)
		}
	}
	return nil
}

func isTargetError(err error) bool {
	var te *TargetError
	return errors.As(err, &te)
}

func appendLine(s, line string) string {
	if s == "" {
		return line
	}
	return s + "\n" + line
}
