// Package tools defines the tool descriptor model and the registry the
// control loop dispatches through.
//
// Each capability class (shell, fileio, web, goeval, sqlquery) lives in its
// own subpackage and registers the tools it provides. The registry is
// populated once at startup and never mutated afterwards, so it is shared
// across concurrent runs without synchronization on the hot path.
package tools

import (
	"context"
	"time"
)

// SideEffect classifies whether a tool mutates external state.
type SideEffect string

const (
	// SideEffectReadOnly marks tools that only observe.
	SideEffectReadOnly SideEffect = "read-only"

	// SideEffectMutating marks tools that change files or external systems.
	SideEffectMutating SideEffect = "mutating"
)

// Property describes a single parameter for the tool's JSON schema.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Default     any    `json:"default,omitempty"`
	Enum        []any  `json:"enum,omitempty"`
}

// Schema defines the expected arguments of a tool.
type Schema struct {
	// Required lists parameters that must be provided.
	Required []string `json:"required"`

	// Properties describes each parameter.
	Properties map[string]Property `json:"properties"`
}

// ExecuteFunc is the signature for tool execution. The returned string is
// the raw output; a target-level failure (nonzero exit, HTTP error status)
// must be reported through TargetError, not a plain error.
type ExecuteFunc func(ctx context.Context, args map[string]any) (string, error)

// Tool describes one registered capability.
type Tool struct {
	// Name is the unique identifier presented to the decision engine.
	Name string

	// Description explains what the tool does.
	Description string

	// SideEffect classifies the tool for presentation and auditing.
	SideEffect SideEffect

	// Timeout bounds a single execution. Zero means DefaultTimeout.
	Timeout time.Duration

	// OutputLimit bounds the observation size in bytes. Zero means
	// DefaultOutputLimit.
	OutputLimit int

	// Schema defines the expected arguments.
	Schema Schema

	// Execute runs the tool.
	Execute ExecuteFunc
}

// Default execution policy applied when a descriptor leaves fields zero.
const (
	DefaultTimeout     = 60 * time.Second
	DefaultOutputLimit = 50000
)

// TruncationMarker is appended when output exceeds the tool's limit.
const TruncationMarker = "\n...[truncated]"

// Validate checks that the tool definition is usable.
func (t *Tool) Validate() error {
	if t.Name == "" {
		return ErrToolNameEmpty
	}
	if t.Execute == nil {
		return ErrToolExecuteNil
	}
	return nil
}

// timeout returns the effective timeout.
func (t *Tool) timeout() time.Duration {
	if t.Timeout > 0 {
		return t.Timeout
	}
	return DefaultTimeout
}

// outputLimit returns the effective output limit.
func (t *Tool) outputLimit() int {
	if t.OutputLimit > 0 {
		return t.OutputLimit
	}
	return DefaultOutputLimit
}

// Observation is the recorded result of one tool execution.
type Observation struct {
	// Output is the tool's text output, truncated to the tool's limit.
	Output string `json:"output"`

	// ExitStatus is 0 on success and nonzero when the target failed
	// (shell exit code, HTTP status class, SQL error).
	ExitStatus int `json:"exit_status"`

	// Duration is how long execution took.
	Duration time.Duration `json:"duration"`

	// Truncated is set when Output was cut at the limit.
	Truncated bool `json:"truncated,omitempty"`
}

// Descriptor is the catalogue entry presented to the decision engine.
type Descriptor struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	SideEffect  SideEffect    `json:"side_effect"`
	Timeout     time.Duration `json:"timeout"`
	Schema      Schema        `json:"input_schema"`
}

// Descriptor returns the presentation view of the tool.
func (t *Tool) Descriptor() Descriptor {
	return Descriptor{
		Name:        t.Name,
		Description: t.Description,
		SideEffect:  t.SideEffect,
		Timeout:     t.timeout(),
		Schema:      t.Schema,
	}
}
