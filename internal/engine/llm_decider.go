package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"dataworks/internal/llm"
	"dataworks/internal/logging"
	"dataworks/internal/tools"
	"dataworks/internal/trace"
)

// How much of each observation is replayed into the prompt. Older steps are
// clipped harder than the most recent one.
const (
	observationClip       = 2000
	recentObservationClip = 8000
)

const systemPromptHeader = `You are an autonomous task agent for the DataWorks operations team.
You accomplish the user's task by invoking tools, one per turn, observing each result.

Respond with exactly ONE JSON object and nothing else. Either invoke a tool:

{"thought": "<why this tool next>", "action": {"tool": "<name>", "args": {...}}}

or finish the task:

{"thought": "<why the task is done>", "final_answer": "<answer for the user>"}

Rules:
- Use only the tools listed below, with arguments matching their schemas.
- All file paths are relative to the data root; you cannot reach outside it.
- Never attempt to delete data, anywhere.
- If a tool fails, read the observation and adjust instead of repeating the same call.

Available tools:
`

// LLMDecider implements Decider on top of a completion client.
type LLMDecider struct {
	client llm.Client
}

// NewLLMDecider wraps a completion client.
func NewLLMDecider(client llm.Client) *LLMDecider {
	return &LLMDecider{client: client}
}

// Decide serializes the trace and catalogue, asks the completion service,
// and parses its reply into a Decision.
func (d *LLMDecider) Decide(ctx context.Context, req Request) (*Decision, error) {
	system := buildSystemPrompt(req.Catalogue)
	user := buildUserPrompt(req)

	raw, err := d.client.CompleteWithSystem(ctx, system, user)
	if err != nil {
		return nil, fmt.Errorf("completion service: %w", err)
	}

	decision, err := ParseDecision(raw)
	if err != nil {
		logging.APIDebug("unparseable decision: %.200s", raw)
		return nil, err
	}
	return decision, nil
}

func buildSystemPrompt(catalogue []tools.Descriptor) string {
	var sb strings.Builder
	sb.WriteString(systemPromptHeader)
	for _, d := range catalogue {
		schema, _ := json.Marshal(d.Schema)
		fmt.Fprintf(&sb, "\n- %s (%s): %s\n  args schema: %s\n", d.Name, d.SideEffect, d.Description, schema)
	}
	return sb.String()
}

func buildUserPrompt(req Request) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Task: %s\n", req.Goal)

	if len(req.Steps) > 0 {
		sb.WriteString("\nSteps so far:\n")
	}
	for i, step := range req.Steps {
		fmt.Fprintf(&sb, "\n[step %d]\n", step.Index)
		if step.Reasoning != "" {
			fmt.Fprintf(&sb, "thought: %s\n", step.Reasoning)
		}
		if step.Action != nil {
			args, _ := json.Marshal(step.Action.Args)
			fmt.Fprintf(&sb, "action: %s %s\n", step.Action.Tool, args)
		}
		if step.Observation != nil {
			clip := observationClip
			if i == len(req.Steps)-1 {
				clip = recentObservationClip
			}
			fmt.Fprintf(&sb, "observation (status=%s, exit=%d): %s\n",
				step.Status, step.Observation.ExitStatus, clipText(step.Observation.Output, clip))
		} else if step.Status == trace.StatusInvalidAction {
			fmt.Fprintf(&sb, "observation: the previous decision was invalid (status=%s)\n", step.Status)
		}
	}

	for _, note := range req.Notes {
		fmt.Fprintf(&sb, "\nNOTE: %s\n", note)
	}

	sb.WriteString("\nRespond with the next JSON decision.")
	return sb.String()
}

func clipText(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "\n...[clipped]"
}
