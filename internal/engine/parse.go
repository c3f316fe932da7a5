package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"dataworks/internal/trace"
)

// decisionWire is the JSON shape the model is instructed to produce.
type decisionWire struct {
	Thought     string          `json:"thought"`
	Action      *actionWire     `json:"action"`
	FinalAnswer json.RawMessage `json:"final_answer"`
}

type actionWire struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
}

// ParseDecision extracts a Decision from a raw completion. Models wrap JSON
// in prose and code fences often enough that both are tolerated; anything
// that does not yield exactly one valid variant is ErrMalformedDecision.
func ParseDecision(raw string) (*Decision, error) {
	payload := extractJSON(raw)
	if payload == "" {
		return nil, fmt.Errorf("%w: no JSON object in response", ErrMalformedDecision)
	}

	var wire decisionWire
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDecision, err)
	}

	hasAction := wire.Action != nil
	hasAnswer := len(wire.FinalAnswer) > 0 && string(wire.FinalAnswer) != "null"

	switch {
	case hasAction && hasAnswer:
		return nil, fmt.Errorf("%w: both action and final_answer present", ErrMalformedDecision)
	case hasAction:
		if strings.TrimSpace(wire.Action.Tool) == "" {
			return nil, fmt.Errorf("%w: action without tool name", ErrMalformedDecision)
		}
		args := wire.Action.Args
		if args == nil {
			args = map[string]any{}
		}
		return &Decision{
			Reasoning: wire.Thought,
			Action:    &trace.Action{Tool: wire.Action.Tool, Args: args},
		}, nil
	case hasAnswer:
		var answer string
		if err := json.Unmarshal(wire.FinalAnswer, &answer); err != nil {
			// Tolerate a non-string final answer by echoing its JSON.
			answer = string(wire.FinalAnswer)
		}
		return &Decision{
			Reasoning:   wire.Thought,
			FinalAnswer: answer,
		}, nil
	default:
		return nil, fmt.Errorf("%w: neither action nor final_answer present", ErrMalformedDecision)
	}
}

// extractJSON returns the first balanced top-level JSON object in s,
// stripping markdown code fences first.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
