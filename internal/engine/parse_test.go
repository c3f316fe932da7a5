package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDecisionInvoke(t *testing.T) {
	raw := `{"thought": "need the file first", "action": {"tool": "read_file", "args": {"path": "dates.txt"}}}`

	d, err := ParseDecision(raw)
	require.NoError(t, err)
	require.NotNil(t, d.Action)
	assert.False(t, d.IsFinish())
	assert.Equal(t, "read_file", d.Action.Tool)
	assert.Equal(t, "dates.txt", d.Action.Args["path"])
	assert.Equal(t, "need the file first", d.Reasoning)
}

func TestParseDecisionFinish(t *testing.T) {
	raw := `{"thought": "done", "final_answer": "there are 7 wednesdays"}`

	d, err := ParseDecision(raw)
	require.NoError(t, err)
	assert.True(t, d.IsFinish())
	assert.Equal(t, "there are 7 wednesdays", d.FinalAnswer)
}

func TestParseDecisionCodeFenced(t *testing.T) {
	raw := "Here is my decision:\n```json\n{\"thought\": \"t\", \"final_answer\": \"ok\"}\n```\n"

	d, err := ParseDecision(raw)
	require.NoError(t, err)
	assert.Equal(t, "ok", d.FinalAnswer)
}

func TestParseDecisionEmbeddedProse(t *testing.T) {
	raw := `I will invoke the shell. {"thought": "run it", "action": {"tool": "run_command", "args": {"command": "ls"}}} Done.`

	d, err := ParseDecision(raw)
	require.NoError(t, err)
	require.NotNil(t, d.Action)
	assert.Equal(t, "run_command", d.Action.Tool)
}

func TestParseDecisionNestedBracesInStrings(t *testing.T) {
	raw := `{"thought": "braces {inside} a \"string\"", "action": {"tool": "run_go", "args": {"code": "func Run(s string) (string, error) { return s, nil }"}}}`

	d, err := ParseDecision(raw)
	require.NoError(t, err)
	require.NotNil(t, d.Action)
	assert.Contains(t, d.Action.Args["code"], "return s, nil")
}

func TestParseDecisionMalformed(t *testing.T) {
	cases := map[string]string{
		"no json":           "I think I should read the file.",
		"invalid json":      `{"thought": "x", "action": {`,
		"neither variant":   `{"thought": "just thinking"}`,
		"both variants":     `{"thought": "x", "action": {"tool": "a", "args": {}}, "final_answer": "y"}`,
		"action no tool":    `{"thought": "x", "action": {"args": {}}}`,
		"action empty tool": `{"thought": "x", "action": {"tool": "  ", "args": {}}}`,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseDecision(raw)
			assert.True(t, errors.Is(err, ErrMalformedDecision), "got %v", err)
		})
	}
}

func TestParseDecisionNoArgs(t *testing.T) {
	d, err := ParseDecision(`{"thought": "x", "action": {"tool": "list_files"}}`)
	require.NoError(t, err)
	require.NotNil(t, d.Action)
	assert.NotNil(t, d.Action.Args)
}
