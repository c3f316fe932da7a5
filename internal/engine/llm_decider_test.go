package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataworks/internal/tools"
	"dataworks/internal/trace"
)

// recordingClient captures the prompts and replies with a fixed completion.
type recordingClient struct {
	system string
	user   string
	reply  string
}

func (c *recordingClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, "", prompt)
}

func (c *recordingClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	c.system = systemPrompt
	c.user = userPrompt
	return c.reply, nil
}

func catalogueFixture() []tools.Descriptor {
	return []tools.Descriptor{
		{
			Name:        "read_file",
			Description: "Read a file",
			SideEffect:  tools.SideEffectReadOnly,
			Schema: tools.Schema{
				Required:   []string{"path"},
				Properties: map[string]tools.Property{"path": {Type: "string", Description: "path"}},
			},
		},
	}
}

func TestDecidePromptContainsCatalogueAndTrace(t *testing.T) {
	client := &recordingClient{reply: `{"thought": "t", "final_answer": "done"}`}
	d := NewLLMDecider(client)

	steps := []trace.Step{
		{
			Index:       0,
			Reasoning:   "look at the dates first",
			Action:      &trace.Action{Tool: "read_file", Args: map[string]any{"path": "dates.txt"}},
			Observation: &tools.Observation{Output: "2024-01-03\n2024-01-10", ExitStatus: 0},
			Status:      trace.StatusOK,
		},
	}

	decision, err := d.Decide(context.Background(), Request{
		Goal:      "count the wednesdays in dates.txt",
		Steps:     steps,
		Catalogue: catalogueFixture(),
		Notes:     []string{"tool missing_tool does not exist"},
	})
	require.NoError(t, err)
	assert.True(t, decision.IsFinish())

	assert.Contains(t, client.system, "read_file")
	assert.Contains(t, client.system, "read-only")
	assert.Contains(t, client.user, "count the wednesdays")
	assert.Contains(t, client.user, "2024-01-03")
	assert.Contains(t, client.user, "status=ok")
	assert.Contains(t, client.user, "NOTE: tool missing_tool does not exist")
}

func TestDecideClipsOldObservations(t *testing.T) {
	client := &recordingClient{reply: `{"thought": "t", "final_answer": "done"}`}
	d := NewLLMDecider(client)

	long := strings.Repeat("a", observationClip+500)
	steps := []trace.Step{
		{Index: 0, Observation: &tools.Observation{Output: long}, Status: trace.StatusOK},
		{Index: 1, Observation: &tools.Observation{Output: "short"}, Status: trace.StatusOK},
	}

	_, err := d.Decide(context.Background(), Request{Goal: "g", Steps: steps, Catalogue: catalogueFixture()})
	require.NoError(t, err)
	assert.Contains(t, client.user, "...[clipped]")
	assert.NotContains(t, client.user, long)
}

func TestDecideMalformedReply(t *testing.T) {
	client := &recordingClient{reply: "I refuse to answer in JSON."}
	d := NewLLMDecider(client)

	_, err := d.Decide(context.Background(), Request{Goal: "g", Catalogue: catalogueFixture()})
	require.ErrorIs(t, err, ErrMalformedDecision)
}
