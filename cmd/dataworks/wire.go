package main

import (
	"context"
	"fmt"

	"dataworks/internal/agent"
	"dataworks/internal/config"
	"dataworks/internal/engine"
	"dataworks/internal/llm"
	"dataworks/internal/tools"
	"dataworks/internal/tools/fileio"
	"dataworks/internal/tools/goeval"
	"dataworks/internal/tools/shell"
	"dataworks/internal/tools/sqlquery"
	"dataworks/internal/tools/web"
)

// buildRegistry assembles the full tool catalogue over one sandbox.
func buildRegistry(cfg *config.Config) (*tools.Registry, *fileio.Sandbox, error) {
	sb, err := fileio.NewSandbox(cfg.Sandbox.Root)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open sandbox: %w", err)
	}

	registry := tools.NewRegistry()
	if err := shell.RegisterAll(registry, sb.Root()); err != nil {
		return nil, nil, err
	}
	if err := fileio.RegisterAll(registry, sb); err != nil {
		return nil, nil, err
	}
	if err := web.RegisterAll(registry); err != nil {
		return nil, nil, err
	}
	if err := goeval.RegisterAll(registry); err != nil {
		return nil, nil, err
	}
	if err := sqlquery.RegisterAll(registry, sb); err != nil {
		return nil, nil, err
	}
	return registry, sb, nil
}

// buildLoop connects the LLM decider to the tool registry under the
// configured budgets.
func buildLoop(ctx context.Context, cfg *config.Config, registry *tools.Registry) (*agent.Loop, error) {
	settings, err := llm.DetectSettings(llm.Settings{
		Provider: llm.Provider(cfg.LLM.Provider),
		APIKey:   cfg.LLM.APIKey,
		Model:    cfg.LLM.Model,
		BaseURL:  cfg.LLM.BaseURL,
		Timeout:  cfg.GetLLMTimeout(),
	})
	if err != nil {
		return nil, err
	}
	client, err := llm.New(ctx, settings)
	if err != nil {
		return nil, err
	}

	return agent.New(engine.NewLLMDecider(client), registry, agent.Config{
		MaxIterations:      cfg.Execution.MaxIterations,
		RunTimeout:         cfg.GetRunTimeout(),
		DecisionRetries:    cfg.Execution.DecisionRetries,
		RepeatFailureLimit: cfg.Execution.RepeatFailureLimit,
	})
}
