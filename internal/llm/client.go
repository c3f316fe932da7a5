// Package llm wraps the completion services the decision engine can
// delegate to. The providers are interchangeable behind Client; the engine
// never sees anything but prompt-in, text-out.
package llm

import "context"

// Client defines the interface for completion providers.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Provider identifies a completion backend.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
)
