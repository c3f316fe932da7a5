package llm

import (
	"context"
	"fmt"
	"os"
	"time"

	"dataworks/internal/logging"
)

// The DataWorks proxy is the primary endpoint; api.openai.com is the
// fallback when only an OpenAI key is present.
const proxyBaseURL = "https://aiproxy.sanand.workers.dev/openai/v1"

// Settings is the resolved provider configuration.
type Settings struct {
	Provider Provider
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration
}

// New builds a completion client from the settings.
func New(ctx context.Context, s Settings) (Client, error) {
	switch s.Provider {
	case ProviderOpenAI, "":
		return NewOpenAIClientWithConfig(OpenAIConfig{
			APIKey:  s.APIKey,
			BaseURL: s.BaseURL,
			Model:   s.Model,
			Timeout: s.Timeout,
		}), nil
	case ProviderGemini:
		return NewGeminiClient(ctx, GeminiConfig{
			APIKey:  s.APIKey,
			Model:   s.Model,
			Timeout: s.Timeout,
		})
	default:
		return nil, fmt.Errorf("unknown provider %q", s.Provider)
	}
}

// DetectSettings fills in missing credentials from the environment.
// Priority: explicit settings > AIPROXY_TOKEN (primary proxy) >
// OPENAI_API_KEY (fallback) > GEMINI_API_KEY.
func DetectSettings(s Settings) (Settings, error) {
	if s.APIKey != "" {
		return s, nil
	}

	if token := os.Getenv("AIPROXY_TOKEN"); token != "" {
		s.Provider = ProviderOpenAI
		s.APIKey = token
		if s.BaseURL == "" {
			s.BaseURL = proxyBaseURL
		}
		logging.BootDebug("using AIPROXY_TOKEN with proxy endpoint")
		return s, nil
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		s.Provider = ProviderOpenAI
		s.APIKey = key
		logging.BootDebug("using OPENAI_API_KEY")
		return s, nil
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		s.Provider = ProviderGemini
		s.APIKey = key
		logging.BootDebug("using GEMINI_API_KEY")
		return s, nil
	}

	return s, fmt.Errorf("no API key configured (set AIPROXY_TOKEN, OPENAI_API_KEY, or GEMINI_API_KEY)")
}
