package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func completionHandler(t *testing.T, reply string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization header = %q", got)
		}
		var req openAIRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": reply}},
			},
		})
	}
}

func TestOpenAIComplete(t *testing.T) {
	srv := httptest.NewServer(completionHandler(t, "pong"))
	defer srv.Close()

	c := NewOpenAIClientWithConfig(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL})
	out, err := c.Complete(context.Background(), "ping")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if out != "pong" {
		t.Errorf("out = %q, want pong", out)
	}
}

func TestOpenAICompleteNoKey(t *testing.T) {
	c := NewOpenAIClient("")
	if _, err := c.Complete(context.Background(), "hi"); err == nil {
		t.Error("expected error without API key")
	}
}

func TestOpenAIRetriesOnRateLimit(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		completionHandler(t, "recovered")(w, r)
	}))
	defer srv.Close()

	c := NewOpenAIClientWithConfig(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL})
	out, err := c.Complete(context.Background(), "ping")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if out != "recovered" {
		t.Errorf("out = %q", out)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestOpenAIDoesNotRetryClientError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewOpenAIClientWithConfig(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL})
	if _, err := c.Complete(context.Background(), "ping"); err == nil {
		t.Fatal("expected error on 400")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("calls = %d, want 1 (no retry on 4xx)", calls)
	}
}

func TestOpenAIRespectsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server can detect the client disconnect
		// and cancel the request context; otherwise Close hangs forever.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := NewOpenAIClientWithConfig(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := c.Complete(ctx, "ping"); err == nil {
			t.Error("expected error on canceled context")
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Complete did not return after context cancellation")
	}
}

func TestDetectSettingsPriority(t *testing.T) {
	t.Setenv("AIPROXY_TOKEN", "proxy-token")
	t.Setenv("OPENAI_API_KEY", "openai-key")
	t.Setenv("GEMINI_API_KEY", "")

	s, err := DetectSettings(Settings{})
	if err != nil {
		t.Fatalf("DetectSettings failed: %v", err)
	}
	if s.APIKey != "proxy-token" || s.BaseURL != proxyBaseURL {
		t.Errorf("expected proxy settings, got %+v", s)
	}

	t.Setenv("AIPROXY_TOKEN", "")
	s, err = DetectSettings(Settings{})
	if err != nil {
		t.Fatalf("DetectSettings failed: %v", err)
	}
	if s.APIKey != "openai-key" || s.BaseURL != "" {
		t.Errorf("expected openai fallback, got %+v", s)
	}

	t.Setenv("OPENAI_API_KEY", "")
	if _, err := DetectSettings(Settings{}); err == nil {
		t.Error("expected error with no keys configured")
	}
}

func TestDetectSettingsExplicitKeyWins(t *testing.T) {
	t.Setenv("AIPROXY_TOKEN", "proxy-token")
	s, err := DetectSettings(Settings{Provider: ProviderGemini, APIKey: "explicit"})
	if err != nil {
		t.Fatalf("DetectSettings failed: %v", err)
	}
	if s.APIKey != "explicit" || s.Provider != ProviderGemini {
		t.Errorf("explicit settings overridden: %+v", s)
	}
}
