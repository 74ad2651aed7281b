package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/panelgraph/internal/model"
	"github.com/sashabaranov/go-openai"
)

func chatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected path /chat/completions, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Expected Authorization header Bearer test-key, got %s", r.Header.Get("Authorization"))
		}

		resp := openai.ChatCompletionResponse{
			ID:      "chatcmpl-123",
			Object:  "chat.completion",
			Created: 1677652288,
			Model:   "gpt-4o-mini",
			Choices: []openai.ChatCompletionChoice{
				{
					Index: 0,
					Message: openai.ChatCompletionMessage{
						Role:    "assistant",
						Content: content,
					},
					FinishReason: "stop",
				},
			},
			Usage: openai.Usage{TotalTokens: 100},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func newTestProvider(t *testing.T, baseURL string, strict bool) *OpenAIProvider {
	t.Helper()
	provider, err := NewOpenAIProvider(Config{
		APIKey:         "test-key",
		BaseURL:        baseURL,
		Model:          "gpt-4o-mini",
		Timeout:        5,
		StrictEvidence: strict,
	})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}
	return provider
}

func TestNewOpenAIProvider_RequiresKey(t *testing.T) {
	if _, err := NewOpenAIProvider(Config{}); err == nil {
		t.Fatal("Expected error without API key")
	}
}

func TestOpenAIProvider_Summarize_Success(t *testing.T) {
	server := chatServer(t, "Coverage is weakest for `macro_A`.")
	defer server.Close()
	provider := newTestProvider(t, server.URL, true)

	resp, err := provider.Summarize(context.Background(), SummarizeRequest{
		Report:     model.EvalReport{Subject: "Test"},
		AllowedIDs: []string{"macro_A"},
	})
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if resp.Summary != "Coverage is weakest for `macro_A`." {
		t.Errorf("Unexpected summary: %s", resp.Summary)
	}
	if len(resp.CitedIDs) != 1 || resp.CitedIDs[0] != "macro_A" {
		t.Errorf("Unexpected cited IDs: %v", resp.CitedIDs)
	}
	if resp.TokensUsed != 100 {
		t.Errorf("Expected 100 tokens, got %d", resp.TokensUsed)
	}
}

func TestOpenAIProvider_Summarize_CitationLeak(t *testing.T) {
	server := chatServer(t, "Mostly fine except `macro_Z`.")
	defer server.Close()

	_, err := newTestProvider(t, server.URL, true).Summarize(context.Background(), SummarizeRequest{
		AllowedIDs: []string{"macro_A"},
	})
	if !errors.Is(err, ErrCitationLeak) {
		t.Fatalf("Expected ErrCitationLeak, got %v", err)
	}

	// without strict mode the same answer passes
	resp, err := newTestProvider(t, server.URL, false).Summarize(context.Background(), SummarizeRequest{
		AllowedIDs: []string{"macro_A"},
	})
	if err != nil {
		t.Fatalf("Expected lenient mode to accept, got %v", err)
	}
	if len(resp.CitedIDs) != 1 || resp.CitedIDs[0] != "macro_Z" {
		t.Errorf("Unexpected cited IDs: %v", resp.CitedIDs)
	}
}

func TestOpenAIProvider_Summarize_APIError(t *testing.T) {
	for _, status := range []int{http.StatusInternalServerError, http.StatusTooManyRequests} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error": {"message": "nope", "type": "server_error"}}`))
		}))

		_, err := newTestProvider(t, server.URL, true).Summarize(context.Background(), SummarizeRequest{})
		if err == nil {
			t.Errorf("Expected error for status %d, got nil", status)
		}
		server.Close()
	}
}

func TestOpenAIProvider_Summarize_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{malformed json`))
	}))
	defer server.Close()

	_, err := newTestProvider(t, server.URL, true).Summarize(context.Background(), SummarizeRequest{})
	if err == nil {
		t.Fatal("Expected error for malformed JSON, got nil")
	}
}

func TestOpenAIProvider_Summarize_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	// the caller's deadline is shorter than the provider timeout and wins
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := newTestProvider(t, server.URL, true).Summarize(ctx, SummarizeRequest{})
	if err == nil {
		t.Fatal("Expected timeout error, got nil")
	}
}

func TestOpenAIProvider_IsAvailable(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if healthy.Load() && r.URL.Path == "/models" {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"data": [{"id": "gpt-4o-mini"}]}`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	provider := newTestProvider(t, server.URL, true)
	if !provider.IsAvailable(context.Background()) {
		t.Error("Expected available to be true")
	}

	healthy.Store(false)
	if provider.IsAvailable(context.Background()) {
		t.Error("Expected available to be false on error")
	}
}

func TestProxyFunc(t *testing.T) {
	pf := proxyFunc("http://proxy.local:3128", "", "localhost")

	req := &http.Request{URL: &url.URL{Scheme: "http", Host: "api.example.com"}}
	got, err := pf(req)
	if err != nil || got == nil || got.Host != "proxy.local:3128" {
		t.Errorf("Expected proxy.local:3128, got %v (%v)", got, err)
	}

	req = &http.Request{URL: &url.URL{Scheme: "http", Host: "localhost:11434"}}
	if got, _ := pf(req); got != nil {
		t.Errorf("Expected no proxy for localhost, got %v", got)
	}
}
