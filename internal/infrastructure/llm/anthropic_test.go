package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Norvan25/homenest-nous-sub002/internal/config"
	"github.com/Norvan25/homenest-nous-sub002/internal/domain"
)

func TestAnthropicCompleteJoinsTextBlocks(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "secret" || r.Header.Get("anthropic-version") != "2023-06-01" {
			t.Errorf("missing auth headers: %v", r.Header)
		}
		var req messagesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.System != "be brief" || req.MaxTokens != 2048 || len(req.Messages) != 1 {
			t.Errorf("unexpected request: %+v", req)
		}
		_, _ = w.Write([]byte(`{"model":"claude-test","stop_reason":"end_turn",
			"content":[{"type":"text","text":"Hello "},{"type":"tool_use"},{"type":"text","text":"there"}],
			"usage":{"input_tokens":12,"output_tokens":3}}`))
	}))
	defer srv.Close()

	client := NewAnthropicClient(config.AnthropicConfig{Endpoint: srv.URL, APIKey: "secret", Model: "m", Version: "2023-06-01", MaxTokens: 2048})
	got, err := client.Complete(context.Background(), " be brief ", []domain.ChatMessage{{Role: "user", Content: "hi"}}, 0)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got.Text != "Hello there" || got.Model != "claude-test" || got.InputTokens != 12 || got.OutputTokens != 3 {
		t.Fatalf("unexpected completion: %+v", got)
	}
}

func TestAnthropicCompleteSurfacesVendorError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"type":"overloaded_error"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewAnthropicClient(config.AnthropicConfig{Endpoint: srv.URL, APIKey: "k", Model: "m", Version: "v"})
	_, err := client.Complete(context.Background(), "", []domain.ChatMessage{{Role: "user", Content: "hi"}}, 10)
	if err == nil || !strings.Contains(err.Error(), "overloaded_error") {
		t.Fatalf("expected vendor error, got %v", err)
	}
}
