package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Norvan25/homenest-nous-sub002/internal/config"
	"github.com/Norvan25/homenest-nous-sub002/internal/domain"
	"github.com/Norvan25/homenest-nous-sub002/internal/ports"
)

// AnthropicClient implements ports.TextGenerator against the Messages API.
type AnthropicClient struct {
	endpoint   string
	model      string
	apiKey     string
	version    string
	maxTokens  int
	httpClient *http.Client
}

var _ ports.TextGenerator = (*AnthropicClient)(nil)

// NewAnthropicClient builds a client from configuration.
func NewAnthropicClient(cfg config.AnthropicConfig) *AnthropicClient {
	return &AnthropicClient{
		endpoint:  cfg.Endpoint,
		model:     cfg.Model,
		apiKey:    cfg.APIKey,
		version:   cfg.Version,
		maxTokens: cfg.MaxTokens,
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
		},
	}
}

type messagesRequest struct {
	Model     string               `json:"model"`
	MaxTokens int                  `json:"max_tokens"`
	System    string               `json:"system,omitempty"`
	Messages  []domain.ChatMessage `json:"messages"`
}

type messagesResponse struct {
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Content    []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Complete sends the conversation and joins every text block of the answer.
func (c *AnthropicClient) Complete(ctx context.Context, system string, messages []domain.ChatMessage, maxTokens int) (domain.Completion, error) {
	if c == nil {
		return domain.Completion{}, fmt.Errorf("anthropic client is nil")
	}
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return domain.Completion{}, fmt.Errorf("anthropic client misconfigured")
	}
	if len(messages) == 0 {
		return domain.Completion{}, fmt.Errorf("no messages: %w", domain.ErrInvalid)
	}
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	body, err := json.Marshal(messagesRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    strings.TrimSpace(system),
		Messages:  messages,
	})
	if err != nil {
		return domain.Completion{}, fmt.Errorf("marshal anthropic payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.Completion{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", c.version)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Completion{}, fmt.Errorf("send messages: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.Completion{}, fmt.Errorf("anthropic error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var decoded messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.Completion{}, fmt.Errorf("decode anthropic response: %w", err)
	}

	var text strings.Builder
	for _, block := range decoded.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	model := decoded.Model
	if model == "" {
		model = c.model
	}
	return domain.Completion{
		Text:         text.String(),
		Model:        model,
		InputTokens:  decoded.Usage.InputTokens,
		OutputTokens: decoded.Usage.OutputTokens,
		StopReason:   decoded.StopReason,
	}, nil
}
