package voice

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

const maxAudioBytes = 20 << 20

// Client talks to ElevenLabs for agent calls and text-to-speech.
type Client struct {
	baseURL       string
	apiKey        string
	agentID       string
	phoneNumberID string
	defaultVoice  string
	http          *http.Client
}

var _ ports.Dialer = (*Client)(nil)
var _ ports.SpeechSynthesizer = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(cfg config.ElevenLabsConfig) *Client {
	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:        cfg.APIKey,
		agentID:       cfg.AgentID,
		phoneNumberID: cfg.PhoneNumberID,
		defaultVoice:  cfg.DefaultVoice,
		http:          &http.Client{Timeout: 30 * time.Second},
	}
}

type outboundCallRequest struct {
	AgentID            string `json:"agent_id"`
	AgentPhoneNumberID string `json:"agent_phone_number_id"`
	ToNumber           string `json:"to_number"`
	ClientData         struct {
		DynamicVariables map[string]string `json:"dynamic_variables,omitempty"`
	} `json:"conversation_initiation_client_data"`
}

// StartCall asks the conversational agent to dial a number over Twilio.
func (c *Client) StartCall(ctx context.Context, req domain.DialRequest) (domain.DialResult, error) {
	if c.apiKey == "" || c.agentID == "" || c.phoneNumberID == "" {
		return domain.DialResult{}, fmt.Errorf("elevenlabs dialer misconfigured")
	}
	if req.ToNumber == "" {
		return domain.DialResult{}, fmt.Errorf("empty destination number: %w", domain.ErrInvalid)
	}

	payload := outboundCallRequest{
		AgentID:            c.agentID,
		AgentPhoneNumberID: c.phoneNumberID,
		ToNumber:           req.ToNumber,
	}
	payload.ClientData.DynamicVariables = req.Variables

	var resp struct {
		Success        bool   `json:"success"`
		Message        string `json:"message"`
		ConversationID string `json:"conversation_id"`
		CallSID        string `json:"callSid"`
	}
	if err := c.post(ctx, "/v1/convai/twilio/outbound-call", payload, &resp); err != nil {
		return domain.DialResult{}, err
	}
	if resp.ConversationID == "" {
		msg := resp.Message
		if msg == "" {
			msg = "no conversation id returned"
		}
		return domain.DialResult{}, fmt.Errorf("outbound call rejected: %s", msg)
	}

	return domain.DialResult{ConversationID: resp.ConversationID, CallSID: resp.CallSID}, nil
}

// Synthesize renders text to MP3 with the requested or default voice.
func (c *Client) Synthesize(ctx context.Context, req domain.SpeechRequest) ([]byte, string, error) {
	if c.apiKey == "" {
		return nil, "", fmt.Errorf("elevenlabs synthesizer misconfigured")
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, "", fmt.Errorf("empty text: %w", domain.ErrInvalid)
	}
	voiceID := req.VoiceID
	if voiceID == "" {
		voiceID = c.defaultVoice
	}

	body, err := json.Marshal(map[string]any{
		"text":     req.Text,
		"model_id": "eleven_multilingual_v2",
	})
	if err != nil {
		return nil, "", fmt.Errorf("marshal payload: %w", err)
	}

	httpReq, err := c.newRequest(ctx, "/v1/text-to-speech/"+voiceID, body)
	if err != nil {
		return nil, "", err
	}
	httpReq.Header.Set("Accept", "audio/mpeg")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", statusError(resp)
	}

	audio, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read audio: %w", err)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/mpeg"
	}
	return audio, contentType, nil
}

func (c *Client) newRequest(ctx context.Context, path string, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)
	return req, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := c.newRequest(ctx, path, body)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		err := statusError(resp)
		_ = resp.Body.Close()
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		_ = resp.Body.Close()
		return fmt.Errorf("decode response: %w", err)
	}

	if err := resp.Body.Close(); err != nil {
		return fmt.Errorf("close response body: %w", err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return fmt.Errorf("elevenlabs %s: %s", resp.Status, strings.TrimSpace(string(detail)))
}
