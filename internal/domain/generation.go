package domain

import (
	"fmt"
	"strings"
	"time"
)

// Rating is user feedback on generated text.
type Rating string

const (
	RatingNone Rating = ""
	RatingUp   Rating = "up"
	RatingDown Rating = "down"
)

// ParseRating validates thumbs up/down feedback.
func ParseRating(raw string) (Rating, error) {
	r := Rating(strings.ToLower(strings.TrimSpace(raw)))
	switch r {
	case RatingUp, RatingDown:
		return r, nil
	}
	return "", fmt.Errorf("rating %q: %w", raw, ErrInvalid)
}

// Feedback is the user verdict on a generated artifact.
type Feedback struct {
	Rating Rating `json:"rating"`
	Note   string `json:"note"`
}

// GeneratedDocument is an AI-produced document about a property.
type GeneratedDocument struct {
	ID           string    `json:"id"`
	PropertyID   string    `json:"property_id"`
	DocType      string    `json:"doc_type"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Model        string    `json:"model"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	StorageURL   string    `json:"storage_url,omitempty"`
	Rating       Rating    `json:"rating,omitempty"`
	FeedbackNote string    `json:"feedback_note,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ContentGeneration is a free-form generation (chat reply, SMS draft, script).
type ContentGeneration struct {
	ID           string    `json:"id"`
	Kind         string    `json:"kind"`
	Prompt       string    `json:"prompt"`
	Output       string    `json:"output"`
	Model        string    `json:"model"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	Rating       Rating    `json:"rating,omitempty"`
	FeedbackNote string    `json:"feedback_note,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ChatMessage is one turn sent to the text model.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completion is the text model answer with token usage.
type Completion struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
	StopReason   string
}

// SpeechRequest asks the voice vendor to render text.
type SpeechRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voice_id"`
}

// SpeechResult points at stored audio.
type SpeechResult struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Bytes       int    `json:"bytes"`
}
