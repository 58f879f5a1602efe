package domain

import (
	"fmt"
	"strings"
	"time"
)

// CallStatus is the lifecycle state of a queued call.
type CallStatus string

const (
	CallQueued        CallStatus = "queued"
	CallCalling       CallStatus = "calling"
	CallCompleted     CallStatus = "completed"
	CallNoAnswer      CallStatus = "no_answer"
	CallVoicemailLeft CallStatus = "voicemail_left"
	CallFailed        CallStatus = "failed"
	CallCancelled     CallStatus = "cancelled"
)

var callTransitions = map[CallStatus][]CallStatus{
	CallQueued:   {CallCalling, CallCancelled},
	CallCalling:  {CallCompleted, CallNoAnswer, CallVoicemailLeft, CallFailed, CallCancelled},
	CallFailed:   {CallQueued},
	CallNoAnswer: {CallQueued},
}

// ParseCallStatus validates a raw status string.
func ParseCallStatus(raw string) (CallStatus, error) {
	s := CallStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case CallQueued, CallCalling, CallCompleted, CallNoAnswer, CallVoicemailLeft, CallFailed, CallCancelled:
		return s, nil
	}
	return "", fmt.Errorf("call status %q: %w", raw, ErrInvalid)
}

// CanTransition reports whether from -> to is an allowed queue move.
func (s CallStatus) CanTransition(to CallStatus) bool {
	for _, next := range callTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Active reports whether the item still occupies its phone.
func (s CallStatus) Active() bool {
	return s == CallQueued || s == CallCalling
}

// CallQueueItem is one scheduled outbound call.
type CallQueueItem struct {
	ID              string     `json:"id"`
	PropertyID      string     `json:"property_id"`
	ContactID       string     `json:"contact_id"`
	PhoneID         string     `json:"phone_id"`
	PhoneNumber     string     `json:"phone_number"`
	Status          CallStatus `json:"status"`
	Priority        int        `json:"priority"`
	Attempts        int        `json:"attempts"`
	ConversationID  string     `json:"conversation_id,omitempty"`
	CallSID         string     `json:"call_sid,omitempty"`
	Summary         string     `json:"summary,omitempty"`
	DurationSeconds int        `json:"duration_seconds"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// CallQueueState is the singleton run flag for the dialer.
type CallQueueState struct {
	Running   bool       `json:"running"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	PausedAt  *time.Time `json:"paused_at,omitempty"`
	UpdatedBy string     `json:"updated_by"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CallOutcome is what a telephony callback reports for a conversation.
type CallOutcome struct {
	Status          CallStatus
	Summary         string
	DurationSeconds int
	ErrorMessage    string
	Successful      bool
}

// CallQueueFilter narrows queue listings.
type CallQueueFilter struct {
	Status     CallStatus
	PropertyID string
	Limit      int
	Offset     int
}

// CallStartResult describes what Start did.
type CallStartResult struct {
	State  CallQueueState `json:"state"`
	Dialed *CallQueueItem `json:"dialed,omitempty"`
}

// DialRequest asks the telephony provider to place a call.
type DialRequest struct {
	ToNumber  string
	Variables map[string]string
}

// DialResult identifies a placed call at the provider.
type DialResult struct {
	ConversationID string
	CallSID        string
}

// CallReport is a parsed telephony callback.
type CallReport struct {
	Type           string
	ConversationID string
	Outcome        CallOutcome
}

// Terminal reports whether no further automatic transition leaves s.
func (s CallStatus) Terminal() bool {
	return !s.Active()
}
