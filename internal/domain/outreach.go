package domain

import "time"

// OutreachSend is an outbound message to a contact.
type OutreachSend struct {
	ID         string    `json:"id"`
	PropertyID string    `json:"property_id"`
	ContactID  string    `json:"contact_id"`
	Channel    string    `json:"channel"`
	Recipient  string    `json:"recipient"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	ThreadID   string    `json:"thread_id"`
	MessageID  string    `json:"message_id"`
	Status     string    `json:"status"`
	SentAt     time.Time `json:"sent_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Outreach send statuses.
const (
	SendStatusSent    = "sent"
	SendStatusFailed  = "failed"
	SendStatusReplied = "replied"
)

// OutreachResponse is an inbound reply linked to a send.
type OutreachResponse struct {
	ID         string    `json:"id"`
	SendID     string    `json:"send_id"`
	ThreadID   string    `json:"thread_id"`
	InReplyTo  string    `json:"in_reply_to"`
	Sender     string    `json:"sender"`
	BodyText   string    `json:"body_text"`
	ReceivedAt time.Time `json:"received_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// OutreachFilter narrows send/response listings.
type OutreachFilter struct {
	PropertyID string
	ThreadID   string
	Limit      int
	Offset     int
}
