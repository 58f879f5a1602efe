package domain

import "time"

// Event types pushed to dashboards and the message bus.
const (
	EventQueueItemUpdated = "call_queue.updated"
	EventQueueState       = "call_queue.state"
	EventCallFinished     = "call.finished"
	EventOutreachReply    = "outreach.reply"
)

// Event is a change notification.
type Event struct {
	Type       string    `json:"type"`
	Payload    any       `json:"payload"`
	OccurredAt time.Time `json:"occurred_at"`
}
