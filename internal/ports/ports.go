package ports

import (
	"context"
	"io"
	"time"

	"github.com/Norvan25/homenest-nous-sub002/internal/domain"
)

// PropertyRepository persists the lead contact graph.
type PropertyRepository interface {
	ListProperties(ctx context.Context, filter domain.PropertyFilter) ([]domain.Property, error)
	GetProperty(ctx context.Context, id string) (domain.Property, error)
	CreateProperty(ctx context.Context, p domain.Property) error
	UpdateProperty(ctx context.Context, p domain.Property) error
	DeleteProperty(ctx context.Context, id string) error

	ListContactGraph(ctx context.Context, propertyID string) ([]domain.Contact, error)
	GetContact(ctx context.Context, id string) (domain.Contact, error)
	CreateContact(ctx context.Context, c domain.Contact) error
	UpdateContact(ctx context.Context, c domain.Contact) error
	DeleteContact(ctx context.Context, id string) error

	GetPhone(ctx context.Context, id string) (domain.Phone, error)
	CreatePhone(ctx context.Context, ph domain.Phone) error
	UpdatePhone(ctx context.Context, ph domain.Phone) error
	DeletePhone(ctx context.Context, id string) error

	CreateEmail(ctx context.Context, e domain.Email) error
	DeleteEmail(ctx context.Context, id string) error
}

// CRMRepository persists pipeline rows and their activity timeline.
type CRMRepository interface {
	ListLeads(ctx context.Context, status domain.LeadStatus, limit, offset int) ([]domain.CRMLead, error)
	GetLead(ctx context.Context, id string) (domain.CRMLead, error)
	GetLeadByProperty(ctx context.Context, propertyID string) (domain.CRMLead, error)
	CreateLead(ctx context.Context, lead domain.CRMLead) error
	UpdateLead(ctx context.Context, lead domain.CRMLead) error
	DeleteLead(ctx context.Context, id string) error
	CountLeadsByStatus(ctx context.Context) (map[domain.LeadStatus]int, error)

	ListActivities(ctx context.Context, leadID string) ([]domain.CRMActivity, error)
	CreateActivity(ctx context.Context, activity domain.CRMActivity) error
}

// CallQueueRepository persists queue items and the run flag.
type CallQueueRepository interface {
	CreateQueueItems(ctx context.Context, items []domain.CallQueueItem) error
	ListQueueItems(ctx context.Context, filter domain.CallQueueFilter) ([]domain.CallQueueItem, error)
	GetQueueItem(ctx context.Context, id string) (domain.CallQueueItem, error)
	GetQueueItemByConversation(ctx context.Context, conversationID string) (domain.CallQueueItem, error)
	// ActivePhones returns which of the phone IDs already have a queued or calling item.
	ActivePhones(ctx context.Context, phoneIDs []string) (map[string]bool, error)
	// ClaimNextQueued moves the best queued item to calling; ok is false when the queue is empty.
	ClaimNextQueued(ctx context.Context, now time.Time) (item domain.CallQueueItem, ok bool, err error)
	CountQueueItems(ctx context.Context, status domain.CallStatus) (int, error)
	// UpdateQueueItem writes item only when the stored status still equals from.
	UpdateQueueItem(ctx context.Context, item domain.CallQueueItem, from domain.CallStatus) (bool, error)
	// CancelQueued cancels queued items (only phoneID's when set) and returns the changed rows.
	CancelQueued(ctx context.Context, phoneID string, now time.Time) ([]domain.CallQueueItem, error)
	ListStaleCalling(ctx context.Context, startedBefore time.Time) ([]domain.CallQueueItem, error)

	GetQueueState(ctx context.Context) (domain.CallQueueState, error)
	SaveQueueState(ctx context.Context, state domain.CallQueueState) error
}

// GenerationRepository persists AI artifacts.
type GenerationRepository interface {
	CreateDocument(ctx context.Context, doc domain.GeneratedDocument) error
	GetDocument(ctx context.Context, id string) (domain.GeneratedDocument, error)
	ListDocuments(ctx context.Context, propertyID string, limit, offset int) ([]domain.GeneratedDocument, error)
	UpdateDocument(ctx context.Context, doc domain.GeneratedDocument) error
	DeleteDocument(ctx context.Context, id string) error

	CreateContent(ctx context.Context, gen domain.ContentGeneration) error
	GetContent(ctx context.Context, id string) (domain.ContentGeneration, error)
	ListContent(ctx context.Context, kind string, limit, offset int) ([]domain.ContentGeneration, error)
	UpdateContent(ctx context.Context, gen domain.ContentGeneration) error
}

// OutreachRepository persists outbound messages and replies.
type OutreachRepository interface {
	CreateSend(ctx context.Context, send domain.OutreachSend) error
	GetSend(ctx context.Context, id string) (domain.OutreachSend, error)
	FindSendByThread(ctx context.Context, threadID string) (domain.OutreachSend, error)
	FindSendByMessageID(ctx context.Context, messageID string) (domain.OutreachSend, error)
	ListSends(ctx context.Context, filter domain.OutreachFilter) ([]domain.OutreachSend, error)
	UpdateSendStatus(ctx context.Context, id, status string, now time.Time) error

	CreateResponse(ctx context.Context, resp domain.OutreachResponse) error
	ListResponses(ctx context.Context, filter domain.OutreachFilter) ([]domain.OutreachResponse, error)
}

// UserRepository persists users together with their role and preference rows.
type UserRepository interface {
	ListUsers(ctx context.Context) ([]domain.User, error)
	GetUser(ctx context.Context, id string) (domain.User, error)
	CreateUser(ctx context.Context, user domain.User) error
	UpdateUserRole(ctx context.Context, id string, role domain.Role, now time.Time) error
	DeleteUser(ctx context.Context, id string) error
}

// SettingsRepository persists admin settings.
type SettingsRepository interface {
	ListSettings(ctx context.Context) ([]domain.AppSetting, error)
	GetSetting(ctx context.Context, key string) (domain.AppSetting, error)
	UpsertSetting(ctx context.Context, setting domain.AppSetting) error
	DeleteSetting(ctx context.Context, key string) error
}

// DebugLogRepository persists log records for the admin screen.
type DebugLogRepository interface {
	InsertDebugLog(ctx context.Context, entry domain.DebugLog) error
	ListDebugLogs(ctx context.Context, limit int) ([]domain.DebugLog, error)
	ClearDebugLogs(ctx context.Context) (int, error)
}

// TextGenerator produces text from a hosted language model.
type TextGenerator interface {
	Complete(ctx context.Context, system string, messages []domain.ChatMessage, maxTokens int) (domain.Completion, error)
}

// Dialer places outbound AI agent calls.
type Dialer interface {
	StartCall(ctx context.Context, req domain.DialRequest) (domain.DialResult, error)
}

// SpeechSynthesizer renders text to audio.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, req domain.SpeechRequest) (audio []byte, contentType string, err error)
}

// ObjectStore keeps blobs and returns their public URL.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// Notifier pushes short alerts to the sales team.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// EventPublisher fans change events out to dashboards or a broker.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// ReplyExtractor reduces an inbound message body to the newly written text.
type ReplyExtractor interface {
	ExtractReply(body string) (string, error)
}

// ChartRenderer draws pipeline stats.
type ChartRenderer interface {
	RenderPipeline(w io.Writer, stats domain.PipelineStats) error
}

// Scheduler controls when background jobs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
