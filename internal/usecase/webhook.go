package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Norvan25/homenest-nous-sub002/internal/domain"
	"github.com/Norvan25/homenest-nous-sub002/internal/ports"
)

// Webhook acknowledgement statuses.
const (
	ReportProcessed = "processed"
	ReportDuplicate = "duplicate"
	ReportIgnored   = "ignored"
)

// CallReportsDeps wires the follow-up work triggered by a finished call.
type CallReportsDeps struct {
	Queue    *CallQueue
	CRM      *CRM
	Notifier ports.Notifier
	Logger   *slog.Logger
}

// CallReports applies telephony callbacks to the queue and the CRM.
type CallReports struct {
	queue    *CallQueue
	crm      *CRM
	notifier ports.Notifier
	logger   *slog.Logger
}

// NewCallReports constructs the callback handler.
func NewCallReports(deps CallReportsDeps) *CallReports {
	return &CallReports{
		queue:    deps.Queue,
		crm:      deps.CRM,
		notifier: deps.Notifier,
		logger:   orLogger(deps.Logger, "webhook"),
	}
}

// Handle finishes the queue item, logs the call on the CRM lead, alerts on
// successful calls and keeps a running queue moving. Unknown conversations
// are acknowledged as ignored.
func (r *CallReports) Handle(ctx context.Context, report domain.CallReport) (string, error) {
	if report.ConversationID == "" {
		return "", fmt.Errorf("conversation id missing: %w", domain.ErrInvalid)
	}

	item, changed, err := r.queue.ApplyOutcome(ctx, report.ConversationID, report.Outcome)
	if errors.Is(err, domain.ErrNotFound) {
		r.logger.Info("callback for unknown conversation", "conversation_id", report.ConversationID, "type", report.Type)
		return ReportIgnored, nil
	}
	if err != nil {
		return "", err
	}
	if !changed {
		return ReportDuplicate, nil
	}

	r.logger.Info("call finished",
		"item_id", item.ID,
		"conversation_id", item.ConversationID,
		"status", item.Status,
		"duration_seconds", item.DurationSeconds,
	)

	if r.crm != nil {
		if _, err := r.crm.LogContact(ctx, item.PropertyID, domain.ActivityCall, callActivityBody(item), "ai-agent"); err != nil {
			r.logger.Error("log call on crm lead", "item_id", item.ID, "error", err)
		}
	}

	if report.Outcome.Successful {
		notify(ctx, r.notifier, r.logger, successMessage(item))
	}

	if _, err := r.queue.ContinueIfRunning(ctx); err != nil {
		r.logger.Error("dial next after callback", "error", err)
	}
	return ReportProcessed, nil
}

func callActivityBody(item domain.CallQueueItem) string {
	body := fmt.Sprintf("AI call to %s: %s", item.PhoneNumber, item.Status)
	if item.DurationSeconds > 0 {
		body += fmt.Sprintf(" (%ds)", item.DurationSeconds)
	}
	if item.Summary != "" {
		body += "\n" + item.Summary
	}
	if item.ErrorMessage != "" {
		body += "\nerror: " + item.ErrorMessage
	}
	return body
}

func successMessage(item domain.CallQueueItem) string {
	msg := fmt.Sprintf("Successful AI call to %s (property %s)", item.PhoneNumber, item.PropertyID)
	if item.Summary != "" {
		msg += "\n\n" + item.Summary
	}
	return msg
}
