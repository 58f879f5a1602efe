package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Norvan25/homenest-nous-sub002/internal/domain"
	"github.com/Norvan25/homenest-nous-sub002/internal/ports"
)

var outreachChannels = map[string]bool{"email": true, "sms": true}

// OutreachDeps wires message logs and the follow-up channels.
type OutreachDeps struct {
	Repository ports.OutreachRepository
	CRM        *CRM
	Extractor  ports.ReplyExtractor
	Notifier   ports.Notifier
	Events     ports.EventPublisher
	Clock      Clock
	Logger     *slog.Logger
}

// Outreach records outbound messages and the replies they earn.
type Outreach struct {
	repo      ports.OutreachRepository
	crm       *CRM
	extractor ports.ReplyExtractor
	notifier  ports.Notifier
	events    ports.EventPublisher
	now       Clock
	logger    *slog.Logger
}

// NewOutreach constructs the outreach service.
func NewOutreach(deps OutreachDeps) *Outreach {
	return &Outreach{
		repo:      deps.Repository,
		crm:       deps.CRM,
		extractor: deps.Extractor,
		notifier:  deps.Notifier,
		events:    deps.Events,
		now:       orClock(deps.Clock),
		logger:    orLogger(deps.Logger, "outreach"),
	}
}

// RecordSend stores an outbound message sent by an external channel.
func (o *Outreach) RecordSend(ctx context.Context, send domain.OutreachSend) (domain.OutreachSend, error) {
	send.Channel = strings.ToLower(strings.TrimSpace(send.Channel))
	if !outreachChannels[send.Channel] {
		return domain.OutreachSend{}, fmt.Errorf("channel %q: %w", send.Channel, domain.ErrInvalid)
	}
	send.Recipient = strings.TrimSpace(send.Recipient)
	if send.Recipient == "" {
		return domain.OutreachSend{}, fmt.Errorf("recipient is required: %w", domain.ErrInvalid)
	}
	switch send.Status {
	case "":
		send.Status = domain.SendStatusSent
	case domain.SendStatusSent, domain.SendStatusFailed:
	default:
		return domain.OutreachSend{}, fmt.Errorf("send status %q: %w", send.Status, domain.ErrInvalid)
	}

	now := o.now()
	send.ID = newID()
	if send.SentAt.IsZero() {
		send.SentAt = now
	}
	send.SentAt = send.SentAt.UTC()
	send.CreatedAt, send.UpdatedAt = now, now
	if err := o.repo.CreateSend(ctx, send); err != nil {
		return domain.OutreachSend{}, err
	}
	return send, nil
}

func (o *Outreach) ListSends(ctx context.Context, filter domain.OutreachFilter) ([]domain.OutreachSend, error) {
	out, err := o.repo.ListSends(ctx, filter)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.OutreachSend{}
	}
	return out, nil
}

// InboundReply is a reply delivered by the mail or SMS provider.
type InboundReply struct {
	ThreadID   string    `json:"thread_id"`
	InReplyTo  string    `json:"in_reply_to"`
	Sender     string    `json:"sender"`
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"received_at"`
}

// RecordResponse links a reply to its send by thread id, then by
// In-Reply-To. A linked reply marks the send replied, lands on the CRM
// timeline and alerts the team. Unlinked replies are still kept.
func (o *Outreach) RecordResponse(ctx context.Context, in InboundReply) (domain.OutreachResponse, error) {
	if strings.TrimSpace(in.ThreadID) == "" && strings.TrimSpace(in.InReplyTo) == "" {
		return domain.OutreachResponse{}, fmt.Errorf("thread_id or in_reply_to is required: %w", domain.ErrInvalid)
	}

	text := in.Body
	if o.extractor != nil {
		extracted, err := o.extractor.ExtractReply(in.Body)
		if err != nil {
			o.logger.Warn("extract reply failed, keeping raw body", "error", err)
		} else {
			text = extracted
		}
	}

	send, linked, err := o.findSend(ctx, in)
	if err != nil {
		return domain.OutreachResponse{}, err
	}

	now := o.now()
	resp := domain.OutreachResponse{
		ID:         newID(),
		ThreadID:   in.ThreadID,
		InReplyTo:  in.InReplyTo,
		Sender:     strings.TrimSpace(in.Sender),
		BodyText:   text,
		ReceivedAt: in.ReceivedAt.UTC(),
		CreatedAt:  now,
	}
	if resp.ReceivedAt.IsZero() {
		resp.ReceivedAt = now
	}
	if linked {
		resp.SendID = send.ID
		if resp.ThreadID == "" {
			resp.ThreadID = send.ThreadID
		}
	}
	if err := o.repo.CreateResponse(ctx, resp); err != nil {
		return domain.OutreachResponse{}, err
	}

	emit(ctx, o.events, o.logger, now, domain.EventOutreachReply, resp)
	if !linked {
		o.logger.Info("reply without matching send", "thread_id", in.ThreadID, "in_reply_to", in.InReplyTo)
		return resp, nil
	}

	if err := o.repo.UpdateSendStatus(ctx, send.ID, domain.SendStatusReplied, now); err != nil {
		return domain.OutreachResponse{}, err
	}
	if o.crm != nil {
		kind := domain.ActivityEmail
		if send.Channel == "sms" {
			kind = domain.ActivitySMS
		}
		body := fmt.Sprintf("Reply from %s: %s", resp.Sender, text)
		if _, err := o.crm.LogContact(ctx, send.PropertyID, kind, body, "outreach"); err != nil {
			o.logger.Error("log reply on crm lead", "send_id", send.ID, "error", err)
		}
	}
	notify(ctx, o.notifier, o.logger, fmt.Sprintf("New %s reply from %s:\n\n%s", send.Channel, resp.Sender, text))
	return resp, nil
}

func (o *Outreach) ListResponses(ctx context.Context, filter domain.OutreachFilter) ([]domain.OutreachResponse, error) {
	out, err := o.repo.ListResponses(ctx, filter)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.OutreachResponse{}
	}
	return out, nil
}

func (o *Outreach) findSend(ctx context.Context, in InboundReply) (domain.OutreachSend, bool, error) {
	lookups := []struct {
		key  string
		find func(context.Context, string) (domain.OutreachSend, error)
	}{
		{strings.TrimSpace(in.ThreadID), o.repo.FindSendByThread},
		{strings.TrimSpace(in.InReplyTo), o.repo.FindSendByMessageID},
	}
	for _, l := range lookups {
		if l.key == "" {
			continue
		}
		send, err := l.find(ctx, l.key)
		if err == nil {
			return send, true, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return domain.OutreachSend{}, false, err
		}
	}
	return domain.OutreachSend{}, false, nil
}
