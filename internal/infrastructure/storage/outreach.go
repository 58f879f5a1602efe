package storage

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/Norvan25/homenest-nous-sub002/internal/domain"
	"github.com/Norvan25/homenest-nous-sub002/internal/ports"
)

var _ ports.OutreachRepository = (*Repository)(nil)

var sendColumns = []string{
	"id", "COALESCE(property_id, '')", "COALESCE(contact_id, '')", "channel", "recipient",
	"COALESCE(subject, '')", "COALESCE(body, '')", "COALESCE(thread_id, '')", "COALESCE(message_id, '')",
	"status", "sent_at", "created_at", "updated_at",
}

func scanSend(row rowScanner) (domain.OutreachSend, error) {
	var s domain.OutreachSend
	err := row.Scan(&s.ID, &s.PropertyID, &s.ContactID, &s.Channel, &s.Recipient, &s.Subject, &s.Body,
		&s.ThreadID, &s.MessageID, &s.Status, &s.SentAt, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (r *Repository) CreateSend(ctx context.Context, s domain.OutreachSend) error {
	_, err := execBuilder(ctx, r.db, r.sb.Insert("outreach_sends").
		Columns("id", "property_id", "contact_id", "channel", "recipient", "subject", "body",
			"thread_id", "message_id", "status", "sent_at", "created_at", "updated_at").
		Values(s.ID, s.PropertyID, s.ContactID, s.Channel, s.Recipient, s.Subject, s.Body,
			s.ThreadID, s.MessageID, s.Status, s.SentAt, s.CreatedAt, s.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert outreach send: %w", err)
	}
	return nil
}

func (r *Repository) GetSend(ctx context.Context, id string) (domain.OutreachSend, error) {
	return r.getSendWhere(ctx, sq.Eq{"id": id}, id)
}

// FindSendByThread returns the latest send in a mail thread.
func (r *Repository) FindSendByThread(ctx context.Context, threadID string) (domain.OutreachSend, error) {
	return r.getSendWhere(ctx, sq.Eq{"thread_id": threadID}, threadID)
}

// FindSendByMessageID matches an In-Reply-To header to the original send.
func (r *Repository) FindSendByMessageID(ctx context.Context, messageID string) (domain.OutreachSend, error) {
	return r.getSendWhere(ctx, sq.Eq{"message_id": messageID}, messageID)
}

func (r *Repository) getSendWhere(ctx context.Context, where sq.Eq, key string) (domain.OutreachSend, error) {
	row, err := queryRow(ctx, r.db, r.sb.Select(sendColumns...).From("outreach_sends").Where(where).
		OrderBy("sent_at DESC").Limit(1))
	if err != nil {
		return domain.OutreachSend{}, err
	}
	s, err := scanSend(row)
	if err != nil {
		return domain.OutreachSend{}, fmt.Errorf("get outreach send %s: %w", key, classify(err))
	}
	return s, nil
}

func (r *Repository) ListSends(ctx context.Context, filter domain.OutreachFilter) ([]domain.OutreachSend, error) {
	b := r.sb.Select(sendColumns...).From("outreach_sends").
		OrderBy("sent_at DESC", "id").
		Limit(pageLimit(filter.Limit)).
		Offset(pageOffset(filter.Offset))
	if filter.PropertyID != "" {
		b = b.Where(sq.Eq{"property_id": filter.PropertyID})
	}
	if filter.ThreadID != "" {
		b = b.Where(sq.Eq{"thread_id": filter.ThreadID})
	}

	var out []domain.OutreachSend
	err := queryAll(ctx, r.db, b, func(row rowScanner) error {
		s, err := scanSend(row)
		if err != nil {
			return err
		}
		out = append(out, s)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list outreach sends: %w", err)
	}
	return out, nil
}

func (r *Repository) UpdateSendStatus(ctx context.Context, id, status string, now time.Time) error {
	affected, err := execBuilder(ctx, r.db, r.sb.Update("outreach_sends").
		Set("status", status).
		Set("updated_at", now.UTC()).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("update outreach send: %w", err)
	}
	return requireAffected(affected, "outreach send", id)
}

func (r *Repository) CreateResponse(ctx context.Context, resp domain.OutreachResponse) error {
	_, err := execBuilder(ctx, r.db, r.sb.Insert("outreach_responses").
		Columns("id", "send_id", "thread_id", "in_reply_to", "sender", "body_text", "received_at", "created_at").
		Values(resp.ID, resp.SendID, resp.ThreadID, resp.InReplyTo, resp.Sender, resp.BodyText, resp.ReceivedAt, resp.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert outreach response: %w", err)
	}
	return nil
}

// ListResponses returns replies newest first. PropertyID filters through the linked send.
func (r *Repository) ListResponses(ctx context.Context, filter domain.OutreachFilter) ([]domain.OutreachResponse, error) {
	b := r.sb.Select("id", "COALESCE(send_id, '')", "COALESCE(thread_id, '')", "COALESCE(in_reply_to, '')",
		"COALESCE(sender, '')", "COALESCE(body_text, '')", "received_at", "created_at").
		From("outreach_responses").
		OrderBy("received_at DESC", "id").
		Limit(pageLimit(filter.Limit)).
		Offset(pageOffset(filter.Offset))
	if filter.ThreadID != "" {
		b = b.Where(sq.Eq{"thread_id": filter.ThreadID})
	}
	if filter.PropertyID != "" {
		b = b.Where(subquery("send_id", r.sb.Select("id").From("outreach_sends").Where(sq.Eq{"property_id": filter.PropertyID})))
	}

	var out []domain.OutreachResponse
	err := queryAll(ctx, r.db, b, func(row rowScanner) error {
		var resp domain.OutreachResponse
		if err := row.Scan(&resp.ID, &resp.SendID, &resp.ThreadID, &resp.InReplyTo, &resp.Sender,
			&resp.BodyText, &resp.ReceivedAt, &resp.CreatedAt); err != nil {
			return err
		}
		out = append(out, resp)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list outreach responses: %w", err)
	}
	return out, nil
}
