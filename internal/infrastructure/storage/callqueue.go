package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/Norvan25/homenest-nous-sub002/internal/domain"
	"github.com/Norvan25/homenest-nous-sub002/internal/ports"
)

var _ ports.CallQueueRepository = (*Repository)(nil)

// claimAttempts bounds how often ClaimNextQueued retries after losing a race.
const claimAttempts = 5

const queueStateID = 1

var queueColumns = []string{
	"id", "property_id", "contact_id", "phone_id", "phone_number", "status", "priority", "attempts",
	"COALESCE(conversation_id, '')", "COALESCE(call_sid, '')", "COALESCE(summary, '')",
	"COALESCE(duration_seconds, 0)", "COALESCE(error_message, '')",
	"started_at", "completed_at", "created_at", "updated_at",
}

func scanQueueItem(row rowScanner) (domain.CallQueueItem, error) {
	var (
		item               domain.CallQueueItem
		status             string
		started, completed sql.NullTime
	)
	err := row.Scan(&item.ID, &item.PropertyID, &item.ContactID, &item.PhoneID, &item.PhoneNumber,
		&status, &item.Priority, &item.Attempts, &item.ConversationID, &item.CallSID, &item.Summary,
		&item.DurationSeconds, &item.ErrorMessage, &started, &completed, &item.CreatedAt, &item.UpdatedAt)
	item.Status = domain.CallStatus(status)
	item.StartedAt = timePtr(started)
	item.CompletedAt = timePtr(completed)
	return item, err
}

// CreateQueueItems inserts all items in one statement.
func (r *Repository) CreateQueueItems(ctx context.Context, items []domain.CallQueueItem) error {
	if len(items) == 0 {
		return nil
	}

	b := r.sb.Insert("call_queue_items").Columns(
		"id", "property_id", "contact_id", "phone_id", "phone_number", "status", "priority", "attempts",
		"conversation_id", "call_sid", "summary", "duration_seconds", "error_message",
		"started_at", "completed_at", "created_at", "updated_at")
	for _, it := range items {
		b = b.Values(it.ID, it.PropertyID, it.ContactID, it.PhoneID, it.PhoneNumber, string(it.Status), it.Priority, it.Attempts,
			it.ConversationID, it.CallSID, it.Summary, it.DurationSeconds, it.ErrorMessage,
			nullTime(it.StartedAt), nullTime(it.CompletedAt), it.CreatedAt, it.UpdatedAt)
	}

	if _, err := execBuilder(ctx, r.db, b); err != nil {
		return fmt.Errorf("insert queue items: %w", classify(err))
	}
	return nil
}

// ListQueueItems returns items in dial order: priority, then age.
func (r *Repository) ListQueueItems(ctx context.Context, filter domain.CallQueueFilter) ([]domain.CallQueueItem, error) {
	b := r.sb.Select(queueColumns...).From("call_queue_items").
		OrderBy("priority DESC", "created_at", "id").
		Limit(pageLimit(filter.Limit)).
		Offset(pageOffset(filter.Offset))
	if filter.Status != "" {
		b = b.Where(sq.Eq{"status": string(filter.Status)})
	}
	if filter.PropertyID != "" {
		b = b.Where(sq.Eq{"property_id": filter.PropertyID})
	}

	var out []domain.CallQueueItem
	err := queryAll(ctx, r.db, b, func(row rowScanner) error {
		item, err := scanQueueItem(row)
		if err != nil {
			return err
		}
		out = append(out, item)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list queue items: %w", err)
	}
	return out, nil
}

// GetQueueItem loads one item by id.
func (r *Repository) GetQueueItem(ctx context.Context, id string) (domain.CallQueueItem, error) {
	return r.getQueueItemWhere(ctx, sq.Eq{"id": id}, id)
}

// GetQueueItemByConversation loads the item a telephony conversation belongs to.
func (r *Repository) GetQueueItemByConversation(ctx context.Context, conversationID string) (domain.CallQueueItem, error) {
	return r.getQueueItemWhere(ctx, sq.Eq{"conversation_id": conversationID}, conversationID)
}

func (r *Repository) getQueueItemWhere(ctx context.Context, where sq.Eq, key string) (domain.CallQueueItem, error) {
	row, err := queryRow(ctx, r.db, r.sb.Select(queueColumns...).From("call_queue_items").Where(where).
		OrderBy("created_at DESC").Limit(1))
	if err != nil {
		return domain.CallQueueItem{}, err
	}
	item, err := scanQueueItem(row)
	if err != nil {
		return domain.CallQueueItem{}, fmt.Errorf("get queue item %s: %w", key, classify(err))
	}
	return item, nil
}

// ActivePhones returns a set of the phone IDs that already have an active item.
func (r *Repository) ActivePhones(ctx context.Context, phoneIDs []string) (map[string]bool, error) {
	result := make(map[string]bool)
	if len(phoneIDs) == 0 {
		return result, nil
	}

	err := queryAll(ctx, r.db, r.sb.Select("phone_id").From("call_queue_items").Where(sq.And{
		sq.Eq{"phone_id": phoneIDs},
		sq.Eq{"status": []string{string(domain.CallQueued), string(domain.CallCalling)}},
	}), func(row rowScanner) error {
		var id string
		if err := row.Scan(&id); err != nil {
			return err
		}
		result[id] = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query active phones: %w", err)
	}
	return result, nil
}

// ClaimNextQueued picks the best queued item and flips it to calling with a
// conditional update. Losing the race to another caller retries with the
// next candidate.
func (r *Repository) ClaimNextQueued(ctx context.Context, now time.Time) (domain.CallQueueItem, bool, error) {
	for attempt := 0; attempt < claimAttempts; attempt++ {
		row, err := queryRow(ctx, r.db, r.sb.Select(queueColumns...).From("call_queue_items").
			Where(sq.Eq{"status": string(domain.CallQueued)}).
			OrderBy("priority DESC", "created_at", "id").
			Limit(1))
		if err != nil {
			return domain.CallQueueItem{}, false, err
		}

		item, err := scanQueueItem(row)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.CallQueueItem{}, false, nil
		}
		if err != nil {
			return domain.CallQueueItem{}, false, fmt.Errorf("select next queued: %w", err)
		}

		item.Status = domain.CallCalling
		item.Attempts++
		item.StartedAt = &now
		item.UpdatedAt = now

		claimed, err := r.UpdateQueueItem(ctx, item, domain.CallQueued)
		if err != nil {
			return domain.CallQueueItem{}, false, err
		}
		if claimed {
			return item, true, nil
		}
	}
	return domain.CallQueueItem{}, false, fmt.Errorf("claim next queued: %w", domain.ErrConflict)
}

// CountQueueItems counts items in a status.
func (r *Repository) CountQueueItems(ctx context.Context, status domain.CallStatus) (int, error) {
	row, err := queryRow(ctx, r.db, r.sb.Select("COUNT(*)").From("call_queue_items").Where(sq.Eq{"status": string(status)}))
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count queue items: %w", err)
	}
	return n, nil
}

// UpdateQueueItem writes the mutable columns if the stored status is still from.
func (r *Repository) UpdateQueueItem(ctx context.Context, item domain.CallQueueItem, from domain.CallStatus) (bool, error) {
	affected, err := execBuilder(ctx, r.db, r.sb.Update("call_queue_items").SetMap(map[string]any{
		"status":           string(item.Status),
		"priority":         item.Priority,
		"attempts":         item.Attempts,
		"conversation_id":  item.ConversationID,
		"call_sid":         item.CallSID,
		"summary":          item.Summary,
		"duration_seconds": item.DurationSeconds,
		"error_message":    item.ErrorMessage,
		"started_at":       nullTime(item.StartedAt),
		"completed_at":     nullTime(item.CompletedAt),
		"updated_at":       item.UpdatedAt,
	}).Where(sq.Eq{"id": item.ID, "status": string(from)}))
	if err != nil {
		return false, fmt.Errorf("update queue item %s: %w", item.ID, classify(err))
	}
	return affected == 1, nil
}

// CancelQueued cancels queued items, all of them or only those of phoneID,
// and returns the rows it changed.
func (r *Repository) CancelQueued(ctx context.Context, phoneID string, now time.Time) ([]domain.CallQueueItem, error) {
	sel := r.sb.Select(queueColumns...).From("call_queue_items").
		Where(sq.Eq{"status": string(domain.CallQueued)}).
		OrderBy("priority DESC", "created_at", "id")
	if phoneID != "" {
		sel = sel.Where(sq.Eq{"phone_id": phoneID})
	}

	var cancelled []domain.CallQueueItem
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var queued []domain.CallQueueItem
		err := queryAll(ctx, tx, sel, func(row rowScanner) error {
			item, err := scanQueueItem(row)
			if err != nil {
				return err
			}
			queued = append(queued, item)
			return nil
		})
		if err != nil {
			return fmt.Errorf("select queued: %w", err)
		}

		for _, item := range queued {
			affected, err := execBuilder(ctx, tx, r.sb.Update("call_queue_items").SetMap(map[string]any{
				"status":       string(domain.CallCancelled),
				"completed_at": now,
				"updated_at":   now,
			}).Where(sq.Eq{"id": item.ID, "status": string(domain.CallQueued)}))
			if err != nil {
				return fmt.Errorf("cancel queue item %s: %w", item.ID, err)
			}
			if affected == 0 {
				continue
			}
			item.Status = domain.CallCancelled
			item.CompletedAt = &now
			item.UpdatedAt = now
			cancelled = append(cancelled, item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

// ListStaleCalling returns calling items started before the cutoff.
func (r *Repository) ListStaleCalling(ctx context.Context, startedBefore time.Time) ([]domain.CallQueueItem, error) {
	var out []domain.CallQueueItem
	err := queryAll(ctx, r.db, r.sb.Select(queueColumns...).From("call_queue_items").Where(sq.And{
		sq.Eq{"status": string(domain.CallCalling)},
		sq.Lt{"started_at": startedBefore},
	}).OrderBy("started_at"), func(row rowScanner) error {
		item, err := scanQueueItem(row)
		if err != nil {
			return err
		}
		out = append(out, item)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list stale calls: %w", err)
	}
	return out, nil
}

// GetQueueState returns the singleton run flag; a missing row means stopped.
func (r *Repository) GetQueueState(ctx context.Context) (domain.CallQueueState, error) {
	row, err := queryRow(ctx, r.db, r.sb.Select("running", "started_at", "paused_at", "COALESCE(updated_by, '')", "updated_at").
		From("call_queue_state").Where(sq.Eq{"id": queueStateID}))
	if err != nil {
		return domain.CallQueueState{}, err
	}

	var (
		state           domain.CallQueueState
		started, paused sql.NullTime
	)
	err = row.Scan(&state.Running, &started, &paused, &state.UpdatedBy, &state.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CallQueueState{}, nil
	}
	if err != nil {
		return domain.CallQueueState{}, fmt.Errorf("get queue state: %w", err)
	}
	state.StartedAt = timePtr(started)
	state.PausedAt = timePtr(paused)
	return state, nil
}

// SaveQueueState upserts the singleton run flag.
func (r *Repository) SaveQueueState(ctx context.Context, state domain.CallQueueState) error {
	_, err := execBuilder(ctx, r.db, r.sb.Insert("call_queue_state").
		Columns("id", "running", "started_at", "paused_at", "updated_by", "updated_at").
		Values(queueStateID, state.Running, nullTime(state.StartedAt), nullTime(state.PausedAt), state.UpdatedBy, state.UpdatedAt).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			running = EXCLUDED.running,
			started_at = EXCLUDED.started_at,
			paused_at = EXCLUDED.paused_at,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at`))
	if err != nil {
		return fmt.Errorf("save queue state: %w", err)
	}
	return nil
}
