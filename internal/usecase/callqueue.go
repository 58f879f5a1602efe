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

const (
	staleCallMessage    = "call timed out"
	phoneDNCMessage     = "phone is on the do-not-call list"
	phoneRemovedMessage = "phone no longer exists"
)

var errDialerMissing = errors.New("dialer not configured")

// CallQueueDeps wires queue storage, the lead graph and the dialer.
type CallQueueDeps struct {
	Queue      ports.CallQueueRepository
	Properties ports.PropertyRepository
	Dialer     ports.Dialer
	Events     ports.EventPublisher
	Clock      Clock
	Logger     *slog.Logger
}

// CallQueue drives outbound AI calls one at a time. Races between callers
// are settled by conditional row updates in the repository.
type CallQueue struct {
	queue      ports.CallQueueRepository
	properties ports.PropertyRepository
	dialer     ports.Dialer
	events     ports.EventPublisher
	now        Clock
	logger     *slog.Logger
}

// NewCallQueue constructs the queue service.
func NewCallQueue(deps CallQueueDeps) *CallQueue {
	return &CallQueue{
		queue:      deps.Queue,
		properties: deps.Properties,
		dialer:     deps.Dialer,
		events:     deps.Events,
		now:        orClock(deps.Clock),
		logger:     orLogger(deps.Logger, "callqueue"),
	}
}

// Enqueue adds one queued item for every dialable phone of the property.
// DNC phones and phones with an active item are skipped.
func (q *CallQueue) Enqueue(ctx context.Context, propertyID string, priority int) ([]domain.CallQueueItem, error) {
	if _, err := q.properties.GetProperty(ctx, propertyID); err != nil {
		return nil, err
	}
	contacts, err := q.properties.ListContactGraph(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("load contacts: %w", err)
	}

	type candidate struct {
		contact domain.Contact
		phone   domain.Phone
	}
	var (
		candidates []candidate
		phoneIDs   []string
	)
	for _, c := range contacts {
		for _, ph := range c.Phones {
			if ph.IsDNC {
				continue
			}
			candidates = append(candidates, candidate{contact: c, phone: ph})
			phoneIDs = append(phoneIDs, ph.ID)
		}
	}

	active, err := q.queue.ActivePhones(ctx, phoneIDs)
	if err != nil {
		return nil, err
	}

	now := q.now()
	items := make([]domain.CallQueueItem, 0, len(candidates))
	for _, cand := range candidates {
		if active[cand.phone.ID] {
			continue
		}
		items = append(items, domain.CallQueueItem{
			ID:          newID(),
			PropertyID:  propertyID,
			ContactID:   cand.contact.ID,
			PhoneID:     cand.phone.ID,
			PhoneNumber: cand.phone.Number,
			Status:      domain.CallQueued,
			Priority:    priority,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("property %s has no dialable phones: %w", propertyID, domain.ErrInvalid)
	}

	if err := q.queue.CreateQueueItems(ctx, items); err != nil {
		return nil, err
	}
	for _, item := range items {
		emit(ctx, q.events, q.logger, now, domain.EventQueueItemUpdated, item)
	}
	q.logger.Info("property enqueued", "property_id", propertyID, "items", len(items))
	return items, nil
}

func (q *CallQueue) List(ctx context.Context, filter domain.CallQueueFilter) ([]domain.CallQueueItem, error) {
	items, err := q.queue.ListQueueItems(ctx, filter)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.CallQueueItem{}
	}
	return items, nil
}

func (q *CallQueue) State(ctx context.Context) (domain.CallQueueState, error) {
	return q.queue.GetQueueState(ctx)
}

// Start marks the queue running and dials the next item unless a call is
// already in flight.
func (q *CallQueue) Start(ctx context.Context, actor string) (domain.CallStartResult, error) {
	if q.dialer == nil {
		return domain.CallStartResult{}, errDialerMissing
	}
	state, err := q.queue.GetQueueState(ctx)
	if err != nil {
		return domain.CallStartResult{}, err
	}

	now := q.now()
	state.Running = true
	state.StartedAt = &now
	state.UpdatedBy = actor
	state.UpdatedAt = now
	if err := q.queue.SaveQueueState(ctx, state); err != nil {
		return domain.CallStartResult{}, err
	}
	emit(ctx, q.events, q.logger, now, domain.EventQueueState, state)
	q.logger.Info("call queue started", "actor", actor)

	dialed, err := q.advance(ctx)
	if err != nil {
		return domain.CallStartResult{State: state}, err
	}
	return domain.CallStartResult{State: state, Dialed: dialed}, nil
}

// Pause stops dialing further items. A call in flight finishes normally.
func (q *CallQueue) Pause(ctx context.Context, actor string) (domain.CallQueueState, error) {
	state, err := q.queue.GetQueueState(ctx)
	if err != nil {
		return domain.CallQueueState{}, err
	}
	now := q.now()
	state.Running = false
	state.PausedAt = &now
	state.UpdatedBy = actor
	state.UpdatedAt = now
	if err := q.queue.SaveQueueState(ctx, state); err != nil {
		return domain.CallQueueState{}, err
	}
	emit(ctx, q.events, q.logger, now, domain.EventQueueState, state)
	q.logger.Info("call queue paused", "actor", actor)
	return state, nil
}

// Clear cancels every queued item.
func (q *CallQueue) Clear(ctx context.Context) (int, error) {
	cancelled, err := q.queue.CancelQueued(ctx, "", q.now())
	if err != nil {
		return 0, err
	}
	for _, item := range cancelled {
		emit(ctx, q.events, q.logger, item.UpdatedAt, domain.EventQueueItemUpdated, item)
	}
	q.logger.Info("call queue cleared", "cancelled", len(cancelled))
	return len(cancelled), nil
}

// WithdrawPhone cancels the queued items of a phone that must no longer be
// dialed.
func (q *CallQueue) WithdrawPhone(ctx context.Context, phoneID string) (int, error) {
	cancelled, err := q.queue.CancelQueued(ctx, phoneID, q.now())
	if err != nil {
		return 0, err
	}
	for _, item := range cancelled {
		emit(ctx, q.events, q.logger, item.UpdatedAt, domain.EventQueueItemUpdated, item)
	}
	if len(cancelled) > 0 {
		q.logger.Info("phone withdrawn from queue", "phone_id", phoneID, "cancelled", len(cancelled))
	}
	return len(cancelled), nil
}

// Cancel withdraws one queued item.
func (q *CallQueue) Cancel(ctx context.Context, id string) (domain.CallQueueItem, error) {
	item, err := q.queue.GetQueueItem(ctx, id)
	if err != nil {
		return domain.CallQueueItem{}, err
	}
	if item.Status != domain.CallQueued {
		return domain.CallQueueItem{}, fmt.Errorf("cancel %s item: %w", item.Status, domain.ErrInvalidTransition)
	}

	now := q.now()
	item.Status = domain.CallCancelled
	item.CompletedAt = &now
	item.UpdatedAt = now
	if err := q.write(ctx, item, domain.CallQueued); err != nil {
		return domain.CallQueueItem{}, err
	}
	return item, nil
}

// Retry puts a failed or unanswered item back in the queue.
func (q *CallQueue) Retry(ctx context.Context, id string) (domain.CallQueueItem, error) {
	item, err := q.queue.GetQueueItem(ctx, id)
	if err != nil {
		return domain.CallQueueItem{}, err
	}
	from := item.Status
	if !from.CanTransition(domain.CallQueued) {
		return domain.CallQueueItem{}, fmt.Errorf("retry %s item: %w", from, domain.ErrInvalidTransition)
	}

	phone, reason, err := q.dialablePhone(ctx, item.PhoneID)
	if err != nil {
		return domain.CallQueueItem{}, err
	}
	if reason != "" {
		return domain.CallQueueItem{}, fmt.Errorf("phone %s: %s: %w", item.PhoneID, reason, domain.ErrInvalid)
	}
	active, err := q.queue.ActivePhones(ctx, []string{item.PhoneID})
	if err != nil {
		return domain.CallQueueItem{}, err
	}
	if active[item.PhoneID] {
		return domain.CallQueueItem{}, fmt.Errorf("phone %s already queued: %w", item.PhoneID, domain.ErrConflict)
	}

	item.Status = domain.CallQueued
	item.PhoneNumber = phone.Number
	item.ConversationID = ""
	item.CallSID = ""
	item.ErrorMessage = ""
	item.StartedAt = nil
	item.CompletedAt = nil
	item.UpdatedAt = q.now()
	if err := q.write(ctx, item, from); err != nil {
		return domain.CallQueueItem{}, err
	}
	return item, nil
}

// SweepStale fails calls stuck in calling for longer than maxAge and, when
// the queue is running, dials the next item.
func (q *CallQueue) SweepStale(ctx context.Context, maxAge time.Duration) (int, error) {
	now := q.now()
	stale, err := q.queue.ListStaleCalling(ctx, now.Add(-maxAge))
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, item := range stale {
		item.Status = domain.CallFailed
		item.ErrorMessage = staleCallMessage
		item.CompletedAt = &now
		item.UpdatedAt = now
		err := q.write(ctx, item, domain.CallCalling)
		if errors.Is(err, domain.ErrConflict) {
			continue
		}
		if err != nil {
			return swept, err
		}
		swept++
		q.logger.Warn("stale call failed", "item_id", item.ID, "started_at", item.StartedAt)
	}

	if swept > 0 {
		if _, err := q.ContinueIfRunning(ctx); err != nil {
			return swept, err
		}
	}
	return swept, nil
}

// ApplyOutcome finishes the call behind a telephony conversation. Repeated
// callbacks for a finished item are no-ops reported with changed=false.
func (q *CallQueue) ApplyOutcome(ctx context.Context, conversationID string, outcome domain.CallOutcome) (item domain.CallQueueItem, changed bool, err error) {
	item, err = q.queue.GetQueueItemByConversation(ctx, conversationID)
	if err != nil {
		return domain.CallQueueItem{}, false, err
	}
	if item.Status != domain.CallCalling {
		return item, false, nil
	}
	if !item.Status.CanTransition(outcome.Status) {
		return item, false, fmt.Errorf("call outcome %s: %w", outcome.Status, domain.ErrInvalidTransition)
	}

	now := q.now()
	item.Status = outcome.Status
	item.Summary = outcome.Summary
	item.DurationSeconds = outcome.DurationSeconds
	item.ErrorMessage = outcome.ErrorMessage
	item.CompletedAt = &now
	item.UpdatedAt = now
	if err := q.write(ctx, item, domain.CallCalling); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			latest, getErr := q.queue.GetQueueItem(ctx, item.ID)
			if getErr != nil {
				return domain.CallQueueItem{}, false, getErr
			}
			return latest, false, nil
		}
		return domain.CallQueueItem{}, false, err
	}
	emit(ctx, q.events, q.logger, now, domain.EventCallFinished, item)
	return item, true, nil
}

// ContinueIfRunning dials the next item when the queue is running and no
// call is in flight.
func (q *CallQueue) ContinueIfRunning(ctx context.Context) (*domain.CallQueueItem, error) {
	state, err := q.queue.GetQueueState(ctx)
	if err != nil {
		return nil, err
	}
	if !state.Running {
		return nil, nil
	}
	return q.advance(ctx)
}

func (q *CallQueue) advance(ctx context.Context) (*domain.CallQueueItem, error) {
	inFlight, err := q.queue.CountQueueItems(ctx, domain.CallCalling)
	if err != nil {
		return nil, err
	}
	if inFlight > 0 {
		return nil, nil
	}
	return q.dialNext(ctx)
}

// dialNext claims queued items until one is dialed or the queue is empty.
// Items whose phone is DNC or gone are cancelled; a dial error fails the
// item. Both move on to the next one.
func (q *CallQueue) dialNext(ctx context.Context) (*domain.CallQueueItem, error) {
	if q.dialer == nil {
		return nil, errDialerMissing
	}

	for {
		item, ok, err := q.queue.ClaimNextQueued(ctx, q.now())
		if err != nil {
			return nil, err
		}
		if !ok {
			q.logger.Info("call queue drained")
			return nil, nil
		}
		emit(ctx, q.events, q.logger, item.UpdatedAt, domain.EventQueueItemUpdated, item)

		phone, reason, err := q.dialablePhone(ctx, item.PhoneID)
		if err != nil {
			return nil, err
		}
		if reason != "" {
			q.logger.Info("skipping undialable phone", "item_id", item.ID, "reason", reason)
			now := q.now()
			item.Status = domain.CallCancelled
			item.ErrorMessage = reason
			item.CompletedAt = &now
			item.UpdatedAt = now
			if err := q.write(ctx, item, domain.CallCalling); err != nil && !errors.Is(err, domain.ErrConflict) {
				return nil, err
			}
			continue
		}
		item.PhoneNumber = phone.Number

		result, dialErr := q.dialer.StartCall(ctx, domain.DialRequest{
			ToNumber:  item.PhoneNumber,
			Variables: q.callVariables(ctx, item),
		})

		now := q.now()
		item.UpdatedAt = now
		if dialErr != nil {
			q.logger.Error("dial failed", "item_id", item.ID, "error", dialErr)
			item.Status = domain.CallFailed
			item.ErrorMessage = dialErr.Error()
			item.CompletedAt = &now
			if err := q.write(ctx, item, domain.CallCalling); err != nil && !errors.Is(err, domain.ErrConflict) {
				return nil, err
			}
			continue
		}

		item.ConversationID = result.ConversationID
		item.CallSID = result.CallSID
		if err := q.write(ctx, item, domain.CallCalling); err != nil {
			return nil, err
		}
		q.logger.Info("call placed", "item_id", item.ID, "conversation_id", item.ConversationID)
		return &item, nil
	}
}

// dialablePhone loads the phone behind a queue item. A non-empty reason
// means the phone must not be called.
func (q *CallQueue) dialablePhone(ctx context.Context, phoneID string) (domain.Phone, string, error) {
	phone, err := q.properties.GetPhone(ctx, phoneID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return domain.Phone{}, phoneRemovedMessage, nil
	case err != nil:
		return domain.Phone{}, "", err
	case phone.IsDNC:
		return phone, phoneDNCMessage, nil
	}
	return phone, "", nil
}

// callVariables personalise the agent prompt. Missing graph rows only
// shrink the map.
func (q *CallQueue) callVariables(ctx context.Context, item domain.CallQueueItem) map[string]string {
	vars := map[string]string{"queue_item_id": item.ID}
	if p, err := q.properties.GetProperty(ctx, item.PropertyID); err == nil {
		vars["property_address"] = strings.TrimSpace(p.Address + " " + p.City)
		vars["owner_name"] = p.OwnerName
	} else {
		q.logger.Warn("load property for call", "property_id", item.PropertyID, "error", err)
	}
	if c, err := q.properties.GetContact(ctx, item.ContactID); err == nil {
		vars["contact_name"] = c.FullName()
		vars["contact_first_name"] = c.FirstName
	}
	return vars
}

// write stores item if its status is still from and broadcasts it.
func (q *CallQueue) write(ctx context.Context, item domain.CallQueueItem, from domain.CallStatus) error {
	ok, err := q.queue.UpdateQueueItem(ctx, item, from)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("queue item %s changed concurrently: %w", item.ID, domain.ErrConflict)
	}
	emit(ctx, q.events, q.logger, item.UpdatedAt, domain.EventQueueItemUpdated, item)
	return nil
}
