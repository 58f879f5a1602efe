package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Norvan25/homenest-nous-sub002/internal/domain"
	"github.com/Norvan25/homenest-nous-sub002/internal/infrastructure/storage"
)

type queueFixture struct {
	repo     *storage.Repository
	leads    *Leads
	crm      *CRM
	queue    *CallQueue
	reports  *CallReports
	dialer   *fakeDialer
	notifier *fakeNotifier
	events   *fakeEvents
}

func newQueueFixture(t *testing.T) queueFixture {
	t.Helper()
	repo := newRepo(t)
	logger := discardLogger()

	f := queueFixture{repo: repo, dialer: &fakeDialer{}, notifier: &fakeNotifier{}, events: &fakeEvents{}}
	f.queue = NewCallQueue(CallQueueDeps{
		Queue: repo, Properties: repo, Dialer: f.dialer, Events: f.events, Clock: fixedClock, Logger: logger,
	})
	f.leads = NewLeads(LeadsDeps{Properties: repo, Calls: f.queue, Clock: fixedClock, Logger: logger})
	f.crm = NewCRM(CRMDeps{Leads: repo, Properties: repo, Clock: fixedClock, Logger: logger})
	f.reports = NewCallReports(CallReportsDeps{Queue: f.queue, CRM: f.crm, Notifier: f.notifier, Logger: logger})
	return f
}

func TestEnqueueSkipsDNCAndActivePhones(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newQueueFixture(t)
	g := seedGraph(t, f.leads, "12 Elm St", "+15125550100", "dnc:+15125550101", "+15125550102")

	items, err := f.queue.Enqueue(ctx, g.property.ID, 1)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	for _, it := range items {
		if it.PhoneNumber == "+15125550101" {
			t.Fatal("DNC phone was enqueued")
		}
		if it.Status != domain.CallQueued {
			t.Fatalf("expected queued, got %s", it.Status)
		}
	}

	if _, err := f.queue.Enqueue(ctx, g.property.ID, 1); !errors.Is(err, domain.ErrInvalid) {
		t.Fatalf("expected ErrInvalid on second enqueue, got %v", err)
	}
	if f.events.count(domain.EventQueueItemUpdated) != 2 {
		t.Fatalf("expected 2 queue events, got %d", f.events.count(domain.EventQueueItemUpdated))
	}
}

func TestStartSkipsPhonesThatBecameUndialable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newQueueFixture(t)
	// no queue wiring: items stay queued and only the dial-time check stops them
	edits := NewLeads(LeadsDeps{Properties: f.repo, Clock: fixedClock, Logger: discardLogger()})

	flagged := seedGraph(t, f.leads, "1 Flag Rd", "+15125550100")
	removed := seedGraph(t, f.leads, "2 Gone Rd", "+15125550200")
	kept := seedGraph(t, f.leads, "3 Kept Rd", "+15125550300")
	for i, g := range []seededGraph{flagged, removed, kept} {
		if _, err := f.queue.Enqueue(ctx, g.property.ID, 10-i); err != nil {
			t.Fatalf("enqueue %s: %v", g.property.Address, err)
		}
	}

	dnc := true
	if _, err := edits.UpdatePhone(ctx, flagged.phones[0].ID, domain.PhonePatch{IsDNC: &dnc}); err != nil {
		t.Fatalf("flag dnc: %v", err)
	}
	if err := edits.DeleteContact(ctx, removed.contact.ID); err != nil {
		t.Fatalf("delete contact: %v", err)
	}

	res, err := f.queue.Start(ctx, "u")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := strings.Join(f.dialer.dialed(), ","); got != "+15125550300" {
		t.Fatalf("only the dialable phone may be called, dialed %s", got)
	}
	if res.Dialed == nil || res.Dialed.PhoneID != kept.phones[0].ID {
		t.Fatalf("unexpected dialed item: %+v", res.Dialed)
	}

	cancelled, err := f.queue.List(ctx, domain.CallQueueFilter{Status: domain.CallCancelled})
	if err != nil {
		t.Fatalf("list cancelled: %v", err)
	}
	reasons := map[string]string{}
	for _, it := range cancelled {
		reasons[it.PhoneID] = it.ErrorMessage
	}
	if reasons[flagged.phones[0].ID] != phoneDNCMessage || reasons[removed.phones[0].ID] != phoneRemovedMessage {
		t.Fatalf("unexpected cancellations: %v", reasons)
	}
}

func TestUndialablePhonesAreWithdrawnFromQueue(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newQueueFixture(t)
	g := seedGraph(t, f.leads, "12 Elm St", "+15125550100", "+15125550102")
	other := seedGraph(t, f.leads, "14 Elm St", "+15125550104")
	if _, err := f.queue.Enqueue(ctx, g.property.ID, 0); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, err := f.queue.Enqueue(ctx, other.property.ID, 0); err != nil {
		t.Fatalf("enqueue other: %v", err)
	}

	dnc := true
	if _, err := f.leads.UpdatePhone(ctx, g.phones[0].ID, domain.PhonePatch{IsDNC: &dnc}); err != nil {
		t.Fatalf("flag dnc: %v", err)
	}
	if err := f.leads.DeletePhone(ctx, g.phones[1].ID); err != nil {
		t.Fatalf("delete phone: %v", err)
	}
	if err := f.leads.DeleteContact(ctx, other.contact.ID); err != nil {
		t.Fatalf("delete contact: %v", err)
	}

	queued, err := f.queue.List(ctx, domain.CallQueueFilter{Status: domain.CallQueued})
	if err != nil {
		t.Fatalf("list queued: %v", err)
	}
	if len(queued) != 0 {
		t.Fatalf("expected every item withdrawn, still queued: %+v", queued)
	}
	cancelled, err := f.queue.List(ctx, domain.CallQueueFilter{Status: domain.CallCancelled})
	if err != nil || len(cancelled) != 3 {
		t.Fatalf("expected 3 cancelled items, got %+v %v", cancelled, err)
	}
	if f.events.count(domain.EventQueueItemUpdated) != 6 {
		t.Fatalf("expected 3 enqueue and 3 withdraw events, got %d", f.events.count(domain.EventQueueItemUpdated))
	}
}

func TestStartWithoutDialerLeavesQueueStopped(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newRepo(t)
	queue := NewCallQueue(CallQueueDeps{Queue: repo, Properties: repo, Clock: fixedClock, Logger: discardLogger()})

	if _, err := queue.Start(ctx, "u"); !errors.Is(err, errDialerMissing) {
		t.Fatalf("expected errDialerMissing, got %v", err)
	}
	state, err := queue.State(ctx)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if state.Running {
		t.Fatalf("queue must stay stopped without a dialer: %+v", state)
	}
}

func TestStartKeepsPausedAt(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newQueueFixture(t)
	paused, err := f.queue.Pause(ctx, "u")
	if err != nil || paused.PausedAt == nil {
		t.Fatalf("pause: %+v %v", paused, err)
	}

	res, err := f.queue.Start(ctx, "u2")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !res.State.Running || res.State.PausedAt == nil || !res.State.PausedAt.Equal(*paused.PausedAt) {
		t.Fatalf("start dropped the pause time: %+v", res.State)
	}
	stored, err := f.queue.State(ctx)
	if err != nil || stored.PausedAt == nil || stored.UpdatedBy != "u2" {
		t.Fatalf("unexpected stored state: %+v %v", stored, err)
	}
}

func TestEnqueueUnknownProperty(t *testing.T) {
	t.Parallel()

	f := newQueueFixture(t)
	if _, err := f.queue.Enqueue(context.Background(), "missing", 0); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStartDialsByPriorityAndSkipsFailedDials(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newQueueFixture(t)
	low := seedGraph(t, f.leads, "1 Low Rd", "+15125550200")
	high := seedGraph(t, f.leads, "2 High Rd", "+15125550300")

	if _, err := f.queue.Enqueue(ctx, low.property.ID, 0); err != nil {
		t.Fatalf("enqueue low: %v", err)
	}
	if _, err := f.queue.Enqueue(ctx, high.property.ID, 10); err != nil {
		t.Fatalf("enqueue high: %v", err)
	}
	f.dialer.fail = map[string]error{"+15125550300": errVendorDown}

	res, err := f.queue.Start(ctx, "user-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !res.State.Running || res.State.UpdatedBy != "user-1" {
		t.Fatalf("unexpected state: %+v", res.State)
	}
	if res.Dialed == nil || res.Dialed.PhoneNumber != "+15125550200" || res.Dialed.ConversationID != "conv-+15125550200" {
		t.Fatalf("unexpected dialed item: %+v", res.Dialed)
	}
	if got := strings.Join(f.dialer.dialed(), ","); got != "+15125550300,+15125550200" {
		t.Fatalf("unexpected dial order: %s", got)
	}

	failed, err := f.queue.List(ctx, domain.CallQueueFilter{Status: domain.CallFailed})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(failed) != 1 || !strings.Contains(failed[0].ErrorMessage, "vendor down") {
		t.Fatalf("expected one failed item with the dial error, got %+v", failed)
	}
	if f.dialer.calls[1].Variables["owner_name"] != "Dana Ruiz" || f.dialer.calls[1].Variables["contact_name"] != "Dana Ruiz" {
		t.Fatalf("call variables not populated: %+v", f.dialer.calls[1].Variables)
	}
}

func TestStartDoesNotDialWhileCallInFlight(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newQueueFixture(t)
	g := seedGraph(t, f.leads, "12 Elm St", "+15125550100", "+15125550102")
	if _, err := f.queue.Enqueue(ctx, g.property.ID, 0); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if _, err := f.queue.Start(ctx, "u"); err != nil {
		t.Fatalf("first start: %v", err)
	}
	res, err := f.queue.Start(ctx, "u")
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if res.Dialed != nil {
		t.Fatalf("second start dialed %+v while a call was in flight", res.Dialed)
	}
	if len(f.dialer.dialed()) != 1 {
		t.Fatalf("expected one dial, got %v", f.dialer.dialed())
	}
}

func TestCallReportCompletesCallAndAdvances(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newQueueFixture(t)
	g := seedGraph(t, f.leads, "12 Elm St", "+15125550100", "+15125550102")
	lead, err := f.crm.CreateLead(ctx, NewLeadInput{PropertyID: g.property.ID}, "u")
	if err != nil {
		t.Fatalf("create lead: %v", err)
	}
	if _, err := f.queue.Enqueue(ctx, g.property.ID, 0); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	res, err := f.queue.Start(ctx, "u")
	if err != nil || res.Dialed == nil {
		t.Fatalf("start: %+v %v", res, err)
	}

	status, err := f.reports.Handle(ctx, domain.CallReport{
		Type:           "post_call_transcription",
		ConversationID: res.Dialed.ConversationID,
		Outcome:        domain.CallOutcome{Status: domain.CallCompleted, Summary: "Owner wants an offer.", DurationSeconds: 95, Successful: true},
	})
	if err != nil || status != ReportProcessed {
		t.Fatalf("handle: %s %v", status, err)
	}

	done, err := f.queue.List(ctx, domain.CallQueueFilter{Status: domain.CallCompleted})
	if err != nil || len(done) != 1 || done[0].Summary != "Owner wants an offer." || done[0].CompletedAt == nil {
		t.Fatalf("expected completed item, got %+v %v", done, err)
	}

	got, err := f.crm.GetLead(ctx, lead.ID)
	if err != nil {
		t.Fatalf("get lead: %v", err)
	}
	if got.Status != domain.LeadContacted {
		t.Fatalf("expected lead promoted to contacted, got %s", got.Status)
	}
	activities, err := f.crm.ListActivities(ctx, lead.ID)
	if err != nil {
		t.Fatalf("list activities: %v", err)
	}
	kinds := map[domain.ActivityKind]int{}
	for _, a := range activities {
		kinds[a.Kind]++
	}
	if kinds[domain.ActivityCall] != 1 || kinds[domain.ActivityStatusChange] != 1 {
		t.Fatalf("unexpected activities: %+v", activities)
	}

	if len(f.notifier.messages) != 1 {
		t.Fatalf("expected one notification, got %v", f.notifier.messages)
	}
	if len(f.dialer.dialed()) != 2 {
		t.Fatalf("expected the running queue to dial the next item, dialed %v", f.dialer.dialed())
	}

	again, err := f.reports.Handle(ctx, domain.CallReport{ConversationID: res.Dialed.ConversationID, Outcome: domain.CallOutcome{Status: domain.CallCompleted}})
	if err != nil || again != ReportDuplicate {
		t.Fatalf("expected duplicate, got %s %v", again, err)
	}
}

func TestCallReportPausedQueueDoesNotAdvance(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newQueueFixture(t)
	g := seedGraph(t, f.leads, "12 Elm St", "+15125550100", "+15125550102")
	if _, err := f.queue.Enqueue(ctx, g.property.ID, 0); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	res, err := f.queue.Start(ctx, "u")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.queue.Pause(ctx, "u"); err != nil {
		t.Fatalf("pause: %v", err)
	}

	status, err := f.reports.Handle(ctx, domain.CallReport{
		ConversationID: res.Dialed.ConversationID,
		Outcome:        domain.CallOutcome{Status: domain.CallNoAnswer, ErrorMessage: "busy"},
	})
	if err != nil || status != ReportProcessed {
		t.Fatalf("handle: %s %v", status, err)
	}
	if len(f.dialer.dialed()) != 1 {
		t.Fatalf("paused queue dialed again: %v", f.dialer.dialed())
	}
	if len(f.notifier.messages) != 0 {
		t.Fatalf("unsuccessful call must not notify: %v", f.notifier.messages)
	}
}

func TestCallReportUnknownConversationIgnored(t *testing.T) {
	t.Parallel()

	f := newQueueFixture(t)
	status, err := f.reports.Handle(context.Background(), domain.CallReport{ConversationID: "conv-unknown", Outcome: domain.CallOutcome{Status: domain.CallCompleted}})
	if err != nil || status != ReportIgnored {
		t.Fatalf("expected ignored, got %s %v", status, err)
	}
}

func TestCancelRetryAndClear(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newQueueFixture(t)
	g := seedGraph(t, f.leads, "12 Elm St", "+15125550100", "+15125550102", "+15125550104")
	items, err := f.queue.Enqueue(ctx, g.property.ID, 0)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	cancelled, err := f.queue.Cancel(ctx, items[0].ID)
	if err != nil || cancelled.Status != domain.CallCancelled {
		t.Fatalf("cancel: %+v %v", cancelled, err)
	}
	if _, err := f.queue.Cancel(ctx, items[0].ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on second cancel, got %v", err)
	}
	if _, err := f.queue.Retry(ctx, items[0].ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("cancelled items are final, got %v", err)
	}

	before := len(f.events.snapshot())
	n, err := f.queue.Clear(ctx)
	if err != nil || n != 2 {
		t.Fatalf("clear: %d %v", n, err)
	}

	cleared := f.events.snapshot()[before:]
	if len(cleared) != 2 {
		t.Fatalf("expected one event per cleared item, got %+v", cleared)
	}
	for _, ev := range cleared {
		item, ok := ev.Payload.(domain.CallQueueItem)
		if ev.Type != domain.EventQueueItemUpdated || !ok || item.Status != domain.CallCancelled || item.ID == items[0].ID {
			t.Fatalf("unexpected clear event: %+v", ev)
		}
	}
}

func TestRetryRequeuesFailedItem(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newQueueFixture(t)
	g := seedGraph(t, f.leads, "12 Elm St", "+15125550100")
	if _, err := f.queue.Enqueue(ctx, g.property.ID, 0); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	f.dialer.fail = map[string]error{"+15125550100": errVendorDown}
	if _, err := f.queue.Start(ctx, "u"); err != nil {
		t.Fatalf("start: %v", err)
	}

	failed, err := f.queue.List(ctx, domain.CallQueueFilter{Status: domain.CallFailed})
	if err != nil || len(failed) != 1 {
		t.Fatalf("expected one failed item: %+v %v", failed, err)
	}

	retried, err := f.queue.Retry(ctx, failed[0].ID)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if retried.Status != domain.CallQueued || retried.ErrorMessage != "" || retried.StartedAt != nil || retried.Attempts != 1 {
		t.Fatalf("unexpected retried item: %+v", retried)
	}

	if _, err := f.queue.Retry(ctx, retried.ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("queued items cannot be retried, got %v", err)
	}

	if _, err := f.queue.Start(ctx, "u"); err != nil {
		t.Fatalf("restart: %v", err)
	}
	dnc := true
	if _, err := f.leads.UpdatePhone(ctx, g.phones[0].ID, domain.PhonePatch{IsDNC: &dnc}); err != nil {
		t.Fatalf("flag dnc: %v", err)
	}
	if _, err := f.queue.Retry(ctx, retried.ID); !errors.Is(err, domain.ErrInvalid) {
		t.Fatalf("expected DNC phone to block retry, got %v", err)
	}
}

func TestSweepStaleFailsOldCalls(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newQueueFixture(t)
	g := seedGraph(t, f.leads, "12 Elm St", "+15125550100")
	if _, err := f.queue.Enqueue(ctx, g.property.ID, 0); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, err := f.queue.Start(ctx, "u"); err != nil {
		t.Fatalf("start: %v", err)
	}

	n, err := f.queue.SweepStale(ctx, 15*time.Minute)
	if err != nil || n != 0 {
		t.Fatalf("fresh call swept: %d %v", n, err)
	}

	later := testNow.Add(16 * time.Minute)
	f.queue.now = func() time.Time { return later }
	n, err = f.queue.SweepStale(ctx, 15*time.Minute)
	if err != nil || n != 1 {
		t.Fatalf("expected one stale call, got %d %v", n, err)
	}

	failed, err := f.queue.List(ctx, domain.CallQueueFilter{Status: domain.CallFailed})
	if err != nil || len(failed) != 1 || failed[0].ErrorMessage != staleCallMessage {
		t.Fatalf("unexpected failed items: %+v %v", failed, err)
	}
}

func TestRetryConflictsWithActiveItemForSamePhone(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newQueueFixture(t)
	g := seedGraph(t, f.leads, "12 Elm St", "+15125550100")
	if _, err := f.queue.Enqueue(ctx, g.property.ID, 0); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	f.dialer.fail = map[string]error{"+15125550100": errVendorDown}
	if _, err := f.queue.Start(ctx, "u"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.queue.Pause(ctx, "u"); err != nil {
		t.Fatalf("pause: %v", err)
	}

	failed, err := f.queue.List(ctx, domain.CallQueueFilter{Status: domain.CallFailed})
	if err != nil || len(failed) != 1 {
		t.Fatalf("expected one failed item: %+v %v", failed, err)
	}
	if _, err := f.queue.Enqueue(ctx, g.property.ID, 0); err != nil {
		t.Fatalf("re-enqueue: %v", err)
	}

	if _, err := f.queue.Retry(ctx, failed[0].ID); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict while the phone has an active item, got %v", err)
	}
}
