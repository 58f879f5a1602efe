package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Norvan25/homenest-nous-sub002/internal/config"
	"github.com/Norvan25/homenest-nous-sub002/internal/domain"
	"github.com/Norvan25/homenest-nous-sub002/internal/infrastructure/storage"
)

var testNow = time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRepo(t *testing.T) *storage.Repository {
	t.Helper()
	db, err := storage.Open(context.Background(), config.DatabaseConfig{Driver: config.DriverSQLite, DSN: ":memory:"})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return storage.NewRepository(db, config.DriverSQLite)
}

type fakeDialer struct {
	mu    sync.Mutex
	calls []domain.DialRequest
	fail  map[string]error
	seq   int
}

func (d *fakeDialer) StartCall(_ context.Context, req domain.DialRequest) (domain.DialResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, req)
	if err := d.fail[req.ToNumber]; err != nil {
		return domain.DialResult{}, err
	}
	d.seq++
	return domain.DialResult{ConversationID: "conv-" + req.ToNumber, CallSID: "CA" + req.ToNumber}, nil
}

func (d *fakeDialer) dialed() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.calls))
	for i, c := range d.calls {
		out[i] = c.ToNumber
	}
	return out
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *fakeNotifier) Notify(_ context.Context, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
	return nil
}

type fakeEvents struct {
	mu     sync.Mutex
	events []domain.Event
}

func (e *fakeEvents) Publish(_ context.Context, event domain.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return nil
}

func (e *fakeEvents) snapshot() []domain.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]domain.Event(nil), e.events...)
}

func (e *fakeEvents) count(eventType string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, ev := range e.events {
		if ev.Type == eventType {
			n++
		}
	}
	return n
}

type fakeGenerator struct {
	system   string
	messages []domain.ChatMessage
	text     string
	err      error
}

func (g *fakeGenerator) Complete(_ context.Context, system string, messages []domain.ChatMessage, _ int) (domain.Completion, error) {
	g.system, g.messages = system, messages
	if g.err != nil {
		return domain.Completion{}, g.err
	}
	return domain.Completion{Text: g.text, Model: "claude-test", InputTokens: 100, OutputTokens: 40}, nil
}

type fakeStore struct {
	objects map[string][]byte
	err     error
}

func (s *fakeStore) Put(_ context.Context, key string, body []byte, _ string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if s.objects == nil {
		s.objects = map[string][]byte{}
	}
	s.objects[key] = body
	return "https://storage.example.com/" + key, nil
}

var errVendorDown = errors.New("vendor down")

type seededGraph struct {
	property domain.Property
	contact  domain.Contact
	phones   []domain.Phone
}

// seedGraph creates a property with one contact and the given numbers.
// Numbers prefixed with "dnc:" are flagged do-not-call.
func seedGraph(t *testing.T, leads *Leads, address string, numbers ...string) seededGraph {
	t.Helper()
	ctx := context.Background()

	p, err := leads.CreateProperty(ctx, domain.Property{Address: address, City: "Austin", OwnerName: "Dana Ruiz"})
	if err != nil {
		t.Fatalf("create property: %v", err)
	}
	c, err := leads.AddContact(ctx, p.ID, domain.Contact{FirstName: "Dana", LastName: "Ruiz"})
	if err != nil {
		t.Fatalf("add contact: %v", err)
	}
	g := seededGraph{property: p, contact: c}
	for _, n := range numbers {
		dnc := false
		if len(n) > 4 && n[:4] == "dnc:" {
			dnc, n = true, n[4:]
		}
		ph, err := leads.AddPhone(ctx, c.ID, domain.Phone{Number: n, IsDNC: dnc})
		if err != nil {
			t.Fatalf("add phone %s: %v", n, err)
		}
		g.phones = append(g.phones, ph)
	}
	return g
}
