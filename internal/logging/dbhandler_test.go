package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/Norvan25/homenest-nous-sub002/internal/domain"
)

type memorySink struct {
	mu      sync.Mutex
	entries []domain.DebugLog
}

func (m *memorySink) InsertDebugLog(ctx context.Context, entry domain.DebugLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memorySink) ListDebugLogs(ctx context.Context, limit int) ([]domain.DebugLog, error) {
	return m.entries, nil
}

func (m *memorySink) ClearDebugLogs(ctx context.Context) (int, error) {
	return 0, nil
}

func TestDBHandlerPersistsSevereRecords(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	sink := &memorySink{}
	logger := slog.New(NewDBHandler(NewHandler(&out, "info"), sink, slog.LevelError)).
		With("component", "callqueue")

	logger.Info("queue started")
	logger.Error("dial failed", "item_id", "abc")

	if !strings.Contains(out.String(), "queue started") || !strings.Contains(out.String(), "dial failed") {
		t.Fatalf("console output missing records: %s", out.String())
	}
	if len(sink.entries) != 1 {
		t.Fatalf("expected 1 persisted record, got %d", len(sink.entries))
	}

	entry := sink.entries[0]
	if entry.Message != "dial failed" || entry.Level != "ERROR" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if entry.Source != "callqueue" {
		t.Fatalf("expected source from component attr, got %q", entry.Source)
	}
	if !strings.Contains(entry.Attrs, `"item_id":"abc"`) {
		t.Fatalf("attrs not encoded: %s", entry.Attrs)
	}
}

func TestLevelFromString(t *testing.T) {
	t.Parallel()

	if LevelFromString("WARNING") != slog.LevelWarn {
		t.Fatalf("expected warn level")
	}
	if LevelFromString("nonsense") != slog.LevelDebug {
		t.Fatalf("expected debug fallback")
	}
}
