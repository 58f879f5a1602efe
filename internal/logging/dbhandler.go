package logging

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Norvan25/homenest-nous-sub002/internal/domain"
	"github.com/Norvan25/homenest-nous-sub002/internal/ports"
)

const sinkTimeout = 2 * time.Second

// DBHandler forwards every record to next and copies records at or above
// minLevel into the debug log table. Sink failures are dropped.
type DBHandler struct {
	next     slog.Handler
	sink     ports.DebugLogRepository
	minLevel slog.Level
	attrs    []slog.Attr
	group    string
}

// NewDBHandler wraps next with a debug-log sink.
func NewDBHandler(next slog.Handler, sink ports.DebugLogRepository, minLevel slog.Level) *DBHandler {
	return &DBHandler{next: next, sink: sink, minLevel: minLevel}
}

// Enabled defers to the wrapped handler unless the sink wants the record.
func (h *DBHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level) || (h.sink != nil && level >= h.minLevel)
}

// Handle writes to next and, for severe records, to the sink.
func (h *DBHandler) Handle(ctx context.Context, rec slog.Record) error {
	var err error
	if h.next.Enabled(ctx, rec.Level) {
		err = h.next.Handle(ctx, rec)
	}

	if h.sink == nil || rec.Level < h.minLevel {
		return err
	}

	attrs := make(map[string]any, rec.NumAttrs()+len(h.attrs))
	source := ""
	collect := func(a slog.Attr) bool {
		key := a.Key
		if h.group != "" {
			key = h.group + "." + key
		}
		if a.Key == "component" {
			source = a.Value.String()
		}
		attrs[key] = a.Value.Resolve().Any()
		return true
	}
	for _, a := range h.attrs {
		collect(a)
	}
	rec.Attrs(collect)

	encoded, mErr := json.Marshal(attrs)
	if mErr != nil {
		encoded = []byte("{}")
	}

	sinkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sinkTimeout)
	defer cancel()
	_ = h.sink.InsertDebugLog(sinkCtx, domain.DebugLog{
		ID:        uuid.NewString(),
		Level:     rec.Level.String(),
		Message:   rec.Message,
		Attrs:     string(encoded),
		Source:    source,
		CreatedAt: rec.Time.UTC(),
	})

	return err
}

// WithAttrs keeps attributes for both outputs.
func (h *DBHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.next = h.next.WithAttrs(attrs)
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

// WithGroup prefixes sink attribute keys with the group name.
func (h *DBHandler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.next = h.next.WithGroup(name)
	if clone.group == "" {
		clone.group = name
	} else {
		clone.group = clone.group + "." + name
	}
	return &clone
}
