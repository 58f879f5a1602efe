package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Norvan25/homenest-nous-sub002/internal/domain"
	"github.com/Norvan25/homenest-nous-sub002/internal/ports"
)

// Clock returns the current time; tests pin it.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

func orClock(c Clock) Clock {
	if c == nil {
		return systemClock
	}
	return func() time.Time { return c().UTC() }
}

func orLogger(l *slog.Logger, component string) *slog.Logger {
	if l == nil {
		l = slog.Default()
	}
	return l.With("component", component)
}

func newID() string {
	return uuid.NewString()
}

// emit publishes best-effort; a failing subscriber never fails the caller.
func emit(ctx context.Context, events ports.EventPublisher, logger *slog.Logger, now time.Time, eventType string, payload any) {
	if events == nil {
		return
	}
	err := events.Publish(ctx, domain.Event{Type: eventType, Payload: payload, OccurredAt: now})
	if err != nil {
		logger.Warn("publish event failed", "type", eventType, "error", err)
	}
}

func notify(ctx context.Context, notifier ports.Notifier, logger *slog.Logger, message string) {
	if notifier == nil {
		return
	}
	if err := notifier.Notify(ctx, message); err != nil {
		logger.Warn("notify failed", "error", err)
	}
}
