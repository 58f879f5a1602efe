package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Norvan25/homenest-nous-sub002/internal/config"
	"github.com/Norvan25/homenest-nous-sub002/internal/domain"
)

type recordingPublisher struct {
	got []domain.Event
	err error
}

func (r *recordingPublisher) Publish(_ context.Context, e domain.Event) error {
	r.got = append(r.got, e)
	return r.err
}

func TestFanoutDeliversToAll(t *testing.T) {
	t.Parallel()

	failing := &recordingPublisher{err: errors.New("broker down")}
	ok := &recordingPublisher{}
	event := domain.Event{Type: domain.EventQueueState, OccurredAt: time.Now()}

	err := Fanout{failing, nil, ok}.Publish(context.Background(), event)
	if err == nil {
		t.Fatal("expected joined error")
	}
	if len(failing.got) != 1 || len(ok.got) != 1 {
		t.Fatalf("event not delivered to every publisher: %d %d", len(failing.got), len(ok.got))
	}
}

func TestBuildPublishing(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	msg, err := buildPublishing(domain.Event{Type: domain.EventCallFinished, Payload: map[string]string{"id": "q1"}, OccurredAt: at})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if msg.Type != domain.EventCallFinished || msg.DeliveryMode != amqp.Persistent || !msg.Timestamp.Equal(at) || msg.MessageId == "" {
		t.Fatalf("unexpected publishing: %+v", msg)
	}

	var decoded struct {
		Type    string            `json:"type"`
		Payload map[string]string `json:"payload"`
	}
	if err := json.Unmarshal(msg.Body, &decoded); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if decoded.Type != domain.EventCallFinished || decoded.Payload["id"] != "q1" {
		t.Fatalf("unexpected body: %s", msg.Body)
	}
}

func TestDialRabbitMQRequiresURL(t *testing.T) {
	t.Parallel()

	if _, err := DialRabbitMQ(config.EventsConfig{Exchange: "homenest.events"}); err == nil {
		t.Fatal("expected misconfiguration error")
	}
}
