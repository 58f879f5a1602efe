package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Norvan25/homenest-nous-sub002/internal/config"
	"github.com/Norvan25/homenest-nous-sub002/internal/domain"
	"github.com/Norvan25/homenest-nous-sub002/internal/ports"
)

// RabbitMQPublisher sends domain events to a topic exchange. The routing
// key is the event type.
type RabbitMQPublisher struct {
	exchange string

	mu         sync.Mutex
	connection *amqp.Connection
	channel    *amqp.Channel
}

var _ ports.EventPublisher = (*RabbitMQPublisher)(nil)

// DialRabbitMQ connects and declares the exchange.
func DialRabbitMQ(cfg config.EventsConfig) (*RabbitMQPublisher, error) {
	if cfg.AMQPURL == "" || cfg.Exchange == "" {
		return nil, fmt.Errorf("amqp publisher misconfigured")
	}

	connection, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	channel, err := connection.Channel()
	if err != nil {
		_ = connection.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		cfg.Exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = channel.Close()
		_ = connection.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
	}

	return &RabbitMQPublisher{
		exchange:   cfg.Exchange,
		connection: connection,
		channel:    channel,
	}, nil
}

// Publish sends one persistent JSON message.
func (p *RabbitMQPublisher) Publish(ctx context.Context, event domain.Event) error {
	msg, err := buildPublishing(event)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel == nil {
		return fmt.Errorf("publish %s: channel closed", event.Type)
	}

	if err := p.channel.PublishWithContext(ctx, p.exchange, event.Type, false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

// Close shuts the channel and the connection.
func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			return fmt.Errorf("failed to close channel: %w", err)
		}
		p.channel = nil
	}
	if p.connection != nil {
		if err := p.connection.Close(); err != nil {
			return fmt.Errorf("failed to close connection: %w", err)
		}
		p.connection = nil
	}
	return nil
}

func buildPublishing(event domain.Event) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal event %s: %w", event.Type, err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Type:         event.Type,
		Timestamp:    event.OccurredAt,
		Body:         body,
	}, nil
}
