// Package rabbitmq publishes JSON events to a durable topic exchange.
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"dm-service/internal/observability"
	"dm-service/internal/telemetry"
)

// Publisher sends events to the broker. Close releases the connection.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error
	Close() error
}

// Config selects the broker and exchange. An empty URL disables publishing.
type Config struct {
	URL      string
	Exchange string
	AppID    string
}

// NewPublisher connects to the broker and declares the exchange. Any failure
// downgrades to a publisher that only logs, so the service can run without a
// broker.
func NewPublisher(cfg Config) Publisher {
	if cfg.URL == "" {
		return newNoop("empty amqp url")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return newNoop(err.Error())
	}
	p := &amqpPublisher{conn: conn, exchange: cfg.Exchange, appID: cfg.AppID}
	if err := p.openChannel(); err != nil {
		_ = conn.Close()
		return newNoop(err.Error())
	}

	log.Printf("rabbitmq connected exchange=%s", cfg.Exchange)
	return p
}

func newNoop(reason string) noopPublisher {
	log.Printf("rabbitmq disabled, using noop: %s", reason)
	return noopPublisher{reason: reason}
}

type amqpPublisher struct {
	conn     *amqp.Connection
	exchange string
	appID    string

	mu sync.Mutex
	ch *amqp.Channel
}

// openChannel opens a channel and declares the exchange. Callers hold mu or
// own p exclusively.
func (p *amqpPublisher) openChannel() error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return fmt.Errorf("declare exchange %s: %w", p.exchange, err)
	}
	p.ch = ch
	return nil
}

// channel returns a usable channel, reopening it when the broker closed the
// previous one. A closed connection is not recovered.
func (p *amqpPublisher) channel() (*amqp.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	if p.conn.IsClosed() {
		return nil, errors.New("amqp connection closed")
	}
	if err := p.openChannel(); err != nil {
		return nil, err
	}
	log.Printf("rabbitmq channel reopened exchange=%s", p.exchange)
	return p.ch, nil
}

func (p *amqpPublisher) Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	ch, err := p.channel()
	if err != nil {
		return err
	}

	table := make(amqp.Table, len(headers))
	for key, value := range headers {
		table[key] = value
	}
	err = ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		AppId:        p.appID,
		Timestamp:    time.Now().UTC(),
		Headers:      table,
		Body:         body,
	})
	if err != nil {
		log.Printf("rabbitmq publish failed routing_key=%s: %v", routingKey, err)
	}
	return err
}

func (p *amqpPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
	}
	return p.conn.Close()
}

type noopPublisher struct {
	reason string
}

// Publish logs what would have been sent.
func (noopPublisher) Publish(_ context.Context, routingKey string, event any, headers map[string]string) error {
	switch e := event.(type) {
	case telemetry.AuditEnvelope:
		log.Printf("rabbitmq noop routing_key=%s audit action=%s request_id=%s", routingKey, e.Payload.Action, e.RequestID)
	case observability.EventEnvelope:
		log.Printf("rabbitmq noop routing_key=%s event=%s request_id=%s", routingKey, e.EventName, headers["x-request-id"])
	default:
		log.Printf("rabbitmq noop routing_key=%s type=%T", routingKey, event)
	}
	return nil
}

func (noopPublisher) Close() error {
	return nil
}

// Mode reports "amqp" or "noop" plus, for noop, why the broker was skipped.
func Mode(p Publisher) (mode, reason string) {
	switch v := p.(type) {
	case *amqpPublisher:
		return "amqp", ""
	case noopPublisher:
		return "noop", v.reason
	default:
		return "unknown", ""
	}
}
