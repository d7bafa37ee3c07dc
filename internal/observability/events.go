package observability

import (
	"context"
	"sync"
	"time"
)

const eventType = "dm_events"

// Routing keys for domain events on the dm exchange.
const (
	RouteMessageSent         = "dm.message.sent"
	RouteMessageDeleted      = "dm.message.deleted"
	RouteContactDeleted      = "dm.contact.deleted"
	RouteConversationCleared = "dm.conversation.cleared"
)

// Publisher is the subset of the broker client used for domain events.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error
}

type EventEnvelope struct {
	EventType  string    `json:"event_type"`
	EventName  string    `json:"event_name"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

var (
	publisherMu      sync.RWMutex
	defaultPublisher Publisher
)

func SetPublisher(publisher Publisher) {
	publisherMu.Lock()
	defaultPublisher = publisher
	publisherMu.Unlock()
}

// PublishEvent wraps payload in an envelope and publishes it. A nil publisher
// makes it a no-op.
func PublishEvent(ctx context.Context, routingKey, eventName string, payload any, headers map[string]string) error {
	publisherMu.RLock()
	publisher := defaultPublisher
	publisherMu.RUnlock()
	if publisher == nil {
		return nil
	}

	envelope := EventEnvelope{
		EventType:  eventType,
		EventName:  eventName,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
	err := publisher.Publish(ctx, routingKey, envelope, headers)
	if err != nil {
		IncAMQPPublishError()
	}
	return err
}

func BuildHeaders(requestID, traceID string) map[string]string {
	headers := map[string]string{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}
