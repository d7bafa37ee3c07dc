package telemetry

import (
	"context"
	"log"
	"time"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error
}

// AuditEmitter publishes one audit record per mutating request.
type AuditEmitter struct {
	publisher   Publisher
	routingKey  string
	service     string
	environment string
	now         func() time.Time
}

type AuditEnvelope struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	OccurredAt    string       `json:"occurred_at"`
	Service       string       `json:"service"`
	Environment   string       `json:"environment"`
	RequestID     string       `json:"request_id"`
	UserID        *string      `json:"user_id,omitempty"`
	Payload       AuditPayload `json:"payload"`
}

type AuditPayload struct {
	Action   string `json:"action"`
	Level    string `json:"level"`
	Text     string `json:"text"`
	TargetID string `json:"target_id,omitempty"`
}

// AuditEvent describes a single audited action.
type AuditEvent struct {
	Action    string
	Level     string
	Text      string
	TargetID  string
	RequestID string
	UserID    *string
}

func NewAuditEmitter(publisher Publisher, routingKey, service, environment string) *AuditEmitter {
	return &AuditEmitter{
		publisher:   publisher,
		routingKey:  routingKey,
		service:     service,
		environment: environment,
		now:         time.Now,
	}
}

// Emit never fails the caller; publish errors are logged.
func (e *AuditEmitter) Emit(ctx context.Context, event AuditEvent) {
	if e == nil || e.publisher == nil {
		return
	}

	level := event.Level
	if level == "" {
		level = "info"
	}

	log.Printf("audit emit: action=%s level=%s request_id=%s target=%s", event.Action, level, event.RequestID, event.TargetID)
	envelope := AuditEnvelope{
		SchemaVersion: 1,
		EventType:     "audit_log",
		OccurredAt:    e.now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		RequestID:     event.RequestID,
		UserID:        event.UserID,
		Payload: AuditPayload{
			Action:   event.Action,
			Level:    level,
			Text:     event.Text,
			TargetID: event.TargetID,
		},
	}

	headers := map[string]string{}
	if event.RequestID != "" {
		headers["x-request-id"] = event.RequestID
	}
	if err := e.publisher.Publish(ctx, e.routingKey, envelope, headers); err != nil {
		log.Printf("audit publish failed: action=%s err=%v", event.Action, err)
	}
}
