package ws

import (
	"context"

	"github.com/google/uuid"

	"dm-service/internal/observability"
)

const wsRoutingKey = "ws_events.dm"

func newConnID() string {
	return uuid.NewString()
}

func publishConnEvent(ctx context.Context, info ConnInfo, event, reason string) {
	observability.IncWSEvent(event)
	_ = observability.PublishEvent(ctx, wsRoutingKey, event, info.eventPayload(event, reason),
		observability.BuildHeaders(info.RequestID, info.TraceID))
}
