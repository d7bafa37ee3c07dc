package ws

import "time"

// ConnInfo describes who opened a websocket connection and from where.
type ConnInfo struct {
	ConnID      string
	UserID      string
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}

func (info ConnInfo) eventPayload(event, reason string) map[string]any {
	durationMS := int64(0)
	if !info.ConnectedAt.IsZero() {
		durationMS = time.Since(info.ConnectedAt).Milliseconds()
	}
	return map[string]any{
		"ws": map[string]any{
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": durationMS,
			"reason":      reason,
		},
		"identity": map[string]any{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}
}
