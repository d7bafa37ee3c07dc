package ws

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"dm-service/internal/identity"
	"dm-service/internal/observability"
)

type tokenResolver interface {
	Resolve(ctx context.Context, token string) (identity.Identity, error)
}

// Handler upgrades authenticated requests to per-user event streams.
type Handler struct {
	hub      *Hub
	resolver tokenResolver
	upgrader websocket.Upgrader

	pongWait   time.Duration
	pingPeriod time.Duration
}

const (
	defaultPongWait = 60 * time.Second
	maxFrameSize    = 4096
)

// NewHandler constructs a Handler. An empty allowedOrigins accepts any origin.
func NewHandler(hub *Hub, resolver tokenResolver, allowedOrigins []string) *Handler {
	return &Handler{
		hub:      hub,
		resolver: resolver,
		upgrader: websocket.Upgrader{CheckOrigin: originChecker(allowedOrigins)},

		pongWait:   defaultPongWait,
		pingPeriod: defaultPongWait * 9 / 10,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}
	hosts := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		origin = strings.TrimSpace(origin)
		if u, err := url.Parse(origin); err == nil && u.Host != "" {
			hosts[strings.ToLower(u.Host)] = struct{}{}
		} else if origin != "" {
			hosts[strings.ToLower(origin)] = struct{}{}
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		_, ok := hosts[strings.ToLower(u.Host)]
		return ok
	}
}

// Handle authenticates the caller and keeps the connection open until the
// client goes away. Browsers cannot set headers on websocket requests, so the
// token may also arrive as ?token=.
func (h *Handler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("dm-service/ws").Start(c.Request.Context(), "ws.handshake",
		trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token, ok := identity.BearerToken(c.GetHeader("Authorization"))
	if !ok {
		token = c.Query("token")
	}

	id, err := h.resolver.Resolve(ctx, token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	span.SetAttributes(attribute.String("user.id", id.Subject))

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      id.Subject,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	h.hub.AddClient(info.UserID, conn, info)
	observability.IncWSActive()
	publishConnEvent(ctx, info, "ws_connect", "")

	done := make(chan struct{})
	go h.pingLoop(conn, done)
	go h.readLoop(context.WithoutCancel(ctx), conn, info, done)
}

// pingLoop keeps the peer answering pongs. WriteControl is safe alongside the
// hub's writes.
func (h *Handler) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(h.pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(defaultWriteWait)); err != nil {
				return
			}
		}
	}
}

// readLoop discards client frames; the stream is server-to-client only. A
// peer that stops answering pings within pongWait is dropped.
func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, info ConnInfo, done chan<- struct{}) {
	var closeReason string
	conn.SetReadLimit(maxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(h.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.pongWait))
	})
	defer func() {
		close(done)
		h.hub.RemoveClient(info.UserID, conn)
		observability.DecWSActive()
		publishConnEvent(ctx, info, "ws_disconnect", closeReason)
		_ = conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				publishConnEvent(ctx, info, "ws_error", closeReason)
			}
			return
		}
	}
}
