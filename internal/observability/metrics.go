package observability

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dm_http_requests_total",
			Help: "Total number of HTTP requests processed by the dm service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dm_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	grpcServerHandledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dm_grpc_server_handled_total",
			Help: "Total number of gRPC requests handled by the admin server.",
		},
		[]string{"grpc_service", "grpc_method", "grpc_code"},
	)
	wsActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dm_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dm_ws_events_total",
			Help: "Total number of websocket events.",
		},
		[]string{"event"},
	)
	messagesSentTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dm_messages_sent_total",
			Help: "Total number of direct messages stored.",
		},
	)
	messagesDeletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dm_messages_deleted_total",
			Help: "Total number of direct messages deleted by their sender.",
		},
	)
	contactsAddedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dm_contacts_added_total",
			Help: "Contact add attempts by outcome.",
		},
		[]string{"status"},
	)
	contactsDeletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dm_contacts_deleted_total",
			Help: "Total number of contact edges removed.",
		},
	)
	conversationsClearedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dm_conversations_cleared_total",
			Help: "Total number of conversation clear requests.",
		},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dm_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		grpcServerHandledTotal,
		wsActiveConnections,
		wsEventsTotal,
		messagesSentTotal,
		messagesDeletedTotal,
		contactsAddedTotal,
		contactsDeletedTotal,
		conversationsClearedTotal,
		amqpPublishErrorsTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func GRPCServerMetricsUnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		statusInfo := status.Convert(err)
		service, method := splitFullMethod(info.FullMethod)
		grpcServerHandledTotal.WithLabelValues(service, method, statusInfo.Code().String()).Inc()
		return resp, err
	}
}

func splitFullMethod(fullMethod string) (string, string) {
	parts := strings.Split(fullMethod, "/")
	if len(parts) < 3 {
		return "unknown", "unknown"
	}
	return parts[1], parts[2]
}

func IncWSActive() {
	wsActiveConnections.Inc()
}

func DecWSActive() {
	wsActiveConnections.Dec()
}

func IncWSEvent(event string) {
	wsEventsTotal.WithLabelValues(event).Inc()
}

func IncMessageSent() {
	messagesSentTotal.Inc()
}

func IncMessageDeleted() {
	messagesDeletedTotal.Inc()
}

func IncContactAdded(status string) {
	contactsAddedTotal.WithLabelValues(status).Inc()
}

func IncContactDeleted() {
	contactsDeletedTotal.Inc()
}

func IncConversationCleared() {
	conversationsClearedTotal.Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
