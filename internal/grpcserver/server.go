// Package grpcserver hosts the admin gRPC endpoint: standard health checking
// driven by database reachability.
package grpcserver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"dm-service/internal/observability"
)

// ServiceName is the health-check service key reported alongside "".
const ServiceName = "dm-service"

type pinger interface {
	PingContext(ctx context.Context) error
}

// Server wraps a grpc.Server with a health service.
type Server struct {
	listener   net.Listener
	grpcServer *grpc.Server
	health     *health.Server
	db         pinger
	interval   time.Duration
}

// New listens on addr and registers the health service. Status starts as
// NOT_SERVING until the first successful database ping.
func New(addr string, db pinger, interval time.Duration) (*Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	return newWithListener(lis, db, interval), nil
}

func newWithListener(lis net.Listener, db pinger, interval time.Duration) *Server {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.UnaryInterceptor(observability.GRPCServerMetricsUnaryInterceptor()),
	)
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	setStatus(healthServer, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	return &Server{
		listener:   lis,
		grpcServer: grpcServer,
		health:     healthServer,
		db:         db,
		interval:   interval,
	}
}

func setStatus(h *health.Server, status grpc_health_v1.HealthCheckResponse_ServingStatus) {
	h.SetServingStatus("", status)
	h.SetServingStatus(ServiceName, status)
}

// Addr returns the listener address.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// checkOnce pings the database and updates the health status.
func (s *Server) checkOnce(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.db.PingContext(pingCtx); err != nil {
		log.Printf("health: database ping failed: %v", err)
		setStatus(s.health, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
		return
	}
	setStatus(s.health, grpc_health_v1.HealthCheckResponse_SERVING)
}

func (s *Server) watch(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkOnce(ctx)
		}
	}
}

// Serve runs until ctx is cancelled, then stops gracefully.
func (s *Server) Serve(ctx context.Context) error {
	defer s.Close()

	s.checkOnce(ctx)
	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go s.watch(watchCtx)

	log.Printf("admin grpc listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpcServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		s.health.Shutdown()
		s.grpcServer.GracefulStop()
		err := <-serveErr
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	case err := <-serveErr:
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	}
}

// Close releases server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	s.health.Shutdown()
	s.grpcServer.Stop()
	_ = s.listener.Close()
}
