package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"dm-service/internal/config"
	"dm-service/internal/db"
	"dm-service/internal/grpcserver"
	"dm-service/internal/observability"
	"dm-service/internal/rabbitmq"
	"dm-service/internal/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("dm-service: %v", err)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Environment != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	shutdownTracing, err := telemetry.SetupTracing(ctx, telemetry.TracingConfig{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
	})
	if err != nil {
		log.Printf("tracing disabled: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	database, err := db.Connect(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer database.Close()

	publisher := rabbitmq.NewPublisher(rabbitmq.Config{
		URL:      cfg.AMQPURL,
		Exchange: cfg.AMQPExchange,
		AppID:    cfg.ServiceName,
	})
	defer publisher.Close()
	mode, reason := rabbitmq.Mode(publisher)
	log.Printf("event publisher mode=%s reason=%q", mode, reason)
	observability.SetPublisher(publisher)
	audit := telemetry.NewAuditEmitter(publisher, cfg.AuditRoutingKey, cfg.ServiceName, cfg.Environment)

	adminErr := make(chan error, 1)
	var admin *grpcserver.Server
	if cfg.GRPCEnabled {
		admin, err = grpcserver.New(":"+cfg.GRPCPort, database, 10*time.Second)
		if err != nil {
			return err
		}
		go func() { adminErr <- admin.Serve(ctx) }()
	}

	a := newApp(cfg, database, audit)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	httpErr := make(chan error, 1)
	go func() {
		log.Printf("http listening on %s", srv.Addr)
		httpErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-httpErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case err := <-adminErr:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	admin.Close()
	log.Printf("dm-service stopped")
	return nil
}
