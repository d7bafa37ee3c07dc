package grpcserver

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

type fakeDB struct {
	healthy atomic.Bool
}

func (f *fakeDB) PingContext(context.Context) error {
	if f.healthy.Load() {
		return nil
	}
	return errors.New("connection refused")
}

func startServer(t *testing.T, db pinger) grpc_health_v1.HealthClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := newWithListener(lis, db, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return grpc_health_v1.NewHealthClient(conn)
}

func healthStatus(client grpc_health_v1.HealthClient, service string) grpc_health_v1.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	resp, err := client.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: service})
	if err != nil {
		return grpc_health_v1.HealthCheckResponse_UNKNOWN
	}
	return resp.GetStatus()
}

func TestHealthFollowsDatabase(t *testing.T) {
	db := &fakeDB{}
	db.healthy.Store(true)
	client := startServer(t, db)

	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, healthStatus(client, ""))
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, healthStatus(client, ServiceName))

	db.healthy.Store(false)
	assert.Eventually(t, func() bool {
		return healthStatus(client, ServiceName) == grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}, 2*time.Second, 20*time.Millisecond)

	db.healthy.Store(true)
	assert.Eventually(t, func() bool {
		return healthStatus(client, "") == grpc_health_v1.HealthCheckResponse_SERVING
	}, 2*time.Second, 20*time.Millisecond)
}

func TestNewRejectsBadAddress(t *testing.T) {
	_, err := New("not-an-address", &fakeDB{}, time.Second)
	require.Error(t, err)
}
