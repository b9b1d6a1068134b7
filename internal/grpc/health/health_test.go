package health

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
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"ransomguard/pkg/logger"
)

func status(t *testing.T, m *Monitor, service string) grpc_health_v1.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := m.server.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.Status
}

func TestMonitor_CheckNow(t *testing.T) {
	var modelLoaded atomic.Bool
	m := NewMonitor(map[string]Probe{
		"database": func(context.Context) error { return nil },
		"model": func(context.Context) error {
			if !modelLoaded.Load() {
				return errors.New("model unavailable")
			}
			return nil
		},
	}, time.Minute, logger.NewNop())

	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, status(t, m, ServiceName))

	failing := m.CheckNow(context.Background())
	assert.Equal(t, []string{"model"}, failing)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, status(t, m, ServiceName))
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, status(t, m, ""))

	modelLoaded.Store(true)
	assert.Empty(t, m.CheckNow(context.Background()))
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, status(t, m, ServiceName))
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, status(t, m, ""))
}

func TestMonitor_OverGRPC(t *testing.T) {
	m := NewMonitor(map[string]Probe{
		"model": func(context.Context) error { return nil },
	}, 20*time.Millisecond, logger.NewNop())

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	m.Register(srv)
	go srv.Serve(lis)
	defer srv.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	defer conn.Close()

	client := grpc_health_v1.NewHealthClient(conn)
	require.Eventually(t, func() bool {
		resp, err := client.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: ServiceName})
		return err == nil && resp.Status == grpc_health_v1.HealthCheckResponse_SERVING
	}, 2*time.Second, 20*time.Millisecond)
}
