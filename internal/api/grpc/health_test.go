package grpc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/health"
	healthv1 "google.golang.org/grpc/health/grpc_health_v1"

	"tourledger-backend/internal/security"
)

type stubPinger struct{ err error }

func (p *stubPinger) Ping(ctx context.Context) error { return p.err }

func servingStatus(t *testing.T, hs *health.Server) healthv1.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := hs.Check(context.Background(), &healthv1.HealthCheckRequest{})
	require.NoError(t, err)
	return resp.Status
}

func TestHealthMonitor(t *testing.T) {
	hs := health.NewServer()
	pinger := &stubPinger{}
	m := NewHealthMonitor(pinger, hs, time.Second)

	assert.True(t, m.Check(context.Background()))
	assert.Equal(t, healthv1.HealthCheckResponse_SERVING, servingStatus(t, hs))

	pinger.err = errors.New("connection refused")
	assert.False(t, m.Check(context.Background()))
	assert.Equal(t, healthv1.HealthCheckResponse_NOT_SERVING, servingStatus(t, hs))

	pinger.err = nil
	assert.True(t, m.Check(context.Background()))
	assert.Equal(t, healthv1.HealthCheckResponse_SERVING, servingStatus(t, hs))
}

func TestHealthMonitorRunStopsWithContext(t *testing.T) {
	hs := health.NewServer()
	m := NewHealthMonitor(&stubPinger{}, hs, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
	assert.Equal(t, healthv1.HealthCheckResponse_SERVING, servingStatus(t, hs))
}

func TestNewServerStartsNotServing(t *testing.T) {
	s, hs := NewServer(security.NewTokenManager("secret", "tourledger"), nil)
	defer s.Stop()

	assert.Equal(t, healthv1.HealthCheckResponse_NOT_SERVING, servingStatus(t, hs))
	_, ok := s.GetServiceInfo()["grpc.health.v1.Health"]
	assert.True(t, ok)
	_, ok = s.GetServiceInfo()[ReconciliationServiceName]
	assert.True(t, ok)
}
