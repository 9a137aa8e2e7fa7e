package grpc

import (
	"context"
	"time"

	healthv1 "google.golang.org/grpc/health/grpc_health_v1"

	"tourledger-backend/internal/logger"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatusSetter is the part of health.Server the monitor drives.
type StatusSetter interface {
	SetServingStatus(service string, servingStatus healthv1.HealthCheckResponse_ServingStatus)
}

// HealthMonitor flips the overall serving status with the store's reachability.
type HealthMonitor struct {
	pinger   Pinger
	status   StatusSetter
	interval time.Duration
	timeout  time.Duration
	serving  *bool
}

func NewHealthMonitor(p Pinger, s StatusSetter, interval time.Duration) *HealthMonitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &HealthMonitor{pinger: p, status: s, interval: interval, timeout: 2 * time.Second}
}

// Check pings once and publishes the result. Transitions are logged.
func (m *HealthMonitor) Check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	err := m.pinger.Ping(ctx)
	serving := err == nil
	if m.serving == nil || *m.serving != serving {
		if serving {
			logger.Info("Store reachable, reporting SERVING")
		} else {
			logger.Warn("Store unreachable, reporting NOT_SERVING", "error", err)
		}
	}
	m.serving = &serving

	if serving {
		m.status.SetServingStatus("", healthv1.HealthCheckResponse_SERVING)
	} else {
		m.status.SetServingStatus("", healthv1.HealthCheckResponse_NOT_SERVING)
	}
	return serving
}

// Run checks immediately and then on every tick until ctx is done.
func (m *HealthMonitor) Run(ctx context.Context) {
	m.Check(ctx)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}
