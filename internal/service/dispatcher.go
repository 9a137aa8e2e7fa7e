package service

import (
	"context"
	"sync"
	"time"

	"tourledger-backend/internal/domain"
	"tourledger-backend/internal/logger"
	"tourledger-backend/internal/metrics"
)

// Dispatcher delivers notifications after a unit of work has committed. Sends
// run in the background with their own timeout and a failure is only logged;
// a committed mutation is never reported as failed because of delivery.
type Dispatcher struct {
	notifier Notifier
	timeout  time.Duration
	metrics  *metrics.Metrics
	wg       sync.WaitGroup
}

func NewDispatcher(notifier Notifier, timeout time.Duration, m *metrics.Metrics) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{notifier: notifier, timeout: timeout, metrics: m}
}

// Dispatch returns immediately. ctx only contributes its values; its
// cancellation does not abort delivery.
func (d *Dispatcher) Dispatch(ctx context.Context, recipient domain.Recipient, n domain.Notification) {
	if d == nil || d.notifier == nil {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()

		err := d.notifier.Send(sendCtx, recipient, n)
		d.metrics.ObserveNotification("dispatch", err)
		if err != nil {
			logger.WarnContext(sendCtx, "Notification delivery failed",
				"type", n.Type,
				"owner_type", recipient.OwnerType,
				"owner_id", recipient.OwnerID,
				"role", recipient.Role,
				"error", err)
		}
	}()
}

// Wait blocks until in-flight deliveries finish.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}
