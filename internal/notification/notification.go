// Package notification holds the post-commit delivery channels. Every channel
// is best-effort: a returned error is logged by the caller and never undoes
// the ledger mutation that triggered it.
package notification

import (
	"context"
	"errors"
	"fmt"

	"tourledger-backend/internal/domain"
	"tourledger-backend/internal/logger"
	"tourledger-backend/internal/metrics"
)

// Channel is one delivery mechanism.
type Channel interface {
	Name() string
	Send(ctx context.Context, recipient domain.Recipient, n domain.Notification) error
}

// Multi fans a notification out to every channel. A failing channel does not
// stop the others; the combined error is returned.
type Multi struct {
	channels []Channel
	metrics  *metrics.Metrics
}

func NewMulti(m *metrics.Metrics, channels ...Channel) *Multi {
	return &Multi{channels: channels, metrics: m}
}

func (n *Multi) Send(ctx context.Context, recipient domain.Recipient, notif domain.Notification) error {
	var errs []error
	for _, ch := range n.channels {
		err := ch.Send(ctx, recipient, notif)
		n.metrics.ObserveNotification(ch.Name(), err)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ch.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Channels returns the configured channel names.
func (n *Multi) Channels() []string {
	names := make([]string, 0, len(n.channels))
	for _, ch := range n.channels {
		names = append(names, ch.Name())
	}
	return names
}

// LogChannel writes notifications to the application log. It is the fallback
// when no external channel is configured.
type LogChannel struct{}

func (LogChannel) Name() string { return "log" }

func (LogChannel) Send(ctx context.Context, recipient domain.Recipient, n domain.Notification) error {
	logger.InfoContext(ctx, "Notification",
		"type", n.Type,
		"title", n.Title,
		"owner_type", recipient.OwnerType,
		"owner_id", recipient.OwnerID,
		"role", recipient.Role)
	return nil
}
