package notification

import (
	"context"
	"fmt"

	"tourledger-backend/internal/config"
	"tourledger-backend/internal/logger"
	"tourledger-backend/internal/metrics"
)

// NewFromConfig enables every channel with credentials configured. When none
// is configured deliveries are only logged. The returned func releases
// channel connections.
func NewFromConfig(ctx context.Context, cfg config.NotificationConfig, m *metrics.Metrics) (*Multi, func(), error) {
	var channels []Channel
	closers := []func(){}

	if cfg.SendGrid.APIKey != "" {
		channels = append(channels, NewEmailChannel(
			cfg.SendGrid.APIKey,
			cfg.SendGrid.FromEmail,
			cfg.SendGrid.FromName,
			cfg.FinanceEmail,
			cfg.FinanceName,
		))
	}

	if cfg.Firebase.ProjectID != "" {
		push, err := NewPushChannel(ctx, cfg.Firebase.CredentialsFile, cfg.Firebase.ProjectID, cfg.Firebase.TopicPrefix)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize push channel: %w", err)
		}
		channels = append(channels, push)
	}

	if cfg.Redis.Addr != "" {
		client := NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis not reachable at startup, events will be retried per delivery", "addr", cfg.Redis.Addr, "error", err)
		}
		channels = append(channels, NewEventChannel(client, cfg.Redis.ChannelPrefix))
		closers = append(closers, func() {
			if err := client.Close(); err != nil {
				logger.Warn("Failed to close redis client", "error", err)
			}
		})
	}

	if len(channels) == 0 {
		channels = append(channels, LogChannel{})
	}

	multi := NewMulti(m, channels...)
	logger.Info("Notification channels enabled", "channels", multi.Channels())

	return multi, func() {
		for _, c := range closers {
			c()
		}
	}, nil
}
