package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"tourledger-backend/internal/domain"

	"github.com/redis/go-redis/v9"
)

type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// EventChannel publishes ledger events on Redis pub/sub so dashboards and
// other services can follow wallet activity without polling.
type EventChannel struct {
	client publisher
	prefix string
}

// NewRedisClient builds the client used by EventChannel.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func NewEventChannel(client publisher, prefix string) *EventChannel {
	return &EventChannel{client: client, prefix: prefix}
}

func (c *EventChannel) Name() string { return "events" }

// ChannelFor returns the pub/sub channel, e.g. ledger:guide:42 or ledger:role:finance.
func (c *EventChannel) ChannelFor(recipient domain.Recipient) string {
	if recipient.Role != "" {
		return fmt.Sprintf("%s:role:%s", c.prefix, recipient.Role)
	}
	return fmt.Sprintf("%s:%s:%s", c.prefix, recipient.OwnerType, recipient.OwnerID)
}

type event struct {
	domain.Notification
	Recipient domain.Recipient `json:"recipient"`
}

func (c *EventChannel) Send(ctx context.Context, recipient domain.Recipient, n domain.Notification) error {
	payload, err := json.Marshal(event{Notification: n, Recipient: recipient})
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	channel := c.ChannelFor(recipient)
	if err := c.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event on %s: %w", channel, err)
	}
	return nil
}
