package notification

import (
	"context"
	"fmt"

	"tourledger-backend/internal/domain"
	"tourledger-backend/internal/logger"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

type messageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// PushChannel sends FCM messages to a topic per recipient. Mobile clients
// subscribe to their own wallet topic.
type PushChannel struct {
	client      messageSender
	topicPrefix string
}

func NewPushChannel(ctx context.Context, credentialsFile, projectID, topicPrefix string) (*PushChannel, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase messaging: %w", err)
	}
	return newPushChannel(client, topicPrefix), nil
}

func newPushChannel(client messageSender, topicPrefix string) *PushChannel {
	return &PushChannel{client: client, topicPrefix: topicPrefix}
}

func (c *PushChannel) Name() string { return "push" }

// Topic returns the FCM topic for a recipient, e.g. wallet-guide-42 or
// wallet-role-finance. FCM topics allow [a-zA-Z0-9-_.~%].
func (c *PushChannel) Topic(recipient domain.Recipient) string {
	if recipient.Role != "" {
		return fmt.Sprintf("%s-role-%s", c.topicPrefix, recipient.Role)
	}
	return fmt.Sprintf("%s-%s-%s", c.topicPrefix, recipient.OwnerType, recipient.OwnerID)
}

func (c *PushChannel) Send(ctx context.Context, recipient domain.Recipient, n domain.Notification) error {
	data := make(map[string]string, len(n.Attributes)+1)
	for k, v := range n.Attributes {
		data[k] = v
	}
	data["type"] = string(n.Type)

	msg := &messaging.Message{
		Topic: c.Topic(recipient),
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Message,
		},
		Data: data,
	}

	logger.ExternalServiceCall("fcm", "Send", "topic", msg.Topic, "type", n.Type)
	id, err := c.client.Send(ctx, msg)
	if err != nil {
		err = fmt.Errorf("failed to send push notification: %w", err)
	}
	logger.ExternalServiceResult("fcm", "Send", err, "topic", msg.Topic, "message_id", id)
	return err
}
