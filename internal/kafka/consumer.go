package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// NotificationHandler receives one decoded push request.
type NotificationHandler func(ctx context.Context, msg NotificationMessage) error

// NotificationConsumer reads the notifications topic for push delivery.
type NotificationConsumer struct {
	reader *kafka.Reader
	log    *zap.Logger
}

func NewNotificationConsumer(brokers []string, groupID, topic string, log *zap.Logger) *NotificationConsumer {
	if log == nil {
		log = zap.NewNop()
	}
	return &NotificationConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:           brokers,
			GroupID:           groupID,
			Topic:             topic,
			HeartbeatInterval: 3 * time.Second,
			SessionTimeout:    30 * time.Second,
		}),
		log: log,
	}
}

func (c *NotificationConsumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// Run blocks until ctx is done or the reader fails. A message is committed after the handler
// returns, whatever the outcome: push is best-effort and a bad message must not stall the group.
func (c *NotificationConsumer) Run(ctx context.Context, handle NotificationHandler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("fetch notification: %w", err)
		}

		c.dispatch(ctx, msg, handle)

		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.log.Warn("commit notification offset", zap.Int64("offset", msg.Offset), zap.Error(err))
		}
	}
}

func (c *NotificationConsumer) dispatch(ctx context.Context, msg kafka.Message, handle NotificationHandler) {
	n, err := decodeNotification(msg)
	if err != nil {
		c.log.Warn("skip malformed notification", zap.Int64("offset", msg.Offset), zap.Error(err))
		return
	}
	if err := handle(ctx, n); err != nil {
		c.log.Warn("notification delivery failed",
			zap.String("notification_id", n.ID),
			zap.String("user_id", n.UserID),
			zap.Error(err))
	}
}

func decodeNotification(msg kafka.Message) (NotificationMessage, error) {
	var n NotificationMessage
	if err := json.Unmarshal(msg.Value, &n); err != nil {
		return n, fmt.Errorf("decode notification: %w", err)
	}
	return n, nil
}
