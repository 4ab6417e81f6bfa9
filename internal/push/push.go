package push

import (
	"context"
	"errors"

	"github.com/Domenick1991/servicebooking/internal/kafka"
	"go.uber.org/zap"
)

// Sender delivers queued notifications to user devices. Delivery goes to the log;
// a provider SDK plugs in behind the same method.
type Sender struct {
	log *zap.Logger
}

func NewSender(log *zap.Logger) *Sender {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sender{log: log}
}

func (s *Sender) Send(ctx context.Context, msg kafka.NotificationMessage) error {
	if msg.UserID == "" {
		return errors.New("notification has no recipient")
	}
	s.log.Info("push notification",
		zap.String("notification_id", msg.ID),
		zap.String("user_id", msg.UserID),
		zap.String("type", msg.Type),
		zap.String("title", msg.Title),
	)
	return nil
}
