package notification

import (
	"context"
	"errors"

	"github.com/Domenick1991/servicebooking/internal/domain"
	"github.com/Domenick1991/servicebooking/internal/kafka"
	"github.com/Domenick1991/servicebooking/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type NotificationUseCase interface {
	Notify(ctx context.Context, userID string, typ domain.NotificationType, title, body string, data map[string]any) error
	List(ctx context.Context, userID string, unreadOnly bool, page, size int) (*domain.Page[domain.Notification], error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type NotificationService struct {
	repo     repository.NotificationRepository
	producer Producer
	topic    string
	log      *zap.Logger
}

func NewNotificationService(repo repository.NotificationRepository, producer Producer, topic string, log *zap.Logger) *NotificationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &NotificationService{repo: repo, producer: producer, topic: topic, log: log}
}

// Notify stores the notification and queues it for push delivery. A queueing failure is logged;
// the stored record is still visible in the user's inbox.
func (s *NotificationService) Notify(ctx context.Context, userID string, typ domain.NotificationType, title, body string, data map[string]any) error {
	if userID == "" {
		return errors.New("notification recipient is required")
	}

	n := &domain.Notification{
		ID:     uuid.NewString(),
		UserID: userID,
		Type:   typ,
		Title:  title,
		Body:   body,
		Data:   data,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return err
	}

	if s.producer == nil || s.topic == "" {
		return nil
	}
	msg := kafka.NotificationMessage{
		ID:     n.ID,
		UserID: n.UserID,
		Type:   string(n.Type),
		Title:  n.Title,
		Body:   n.Body,
		Data:   n.Data,
	}
	if err := s.producer.Publish(ctx, s.topic, n.UserID, msg); err != nil {
		s.log.Warn("queue push notification", zap.String("notification_id", n.ID), zap.Error(err))
	}
	return nil
}

func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool, page, size int) (*domain.Page[domain.Notification], error) {
	page, size = domain.NormalizePage(page, size)
	items, total, err := s.repo.List(ctx, userID, unreadOnly, page, size)
	if err != nil {
		return nil, err
	}
	return &domain.Page[domain.Notification]{Items: items, Total: total, Page: page, Size: size}, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	return s.repo.MarkRead(ctx, userID, id)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}

var _ NotificationUseCase = (*NotificationService)(nil)
