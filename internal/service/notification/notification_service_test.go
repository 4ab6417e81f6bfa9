package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/Domenick1991/servicebooking/internal/domain"
	"github.com/Domenick1991/servicebooking/internal/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockNotificationRepository) List(ctx context.Context, userID string, unreadOnly bool, page, size int) ([]domain.Notification, int, error) {
	args := m.Called(ctx, userID, unreadOnly, page, size)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.Notification), args.Int(1), args.Error(2)
}

func (m *MockNotificationRepository) MarkRead(ctx context.Context, userID, id string) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

func (m *MockNotificationRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

func TestNotificationService_Notify(t *testing.T) {
	repo := &MockNotificationRepository{}
	producer := &MockProducer{}
	service := NewNotificationService(repo, producer, "notifications", nil)
	ctx := context.Background()

	repo.On("Create", ctx, mock.MatchedBy(func(n *domain.Notification) bool {
		return n.UserID == "c-1" && n.Type == domain.NotifServiceCompleted && n.ID != ""
	})).Return(nil).Once()
	producer.On("Publish", ctx, "notifications", "c-1", mock.MatchedBy(func(msg kafka.NotificationMessage) bool {
		return msg.Type == "SERVICE_COMPLETED" && msg.Title == "Service completed"
	})).Return(nil).Once()

	err := service.Notify(ctx, "c-1", domain.NotifServiceCompleted, "Service completed", "Your service is done.", map[string]any{"booking_id": "b-1"})

	assert.NoError(t, err)
	repo.AssertExpectations(t)
	producer.AssertExpectations(t)
}

func TestNotificationService_Notify_QueueFailureIsSwallowed(t *testing.T) {
	repo := &MockNotificationRepository{}
	producer := &MockProducer{}
	service := NewNotificationService(repo, producer, "notifications", nil)
	ctx := context.Background()

	repo.On("Create", ctx, mock.Anything).Return(nil).Once()
	producer.On("Publish", ctx, "notifications", "c-1", mock.Anything).Return(errors.New("kafka down")).Once()

	assert.NoError(t, service.Notify(ctx, "c-1", domain.NotifBookingAccepted, "t", "b", nil))
	producer.AssertExpectations(t)
}

func TestNotificationService_Notify_StoreFailure(t *testing.T) {
	repo := &MockNotificationRepository{}
	producer := &MockProducer{}
	service := NewNotificationService(repo, producer, "notifications", nil)
	ctx := context.Background()

	repo.On("Create", ctx, mock.Anything).Return(errors.New("db down")).Once()

	assert.Error(t, service.Notify(ctx, "c-1", domain.NotifBookingAccepted, "t", "b", nil))
	producer.AssertNumberOfCalls(t, "Publish", 0)
}

func TestNotificationService_Notify_NoRecipient(t *testing.T) {
	service := NewNotificationService(&MockNotificationRepository{}, nil, "", nil)
	assert.Error(t, service.Notify(context.Background(), "", domain.NotifBookingAccepted, "t", "b", nil))
}

func TestNotificationService_List(t *testing.T) {
	repo := &MockNotificationRepository{}
	service := NewNotificationService(repo, nil, "", nil)
	ctx := context.Background()

	items := []domain.Notification{{ID: "n-1", UserID: "c-1"}}
	repo.On("List", ctx, "c-1", true, 1, domain.DefaultPageSize).Return(items, 1, nil).Once()

	page, err := service.List(ctx, "c-1", true, 0, 0)

	assert.NoError(t, err)
	assert.Equal(t, items, page.Items)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 1, page.Page)
	repo.AssertExpectations(t)
}

func TestNotificationService_MarkRead(t *testing.T) {
	repo := &MockNotificationRepository{}
	service := NewNotificationService(repo, nil, "", nil)
	ctx := context.Background()

	repo.On("MarkRead", ctx, "c-1", "n-1").Return(domain.NewNotFound("notification", "n-1")).Once()
	repo.On("MarkAllRead", ctx, "c-1").Return(int64(3), nil).Once()

	assert.ErrorIs(t, service.MarkRead(ctx, "c-1", "n-1"), domain.ErrNotFound)
	n, err := service.MarkAllRead(ctx, "c-1")
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
