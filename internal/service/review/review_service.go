package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/servicebooking/internal/domain"
	"github.com/Domenick1991/servicebooking/internal/repository"
	"github.com/Domenick1991/servicebooking/internal/validation"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ReviewUseCase interface {
	CreateReview(ctx context.Context, actor domain.Actor, bookingID string, input CreateReviewInput) (*domain.Review, error)
}

type BookingReader interface {
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
}

type Notifier interface {
	Notify(ctx context.Context, userID string, typ domain.NotificationType, title, body string, data map[string]any) error
}

// WorkerCache drops a worker whose rating changed.
type WorkerCache interface {
	InvalidateWorker(ctx context.Context, id string) error
}

type ReviewService struct {
	reviews  repository.ReviewRepository
	bookings BookingReader
	notifier Notifier
	cache    WorkerCache
	log      *zap.Logger
}

type CreateReviewInput struct {
	Rating  int    `json:"rating" validate:"gte=1,lte=5"`
	Comment string `json:"comment" validate:"max=1000"`
}

func NewReviewService(reviews repository.ReviewRepository, bookings BookingReader, notifier Notifier, cache WorkerCache, log *zap.Logger) *ReviewService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReviewService{reviews: reviews, bookings: bookings, notifier: notifier, cache: cache, log: log}
}

func (s *ReviewService) CreateReview(ctx context.Context, actor domain.Actor, bookingID string, input CreateReviewInput) (*domain.Review, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !b.IsCustomer(actor.ID) {
		return nil, fmt.Errorf("%w: only the booking's customer can review it", domain.ErrForbidden)
	}
	if b.Status != domain.BookingStatusCompleted || !b.HasWorker() {
		return nil, &domain.TransitionError{Current: b.Status, Attempted: domain.BookingStatusCompleted}
	}

	r := &domain.Review{
		ID:         uuid.NewString(),
		BookingID:  b.ID,
		CustomerID: b.CustomerID,
		WorkerID:   *b.WorkerID,
		Rating:     input.Rating,
		Comment:    input.Comment,
	}
	if err := s.reviews.Create(ctx, r); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, domain.ErrAlreadyReviewed
		}
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.InvalidateWorker(ctx, r.WorkerID); err != nil {
			s.log.Warn("invalidate worker cache", zap.String("worker_id", r.WorkerID), zap.Error(err))
		}
	}
	if s.notifier != nil {
		body := fmt.Sprintf("You received a %d-star review.", r.Rating)
		data := map[string]any{"booking_id": b.ID, "review_id": r.ID, "rating": r.Rating}
		if err := s.notifier.Notify(ctx, r.WorkerID, domain.NotifNewReview, "New review", body, data); err != nil {
			s.log.Warn("create notification", zap.String("review_id", r.ID), zap.Error(err))
		}
	}
	return r, nil
}

var _ ReviewUseCase = (*ReviewService)(nil)
