package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/servicebooking/internal/domain"
	"github.com/Domenick1991/servicebooking/internal/kafka"
	"github.com/Domenick1991/servicebooking/internal/realtime"
	"github.com/Domenick1991/servicebooking/internal/repository"
	"github.com/Domenick1991/servicebooking/internal/validation"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BookingUseCase interface {
	CreateBooking(ctx context.Context, actor domain.Actor, input CreateBookingInput) (*domain.Booking, error)
	GetBooking(ctx context.Context, actor domain.Actor, id string) (*domain.Booking, error)
	ListBookings(ctx context.Context, actor domain.Actor, input ListBookingsInput) (*domain.Page[domain.Booking], error)
	RequestTransition(ctx context.Context, bookingID string, actor domain.Actor, target domain.BookingStatus, payload TransitionPayload) (*domain.Booking, error)
	ExpireUnclaimed(ctx context.Context, olderThan time.Duration) ([]domain.Booking, error)
}

type Notifier interface {
	Notify(ctx context.Context, userID string, typ domain.NotificationType, title, body string, data map[string]any) error
}

type Broadcaster interface {
	Publish(ctx context.Context, topic, event string, payload any) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// WorkerDirectory resolves claimants. It should read current verification state, not a cache.
type WorkerDirectory interface {
	GetByID(ctx context.Context, id string) (*domain.Worker, error)
}

type ClaimLocker interface {
	AcquireClaimLock(ctx context.Context, bookingID string, ttl time.Duration) (bool, error)
	ReleaseClaimLock(ctx context.Context, bookingID string) error
}

type BookingService struct {
	bookings     repository.BookingRepository
	workers      WorkerDirectory
	notifier     Notifier
	broadcaster  Broadcaster
	producer     Producer
	bookingTopic string
	locker       ClaimLocker
	claimLockTTL time.Duration
	now          func() time.Time
	log          *zap.Logger
}

type CreateBookingInput struct {
	CategoryID     string     `json:"category_id" validate:"required"`
	Description    string     `json:"description" validate:"required,max=2000"`
	Latitude       float64    `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude      float64    `json:"longitude" validate:"gte=-180,lte=180"`
	Address        string     `json:"address" validate:"required,max=500"`
	EstimatedPrice float64    `json:"estimated_price" validate:"gt=0"`
	ScheduledAt    *time.Time `json:"scheduled_at"`
	// WorkerID addresses the booking to a specific worker. Empty leaves it open for claiming.
	WorkerID string `json:"worker_id"`
}

type ListBookingsInput struct {
	Status domain.BookingStatus
	Page   int
	Size   int
}

// TransitionPayload carries the optional fields of a status change.
type TransitionPayload struct {
	// FinalPrice may only be set when completing.
	FinalPrice *float64
	// WorkerID lets an admin claim on behalf of a worker.
	WorkerID string
}

type BookingServiceOption func(*BookingService)

func WithNotifier(n Notifier) BookingServiceOption {
	return func(s *BookingService) {
		s.notifier = n
	}
}

func WithBroadcaster(b Broadcaster) BookingServiceOption {
	return func(s *BookingService) {
		s.broadcaster = b
	}
}

func WithEvents(p Producer, topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.producer = p
		s.bookingTopic = topic
	}
}

// WithClaimLock short-circuits concurrent claims through a distributed lock.
// The conditional database write still decides the winner.
func WithClaimLock(l ClaimLocker, ttl time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		s.locker = l
		s.claimLockTTL = ttl
	}
}

func WithLogger(log *zap.Logger) BookingServiceOption {
	return func(s *BookingService) {
		if log != nil {
			s.log = log
		}
	}
}

func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
	}
}

func NewBookingService(bookings repository.BookingRepository, workers WorkerDirectory, opts ...BookingServiceOption) *BookingService {
	service := &BookingService{
		bookings:     bookings,
		workers:      workers,
		claimLockTTL: 10 * time.Second,
		now:          time.Now,
		log:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *BookingService) CreateBooking(ctx context.Context, actor domain.Actor, input CreateBookingInput) (*domain.Booking, error) {
	if actor.Role != domain.RoleCustomer {
		return nil, fmt.Errorf("%w: only customers can create bookings", domain.ErrForbidden)
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	now := s.now()
	if input.ScheduledAt != nil && !input.ScheduledAt.After(now) {
		return nil, domain.NewValidationError("scheduled_at", "must be in the future")
	}

	booking := &domain.Booking{
		ID:             uuid.NewString(),
		CustomerID:     actor.ID,
		CategoryID:     input.CategoryID,
		Description:    input.Description,
		Latitude:       input.Latitude,
		Longitude:      input.Longitude,
		Address:        input.Address,
		Status:         domain.BookingStatusPending,
		EstimatedPrice: input.EstimatedPrice,
		ScheduledAt:    input.ScheduledAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if input.WorkerID != "" {
		w, err := s.workers.GetByID(ctx, input.WorkerID)
		if err != nil {
			return nil, err
		}
		if !w.CanClaim(input.CategoryID) {
			return nil, domain.NewValidationError("worker_id", "worker does not offer this category")
		}
		booking.WorkerID = &w.ID
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, err
	}

	s.log.Info("booking created",
		zap.String("booking_id", booking.ID),
		zap.String("customer_id", booking.CustomerID),
		zap.String("category_id", booking.CategoryID))

	s.broadcast(ctx, booking, kafka.EventBookingCreated, "", actor)
	s.publish(ctx, kafka.EventBookingCreated, booking, "", actor)
	return booking, nil
}

func (s *BookingService) GetBooking(ctx context.Context, actor domain.Actor, id string) (*domain.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanView(b, actor) {
		return nil, domain.ErrForbidden
	}
	return b, nil
}

// CanView reports whether actor may read the booking or subscribe to its events.
func CanView(b *domain.Booking, actor domain.Actor) bool {
	return actor.Privileged() || b.IsCustomer(actor.ID) || b.IsAssignedWorker(actor.ID)
}

func (s *BookingService) ListBookings(ctx context.Context, actor domain.Actor, input ListBookingsInput) (*domain.Page[domain.Booking], error) {
	if input.Status != "" && !input.Status.Valid() {
		return nil, domain.NewValidationError("status", "unknown booking status")
	}
	page, size := domain.NormalizePage(input.Page, input.Size)
	filter := domain.BookingFilter{Status: input.Status, Page: page, Size: size}

	switch actor.Role {
	case domain.RoleAdmin:
	case domain.RoleWorker:
		filter.WorkerID = actor.ID
	case domain.RoleCustomer:
		filter.CustomerID = actor.ID
	default:
		return nil, domain.ErrForbidden
	}

	items, total, err := s.bookings.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &domain.Page[domain.Booking]{Items: items, Total: total, Page: page, Size: size}, nil
}

// RequestTransition moves the booking to target. The status write is a conditional update;
// notifications and events that follow it are best-effort and never undo it.
func (s *BookingService) RequestTransition(ctx context.Context, bookingID string, actor domain.Actor, target domain.BookingStatus, payload TransitionPayload) (*domain.Booking, error) {
	if !target.Valid() {
		return nil, domain.NewValidationError("status", "unknown booking status")
	}

	current, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if lostClaim(current, actor, target) {
		return nil, domain.ErrNotAvailable
	}
	if !current.Status.CanTransition(target) {
		return nil, &domain.TransitionError{Current: current.Status, Attempted: target}
	}

	previous := current
	var updated *domain.Booking
	if target == domain.BookingStatusAccepted && !current.HasWorker() {
		if err := checkPayload(target, payload); err != nil {
			return nil, err
		}
		updated, err = s.claim(ctx, current, actor, payload.WorkerID)
	} else {
		if err := authorize(current, actor, target); err != nil {
			return nil, err
		}
		if err := checkPayload(target, payload); err != nil {
			return nil, err
		}
		if target == domain.BookingStatusAccepted {
			if _, err := s.claimant(ctx, current, *current.WorkerID); err != nil {
				return nil, err
			}
		}
		previous, updated, err = s.advance(ctx, current, actor, target, payload)
	}
	if err != nil {
		return nil, err
	}

	s.log.Info("booking status changed",
		zap.String("booking_id", updated.ID),
		zap.String("from", string(previous.Status)),
		zap.String("to", string(updated.Status)),
		zap.String("actor_id", actor.ID),
		zap.String("actor_role", string(actor.Role)))

	s.fanOut(ctx, previous, updated, actor)
	return updated, nil
}

// lostClaim reports a worker claiming a booking another worker has just accepted.
// Bookings past ACCEPTED are not claim races and get the ordinary transition error.
func lostClaim(b *domain.Booking, actor domain.Actor, target domain.BookingStatus) bool {
	return target == domain.BookingStatusAccepted &&
		actor.Role == domain.RoleWorker &&
		b.Status == domain.BookingStatusAccepted &&
		!b.IsAssignedWorker(actor.ID)
}

func authorize(b *domain.Booking, actor domain.Actor, target domain.BookingStatus) error {
	if actor.Privileged() {
		return nil
	}
	if b.IsAssignedWorker(actor.ID) {
		return nil
	}
	if target == domain.BookingStatusCancelled && b.IsCustomer(actor.ID) {
		return nil
	}
	return fmt.Errorf("%w: %s may not move booking %s to %s", domain.ErrForbidden, actor.ID, b.ID, target)
}

func checkPayload(target domain.BookingStatus, payload TransitionPayload) error {
	if payload.FinalPrice == nil {
		return nil
	}
	if target != domain.BookingStatusCompleted {
		return domain.NewValidationError("final_price", "can only be set when completing a booking")
	}
	if *payload.FinalPrice <= 0 {
		return domain.NewValidationError("final_price", "must be positive")
	}
	return nil
}

func (s *BookingService) claim(ctx context.Context, b *domain.Booking, actor domain.Actor, onBehalfOf string) (*domain.Booking, error) {
	workerID := actor.ID
	switch {
	case actor.Privileged():
		if onBehalfOf == "" {
			return nil, domain.NewValidationError("worker_id", "is required when claiming on behalf of a worker")
		}
		workerID = onBehalfOf
	case onBehalfOf != "" && onBehalfOf != actor.ID:
		return nil, fmt.Errorf("%w: workers can only claim for themselves", domain.ErrForbidden)
	case b.IsCustomer(actor.ID):
		return nil, fmt.Errorf("%w: customers cannot claim their own booking", domain.ErrForbidden)
	}

	if _, err := s.claimant(ctx, b, workerID); err != nil {
		return nil, err
	}

	if s.locker != nil {
		ok, err := s.locker.AcquireClaimLock(ctx, b.ID, s.claimLockTTL)
		switch {
		case err != nil:
			s.log.Warn("claim lock unavailable", zap.String("booking_id", b.ID), zap.Error(err))
		case !ok:
			return nil, domain.ErrNotAvailable
		default:
			defer func() {
				if err := s.locker.ReleaseClaimLock(ctx, b.ID); err != nil {
					s.log.Warn("release claim lock", zap.String("booking_id", b.ID), zap.Error(err))
				}
			}()
		}
	}

	updated, err := s.bookings.Claim(ctx, b.ID, workerID)
	if errors.Is(err, repository.ErrConflict) {
		return nil, domain.ErrNotAvailable
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// claimant checks that workerID is a verified worker offering the booking's category.
func (s *BookingService) claimant(ctx context.Context, b *domain.Booking, workerID string) (*domain.Worker, error) {
	w, err := s.workers.GetByID(ctx, workerID)
	if err != nil {
		return nil, err
	}
	if !w.Verified() {
		return nil, fmt.Errorf("%w: worker %s is not verified", domain.ErrForbidden, workerID)
	}
	if !w.Offers(b.CategoryID) {
		return nil, fmt.Errorf("%w: worker %s does not offer %s", domain.ErrForbidden, workerID, b.CategoryID)
	}
	return w, nil
}

// advanceAttempts bounds the conditional writes advance makes when the row keeps moving under it.
const advanceAttempts = 2

// advance writes b's move to target. When the status changed since b was read, the fresh row
// is checked again and the write retried if the move is still legal for actor; the returned
// previous booking is the row the write actually replaced.
func (s *BookingService) advance(ctx context.Context, b *domain.Booking, actor domain.Actor, target domain.BookingStatus, payload TransitionPayload) (previous, updated *domain.Booking, err error) {
	now := s.now()
	change := domain.StatusChange{BookingID: b.ID, To: target}
	switch target {
	case domain.BookingStatusInProgress:
		change.StartedAt = &now
	case domain.BookingStatusCompleted:
		change.CompletedAt = &now
		change.FinalPrice = payload.FinalPrice
	}

	previous = b
	for attempt := 1; ; attempt++ {
		change.From = previous.Status
		updated, err = s.bookings.UpdateStatus(ctx, change)
		if err == nil {
			return previous, updated, nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return nil, nil, err
		}

		fresh, ferr := s.bookings.GetByID(ctx, b.ID)
		if ferr != nil {
			return nil, nil, ferr
		}
		if !fresh.Status.CanTransition(target) || attempt == advanceAttempts {
			return nil, nil, &domain.TransitionError{Current: fresh.Status, Attempted: target}
		}
		if err := authorize(fresh, actor, target); err != nil {
			return nil, nil, err
		}
		s.log.Debug("booking moved during transition, retrying",
			zap.String("booking_id", b.ID),
			zap.String("read_status", string(previous.Status)),
			zap.String("current_status", string(fresh.Status)))
		previous = fresh
	}
}

// ExpireUnclaimed cancels PENDING bookings nobody claimed within olderThan.
// A booking claimed while the sweep runs is left alone.
func (s *BookingService) ExpireUnclaimed(ctx context.Context, olderThan time.Duration) ([]domain.Booking, error) {
	cutoff := s.now().Add(-olderThan)
	stale, err := s.bookings.ListUnclaimedBefore(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	actor := domain.SystemActor()
	var expired []domain.Booking
	for i := range stale {
		b := &stale[i]
		updated, err := s.bookings.UpdateStatus(ctx, domain.StatusChange{
			BookingID: b.ID,
			From:      domain.BookingStatusPending,
			To:        domain.BookingStatusCancelled,
		})
		if errors.Is(err, repository.ErrConflict) {
			continue
		}
		if err != nil {
			s.log.Error("expire booking", zap.String("booking_id", b.ID), zap.Error(err))
			continue
		}

		s.broadcast(ctx, updated, kafka.EventBookingExpired, b.Status, actor)
		s.publish(ctx, kafka.EventBookingExpired, updated, b.Status, actor)
		s.notify(ctx, updated.CustomerID, expiredNotification, updated)
		expired = append(expired, *updated)
	}

	if len(expired) > 0 {
		s.log.Info("expired unclaimed bookings", zap.Int("count", len(expired)), zap.Time("cutoff", cutoff))
	}
	return expired, nil
}

func (s *BookingService) fanOut(ctx context.Context, previous, updated *domain.Booking, actor domain.Actor) {
	s.broadcast(ctx, updated, kafka.EventBookingStatusChanged, previous.Status, actor)
	s.publish(ctx, kafka.EventBookingStatusChanged, updated, previous.Status, actor)

	tmpl, ok := statusNotifications[updated.Status]
	if !ok {
		return
	}
	for _, userID := range recipients(previous, updated, actor) {
		s.notify(ctx, userID, tmpl, updated)
	}
}

// StatusEvent is the realtime payload sent to a booking's subscribers.
type StatusEvent struct {
	BookingID      string               `json:"booking_id"`
	Status         domain.BookingStatus `json:"status"`
	PreviousStatus domain.BookingStatus `json:"previous_status,omitempty"`
	WorkerID       *string              `json:"worker_id"`
	FinalPrice     *float64             `json:"final_price,omitempty"`
	ActorID        string               `json:"actor_id"`
	OccurredAt     time.Time            `json:"occurred_at"`
}

func (s *BookingService) broadcast(ctx context.Context, b *domain.Booking, event string, previous domain.BookingStatus, actor domain.Actor) {
	if s.broadcaster == nil {
		return
	}
	payload := StatusEvent{
		BookingID:      b.ID,
		Status:         b.Status,
		PreviousStatus: previous,
		WorkerID:       b.WorkerID,
		FinalPrice:     b.FinalPrice,
		ActorID:        actor.ID,
		OccurredAt:     s.now(),
	}
	if err := s.broadcaster.Publish(ctx, realtime.BookingTopic(b.ID), event, payload); err != nil {
		s.log.Warn("broadcast booking event", zap.String("booking_id", b.ID), zap.String("event", event), zap.Error(err))
	}
}

func (s *BookingService) publish(ctx context.Context, eventType string, b *domain.Booking, previous domain.BookingStatus, actor domain.Actor) {
	if s.producer == nil || s.bookingTopic == "" {
		return
	}
	event := kafka.BookingEvent{
		Type:           eventType,
		BookingID:      b.ID,
		CustomerID:     b.CustomerID,
		Status:         string(b.Status),
		PreviousStatus: string(previous),
		ActorID:        actor.ID,
		OccurredAt:     s.now(),
	}
	if b.WorkerID != nil {
		event.WorkerID = *b.WorkerID
	}
	if err := s.producer.Publish(ctx, s.bookingTopic, b.ID, event); err != nil {
		s.log.Warn("publish booking event", zap.String("booking_id", b.ID), zap.String("event", eventType), zap.Error(err))
	}
}

func (s *BookingService) notify(ctx context.Context, userID string, tmpl notificationTemplate, b *domain.Booking) {
	if s.notifier == nil {
		return
	}
	data := map[string]any{
		"booking_id": b.ID,
		"status":     string(b.Status),
	}
	if err := s.notifier.Notify(ctx, userID, tmpl.Type, tmpl.Title, tmpl.Body, data); err != nil {
		s.log.Warn("create notification",
			zap.String("booking_id", b.ID),
			zap.String("user_id", userID),
			zap.String("type", string(tmpl.Type)),
			zap.Error(err))
	}
}

var _ BookingUseCase = (*BookingService)(nil)
