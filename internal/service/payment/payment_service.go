package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/servicebooking/internal/domain"
	"github.com/Domenick1991/servicebooking/internal/gateway"
	"github.com/Domenick1991/servicebooking/internal/kafka"
	"github.com/Domenick1991/servicebooking/internal/realtime"
	"github.com/Domenick1991/servicebooking/internal/repository"
	"github.com/Domenick1991/servicebooking/internal/validation"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const staleReason = "timeout"

type PaymentUseCase interface {
	Capture(ctx context.Context, actor domain.Actor, bookingID string, input CaptureInput) (*domain.Payment, error)
	HandleWebhook(ctx context.Context, input WebhookInput) (*domain.Payment, error)
	FailStale(ctx context.Context, olderThan time.Duration) ([]domain.Payment, error)
}

type Gateway interface {
	RequestPayment(ctx context.Context, method domain.PaymentMethod, phone string, amount float64, reference string) error
}

type BookingReader interface {
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
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

type PaymentService struct {
	payments    repository.PaymentRepository
	bookings    BookingReader
	gateway     Gateway
	notifier    Notifier
	broadcaster Broadcaster
	producer    Producer
	topic       string
	now         func() time.Time
	log         *zap.Logger
}

type CaptureInput struct {
	Method      domain.PaymentMethod `json:"method" validate:"required,oneof=CASH MPESA AIRTEL_MONEY MTN_MOMO"`
	PhoneNumber string               `json:"phone_number" validate:"required_unless=Method CASH"`
}

// WebhookInput is the provider's asynchronous result for a mobile money payment.
type WebhookInput struct {
	Reference string `json:"reference" validate:"required"`
	Success   bool   `json:"success"`
	Reason    string `json:"reason"`
}

type PaymentServiceOption func(*PaymentService)

func WithNotifier(n Notifier) PaymentServiceOption {
	return func(s *PaymentService) {
		s.notifier = n
	}
}

func WithBroadcaster(b Broadcaster) PaymentServiceOption {
	return func(s *PaymentService) {
		s.broadcaster = b
	}
}

func WithEvents(p Producer, topic string) PaymentServiceOption {
	return func(s *PaymentService) {
		s.producer = p
		s.topic = topic
	}
}

func WithLogger(log *zap.Logger) PaymentServiceOption {
	return func(s *PaymentService) {
		if log != nil {
			s.log = log
		}
	}
}

func WithClock(now func() time.Time) PaymentServiceOption {
	return func(s *PaymentService) {
		s.now = now
	}
}

func NewPaymentService(payments repository.PaymentRepository, bookings BookingReader, gw Gateway, opts ...PaymentServiceOption) *PaymentService {
	service := &PaymentService{
		payments: payments,
		bookings: bookings,
		gateway:  gw,
		now:      time.Now,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Capture charges a completed booking once. Cash settles immediately; mobile money stays
// PROCESSING until the provider's webhook arrives. A FAILED payment may be retried.
func (s *PaymentService) Capture(ctx context.Context, actor domain.Actor, bookingID string, input CaptureInput) (*domain.Payment, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	if input.Method.MobileMoney() {
		if _, err := gateway.SanitizePhone(input.PhoneNumber); err != nil {
			return nil, domain.NewValidationError("phone_number", "is not a valid mobile money number")
		}
	}

	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !actor.Privileged() && !b.IsCustomer(actor.ID) {
		return nil, domain.ErrForbidden
	}
	if b.Status != domain.BookingStatusCompleted {
		return nil, domain.ErrPaymentNotAllowed
	}

	p := &domain.Payment{
		ID:        uuid.NewString(),
		BookingID: b.ID,
		Amount:    b.ChargeAmount(),
		Method:    input.Method,
		Status:    domain.PaymentStatusCompleted,
	}
	if input.Method.MobileMoney() {
		ref := p.ID
		p.Status = domain.PaymentStatusProcessing
		p.ProviderRef = &ref
	}

	stored, err := s.payments.Begin(ctx, p)
	if errors.Is(err, repository.ErrConflict) {
		return nil, s.existingPaymentError(ctx, b.ID)
	}
	if err != nil {
		return nil, err
	}

	s.log.Info("payment started",
		zap.String("payment_id", stored.ID),
		zap.String("booking_id", b.ID),
		zap.String("method", string(stored.Method)),
		zap.Float64("amount", stored.Amount))

	if stored.Status == domain.PaymentStatusCompleted {
		s.settled(ctx, b, stored)
		return stored, nil
	}

	if err := s.gateway.RequestPayment(ctx, stored.Method, input.PhoneNumber, stored.Amount, *stored.ProviderRef); err != nil {
		reason := err.Error()
		if _, ferr := s.payments.Finalize(ctx, *stored.ProviderRef, domain.PaymentStatusFailed, &reason); ferr != nil {
			s.log.Error("mark payment failed", zap.String("payment_id", stored.ID), zap.Error(ferr))
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrPaymentGateway, err)
	}
	return stored, nil
}

func (s *PaymentService) existingPaymentError(ctx context.Context, bookingID string) error {
	existing, err := s.payments.GetByBookingID(ctx, bookingID)
	if err != nil {
		return err
	}
	if existing.Status == domain.PaymentStatusProcessing {
		return domain.ErrPaymentInProgress
	}
	return domain.ErrAlreadyPaid
}

// HandleWebhook settles a PROCESSING payment. Repeated deliveries return the settled payment unchanged.
func (s *PaymentService) HandleWebhook(ctx context.Context, input WebhookInput) (*domain.Payment, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	status := domain.PaymentStatusCompleted
	var reason *string
	if !input.Success {
		status = domain.PaymentStatusFailed
		r := input.Reason
		if r == "" {
			r = "declined"
		}
		reason = &r
	}

	p, err := s.payments.Finalize(ctx, input.Reference, status, reason)
	if errors.Is(err, repository.ErrConflict) {
		// Already settled, or unknown reference.
		return s.payments.GetByProviderRef(ctx, input.Reference)
	}
	if err != nil {
		return nil, err
	}

	s.log.Info("payment settled",
		zap.String("payment_id", p.ID),
		zap.String("booking_id", p.BookingID),
		zap.String("status", string(p.Status)))

	if p.Status == domain.PaymentStatusFailed {
		s.publish(ctx, kafka.EventPaymentFailed, p)
		return p, nil
	}

	b, err := s.bookings.GetByID(ctx, p.BookingID)
	if err != nil {
		s.log.Warn("load booking for settled payment", zap.String("booking_id", p.BookingID), zap.Error(err))
		s.publish(ctx, kafka.EventPaymentCompleted, p)
		return p, nil
	}
	s.settled(ctx, b, p)
	return p, nil
}

// FailStale fails mobile money payments whose webhook never arrived.
func (s *PaymentService) FailStale(ctx context.Context, olderThan time.Duration) ([]domain.Payment, error) {
	cutoff := s.now().Add(-olderThan)
	failed, err := s.payments.FailProcessingBefore(ctx, cutoff, staleReason)
	if err != nil {
		return nil, err
	}
	for i := range failed {
		s.publish(ctx, kafka.EventPaymentFailed, &failed[i])
	}
	if len(failed) > 0 {
		s.log.Info("failed stale payments", zap.Int("count", len(failed)), zap.Time("cutoff", cutoff))
	}
	return failed, nil
}

func (s *PaymentService) settled(ctx context.Context, b *domain.Booking, p *domain.Payment) {
	s.publish(ctx, kafka.EventPaymentCompleted, p)

	if s.broadcaster != nil {
		if err := s.broadcaster.Publish(ctx, realtime.BookingTopic(b.ID), kafka.EventPaymentCompleted, p); err != nil {
			s.log.Warn("broadcast payment", zap.String("booking_id", b.ID), zap.Error(err))
		}
	}

	if s.notifier == nil || !b.HasWorker() {
		return
	}
	data := map[string]any{
		"booking_id": b.ID,
		"payment_id": p.ID,
		"amount":     p.Amount,
		"method":     string(p.Method),
	}
	body := fmt.Sprintf("You received %.2f via %s.", p.Amount, p.Method)
	if err := s.notifier.Notify(ctx, *b.WorkerID, domain.NotifPaymentReceived, "Payment received", body, data); err != nil {
		s.log.Warn("create notification", zap.String("payment_id", p.ID), zap.Error(err))
	}
}

func (s *PaymentService) publish(ctx context.Context, eventType string, p *domain.Payment) {
	if s.producer == nil || s.topic == "" {
		return
	}
	event := kafka.PaymentEvent{
		Type:       eventType,
		PaymentID:  p.ID,
		BookingID:  p.BookingID,
		Amount:     p.Amount,
		Method:     string(p.Method),
		Status:     string(p.Status),
		OccurredAt: s.now(),
	}
	if p.FailureReason != nil {
		event.Reason = *p.FailureReason
	}
	if err := s.producer.Publish(ctx, s.topic, p.BookingID, event); err != nil {
		s.log.Warn("publish payment event", zap.String("payment_id", p.ID), zap.Error(err))
	}
}

var _ PaymentUseCase = (*PaymentService)(nil)
