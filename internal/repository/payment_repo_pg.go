package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Domenick1991/servicebooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PaymentRepository interface {
	GetByBookingID(ctx context.Context, bookingID string) (*domain.Payment, error)
	GetByProviderRef(ctx context.Context, ref string) (*domain.Payment, error)
	// Begin inserts the booking's payment, or replaces a FAILED one. Any other existing payment yields ErrConflict.
	Begin(ctx context.Context, payment *domain.Payment) (*domain.Payment, error)
	// Finalize moves a PROCESSING payment to status; ErrConflict when it is no longer PROCESSING.
	Finalize(ctx context.Context, providerRef string, status domain.PaymentStatus, reason *string) (*domain.Payment, error)
	FailProcessingBefore(ctx context.Context, cutoff time.Time, reason string) ([]domain.Payment, error)
}

type PGPaymentRepository struct {
	db *pgxpool.Pool
}

func NewPaymentRepository(db *pgxpool.Pool) PaymentRepository {
	return &PGPaymentRepository{db: db}
}

const paymentColumns = `id, booking_id, amount, method, status, provider_ref, failure_reason, created_at, updated_at`

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	if err := row.Scan(&p.ID, &p.BookingID, &p.Amount, &p.Method, &p.Status, &p.ProviderRef, &p.FailureReason,
		&p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PGPaymentRepository) GetByBookingID(ctx context.Context, bookingID string) (*domain.Payment, error) {
	p, err := scanPayment(r.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE booking_id=$1`, bookingID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewNotFound("payment", bookingID)
	}
	return p, err
}

func (r *PGPaymentRepository) GetByProviderRef(ctx context.Context, ref string) (*domain.Payment, error) {
	p, err := scanPayment(r.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE provider_ref=$1`, ref))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewNotFound("payment", ref)
	}
	return p, err
}

func (r *PGPaymentRepository) Begin(ctx context.Context, payment *domain.Payment) (*domain.Payment, error) {
	p, err := scanPayment(r.db.QueryRow(ctx, `INSERT INTO payments (id, booking_id, amount, method, status, provider_ref)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (booking_id) DO UPDATE SET
			id=EXCLUDED.id, amount=EXCLUDED.amount, method=EXCLUDED.method, status=EXCLUDED.status,
			provider_ref=EXCLUDED.provider_ref, failure_reason=NULL, created_at=now(), updated_at=now()
		WHERE payments.status=$7
		RETURNING `+paymentColumns,
		payment.ID, payment.BookingID, payment.Amount, payment.Method, payment.Status, payment.ProviderRef,
		domain.PaymentStatusFailed))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrConflict
	}
	return p, err
}

func (r *PGPaymentRepository) Finalize(ctx context.Context, providerRef string, status domain.PaymentStatus, reason *string) (*domain.Payment, error) {
	p, err := scanPayment(r.db.QueryRow(ctx, `UPDATE payments SET status=$2, failure_reason=$3, updated_at=now()
		WHERE provider_ref=$1 AND status=$4
		RETURNING `+paymentColumns, providerRef, status, reason, domain.PaymentStatusProcessing))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrConflict
	}
	return p, err
}

func (r *PGPaymentRepository) FailProcessingBefore(ctx context.Context, cutoff time.Time, reason string) ([]domain.Payment, error) {
	rows, err := r.db.Query(ctx, `UPDATE payments SET status=$1, failure_reason=$2, updated_at=now()
		WHERE status=$3 AND created_at <= $4
		RETURNING `+paymentColumns, domain.PaymentStatusFailed, reason, domain.PaymentStatusProcessing, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var failed []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		failed = append(failed, *p)
	}
	return failed, rows.Err()
}

var _ PaymentRepository = (*PGPaymentRepository)(nil)
