package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/servicebooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrConflict is returned when a conditional write matched no row because the row changed underneath it.
var ErrConflict = errors.New("row changed concurrently")

type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	List(ctx context.Context, filter domain.BookingFilter) ([]domain.Booking, int, error)
	// Claim assigns workerID and moves the booking to ACCEPTED only while it is PENDING and unassigned.
	Claim(ctx context.Context, id, workerID string) (*domain.Booking, error)
	// UpdateStatus applies change only while the stored status equals change.From.
	UpdateStatus(ctx context.Context, change domain.StatusChange) (*domain.Booking, error)
	ListUnclaimedBefore(ctx context.Context, cutoff time.Time) ([]domain.Booking, error)
}

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

const bookingColumns = `id, customer_id, worker_id, category_id, description, latitude, longitude, address, status,
	estimated_price, final_price, scheduled_at, started_at, completed_at, created_at, updated_at`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	if err := row.Scan(&b.ID, &b.CustomerID, &b.WorkerID, &b.CategoryID, &b.Description, &b.Latitude, &b.Longitude,
		&b.Address, &b.Status, &b.EstimatedPrice, &b.FinalPrice, &b.ScheduledAt, &b.StartedAt, &b.CompletedAt,
		&b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *PGBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	return r.db.QueryRow(ctx, `INSERT INTO bookings (id, customer_id, worker_id, category_id, description, latitude, longitude,
		address, status, estimated_price, scheduled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`,
		booking.ID, booking.CustomerID, booking.WorkerID, booking.CategoryID, booking.Description, booking.Latitude,
		booking.Longitude, booking.Address, booking.Status, booking.EstimatedPrice, booking.ScheduledAt).
		Scan(&booking.CreatedAt, &booking.UpdatedAt)
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewNotFound("booking", id)
	}
	return b, err
}

func (r *PGBookingRepository) List(ctx context.Context, filter domain.BookingFilter) ([]domain.Booking, int, error) {
	clause, args := bookingFilterClause(filter)

	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM bookings`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Size, (filter.Page-1)*filter.Size)
	rows, err := r.db.Query(ctx, fmt.Sprintf(`SELECT %s FROM bookings%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		bookingColumns, clause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, 0, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, total, rows.Err()
}

func (r *PGBookingRepository) Claim(ctx context.Context, id, workerID string) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, `UPDATE bookings SET status=$3, worker_id=$2, updated_at=now()
		WHERE id=$1 AND status=$4 AND worker_id IS NULL
		RETURNING `+bookingColumns, id, workerID, domain.BookingStatusAccepted, domain.BookingStatusPending))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrConflict
	}
	return b, err
}

func (r *PGBookingRepository) UpdateStatus(ctx context.Context, change domain.StatusChange) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, `UPDATE bookings SET status=$3,
			started_at=COALESCE(started_at, $4),
			completed_at=COALESCE($5, completed_at),
			final_price=COALESCE($6, final_price),
			updated_at=now()
		WHERE id=$1 AND status=$2
		RETURNING `+bookingColumns,
		change.BookingID, change.From, change.To, change.StartedAt, change.CompletedAt, change.FinalPrice))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrConflict
	}
	return b, err
}

func (r *PGBookingRepository) ListUnclaimedBefore(ctx context.Context, cutoff time.Time) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE status=$1 AND worker_id IS NULL AND created_at <= $2 ORDER BY created_at`, domain.BookingStatusPending, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

var _ BookingRepository = (*PGBookingRepository)(nil)

// bookingFilterClause builds the WHERE clause for List with positional arguments.
func bookingFilterClause(filter domain.BookingFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if filter.CustomerID != "" {
		args = append(args, filter.CustomerID)
		where = append(where, fmt.Sprintf("customer_id=$%d", len(args)))
	}
	if filter.WorkerID != "" {
		args = append(args, filter.WorkerID)
		where = append(where, fmt.Sprintf("worker_id=$%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status=$%d", len(args)))
	}
	if len(where) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(where, " AND "), args
}
