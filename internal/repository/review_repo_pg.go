package repository

import (
	"context"
	"errors"

	"github.com/Domenick1991/servicebooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ReviewRepository interface {
	// Create stores the review and recomputes the worker's rating in one transaction.
	// A second review for the same booking yields ErrConflict.
	Create(ctx context.Context, review *domain.Review) error
}

type PGReviewRepository struct {
	db *pgxpool.Pool
}

func NewReviewRepository(db *pgxpool.Pool) ReviewRepository {
	return &PGReviewRepository{db: db}
}

func (r *PGReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `INSERT INTO reviews (id, booking_id, customer_id, worker_id, rating, comment)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (booking_id) DO NOTHING
		RETURNING created_at`,
		review.ID, review.BookingID, review.CustomerID, review.WorkerID, review.Rating, review.Comment).
		Scan(&review.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrConflict
	}
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `UPDATE workers SET
			rating_average = (SELECT COALESCE(AVG(rating), 0) FROM reviews WHERE worker_id=$1),
			rating_count = (SELECT count(*) FROM reviews WHERE worker_id=$1),
			updated_at = now()
		WHERE id=$1`, review.WorkerID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

var _ ReviewRepository = (*PGReviewRepository)(nil)
