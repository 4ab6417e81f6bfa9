package repository

import (
	"context"
	"errors"

	"github.com/Domenick1991/servicebooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type WorkerRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Worker, error)
	// FindInBox returns online, verified workers offering the category inside the query rectangle.
	FindInBox(ctx context.Context, query domain.NearbyQuery) ([]domain.Worker, error)
}

type PGWorkerRepository struct {
	db *pgxpool.Pool
}

func NewWorkerRepository(db *pgxpool.Pool) WorkerRepository {
	return &PGWorkerRepository{db: db}
}

const workerColumns = `w.id, w.name, w.verification_status, w.is_online, w.current_latitude, w.current_longitude,
	w.rating_average, w.rating_count, w.updated_at`

func scanWorker(row pgx.Row) (*domain.Worker, error) {
	var w domain.Worker
	if err := row.Scan(&w.ID, &w.Name, &w.VerificationStatus, &w.IsOnline, &w.CurrentLatitude, &w.CurrentLongitude,
		&w.RatingAverage, &w.RatingCount, &w.UpdatedAt); err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *PGWorkerRepository) GetByID(ctx context.Context, id string) (*domain.Worker, error) {
	w, err := scanWorker(r.db.QueryRow(ctx, `SELECT `+workerColumns+` FROM workers w WHERE w.id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewNotFound("worker", id)
	}
	if err != nil {
		return nil, err
	}

	services, err := r.services(ctx, []string{w.ID})
	if err != nil {
		return nil, err
	}
	w.Services = services[w.ID]
	return w, nil
}

func (r *PGWorkerRepository) FindInBox(ctx context.Context, q domain.NearbyQuery) ([]domain.Worker, error) {
	rows, err := r.db.Query(ctx, `SELECT `+workerColumns+` FROM workers w
		JOIN worker_services s ON s.worker_id = w.id AND s.category_id = $1
		WHERE w.is_online AND w.verification_status = $2
			AND w.current_latitude BETWEEN $3 AND $4
			AND `+longitudeClause(q),
		q.CategoryID, domain.VerificationVerified, q.MinLat, q.MaxLat, q.MinLon, q.MaxLon)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	workers := make([]domain.Worker, 0)
	ids := make([]string, 0)
	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			return nil, err
		}
		workers = append(workers, *w)
		ids = append(ids, w.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return workers, nil
	}

	services, err := r.services(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range workers {
		workers[i].Services = services[workers[i].ID]
	}
	return workers, nil
}

func (r *PGWorkerRepository) services(ctx context.Context, workerIDs []string) (map[string][]domain.ServiceOffering, error) {
	rows, err := r.db.Query(ctx, `SELECT worker_id, category_id, price FROM worker_services WHERE worker_id = ANY($1) ORDER BY category_id`, workerIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]domain.ServiceOffering, len(workerIDs))
	for rows.Next() {
		var (
			workerID string
			s        domain.ServiceOffering
		)
		if err := rows.Scan(&workerID, &s.CategoryID, &s.Price); err != nil {
			return nil, err
		}
		out[workerID] = append(out[workerID], s)
	}
	return out, rows.Err()
}

var _ WorkerRepository = (*PGWorkerRepository)(nil)

// longitudeClause matches $5..$6 as a longitude range, wrapping through 180 when the box
// crosses the antimeridian.
func longitudeClause(q domain.NearbyQuery) string {
	if q.WrapsAntimeridian() {
		return "(w.current_longitude >= $5 OR w.current_longitude <= $6)"
	}
	return "w.current_longitude BETWEEN $5 AND $6"
}
