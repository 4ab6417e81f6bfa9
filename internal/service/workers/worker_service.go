package workers

import (
	"context"
	"sort"

	"github.com/Domenick1991/servicebooking/internal/domain"
	"github.com/Domenick1991/servicebooking/internal/repository"
	"go.uber.org/zap"
)

type WorkerUseCase interface {
	GetByID(ctx context.Context, id string) (*domain.Worker, error)
	FindNearby(ctx context.Context, input NearbyInput) (*domain.Page[domain.WorkerCandidate], error)
}

type WorkerCache interface {
	GetWorker(ctx context.Context, id string) (*domain.Worker, error)
	SetWorker(ctx context.Context, w *domain.Worker) error
}

type WorkerService struct {
	repo            repository.WorkerRepository
	cache           WorkerCache
	defaultRadiusKm float64
	maxRadiusKm     float64
	log             *zap.Logger
}

type NearbyInput struct {
	Latitude   float64
	Longitude  float64
	CategoryID string
	RadiusKm   float64
	Page       int
	Size       int
}

func NewWorkerService(repo repository.WorkerRepository, cache WorkerCache, defaultRadiusKm, maxRadiusKm float64, log *zap.Logger) *WorkerService {
	if log == nil {
		log = zap.NewNop()
	}
	return &WorkerService{
		repo:            repo,
		cache:           cache,
		defaultRadiusKm: defaultRadiusKm,
		maxRadiusKm:     maxRadiusKm,
		log:             log,
	}
}

// GetByID reads through the cache. Cache errors fall back to the database.
func (s *WorkerService) GetByID(ctx context.Context, id string) (*domain.Worker, error) {
	if s.cache != nil {
		cached, err := s.cache.GetWorker(ctx, id)
		if err != nil {
			s.log.Debug("worker cache read", zap.String("worker_id", id), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	w, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetWorker(ctx, w); err != nil {
			s.log.Debug("worker cache write", zap.String("worker_id", id), zap.Error(err))
		}
	}
	return w, nil
}

// Directory looks workers up by id.
type Directory interface {
	GetByID(ctx context.Context, id string) (*domain.Worker, error)
}

// Authoritative returns a Directory that always reads the database and refreshes the cache
// with what it finds. Claim eligibility uses it so a revoked verification takes effect at once.
func (s *WorkerService) Authoritative() Directory {
	return authoritativeDirectory{s: s}
}

type authoritativeDirectory struct {
	s *WorkerService
}

func (d authoritativeDirectory) GetByID(ctx context.Context, id string) (*domain.Worker, error) {
	w, err := d.s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.s.cache != nil {
		if err := d.s.cache.SetWorker(ctx, w); err != nil {
			d.s.log.Debug("worker cache refresh", zap.String("worker_id", id), zap.Error(err))
		}
	}
	return w, nil
}

// FindNearby returns online, verified workers offering the category within the radius,
// nearest first. Candidates are not reserved.
func (s *WorkerService) FindNearby(ctx context.Context, input NearbyInput) (*domain.Page[domain.WorkerCandidate], error) {
	if input.CategoryID == "" {
		return nil, domain.NewValidationError("category_id", "is required")
	}
	if input.Latitude < -90 || input.Latitude > 90 {
		return nil, domain.NewValidationError("latitude", "must be between -90 and 90")
	}
	if input.Longitude < -180 || input.Longitude > 180 {
		return nil, domain.NewValidationError("longitude", "must be between -180 and 180")
	}
	radius := input.RadiusKm
	if radius < 0 {
		return nil, domain.NewValidationError("radius_km", "must not be negative")
	}
	if radius == 0 {
		radius = s.defaultRadiusKm
	}
	if s.maxRadiusKm > 0 && radius > s.maxRadiusKm {
		radius = s.maxRadiusKm
	}
	page, size := domain.NormalizePage(input.Page, input.Size)

	minLat, maxLat, minLon, maxLon := domain.BoundingBox(input.Latitude, input.Longitude, radius)
	workers, err := s.repo.FindInBox(ctx, domain.NearbyQuery{
		CategoryID: input.CategoryID,
		MinLat:     minLat,
		MaxLat:     maxLat,
		MinLon:     minLon,
		MaxLon:     maxLon,
	})
	if err != nil {
		return nil, err
	}

	candidates := make([]domain.WorkerCandidate, 0, len(workers))
	for _, w := range workers {
		if !w.IsOnline || !w.CanClaim(input.CategoryID) {
			continue
		}
		d := domain.DistanceKm(input.Latitude, input.Longitude, w.CurrentLatitude, w.CurrentLongitude)
		if d > radius {
			continue
		}
		candidates = append(candidates, domain.WorkerCandidate{Worker: w, DistanceKm: d})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].DistanceKm == candidates[j].DistanceKm {
			return candidates[i].Worker.ID < candidates[j].Worker.ID
		}
		return candidates[i].DistanceKm < candidates[j].DistanceKm
	})

	total := len(candidates)
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}

	return &domain.Page[domain.WorkerCandidate]{Items: candidates[start:end], Total: total, Page: page, Size: size}, nil
}

var _ WorkerUseCase = (*WorkerService)(nil)
