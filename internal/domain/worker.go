package domain

import "time"

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "PENDING"
	VerificationVerified VerificationStatus = "VERIFIED"
	VerificationRejected VerificationStatus = "REJECTED"
)

type ServiceOffering struct {
	CategoryID string  `json:"category_id"`
	Price      float64 `json:"price"`
}

type Worker struct {
	ID                 string             `json:"id"`
	Name               string             `json:"name"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	IsOnline           bool               `json:"is_online"`
	CurrentLatitude    float64            `json:"current_latitude"`
	CurrentLongitude   float64            `json:"current_longitude"`
	RatingAverage      float64            `json:"rating_average"`
	RatingCount        int                `json:"rating_count"`
	Services           []ServiceOffering  `json:"services"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

func (w *Worker) Verified() bool {
	return w.VerificationStatus == VerificationVerified
}

func (w *Worker) Offers(categoryID string) bool {
	for _, s := range w.Services {
		if s.CategoryID == categoryID {
			return true
		}
	}
	return false
}

// CanClaim reports whether the worker may take an unassigned booking in the category.
func (w *Worker) CanClaim(categoryID string) bool {
	return w.Verified() && w.Offers(categoryID)
}

// WorkerCandidate is a matching result.
type WorkerCandidate struct {
	Worker     Worker  `json:"worker"`
	DistanceKm float64 `json:"distance_km"`
}

// NearbyQuery is a rectangular prefilter for the worker directory.
type NearbyQuery struct {
	CategoryID string
	MinLat     float64
	MaxLat     float64
	MinLon     float64
	MaxLon     float64
}

// WrapsAntimeridian reports a longitude range that runs from MinLon east through 180 to MaxLon.
func (q NearbyQuery) WrapsAntimeridian() bool {
	return q.MinLon > q.MaxLon
}

// ContainsLon reports whether lon falls inside the query's longitude range.
func (q NearbyQuery) ContainsLon(lon float64) bool {
	if q.WrapsAntimeridian() {
		return lon >= q.MinLon || lon <= q.MaxLon
	}
	return lon >= q.MinLon && lon <= q.MaxLon
}
