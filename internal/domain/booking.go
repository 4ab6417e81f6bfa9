package domain

import "time"

type BookingStatus string

const (
	BookingStatusPending       BookingStatus = "PENDING"
	BookingStatusAccepted      BookingStatus = "ACCEPTED"
	BookingStatusWorkerEnRoute BookingStatus = "WORKER_EN_ROUTE"
	BookingStatusInProgress    BookingStatus = "IN_PROGRESS"
	BookingStatusCompleted     BookingStatus = "COMPLETED"
	BookingStatusCancelled     BookingStatus = "CANCELLED"
)

// transitions is the single source of truth for the booking lifecycle.
var transitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:       {BookingStatusAccepted, BookingStatusCancelled},
	BookingStatusAccepted:      {BookingStatusWorkerEnRoute, BookingStatusCancelled},
	BookingStatusWorkerEnRoute: {BookingStatusInProgress, BookingStatusCancelled},
	BookingStatusInProgress:    {BookingStatusCompleted, BookingStatusCancelled},
	BookingStatusCompleted:     nil,
	BookingStatusCancelled:     nil,
}

// AllBookingStatuses lists every status in lifecycle order.
func AllBookingStatuses() []BookingStatus {
	return []BookingStatus{
		BookingStatusPending,
		BookingStatusAccepted,
		BookingStatusWorkerEnRoute,
		BookingStatusInProgress,
		BookingStatusCompleted,
		BookingStatusCancelled,
	}
}

func (s BookingStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

func (s BookingStatus) Terminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

// CanTransition reports whether the pair (s, to) appears in the transition table.
func (s BookingStatus) CanTransition(to BookingStatus) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

type Booking struct {
	ID             string        `json:"id"`
	CustomerID     string        `json:"customer_id"`
	WorkerID       *string       `json:"worker_id"`
	CategoryID     string        `json:"category_id"`
	Description    string        `json:"description"`
	Latitude       float64       `json:"latitude"`
	Longitude      float64       `json:"longitude"`
	Address        string        `json:"address"`
	Status         BookingStatus `json:"status"`
	EstimatedPrice float64       `json:"estimated_price"`
	FinalPrice     *float64      `json:"final_price"`
	ScheduledAt    *time.Time    `json:"scheduled_at"`
	StartedAt      *time.Time    `json:"started_at"`
	CompletedAt    *time.Time    `json:"completed_at"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

func (b *Booking) HasWorker() bool {
	return b.WorkerID != nil && *b.WorkerID != ""
}

func (b *Booking) IsCustomer(userID string) bool {
	return userID != "" && b.CustomerID == userID
}

func (b *Booking) IsAssignedWorker(userID string) bool {
	return userID != "" && b.HasWorker() && *b.WorkerID == userID
}

// ChargeAmount is the amount a payment captures: the final price once set, otherwise the estimate.
func (b *Booking) ChargeAmount() float64 {
	if b.FinalPrice != nil {
		return *b.FinalPrice
	}
	return b.EstimatedPrice
}

// StatusChange describes a conditional write of a booking's status.
// The update only applies while the stored status still equals From.
type StatusChange struct {
	BookingID   string
	From        BookingStatus
	To          BookingStatus
	StartedAt   *time.Time
	CompletedAt *time.Time
	FinalPrice  *float64
}

type BookingFilter struct {
	CustomerID string
	WorkerID   string
	Status     BookingStatus
	Page       int
	Size       int
}
