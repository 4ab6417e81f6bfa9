package domain

import "time"

type NotificationType string

const (
	NotifBookingAccepted  NotificationType = "BOOKING_ACCEPTED"
	NotifWorkerEnRoute    NotificationType = "WORKER_EN_ROUTE"
	NotifServiceStarted   NotificationType = "SERVICE_STARTED"
	NotifServiceCompleted NotificationType = "SERVICE_COMPLETED"
	NotifBookingCancelled NotificationType = "BOOKING_CANCELLED"
	NotifBookingExpired   NotificationType = "BOOKING_EXPIRED"
	NotifPaymentReceived  NotificationType = "PAYMENT_RECEIVED"
	NotifNewReview        NotificationType = "NEW_REVIEW"
)

type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	Data      map[string]any   `json:"data,omitempty"`
	IsRead    bool             `json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}
