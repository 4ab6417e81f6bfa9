package booking

import "github.com/Domenick1991/servicebooking/internal/domain"

type notificationTemplate struct {
	Type  domain.NotificationType
	Title string
	Body  string
}

// statusNotifications maps the status a booking enters to the notification its counterparty receives.
var statusNotifications = map[domain.BookingStatus]notificationTemplate{
	domain.BookingStatusAccepted: {
		Type:  domain.NotifBookingAccepted,
		Title: "Booking accepted",
		Body:  "A worker has accepted your booking.",
	},
	domain.BookingStatusWorkerEnRoute: {
		Type:  domain.NotifWorkerEnRoute,
		Title: "Worker on the way",
		Body:  "Your worker is on the way to you.",
	},
	domain.BookingStatusInProgress: {
		Type:  domain.NotifServiceStarted,
		Title: "Service started",
		Body:  "Your worker has started the job.",
	},
	domain.BookingStatusCompleted: {
		Type:  domain.NotifServiceCompleted,
		Title: "Service completed",
		Body:  "Your service is complete. You can now pay and leave a review.",
	},
	domain.BookingStatusCancelled: {
		Type:  domain.NotifBookingCancelled,
		Title: "Booking cancelled",
		Body:  "The booking has been cancelled.",
	},
}

var expiredNotification = notificationTemplate{
	Type:  domain.NotifBookingExpired,
	Title: "Booking expired",
	Body:  "No worker accepted your booking in time. Please try again.",
}

// recipients returns who hears about the transition into updated.Status.
// Forward transitions notify the customer. A cancellation notifies the other party,
// or both parties when an admin cancels.
func recipients(previous, updated *domain.Booking, actor domain.Actor) []string {
	if updated.Status != domain.BookingStatusCancelled {
		return []string{updated.CustomerID}
	}

	var ids []string
	switch {
	case previous.IsCustomer(actor.ID):
		if previous.HasWorker() {
			ids = append(ids, *previous.WorkerID)
		}
	case previous.IsAssignedWorker(actor.ID):
		ids = append(ids, previous.CustomerID)
	default:
		ids = append(ids, previous.CustomerID)
		if previous.HasWorker() {
			ids = append(ids, *previous.WorkerID)
		}
	}
	return ids
}
