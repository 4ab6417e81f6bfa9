package domain

import "time"

type PaymentMethod string

const (
	PaymentMethodCash        PaymentMethod = "CASH"
	PaymentMethodMpesa       PaymentMethod = "MPESA"
	PaymentMethodAirtelMoney PaymentMethod = "AIRTEL_MONEY"
	PaymentMethodMTNMomo     PaymentMethod = "MTN_MOMO"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodMpesa, PaymentMethodAirtelMoney, PaymentMethodMTNMomo:
		return true
	}
	return false
}

func (m PaymentMethod) MobileMoney() bool {
	return m.Valid() && m != PaymentMethodCash
}

type PaymentStatus string

const (
	PaymentStatusProcessing PaymentStatus = "PROCESSING"
	PaymentStatusCompleted  PaymentStatus = "COMPLETED"
	PaymentStatusFailed     PaymentStatus = "FAILED"
)

type Payment struct {
	ID            string        `json:"id"`
	BookingID     string        `json:"booking_id"`
	Amount        float64       `json:"amount"`
	Method        PaymentMethod `json:"method"`
	Status        PaymentStatus `json:"status"`
	ProviderRef   *string       `json:"provider_ref"`
	FailureReason *string       `json:"failure_reason,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}
