package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrForbidden         = errors.New("forbidden")
	ErrNotAvailable      = errors.New("booking is no longer available")
	ErrValidation        = errors.New("validation error")

	ErrPaymentNotAllowed = errors.New("payment is only allowed for completed bookings")
	ErrAlreadyPaid       = errors.New("booking is already paid")
	ErrPaymentInProgress = errors.New("payment is already in progress")
	ErrAlreadyReviewed   = errors.New("booking is already reviewed")
	ErrPaymentGateway    = errors.New("payment gateway error")
)

// TransitionError reports a status pair missing from the transition table.
type TransitionError struct {
	Current   BookingStatus
	Attempted BookingStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.Current, e.Attempted)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError names the missing entity.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

func NewNotFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}
