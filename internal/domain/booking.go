package domain

import (
	"fmt"
	"time"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	BookingStatusFailed    BookingStatus = "FAILED"
)

type SubjectType string

const (
	SubjectHotel  SubjectType = "HOTEL"
	SubjectFlight SubjectType = "FLIGHT"
)

// ParseStatus validates a status string coming from the backend or a payload.
// Unknown values are rejected at the boundary instead of being stored.
func ParseStatus(s string) (BookingStatus, error) {
	switch BookingStatus(s) {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCancelled, BookingStatusFailed:
		return BookingStatus(s), nil
	}
	return "", fmt.Errorf("unknown booking status %q", s)
}

func ParseSubjectType(s string) (SubjectType, error) {
	switch SubjectType(s) {
	case SubjectHotel, SubjectFlight:
		return SubjectType(s), nil
	}
	return "", fmt.Errorf("unknown subject type %q", s)
}

// CanTransitionTo reports whether moving to next is a legal lifecycle step.
// Anything not listed here is a stale or out-of-order event.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	switch s {
	case BookingStatusPending:
		return next == BookingStatusConfirmed || next == BookingStatusFailed || next == BookingStatusCancelled
	case BookingStatusConfirmed:
		return next == BookingStatusCancelled
	}
	return false
}

type Booking struct {
	ID          string
	Subject     SubjectType
	Status      BookingStatus
	AmountCents int64
	Currency    string
	Email       string

	// hotel bookings
	RoomRef  string
	CheckIn  time.Time
	CheckOut time.Time

	// flight bookings
	CabinRef   string
	SeatNumber int

	CreatedAt time.Time
	UpdatedAt time.Time
}
