package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mkravets/travelbooking/internal/domain"
)

var (
	ErrDuplicateBooking = errors.New("booking already exists")
	ErrBookingNotFound  = errors.New("booking not found")
)

type EventType string

const (
	EventAdded         EventType = "added"
	EventStatusChanged EventType = "status_changed"
	EventRemoved       EventType = "removed"
	EventRefreshed     EventType = "refreshed"
)

type Event struct {
	Type     EventType
	Booking  domain.Booking
	Previous domain.BookingStatus
}

// Lister is the backend collaborator Refresh pulls from.
type Lister interface {
	ListBookings(ctx context.Context) ([]domain.Booking, error)
}

// BookingStore is the authoritative in-memory set of bookings for the
// current session. Mutations are applied atomically and subscribers are
// notified after the change is fully visible.
type BookingStore struct {
	mu       sync.RWMutex
	bookings map[string]domain.Booking
	subs     []func(Event)
}

func New() *BookingStore {
	return &BookingStore{bookings: make(map[string]domain.Booking)}
}

// Subscribe registers an observer for store mutations. Subscribers are
// invoked synchronously, outside the store lock.
func (s *BookingStore) Subscribe(fn func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

func (s *BookingStore) Add(b domain.Booking) error {
	s.mu.Lock()
	if _, ok := s.bookings[b.ID]; ok {
		s.mu.Unlock()
		return ErrDuplicateBooking
	}
	s.bookings[b.ID] = b
	subs := s.snapshotSubs()
	s.mu.Unlock()

	notify(subs, Event{Type: EventAdded, Booking: b})
	return nil
}

func (s *BookingStore) Get(id string) (domain.Booking, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	return b, ok
}

func (s *BookingStore) List() []domain.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		out = append(out, b)
	}
	return out
}

// UpdateStatus applies a lifecycle transition. An unknown id is a caller
// bug and returns ErrBookingNotFound. An illegal transition is treated as
// a stale event: the store is left untouched and (false, nil) is returned.
func (s *BookingStore) UpdateStatus(id string, next domain.BookingStatus) (bool, error) {
	s.mu.Lock()
	b, ok := s.bookings[id]
	if !ok {
		s.mu.Unlock()
		return false, ErrBookingNotFound
	}
	if !b.Status.CanTransitionTo(next) {
		s.mu.Unlock()
		return false, nil
	}
	prev := b.Status
	b.Status = next
	b.UpdatedAt = time.Now()
	s.bookings[id] = b
	subs := s.snapshotSubs()
	s.mu.Unlock()

	notify(subs, Event{Type: EventStatusChanged, Booking: b, Previous: prev})
	return true, nil
}

// Remove deletes a booking. Removing an absent id is a no-op.
func (s *BookingStore) Remove(id string) {
	s.mu.Lock()
	b, ok := s.bookings[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.bookings, id)
	subs := s.snapshotSubs()
	s.mu.Unlock()

	notify(subs, Event{Type: EventRemoved, Booking: b})
}

// Refresh replaces the full set from the backend. The swap is atomic:
// readers observe either the old set or the new one, never a mix.
func (s *BookingStore) Refresh(ctx context.Context, src Lister) error {
	bookings, err := src.ListBookings(ctx)
	if err != nil {
		return err
	}
	next := make(map[string]domain.Booking, len(bookings))
	for _, b := range bookings {
		next[b.ID] = b
	}

	s.mu.Lock()
	s.bookings = next
	subs := s.snapshotSubs()
	s.mu.Unlock()

	notify(subs, Event{Type: EventRefreshed})
	return nil
}

func (s *BookingStore) snapshotSubs() []func(Event) {
	subs := make([]func(Event), len(s.subs))
	copy(subs, s.subs)
	return subs
}

func notify(subs []func(Event), ev Event) {
	for _, fn := range subs {
		fn(ev)
	}
}
