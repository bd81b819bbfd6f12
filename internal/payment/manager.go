package payment

import (
	"log"
	"sync"
)

// Manager routes gateway callbacks to the checkout that owns the booking.
// At most one checkout is live per booking at a time.
type Manager struct {
	mu       sync.Mutex
	bookings BookingDirectory
	active   map[string]*Controller
}

func NewManager(bookings BookingDirectory) *Manager {
	return &Manager{bookings: bookings, active: make(map[string]*Controller)}
}

// Open starts a checkout for a booking. A second open against the same
// booking while one is live is refused.
func (m *Manager) Open(bookingID, clientSecret string, amountCents int64) (*Controller, error) {
	m.mu.Lock()
	if _, ok := m.active[bookingID]; ok {
		m.mu.Unlock()
		return nil, ErrSessionActive
	}
	ctrl := NewController(m.bookings)
	ctrl.onClose = func() { m.release(bookingID) }
	m.active[bookingID] = ctrl
	m.mu.Unlock()

	if err := ctrl.Show(bookingID, clientSecret, amountCents); err != nil {
		m.release(bookingID)
		return nil, err
	}
	return ctrl, nil
}

// Retry issues a fresh attempt on an already-open checkout.
func (m *Manager) Retry(bookingID, clientSecret string) error {
	ctrl, ok := m.Controller(bookingID)
	if !ok {
		return ErrNoSession
	}
	return ctrl.Reopen(clientSecret)
}

// Resolve feeds a terminal gateway callback to the owning checkout. A
// callback for a booking with no live checkout is a late delivery and is
// dropped.
func (m *Manager) Resolve(bookingID string, outcome Outcome, reason string) {
	ctrl, ok := m.Controller(bookingID)
	if !ok {
		log.Printf("checkout: dropping late %s callback for booking %s", outcome, bookingID)
		return
	}
	switch outcome {
	case OutcomeSucceeded:
		ctrl.HandleSuccess()
	case OutcomeCancelled:
		ctrl.HandleCancel()
	case OutcomeErrored:
		ctrl.HandleError(reason)
	}
}

// Close tears down the checkout for a booking, if any.
func (m *Manager) Close(bookingID string) {
	if ctrl, ok := m.Controller(bookingID); ok {
		ctrl.Close()
	}
}

func (m *Manager) Controller(bookingID string) (*Controller, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ctrl, ok := m.active[bookingID]
	return ctrl, ok
}

func (m *Manager) release(bookingID string) {
	m.mu.Lock()
	delete(m.active, bookingID)
	m.mu.Unlock()
}
