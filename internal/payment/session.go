package payment

import (
	"sync"
)

type Outcome string

const (
	OutcomePending   Outcome = "PENDING"
	OutcomeSucceeded Outcome = "SUCCEEDED"
	OutcomeCancelled Outcome = "CANCELLED"
	OutcomeErrored   Outcome = "ERRORED"
)

// Session wraps one payment attempt for one booking. It resolves to a
// terminal outcome exactly once: the first of Succeed/Cancel/Fail wins and
// every later call is dropped, so a double-fired gateway callback cannot
// flip the result.
type Session struct {
	mu           sync.Mutex
	bookingID    string
	clientSecret string
	amountCents  int64
	outcome      Outcome
	reason       string
	done         chan struct{}
}

// OpenSession starts a payment attempt. An empty client secret means the
// backend never issued a gateway token before invoking checkout; that is a
// programming error upstream, not a recoverable condition.
func OpenSession(clientSecret string, amountCents int64, bookingID string) *Session {
	if clientSecret == "" {
		panic("payment: OpenSession called without a client secret")
	}
	return &Session{
		bookingID:    bookingID,
		clientSecret: clientSecret,
		amountCents:  amountCents,
		outcome:      OutcomePending,
		done:         make(chan struct{}),
	}
}

func (s *Session) BookingID() string    { return s.bookingID }
func (s *Session) AmountCents() int64   { return s.amountCents }
func (s *Session) ClientSecret() string { return s.clientSecret }

// Outcome returns the current outcome and, for ERRORED, the gateway reason.
func (s *Session) Outcome() (Outcome, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome, s.reason
}

// Done is closed once the session has resolved.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) Succeed() bool           { return s.resolve(OutcomeSucceeded, "") }
func (s *Session) Cancel() bool            { return s.resolve(OutcomeCancelled, "") }
func (s *Session) Fail(reason string) bool { return s.resolve(OutcomeErrored, reason) }

func (s *Session) resolve(o Outcome, reason string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcome != OutcomePending {
		return false
	}
	s.outcome = o
	s.reason = reason
	close(s.done)
	return true
}
