package payment

import (
	"errors"
	"log"
	"sync"

	"github.com/mkravets/travelbooking/internal/domain"
)

var (
	ErrInvalidBookingState = errors.New("booking is not pending")
	ErrSessionActive       = errors.New("payment session already active")
	ErrNoSession           = errors.New("no payment session open")
)

// BookingDirectory is the slice of the booking store the checkout flow needs.
type BookingDirectory interface {
	Get(id string) (domain.Booking, bool)
	UpdateStatus(id string, next domain.BookingStatus) (bool, error)
}

// Controller binds one payment session to checkout visibility and to the
// booking store. It owns at most one live session; a session torn down by
// Close never receives a late gateway callback.
type Controller struct {
	mu        sync.Mutex
	bookings  BookingDirectory
	session   *Session
	bookingID string
	visible   bool
	errMsg    string
	onClose   func()
}

func NewController(bookings BookingDirectory) *Controller {
	return &Controller{bookings: bookings}
}

// Show opens the checkout for a booking. The booking must exist and be
// pending; paying for a confirmed or cancelled booking is refused without
// creating a session.
func (c *Controller) Show(bookingID, clientSecret string, amountCents int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		return ErrSessionActive
	}
	b, ok := c.bookings.Get(bookingID)
	if !ok || b.Status != domain.BookingStatusPending {
		return ErrInvalidBookingState
	}
	c.session = OpenSession(clientSecret, amountCents, bookingID)
	c.bookingID = bookingID
	c.visible = true
	c.errMsg = ""
	return nil
}

// Reopen issues a fresh payment attempt after a declined one, without
// closing the checkout. Gateway tokens are single-use, so the caller must
// supply a newly issued client secret.
func (c *Controller) Reopen(clientSecret string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.visible || c.session == nil {
		return ErrNoSession
	}
	if outcome, _ := c.session.Outcome(); outcome != OutcomeErrored {
		return ErrSessionActive
	}
	c.session = OpenSession(clientSecret, c.session.AmountCents(), c.bookingID)
	c.errMsg = ""
	return nil
}

// HandleSuccess processes the gateway's success callback: the booking is
// confirmed first, then the checkout closes. Duplicate or late callbacks
// are dropped.
func (c *Controller) HandleSuccess() {
	c.mu.Lock()
	sess := c.session
	c.mu.Unlock()
	if sess == nil || !sess.Succeed() {
		return
	}
	applied, err := c.bookings.UpdateStatus(sess.BookingID(), domain.BookingStatusConfirmed)
	if err != nil {
		log.Printf("checkout: confirm booking %s: %v", sess.BookingID(), err)
	} else if !applied {
		log.Printf("checkout: stale confirm for booking %s ignored", sess.BookingID())
	}
	c.closeSession(sess)
}

// HandleCancel processes a user abort before payment was submitted. The
// booking stays pending and remains retryable.
func (c *Controller) HandleCancel() {
	c.mu.Lock()
	sess := c.session
	c.mu.Unlock()
	if sess == nil || !sess.Cancel() {
		return
	}
	c.closeSession(sess)
}

// HandleError keeps the checkout open with the gateway's reason so the
// user can retry, distinguishing "attempt failed" from "user gave up".
func (c *Controller) HandleError(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil || !c.session.Fail(reason) {
		return
	}
	c.errMsg = reason
}

// Close tears down the checkout. Always safe: it discards the session
// whatever its outcome so far, with no further effect on the store.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.session != nil {
		c.session.Cancel()
	}
	c.session = nil
	c.visible = false
	onClose := c.onClose
	c.mu.Unlock()
	if onClose != nil {
		onClose()
	}
}

func (c *Controller) closeSession(sess *Session) {
	c.mu.Lock()
	if c.session != sess {
		// the checkout was already torn down or reopened
		c.mu.Unlock()
		return
	}
	c.session = nil
	c.visible = false
	onClose := c.onClose
	c.mu.Unlock()
	if onClose != nil {
		onClose()
	}
}

func (c *Controller) Visible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visible
}

func (c *Controller) ErrorMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

func (c *Controller) ActiveSession() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}
