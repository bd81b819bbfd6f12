package api

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mkravets/travelbooking/internal/domain"
	"github.com/mkravets/travelbooking/internal/gateway"
	"github.com/mkravets/travelbooking/internal/payment"
	"github.com/mkravets/travelbooking/internal/service/booking"
)

type PaymentGateway interface {
	CreateIntent(ctx context.Context, b domain.Booking) (*gateway.Intent, error)
	ParseWebhook(payload []byte, sigHeader string) (*gateway.Callback, error)
}

// IntentMarker deduplicates terminal webhook deliveries per intent.
type IntentMarker interface {
	MarkIntentProcessed(ctx context.Context, intentID string, ttl time.Duration) (bool, error)
}

type PaymentHandler struct {
	service   booking.BookingUseCase
	gateway   PaymentGateway
	checkout  *payment.Manager
	marker    IntentMarker
	markerTTL time.Duration
}

type checkoutResponse struct {
	BookingID    string `json:"booking_id"`
	ClientSecret string `json:"client_secret"`
	AmountCents  int64  `json:"amount_cents"`
	Currency     string `json:"currency"`
}

type checkoutStateResponse struct {
	Open  bool   `json:"open"`
	Error string `json:"error,omitempty"`
}

func NewPaymentHandler(service booking.BookingUseCase, gw PaymentGateway, checkout *payment.Manager, marker IntentMarker, markerTTL time.Duration) *PaymentHandler {
	return &PaymentHandler{service: service, gateway: gw, checkout: checkout, marker: marker, markerTTL: markerTTL}
}

func (h *PaymentHandler) Register(router *gin.RouterGroup) {
	router.POST("/:id/checkout", h.open)
	router.POST("/:id/checkout/retry", h.retry)
	router.GET("/:id/checkout", h.state)
	router.DELETE("/:id/checkout", h.close)
}

// RegisterWebhook mounts the gateway callback endpoint. It is signed by
// the gateway, not by a user session, so it lives outside the auth chain.
func (h *PaymentHandler) RegisterWebhook(router gin.IRoutes) {
	router.POST("/webhooks/payments", h.webhook)
}

// open starts a checkout: a fresh single-use intent from the gateway and
// one live session bound to the booking.
func (h *PaymentHandler) open(c *gin.Context) {
	id := c.Param("id")
	b, err := h.service.GetBooking(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if b.Status != domain.BookingStatusPending {
		c.JSON(http.StatusConflict, gin.H{"error": payment.ErrInvalidBookingState.Error()})
		return
	}

	intent, err := h.gateway.CreateIntent(c.Request.Context(), *b)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if _, err := h.checkout.Open(id, intent.ClientSecret, b.AmountCents); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, checkoutResponse{
		BookingID:    id,
		ClientSecret: intent.ClientSecret,
		AmountCents:  b.AmountCents,
		Currency:     b.Currency,
	})
}

// retry issues a new attempt on an open checkout after a decline. Intents
// are single-use, so a new one is created every time.
func (h *PaymentHandler) retry(c *gin.Context) {
	id := c.Param("id")
	b, err := h.service.GetBooking(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	intent, err := h.gateway.CreateIntent(c.Request.Context(), *b)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if err := h.checkout.Retry(id, intent.ClientSecret); err != nil {
		status := http.StatusConflict
		if errors.Is(err, payment.ErrNoSession) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, checkoutResponse{
		BookingID:    id,
		ClientSecret: intent.ClientSecret,
		AmountCents:  b.AmountCents,
		Currency:     b.Currency,
	})
}

func (h *PaymentHandler) state(c *gin.Context) {
	ctrl, ok := h.checkout.Controller(c.Param("id"))
	if !ok {
		c.JSON(http.StatusOK, checkoutStateResponse{Open: false})
		return
	}
	c.JSON(http.StatusOK, checkoutStateResponse{Open: ctrl.Visible(), Error: ctrl.ErrorMessage()})
}

// close is the user's cancel affordance. Always safe: the session is
// discarded, the booking keeps whatever status it already has.
func (h *PaymentHandler) close(c *gin.Context) {
	h.checkout.Close(c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (h *PaymentHandler) webhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	cb, err := h.gateway.ParseWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		log.Printf("webhook rejected: %v", err)
		c.Status(http.StatusBadRequest)
		return
	}
	if cb == nil {
		// event type this service does not consume
		c.Status(http.StatusOK)
		return
	}

	if h.marker != nil {
		fresh, err := h.marker.MarkIntentProcessed(c.Request.Context(), cb.IntentID, h.markerTTL)
		if err != nil {
			// the session's one-shot guard still absorbs duplicates
			log.Printf("intent marker unavailable: %v", err)
		} else if !fresh {
			log.Printf("duplicate %s delivery for intent %s dropped", cb.Kind, cb.IntentID)
			c.Status(http.StatusOK)
			return
		}
	}

	switch cb.Kind {
	case gateway.CallbackSucceeded:
		h.checkout.Resolve(cb.BookingID, payment.OutcomeSucceeded, "")
	case gateway.CallbackFailed:
		h.checkout.Resolve(cb.BookingID, payment.OutcomeErrored, cb.Reason)
	case gateway.CallbackCanceled:
		h.checkout.Resolve(cb.BookingID, payment.OutcomeCancelled, "")
	}
	c.Status(http.StatusOK)
}
