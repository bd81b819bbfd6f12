package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/mkravets/travelbooking/internal/domain"
)

// Intent is one gateway payment attempt. The client secret authorizes a
// single use of the hosted payment widget and must not be logged.
type Intent struct {
	ID           string
	ClientSecret string
}

type CallbackKind string

const (
	CallbackSucceeded CallbackKind = "succeeded"
	CallbackFailed    CallbackKind = "failed"
	CallbackCanceled  CallbackKind = "canceled"
)

// Callback is the terminal notification the gateway emits per intent.
type Callback struct {
	Kind      CallbackKind
	BookingID string
	IntentID  string
	Reason    string
}

type StripeGateway struct {
	client        *stripe.Client
	webhookSecret string
}

func NewStripeGateway(apiKey, webhookSecret string) *StripeGateway {
	return &StripeGateway{
		client:        stripe.NewClient(apiKey),
		webhookSecret: webhookSecret,
	}
}

// CreateIntent issues a fresh payment intent for a booking's amount. The
// amount recorded on the intent side is authoritative from here on.
func (g *StripeGateway) CreateIntent(ctx context.Context, b domain.Booking) (*Intent, error) {
	params := &stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(b.AmountCents),
		Currency: stripe.String(strings.ToLower(b.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata("booking_id", b.ID)

	pi, err := g.client.V1PaymentIntents.Create(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	return &Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

// ParseWebhook verifies a webhook delivery and maps payment_intent events
// to a terminal callback. Events this service does not consume map to nil.
func (g *StripeGateway) ParseWebhook(payload []byte, sigHeader string) (*Callback, error) {
	event, err := webhook.ConstructEvent(payload, sigHeader, g.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("verify webhook signature: %w", err)
	}
	return mapEvent(event)
}

func mapEvent(event stripe.Event) (*Callback, error) {
	var kind CallbackKind
	switch event.Type {
	case "payment_intent.succeeded":
		kind = CallbackSucceeded
	case "payment_intent.payment_failed":
		kind = CallbackFailed
	case "payment_intent.canceled":
		kind = CallbackCanceled
	default:
		return nil, nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("parse payment intent: %w", err)
	}

	cb := &Callback{
		Kind:      kind,
		BookingID: pi.Metadata["booking_id"],
		IntentID:  pi.ID,
	}
	if kind == CallbackFailed {
		cb.Reason = "payment failed"
		if pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
			cb.Reason = pi.LastPaymentError.Msg
		}
	}
	return cb, nil
}
