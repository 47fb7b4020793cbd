// Package payment is the engine's boundary to the payment provider. The
// engine only needs a session reference and a checkout redirect; everything
// else about the provider stays behind the Gateway interface.
package payment

import (
	"context"
	"fmt"

	"parishly/config"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
)

// Session is an opaque payment session handed back to the client.
type Session struct {
	Ref         string `json:"sessionRef"`
	CheckoutURL string `json:"checkoutUrl"`
}

// Gateway creates payment sessions for payment-gated reschedules.
// Confirmation and failure arrive asynchronously through the webhook, keyed
// by Session.Ref.
type Gateway interface {
	CreateSession(ctx context.Context, amount int64, description, reference string) (*Session, error)
}

// StripeGateway implements Gateway with Stripe Checkout. stripe.Key is set
// once at startup from config.
type StripeGateway struct{}

func (StripeGateway) CreateSession(_ context.Context, amount int64, description, reference string) (*Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(reference),
		SuccessURL:        stripe.String(config.AppConfig.CheckoutSuccessURL),
		CancelURL:         stripe.String(config.AppConfig.CheckoutCancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(config.AppConfig.Currency),
					UnitAmount: stripe.Int64(amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(description),
					},
				},
			},
		},
	}

	checkout, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	return &Session{Ref: checkout.ID, CheckoutURL: checkout.URL}, nil
}
