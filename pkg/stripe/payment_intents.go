package stripe

import (
	"context"
	"errors"

	"github.com/stripe/stripe-go/v84"
)

// PaymentIntentCreator is the subset of Stripe used to open payment intents.
type PaymentIntentCreator interface {
	CreatePaymentIntent(ctx context.Context, params *stripe.PaymentIntentCreateParams) (*stripe.PaymentIntent, error)
}

type paymentIntents struct {
	api *stripe.Client
}

// NewPaymentIntents returns a creator backed by the shared Stripe client.
func NewPaymentIntents(client *Client) (PaymentIntentCreator, error) {
	if client == nil || client.API() == nil {
		return nil, errors.New("stripe client required")
	}
	return &paymentIntents{api: client.API()}, nil
}

func (p *paymentIntents) CreatePaymentIntent(ctx context.Context, params *stripe.PaymentIntentCreateParams) (*stripe.PaymentIntent, error) {
	return p.api.V1PaymentIntents.Create(ctx, params)
}
