package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
)

type StripeProvider struct {
	sessions   *session.Client
	currency   string
	successURL string
	cancelURL  string
}

// NewStripeProvider builds an adapter whose redirect URLs point back at
// publicBaseURL. A nil backend uses the live Stripe API.
func NewStripeProvider(secretKey, publicBaseURL string, backend stripe.Backend) *StripeProvider {
	if backend == nil {
		backend = stripe.GetBackend(stripe.APIBackend)
	}
	base := strings.TrimRight(publicBaseURL, "/")
	return &StripeProvider{
		sessions:   &session.Client{B: backend, Key: secretKey},
		currency:   string(stripe.CurrencyUSD),
		successURL: base + "/api/v1/payments/success?session_id={CHECKOUT_SESSION_ID}",
		cancelURL:  base + "/api/v1/payments/cancel",
	}
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, amountCents int64, description string) (*Session, error) {
	params := &stripe.CheckoutSessionParams{
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(p.currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(description),
					},
					UnitAmount: stripe.Int64(amountCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(p.successURL),
		CancelURL:  stripe.String(p.cancelURL),
	}
	params.Context = ctx
	if key, ok := IdempotencyKeyFrom(ctx); ok {
		params.SetIdempotencyKey(key)
	}

	s, err := p.sessions.New(params)
	if err != nil {
		return nil, mapStripeError("create checkout session", err)
	}
	return &Session{ID: s.ID, URL: s.URL}, nil
}

func (p *StripeProvider) GetSessionStatus(ctx context.Context, sessionID string) (SessionStatus, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	s, err := p.sessions.Get(sessionID, params)
	if err != nil {
		return "", mapStripeError("retrieve checkout session", err)
	}
	return SessionStatus(s.PaymentStatus), nil
}

func mapStripeError(op string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		switch {
		case stripeErr.HTTPStatusCode == http.StatusNotFound:
			return fmt.Errorf("%s: %w: %s", op, ErrSessionNotFound, stripeErr.Msg)
		case stripeErr.HTTPStatusCode >= 400 && stripeErr.HTTPStatusCode < 500 &&
			stripeErr.HTTPStatusCode != http.StatusTooManyRequests:
			return fmt.Errorf("%s: %w: %s", op, ErrRejected, stripeErr.Msg)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
