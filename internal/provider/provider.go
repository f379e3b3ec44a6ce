// Package provider talks to the hosted-checkout payment provider.
package provider

import (
	"context"
	"errors"
)

type SessionStatus string

const SessionStatusPaid SessionStatus = "paid"

type Session struct {
	ID  string
	URL string
}

// Provider creates hosted checkout sessions and reports their payment status.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, amountCents int64, description string) (*Session, error)
	GetSessionStatus(ctx context.Context, sessionID string) (SessionStatus, error)
}

var (
	ErrSessionNotFound = errors.New("checkout session not found")
	// ErrRejected marks a request the provider refused; retrying cannot help.
	ErrRejected = errors.New("payment provider rejected the request")
)

// Retryable reports whether err may succeed on a later attempt.
func Retryable(err error) bool {
	return !errors.Is(err, ErrSessionNotFound) &&
		!errors.Is(err, ErrRejected) &&
		!errors.Is(err, context.Canceled)
}

type idempotencyKey struct{}

// WithIdempotencyKey attaches the key sent with session creation so the
// provider collapses repeated requests into one session.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKey{}, key)
}

func IdempotencyKeyFrom(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(idempotencyKey{}).(string)
	return key, ok && key != ""
}
