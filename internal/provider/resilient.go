package provider

import (
	"context"
	"log/slog"
	"time"

	"github.com/V-Shkrobatskyi/lux-clothing-portal/pkg/circuitbreaker"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
)

// Resilient bounds every call to next with a timeout and guards it with a
// circuit breaker and retries.
type Resilient struct {
	next     Provider
	timeout  time.Duration
	sessions *circuitbreaker.Breaker[*Session]
	statuses *circuitbreaker.Breaker[SessionStatus]
}

func NewResilient(next Provider, timeout time.Duration, settings circuitbreaker.Settings, log *slog.Logger) *Resilient {
	settings.Retryable = Retryable
	settings.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn("payment provider circuit changed state", "breaker", name, "from", from.String(), "to", to.String())
	}

	create := settings
	create.Name = settings.Name + "-create"
	status := settings
	status.Name = settings.Name + "-status"

	return &Resilient{
		next:     next,
		timeout:  timeout,
		sessions: circuitbreaker.New[*Session](create),
		statuses: circuitbreaker.New[SessionStatus](status),
	}
}

// CreateCheckoutSession retries under a single idempotency key, so attempts
// that timed out after reaching the provider do not open extra sessions.
func (r *Resilient) CreateCheckoutSession(ctx context.Context, amountCents int64, description string) (*Session, error) {
	if _, ok := IdempotencyKeyFrom(ctx); !ok {
		ctx = WithIdempotencyKey(ctx, uuid.NewString())
	}
	return r.sessions.Execute(ctx, func(ctx context.Context) (*Session, error) {
		ctx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		return r.next.CreateCheckoutSession(ctx, amountCents, description)
	})
}

func (r *Resilient) GetSessionStatus(ctx context.Context, sessionID string) (SessionStatus, error) {
	return r.statuses.Execute(ctx, func(ctx context.Context) (SessionStatus, error) {
		ctx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		return r.next.GetSessionStatus(ctx, sessionID)
	})
}
