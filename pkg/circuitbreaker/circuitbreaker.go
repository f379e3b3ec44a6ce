// Package circuitbreaker guards calls to an external dependency with a
// gobreaker circuit and exponential-backoff retries.
package circuitbreaker

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sony/gobreaker/v2"
)

var ErrOpen = errors.New("circuit breaker is open")

type Settings struct {
	Name string
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout     time.Duration
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// Retryable reports whether a failed call may be retried. Nil retries all.
	Retryable     func(err error) bool
	OnStateChange func(name string, from, to gobreaker.State)
}

func DefaultSettings(name string) Settings {
	return Settings{
		Name:                name,
		ConsecutiveFailures: 5,
		OpenTimeout:         30 * time.Second,
		MaxTries:            3,
		InitialInterval:     200 * time.Millisecond,
		MaxInterval:         2 * time.Second,
	}
}

type Breaker[T any] struct {
	cb       *gobreaker.CircuitBreaker[T]
	settings Settings
}

func New[T any](s Settings) *Breaker[T] {
	threshold := s.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}
	cb := gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:    s.Name,
		Timeout: s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: s.OnStateChange,
	})
	return &Breaker[T]{cb: cb, settings: s}
}

func (b *Breaker[T]) State() gobreaker.State {
	return b.cb.State()
}

// Execute runs fn through the breaker, retrying retryable failures with
// exponential backoff until MaxTries or ctx is done. An open breaker is
// reported as ErrOpen without further attempts.
func (b *Breaker[T]) Execute(ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	eb := backoff.NewExponentialBackOff()
	if b.settings.InitialInterval > 0 {
		eb.InitialInterval = b.settings.InitialInterval
	}
	if b.settings.MaxInterval > 0 {
		eb.MaxInterval = b.settings.MaxInterval
	}
	tries := b.settings.MaxTries
	if tries == 0 {
		tries = 1
	}

	op := func() (T, error) {
		res, err := b.cb.Execute(func() (T, error) {
			return fn(ctx)
		})
		if err == nil {
			return res, nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return res, backoff.Permanent(errors.Join(ErrOpen, err))
		}
		if b.settings.Retryable != nil && !b.settings.Retryable(err) {
			return res, backoff.Permanent(err)
		}
		return res, err
	}

	return backoff.Retry(ctx, op, backoff.WithBackOff(eb), backoff.WithMaxTries(tries))
}
