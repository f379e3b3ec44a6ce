package cache

import (
	"context"
	"errors"
	"time"

	"github.com/V-Shkrobatskyi/lux-clothing-portal/internal/domain"
)

type ProductCache interface {
	Get(ctx context.Context, productID int64) (*domain.Product, error)
	Set(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, productID int64) error
}

// StoredResponse is a finished response replayed for a repeated
// Idempotency-Key.
type StoredResponse struct {
	Status int    `json:"status"`
	Body   []byte `json:"body"`
}

type IdempotencyStore interface {
	// Reserve claims key for ttl. It returns false when the key is already
	// claimed or completed.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (*StoredResponse, error)
	Save(ctx context.Context, key string, resp *StoredResponse, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

var (
	ErrCacheMiss  = errors.New("cache miss")
	ErrInProgress = errors.New("request with this idempotency key is still in progress")
)
