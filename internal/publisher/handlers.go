package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/V-Shkrobatskyi/lux-clothing-portal/internal/domain"
	"github.com/V-Shkrobatskyi/lux-clothing-portal/internal/provider"
	"github.com/V-Shkrobatskyi/lux-clothing-portal/internal/service"
)

type SessionEnsurer interface {
	EnsureSession(ctx context.Context, orderID int64) error
}

// SessionRequestedHandler opens the payment session of an order whose
// synchronous attempt failed. Orders that no longer exist are skipped;
// undecodable payloads and provider rejections are permanent.
func SessionRequestedHandler(payments SessionEnsurer) Handler {
	return func(ctx context.Context, event *domain.OutboxEvent) error {
		var req domain.PaymentSessionRequestedEvent
		if err := json.Unmarshal(event.Payload, &req); err != nil {
			return fmt.Errorf("%w: decode payload: %w", ErrPermanent, err)
		}
		err := payments.EnsureSession(ctx, req.OrderID)
		switch {
		case errors.Is(err, service.ErrNotFound):
			return nil
		case errors.Is(err, provider.ErrRejected):
			return fmt.Errorf("%w: %w", ErrPermanent, err)
		}
		return err
	}
}
