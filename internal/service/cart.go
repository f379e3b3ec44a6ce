package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/V-Shkrobatskyi/lux-clothing-portal/internal/domain"
	"github.com/V-Shkrobatskyi/lux-clothing-portal/internal/repository"
)

// CartService manages a caller's active line items. Nothing here touches
// inventory; stock is only checked and decremented when an order is placed.
type CartService struct {
	store repository.Store
	log   *slog.Logger
}

func NewCartService(store repository.Store, log *slog.Logger) *CartService {
	return &CartService{store: store, log: log.With("component", "cart")}
}

func (s *CartService) AddLineItem(ctx context.Context, caller domain.Caller, productID int64, quantity int) (*domain.LineItem, error) {
	if quantity <= 0 {
		return nil, NewFieldError("quantity", "Ensure this value is greater than or equal to 1.")
	}

	product, err := s.store.GetProduct(ctx, productID)
	if errors.Is(err, repository.ErrProductNotFound) {
		return nil, notFound("product %d", productID)
	}
	if err != nil {
		return nil, err
	}

	item := &domain.LineItem{
		UserID:    caller.ID,
		ProductID: product.ID,
		Quantity:  quantity,
	}
	item.Reprice(product)

	if err := s.store.CreateLineItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateLineItem changes the quantity of an active item and refreshes its
// price from the current product state.
func (s *CartService) UpdateLineItem(ctx context.Context, caller domain.Caller, id int64, quantity int) (*domain.LineItem, error) {
	if quantity <= 0 {
		return nil, NewFieldError("quantity", "Ensure this value is greater than or equal to 1.")
	}

	item, err := s.ownActiveItem(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	product, err := s.store.GetProduct(ctx, item.ProductID)
	if errors.Is(err, repository.ErrProductNotFound) {
		return nil, notFound("product %d", item.ProductID)
	}
	if err != nil {
		return nil, err
	}

	item.Quantity = quantity
	item.Reprice(product)

	err = s.store.UpdateLineItem(ctx, item)
	if errors.Is(err, repository.ErrLineItemNotFound) {
		return nil, notFound("line item %d", id)
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *CartService) RemoveLineItem(ctx context.Context, caller domain.Caller, id int64) error {
	err := s.store.DeleteLineItem(ctx, id, caller.ID)
	if errors.Is(err, repository.ErrLineItemNotFound) {
		return notFound("line item %d", id)
	}
	return err
}

func (s *CartService) ListCart(ctx context.Context, caller domain.Caller) ([]*domain.LineItem, error) {
	return s.store.ListActiveLineItems(ctx, caller.ID)
}

func (s *CartService) ownActiveItem(ctx context.Context, caller domain.Caller, id int64) (*domain.LineItem, error) {
	item, err := s.store.GetLineItem(ctx, id)
	if errors.Is(err, repository.ErrLineItemNotFound) {
		return nil, notFound("line item %d", id)
	}
	if err != nil {
		return nil, err
	}
	if item.UserID != caller.ID || !item.Active {
		return nil, notFound("line item %d", id)
	}
	return item, nil
}
