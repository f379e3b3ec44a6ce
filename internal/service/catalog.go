package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/V-Shkrobatskyi/lux-clothing-portal/internal/cache"
	"github.com/V-Shkrobatskyi/lux-clothing-portal/internal/domain"
	"github.com/V-Shkrobatskyi/lux-clothing-portal/internal/repository"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

var hundred = decimal.NewFromInt(100)

type CatalogService struct {
	store repository.Store
	cache cache.ProductCache
	sfg   singleflight.Group
	log   *slog.Logger
}

func NewCatalogService(store repository.Store, cache cache.ProductCache, log *slog.Logger) *CatalogService {
	return &CatalogService{
		store: store,
		cache: cache,
		log:   log.With("component", "catalog"),
	}
}

func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	v, err, _ := s.sfg.Do(strconv.FormatInt(id, 10), func() (interface{}, error) {
		product, err := s.cache.Get(ctx, id)
		if err == nil {
			return product, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.WarnContext(ctx, "product cache get failed", "product_id", id, "error", err)
		}

		product, err = s.store.GetProduct(ctx, id)
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, notFound("product %d", id)
		}
		if err != nil {
			return nil, err
		}

		// written before the flight returns so a later invalidation cannot be overtaken
		if errSet := s.cache.Set(ctx, product); errSet != nil {
			s.log.WarnContext(ctx, "product cache set failed", "product_id", id, "error", errSet)
		}
		return product, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Product), nil
}

func (s *CatalogService) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	return s.store.ListProducts(ctx)
}

func (s *CatalogService) CreateProduct(ctx context.Context, caller domain.Caller, p *domain.Product) error {
	if !caller.HasCapability(domain.CapabilityAdmin) {
		return ErrForbidden
	}
	if err := validateProduct(p, true); err != nil {
		return err
	}

	err := s.store.CreateProduct(ctx, p)
	if errors.Is(err, repository.ErrDuplicateProduct) {
		return NewFieldError("product_head", "Product with this product head, size and color already exists.")
	}
	if err != nil {
		return err
	}
	s.log.InfoContext(ctx, "product created", "product_id", p.ID)
	return nil
}

// UpdateProduct edits taxonomy ids, price and discount. Inventory in p is
// ignored and comes back as currently stored; stock only changes through
// RestockProduct and order placement.
func (s *CatalogService) UpdateProduct(ctx context.Context, caller domain.Caller, p *domain.Product) error {
	if !caller.HasCapability(domain.CapabilityAdmin) {
		return ErrForbidden
	}
	if err := validateProduct(p, false); err != nil {
		return err
	}

	err := s.store.UpdateProduct(ctx, p)
	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		return notFound("product %d", p.ID)
	case errors.Is(err, repository.ErrDuplicateProduct):
		return NewFieldError("product_head", "Product with this product head, size and color already exists.")
	case err != nil:
		return err
	}

	s.invalidate(ctx, p.ID)
	s.log.InfoContext(ctx, "product updated", "product_id", p.ID)
	return nil
}

// RestockProduct adds quantity units to the stored inventory. A negative
// quantity writes stock off but never below zero.
func (s *CatalogService) RestockProduct(ctx context.Context, caller domain.Caller, id int64, quantity int) (*domain.Product, error) {
	if !caller.HasCapability(domain.CapabilityAdmin) {
		return nil, ErrForbidden
	}
	if quantity == 0 {
		return nil, NewFieldError("quantity", "Ensure this value is not zero.")
	}

	p, err := s.store.AdjustInventory(ctx, id, quantity)
	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		return nil, notFound("product %d", id)
	case errors.Is(err, repository.ErrInsufficientStock):
		return nil, NewFieldError("quantity", "Inventory cannot drop below zero.")
	case err != nil:
		return nil, err
	}

	s.invalidate(ctx, id)
	s.log.InfoContext(ctx, "product restocked", "product_id", id, "quantity", quantity, "inventory", p.Inventory)
	return p, nil
}

func (s *CatalogService) invalidate(ctx context.Context, id int64) {
	if err := s.cache.Delete(ctx, id); err != nil {
		s.log.WarnContext(ctx, "product cache invalidation failed", "product_id", id, "error", err)
	}
}

func validateProduct(p *domain.Product, withInventory bool) error {
	fields := map[string]string{}
	if p.ProductHeadID <= 0 {
		fields["product_head"] = "This field is required."
	}
	if p.SizeID <= 0 {
		fields["size"] = "This field is required."
	}
	if p.ColorID <= 0 {
		fields["color"] = "This field is required."
	}
	if p.Price.IsNegative() {
		fields["price"] = "Ensure this value is greater than or equal to 0."
	}
	if p.Discount.Valid && (p.Discount.Decimal.IsNegative() || p.Discount.Decimal.GreaterThan(hundred)) {
		fields["discount"] = "Ensure this value is between 0 and 100."
	}
	if withInventory && p.Inventory < 0 {
		fields["inventory"] = "Ensure this value is greater than or equal to 0."
	}
	if len(fields) > 0 {
		return &FieldError{Fields: fields}
	}
	return nil
}
