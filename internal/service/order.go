package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/V-Shkrobatskyi/lux-clothing-portal/internal/cache"
	"github.com/V-Shkrobatskyi/lux-clothing-portal/internal/domain"
	"github.com/V-Shkrobatskyi/lux-clothing-portal/internal/repository"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type OrderService struct {
	store    repository.Store
	payments *PaymentService
	products cache.ProductCache
	log      *slog.Logger
}

func NewOrderService(store repository.Store, payments *PaymentService, products cache.ProductCache, log *slog.Logger) *OrderService {
	return &OrderService{
		store:    store,
		payments: payments,
		products: products,
		log:      log.With("component", "orders"),
	}
}

type PlaceOrderResult struct {
	Order   *domain.Order
	Payment *domain.Payment
	// PaymentErr is set when the order committed but no session could be
	// opened yet; the outbox follow-up retries it.
	PaymentErr error
}

// PlaceOrder turns the caller's active line items into a Pending order. The
// order row, inventory decrements, line item consumption and outbox events
// commit together or not at all.
func (s *OrderService) PlaceOrder(ctx context.Context, caller domain.Caller, addressID int64, lineItemIDs []int64) (*PlaceOrderResult, error) {
	ctx, span := tracer.Start(ctx, "OrderService.PlaceOrder")
	defer span.End()
	span.SetAttributes(attribute.Int64("user_id", caller.ID), attribute.Int("line_items", len(lineItemIDs)))

	if err := validateLineItemIDs(lineItemIDs); err != nil {
		return nil, err
	}

	profile, err := s.store.GetProfileByUser(ctx, caller.ID)
	if errors.Is(err, repository.ErrProfileNotFound) {
		return nil, fmt.Errorf("%w: create your profile before placing an order", ErrForbidden)
	}
	if err != nil {
		return nil, err
	}

	if !hasActiveAddress(profile, addressID) {
		return nil, NewFieldError("order_address", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", addressID))
	}

	var order *domain.Order
	err = s.store.WithTx(ctx, func(q repository.Querier) error {
		var err error
		order, err = s.commitOrder(ctx, q, caller, profile, addressID, lineItemIDs)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "order not placed")
		return nil, err
	}
	span.SetAttributes(attribute.Int64("order_id", order.ID))
	s.invalidateProducts(ctx, order)

	s.log.InfoContext(ctx, "order placed",
		"order_id", order.ID, "user_id", caller.ID, "price", order.Price.StringFixed(2), "line_items", len(order.Items))

	result := &PlaceOrderResult{Order: order}
	payment, err := s.payments.CreateSession(ctx, order)
	if err != nil {
		s.log.WarnContext(ctx, "payment session not created, follow-up will retry", "order_id", order.ID, "error", err)
		result.PaymentErr = err
		return result, nil
	}
	result.Payment = payment
	return result, nil
}

func (s *OrderService) commitOrder(
	ctx context.Context,
	q repository.Querier,
	caller domain.Caller,
	profile *domain.Profile,
	addressID int64,
	lineItemIDs []int64,
) (*domain.Order, error) {
	locked, err := q.LockActiveLineItems(ctx, caller.ID, lineItemIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*domain.LineItem, len(locked))
	for _, li := range locked {
		byID[li.ID] = li
	}

	items := make([]*domain.LineItem, 0, len(lineItemIDs))
	productIDs := make([]int64, 0, len(lineItemIDs))
	seen := make(map[int64]bool)
	for _, id := range lineItemIDs {
		li, ok := byID[id]
		if !ok {
			return nil, notFound("line item %d", id)
		}
		items = append(items, li)
		if !seen[li.ProductID] {
			seen[li.ProductID] = true
			productIDs = append(productIDs, li.ProductID)
		}
	}
	sort.Slice(productIDs, func(i, j int) bool { return productIDs[i] < productIDs[j] })

	products, err := q.LockProducts(ctx, productIDs)
	if err != nil {
		return nil, err
	}

	remaining := make(map[int64]int, len(products))
	for id, p := range products {
		remaining[id] = p.Inventory
	}
	for _, li := range items {
		p, ok := products[li.ProductID]
		if !ok {
			return nil, notFound("product %d", li.ProductID)
		}
		li.Reprice(p)

		available := remaining[p.ID]
		if available < li.Quantity {
			return nil, &StockError{ProductID: p.ID, Requested: li.Quantity, Available: available}
		}
		remaining[p.ID] = available - li.Quantity
	}

	order := &domain.Order{
		UserID:      caller.ID,
		ProfileID:   profile.ID,
		AddressID:   addressID,
		PhoneNumber: profile.PhoneNumber,
		Price:       domain.Total(items),
		Status:      domain.OrderStatusPending,
	}
	if err := q.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	for _, li := range items {
		err := q.DecrementInventory(ctx, li.ProductID, li.Quantity)
		if errors.Is(err, repository.ErrInsufficientStock) {
			return nil, &StockError{ProductID: li.ProductID, Requested: li.Quantity, Available: remaining[li.ProductID]}
		}
		if err != nil {
			return nil, err
		}
		err = q.ConsumeLineItem(ctx, li, order.ID)
		if errors.Is(err, repository.ErrLineItemConsumed) {
			return nil, notFound("line item %d", li.ID)
		}
		if err != nil {
			return nil, err
		}
	}
	order.Items = items

	aggregateID := strconv.FormatInt(order.ID, 10)
	if err := q.InsertOutboxEvent(ctx, domain.EventPaymentSessionRequested, aggregateID,
		domain.PaymentSessionRequestedEvent{OrderID: order.ID, Amount: order.Price}); err != nil {
		return nil, err
	}
	if err := q.InsertOutboxEvent(ctx, domain.EventOrderPlaced, aggregateID, orderPlacedEvent(order)); err != nil {
		return nil, err
	}
	return order, nil
}

// invalidateProducts drops cached products whose inventory the order just
// decremented.
func (s *OrderService) invalidateProducts(ctx context.Context, order *domain.Order) {
	seen := make(map[int64]bool, len(order.Items))
	for _, li := range order.Items {
		if seen[li.ProductID] {
			continue
		}
		seen[li.ProductID] = true
		if err := s.products.Delete(ctx, li.ProductID); err != nil {
			s.log.WarnContext(ctx, "product cache invalidation failed", "product_id", li.ProductID, "error", err)
		}
	}
}

func (s *OrderService) ListOrders(ctx context.Context, caller domain.Caller) ([]*domain.Order, error) {
	filter := repository.OrderFilter{}
	if !caller.HasCapability(domain.CapabilityAdmin) {
		filter.UserID = &caller.ID
	}
	return s.store.ListOrders(ctx, filter)
}

// GetOrder hides orders of other users behind ErrNotFound.
func (s *OrderService) GetOrder(ctx context.Context, caller domain.Caller, id int64) (*domain.Order, error) {
	order, err := s.store.GetOrder(ctx, id)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, notFound("order %d", id)
	}
	if err != nil {
		return nil, err
	}
	if !order.OwnedBy(caller) {
		return nil, notFound("order %d", id)
	}
	return order, nil
}

func validateLineItemIDs(ids []int64) error {
	if len(ids) == 0 {
		return NewFieldError("order_items", "Choose order items. Can't create order without products.")
	}
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return NewFieldError("order_items", fmt.Sprintf("Line item %d is listed more than once.", id))
		}
		seen[id] = true
	}
	return nil
}

func hasActiveAddress(p *domain.Profile, addressID int64) bool {
	for _, a := range p.Addresses {
		if a.ID == addressID && !a.Inactive {
			return true
		}
	}
	return false
}

func orderPlacedEvent(o *domain.Order) domain.OrderPlacedEvent {
	items := make([]domain.OrderPlacedItem, 0, len(o.Items))
	for _, li := range o.Items {
		items = append(items, domain.OrderPlacedItem{
			LineItemID: li.ID,
			ProductID:  li.ProductID,
			Quantity:   li.Quantity,
			UnitPrice:  li.Price,
		})
	}
	return domain.OrderPlacedEvent{
		OrderID:  o.ID,
		UserID:   o.UserID,
		Price:    o.Price,
		Items:    items,
		PlacedAt: o.CreatedAt,
	}
}
