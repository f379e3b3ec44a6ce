package http

import (
	"context"
	"net/http"
	"time"

	"github.com/V-Shkrobatskyi/lux-clothing-portal/internal/domain"
)

type CartService interface {
	AddLineItem(ctx context.Context, caller domain.Caller, productID int64, quantity int) (*domain.LineItem, error)
	UpdateLineItem(ctx context.Context, caller domain.Caller, id int64, quantity int) (*domain.LineItem, error)
	RemoveLineItem(ctx context.Context, caller domain.Caller, id int64) error
	ListCart(ctx context.Context, caller domain.Caller) ([]*domain.LineItem, error)
}

type CartHandler struct {
	cart    CartService
	timeout time.Duration
}

func NewCartHandler(cart CartService, timeout time.Duration) *CartHandler {
	return &CartHandler{cart: cart, timeout: timeout}
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	caller, ok := callerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	items, err := h.cart.ListCart(ctx, caller)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toLineItemDTOs(items))
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	caller, ok := callerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req AddLineItemRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Product <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product must be a positive integer")
		return
	}

	item, err := h.cart.AddLineItem(ctx, caller, req.Product, req.Quantity)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toLineItemDTO(item))
}

// PATCH /api/v1/cart/items/{item_id}
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	caller, ok := callerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	id, ok := parseIDParam(w, r, "item_id")
	if !ok {
		return
	}

	var req UpdateLineItemRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	item, err := h.cart.UpdateLineItem(ctx, caller, id, req.Quantity)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toLineItemDTO(item))
}

// DELETE /api/v1/cart/items/{item_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	caller, ok := callerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	id, ok := parseIDParam(w, r, "item_id")
	if !ok {
		return
	}

	if err := h.cart.RemoveLineItem(ctx, caller, id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
