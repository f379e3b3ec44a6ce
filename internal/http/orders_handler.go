package http

import (
	"context"
	"net/http"
	"time"

	"github.com/V-Shkrobatskyi/lux-clothing-portal/internal/domain"
	"github.com/V-Shkrobatskyi/lux-clothing-portal/internal/service"
)

type OrderService interface {
	PlaceOrder(ctx context.Context, caller domain.Caller, addressID int64, lineItemIDs []int64) (*service.PlaceOrderResult, error)
	ListOrders(ctx context.Context, caller domain.Caller) ([]*domain.Order, error)
	GetOrder(ctx context.Context, caller domain.Caller, id int64) (*domain.Order, error)
}

type OrdersHandler struct {
	orders  OrderService
	timeout time.Duration
}

func NewOrdersHandler(orders OrderService, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{orders: orders, timeout: timeout}
}

// POST /api/v1/orders
func (h *OrdersHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	caller, ok := callerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req PlaceOrderRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.orders.PlaceOrder(ctx, caller, req.OrderAddress, req.OrderItems)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := PlaceOrderResponseDTO{OrderDTO: toOrderDTO(res.Order)}
	if res.Payment != nil {
		resp.Payment = toPaymentDTO(res.Payment)
	}
	if res.PaymentErr != nil {
		resp.PaymentError = "Payment session is not available yet, it will be created shortly."
	}
	respondJSON(w, http.StatusCreated, resp)
}

// GET /api/v1/orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	caller, ok := callerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	orders, err := h.orders.ListOrders(ctx, caller)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	dtos := make([]OrderDTO, 0, len(orders))
	for _, o := range orders {
		dtos = append(dtos, toOrderDTO(o))
	}
	respondJSON(w, http.StatusOK, dtos)
}

// GET /api/v1/orders/{order_id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	caller, ok := callerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	id, ok := parseIDParam(w, r, "order_id")
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(ctx, caller, id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderDTO(order))
}
