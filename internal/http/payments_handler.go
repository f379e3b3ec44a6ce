package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/V-Shkrobatskyi/lux-clothing-portal/internal/domain"
	"github.com/V-Shkrobatskyi/lux-clothing-portal/internal/service"
)

const renewedMessage = "Payment session renewed."

type PaymentService interface {
	Confirm(ctx context.Context, sessionID string) (*domain.Payment, error)
	Cancel() error
	Renew(ctx context.Context, caller domain.Caller) (*service.RenewResult, error)
	ListPayments(ctx context.Context, caller domain.Caller) ([]*domain.Payment, error)
	GetPayment(ctx context.Context, caller domain.Caller, id int64) (*domain.Payment, error)
}

type PaymentsHandler struct {
	payments PaymentService
	timeout  time.Duration
}

func NewPaymentsHandler(payments PaymentService, timeout time.Duration) *PaymentsHandler {
	return &PaymentsHandler{payments: payments, timeout: timeout}
}

// GET /api/v1/payments
func (h *PaymentsHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	caller, ok := callerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	payments, err := h.payments.ListPayments(ctx, caller)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	dtos := make([]*PaymentDTO, 0, len(payments))
	for _, p := range payments {
		dtos = append(dtos, toPaymentDTO(p))
	}
	respondJSON(w, http.StatusOK, dtos)
}

// GET /api/v1/payments/{payment_id}
func (h *PaymentsHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	caller, ok := callerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	id, ok := parseIDParam(w, r, "payment_id")
	if !ok {
		return
	}

	p, err := h.payments.GetPayment(ctx, caller, id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toPaymentDTO(p))
}

// GET /api/v1/payments/success?session_id=
// The provider redirects the buyer here after checkout.
func (h *PaymentsHandler) Success(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		respondError(w, http.StatusNotFound, "not_found", "Payment parameter not found.")
		return
	}

	payment, err := h.payments.Confirm(ctx, sessionID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/api/v1/orders/%d", payment.OrderID), http.StatusFound)
}

// GET /api/v1/payments/cancel
func (h *PaymentsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	handleServiceError(w, r, h.payments.Cancel())
}

// GET /api/v1/payments/renew
func (h *PaymentsHandler) Renew(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	caller, ok := callerFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	res, err := h.payments.Renew(ctx, caller)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, RenewResponseDTO{
		Detail:  renewedMessage,
		Payment: toPaymentDTO(res.Payment),
		Order:   toOrderDTO(res.Order),
	})
}
