package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/V-Shkrobatskyi/lux-clothing-portal/internal/domain"
	"github.com/V-Shkrobatskyi/lux-clothing-portal/internal/provider"
	"github.com/V-Shkrobatskyi/lux-clothing-portal/internal/repository"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const CancelMessage = "Payment can be paid a bit later, but the session is available for only 24h."

var tracer = otel.Tracer("github.com/V-Shkrobatskyi/lux-clothing-portal/internal/service")

// PaymentService reconciles provider checkout sessions with payments and
// their orders.
type PaymentService struct {
	store    repository.Store
	provider provider.Provider
	log      *slog.Logger
	now      func() time.Time
}

func NewPaymentService(store repository.Store, p provider.Provider, log *slog.Logger) *PaymentService {
	return &PaymentService{
		store:    store,
		provider: p,
		log:      log.With("component", "payments"),
		now:      time.Now,
	}
}

type RenewResult struct {
	Payment *domain.Payment
	Order   *domain.Order
}

func sessionDescription(orderID int64) string {
	return fmt.Sprintf("Payment for order number: '%d'", orderID)
}

func (s *PaymentService) openSession(ctx context.Context, orderID int64, amount decimal.Decimal) (*provider.Session, error) {
	sess, err := s.provider.CreateCheckoutSession(ctx, domain.AmountCents(amount), sessionDescription(orderID))
	if err != nil {
		return nil, external(err)
	}
	return sess, nil
}

// CreateSession opens a provider session for the full order price and stores
// it as the order's Pending payment, replacing any unpaid session.
func (s *PaymentService) CreateSession(ctx context.Context, order *domain.Order) (*domain.Payment, error) {
	ctx, span := tracer.Start(ctx, "PaymentService.CreateSession")
	defer span.End()
	span.SetAttributes(attribute.Int64("order_id", order.ID))

	sess, err := s.openSession(ctx, order.ID, order.Price)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider call failed")
		return nil, err
	}

	payment := &domain.Payment{
		OrderID:    order.ID,
		SessionID:  sess.ID,
		SessionURL: sess.URL,
		MoneyToPay: order.Price,
	}
	err = s.store.UpsertPendingPayment(ctx, payment)
	if errors.Is(err, repository.ErrPaymentAlreadyPaid) {
		return nil, fmt.Errorf("%w: order %d is already paid", ErrIllegalTransition, order.ID)
	}
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "payment session created",
		"order_id", order.ID, "payment_id", payment.ID, "session_id", payment.SessionID)
	return payment, nil
}

// EnsureSession makes sure an order placed earlier has a payment. It is a
// no-op when any payment already exists, so it is safe to run repeatedly.
func (s *PaymentService) EnsureSession(ctx context.Context, orderID int64) error {
	_, err := s.store.GetPaymentByOrder(ctx, orderID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrPaymentNotFound) {
		return err
	}

	order, err := s.store.GetOrder(ctx, orderID)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return notFound("order %d", orderID)
	}
	if err != nil {
		return err
	}
	if order.Status != domain.OrderStatusPending {
		return nil
	}

	sess, err := s.openSession(ctx, order.ID, order.Price)
	if err != nil {
		return err
	}

	payment := &domain.Payment{
		OrderID:    order.ID,
		SessionID:  sess.ID,
		SessionURL: sess.URL,
		MoneyToPay: order.Price,
	}
	created, err := s.store.CreatePaymentIfAbsent(ctx, payment)
	if err != nil {
		return err
	}
	if created {
		s.log.InfoContext(ctx, "payment session created by follow-up",
			"order_id", order.ID, "payment_id", payment.ID, "session_id", payment.SessionID)
	}
	return nil
}

// Confirm marks the Pending payment of sessionID as Paid once the provider
// reports the session paid. Unknown, already confirmed and unpaid sessions
// all yield ErrNotFound.
func (s *PaymentService) Confirm(ctx context.Context, sessionID string) (*domain.Payment, error) {
	ctx, span := tracer.Start(ctx, "PaymentService.Confirm")
	defer span.End()
	span.SetAttributes(attribute.String("session_id", sessionID))

	if sessionID == "" {
		return nil, notFound("Payment parameter not found.")
	}

	payment, err := s.store.GetPendingPaymentBySession(ctx, sessionID)
	if errors.Is(err, repository.ErrPaymentNotFound) {
		return nil, notFound("pending payment for session %s", sessionID)
	}
	if err != nil {
		return nil, err
	}

	status, err := s.provider.GetSessionStatus(ctx, sessionID)
	if errors.Is(err, provider.ErrSessionNotFound) {
		return nil, notFound("session %s", sessionID)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider call failed")
		return nil, external(err)
	}
	if status != provider.SessionStatusPaid {
		s.log.InfoContext(ctx, "payment session not paid yet", "session_id", sessionID, "provider_status", string(status))
		return nil, notFound("session %s is not paid", sessionID)
	}

	var paid *domain.Payment
	err = s.store.WithTx(ctx, func(q repository.Querier) error {
		var err error
		paid, err = q.TransitionPayment(ctx, repository.PaymentTransition{
			PaymentID: payment.ID,
			From:      domain.PaymentStatusPending,
			To:        domain.PaymentStatusPaid,
		})
		if err != nil {
			return err
		}
		return q.InsertOutboxEvent(ctx, domain.EventPaymentPaid, strconv.FormatInt(paid.OrderID, 10), s.paymentEvent(paid))
	})
	if errors.Is(err, repository.ErrStaleTransition) {
		s.log.InfoContext(ctx, "payment already confirmed", "payment_id", payment.ID, "session_id", sessionID)
		return nil, notFound("pending payment for session %s", sessionID)
	}
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "payment confirmed",
		"payment_id", paid.ID, "order_id", paid.OrderID, "session_id", sessionID)
	return paid, nil
}

// Cancel never changes state; the session stays payable until it expires.
func (s *PaymentService) Cancel() error {
	return NewFieldError("error", CancelMessage)
}

// Renew opens a fresh session for the caller's most recently expired
// payment and moves it and its order back to Pending.
func (s *PaymentService) Renew(ctx context.Context, caller domain.Caller) (*RenewResult, error) {
	ctx, span := tracer.Start(ctx, "PaymentService.Renew")
	defer span.End()

	expired, err := s.store.GetLatestExpiredPayment(ctx, caller.ID)
	if errors.Is(err, repository.ErrPaymentNotFound) {
		return nil, notFound("There is no expired payment session.")
	}
	if err != nil {
		return nil, err
	}

	sess, err := s.openSession(ctx, expired.OrderID, expired.MoneyToPay)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider call failed")
		return nil, err
	}

	var renewed *domain.Payment
	err = s.store.WithTx(ctx, func(q repository.Querier) error {
		var err error
		renewed, err = q.TransitionPayment(ctx, repository.PaymentTransition{
			PaymentID:  expired.ID,
			From:       domain.PaymentStatusExpired,
			To:         domain.PaymentStatusPending,
			SessionID:  sess.ID,
			SessionURL: sess.URL,
		})
		if err != nil {
			return err
		}
		return q.InsertOutboxEvent(ctx, domain.EventPaymentRenewed, strconv.FormatInt(renewed.OrderID, 10), s.paymentEvent(renewed))
	})
	if errors.Is(err, repository.ErrStaleTransition) {
		return nil, notFound("There is no expired payment session.")
	}
	if err != nil {
		return nil, err
	}

	order, err := s.store.GetOrder(ctx, renewed.OrderID)
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "payment session renewed",
		"payment_id", renewed.ID, "order_id", renewed.OrderID, "session_id", renewed.SessionID)
	return &RenewResult{Payment: renewed, Order: order}, nil
}

// ExpireStale expires every Pending payment whose session is older than
// validity, along with its order.
func (s *PaymentService) ExpireStale(ctx context.Context, validity time.Duration) ([]*domain.Payment, error) {
	var expired []*domain.Payment
	err := s.store.WithTx(ctx, func(q repository.Querier) error {
		var err error
		expired, err = q.ExpireStalePayments(ctx, s.now().Add(-validity))
		if err != nil {
			return err
		}
		for _, p := range expired {
			if err := q.InsertOutboxEvent(ctx, domain.EventPaymentExpired, strconv.FormatInt(p.OrderID, 10), s.paymentEvent(p)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(expired) > 0 {
		s.log.InfoContext(ctx, "expired stale payment sessions", "count", len(expired))
	}
	return expired, nil
}

func (s *PaymentService) ListPayments(ctx context.Context, caller domain.Caller) ([]*domain.Payment, error) {
	filter := repository.PaymentFilter{}
	if !caller.HasCapability(domain.CapabilityAdmin) {
		filter.UserID = &caller.ID
	}
	return s.store.ListPayments(ctx, filter)
}

func (s *PaymentService) GetPayment(ctx context.Context, caller domain.Caller, id int64) (*domain.Payment, error) {
	p, err := s.store.GetPayment(ctx, id)
	if errors.Is(err, repository.ErrPaymentNotFound) {
		return nil, notFound("payment %d", id)
	}
	if err != nil {
		return nil, err
	}
	if p.UserID != caller.ID && !caller.HasCapability(domain.CapabilityAdmin) {
		return nil, notFound("payment %d", id)
	}
	return p, nil
}

func (s *PaymentService) paymentEvent(p *domain.Payment) domain.PaymentEvent {
	return domain.PaymentEvent{
		PaymentID:  p.ID,
		OrderID:    p.OrderID,
		UserID:     p.UserID,
		Status:     p.Status,
		SessionID:  p.SessionID,
		MoneyToPay: p.MoneyToPay,
		OccurredAt: s.now().UTC(),
	}
}
