package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "Pending"
	PaymentStatusPaid    PaymentStatus = "Paid"
	PaymentStatusExpired PaymentStatus = "Expired"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending: {PaymentStatusPaid, PaymentStatusExpired},
	PaymentStatusExpired: {PaymentStatusPending},
}

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// OrderStatus is the order-side projection of a payment status.
func (s PaymentStatus) OrderStatus() OrderStatus {
	switch s {
	case PaymentStatusPaid:
		return OrderStatusPaid
	case PaymentStatusExpired:
		return OrderStatusExpired
	default:
		return OrderStatusPending
	}
}

func (s PaymentStatus) String() string {
	return string(s)
}

// Payment is the external checkout session bound 1:1 to an order.
type Payment struct {
	ID               int64
	OrderID          int64
	UserID           int64
	Status           PaymentStatus
	SessionURL       string
	SessionID        string
	MoneyToPay       decimal.Decimal
	SessionCreatedAt time.Time
	ExpiredAt        *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// AmountCents converts a cent-scaled amount to the provider's integer unit.
func AmountCents(amount decimal.Decimal) int64 {
	return amount.Round(2).Shift(2).IntPart()
}
