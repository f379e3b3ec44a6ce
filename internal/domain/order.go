package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusCart       OrderStatus = "Cart" // legacy, never written by the workflow
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusPaid       OrderStatus = "Paid"
	OrderStatusExpired    OrderStatus = "Expired"
	OrderStatusCanceled   OrderStatus = "Canceled"
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusCompleted  OrderStatus = "Completed"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusCart:       {OrderStatusPending},
	OrderStatusPending:    {OrderStatusPaid, OrderStatusExpired, OrderStatusCanceled},
	OrderStatusExpired:    {OrderStatusPending, OrderStatusCanceled},
	OrderStatusPaid:       {OrderStatusProcessing, OrderStatusCanceled},
	OrderStatusProcessing: {OrderStatusCompleted},
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCanceled
}

// String representation (for logging)
func (s OrderStatus) String() string {
	return string(s)
}

// Order is an immutable, priced purchase. Only Status changes after creation.
type Order struct {
	ID          int64
	UserID      int64
	ProfileID   int64
	AddressID   int64
	PhoneNumber string
	Price       decimal.Decimal
	Status      OrderStatus
	Items       []*LineItem
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OwnedBy reports whether the caller may see the order.
func (o *Order) OwnedBy(c Caller) bool {
	return o.UserID == c.ID || c.HasCapability(CapabilityAdmin)
}
