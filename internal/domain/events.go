package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventPaymentSessionRequested = "payment_session.requested"
	EventOrderPlaced             = "order.placed"
	EventPaymentPaid             = "payment.paid"
	EventPaymentRenewed          = "payment.renewed"
	EventPaymentExpired          = "payment.expired"
)

type OrderPlacedItem struct {
	LineItemID int64           `json:"line_item_id"`
	ProductID  int64           `json:"product_id"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}

type OrderPlacedEvent struct {
	OrderID  int64             `json:"order_id"`
	UserID   int64             `json:"user_id"`
	Price    decimal.Decimal   `json:"price"`
	Items    []OrderPlacedItem `json:"items"`
	PlacedAt time.Time         `json:"placed_at"`
}

type PaymentSessionRequestedEvent struct {
	OrderID int64           `json:"order_id"`
	Amount  decimal.Decimal `json:"amount"`
}

// PaymentEvent covers the paid/renewed/expired notifications.
type PaymentEvent struct {
	PaymentID  int64           `json:"payment_id"`
	OrderID    int64           `json:"order_id"`
	UserID     int64           `json:"user_id"`
	Status     PaymentStatus   `json:"status"`
	SessionID  string          `json:"session_id,omitempty"`
	MoneyToPay decimal.Decimal `json:"money_to_pay"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// OutboxEvent is a domain event persisted in the same transaction as the
// state change it describes.
type OutboxEvent struct {
	ID          int64
	EventID     string
	AggregateID string
	EventType   string
	Payload     []byte
	Attempts    int
	CreatedAt   time.Time
}
