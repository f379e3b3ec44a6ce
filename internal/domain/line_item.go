package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineItem is a caller's staged quantity of one product. Price is always
// computed server-side from the product at the moment of the last save.
type LineItem struct {
	ID        int64
	UserID    int64
	ProductID int64
	Quantity  int
	Price     decimal.Decimal
	Active    bool
	OrderID   *int64 // set once, when the item is consumed into an order
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Reprice refreshes the price snapshot from the current product state.
func (li *LineItem) Reprice(p *Product) {
	li.Price = p.EffectivePrice()
}

func (li *LineItem) Subtotal() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Total sums price*quantity over items. No rounding is applied beyond the
// cent scale the prices already carry.
func Total(items []*LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}
