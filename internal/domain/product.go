package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Product is a sellable variant of a product head, unique per (head, size, color).
type Product struct {
	ID            int64
	ProductHeadID int64
	SizeID        int64
	ColorID       int64
	Price         decimal.Decimal
	Discount      decimal.NullDecimal // percentage
	Inventory     int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// EffectivePrice is the unit price a line item is charged right now.
func (p *Product) EffectivePrice() decimal.Decimal {
	return RecomputePrice(p.Price, p.Discount)
}

// RecomputePrice applies a percentage discount: price - price*discount/100,
// rounded to cents. A missing or zero discount leaves the price unchanged.
func RecomputePrice(price decimal.Decimal, discount decimal.NullDecimal) decimal.Decimal {
	if !discount.Valid || discount.Decimal.IsZero() {
		return price.Round(2)
	}
	off := price.Mul(discount.Decimal).Div(hundred)
	return price.Sub(off).Round(2)
}
