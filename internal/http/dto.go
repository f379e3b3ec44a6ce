package http

import (
	"time"

	"github.com/V-Shkrobatskyi/lux-clothing-portal/internal/domain"
	"github.com/shopspring/decimal"
)

// Money is always rendered with two decimals as a JSON string.

type ProductDTO struct {
	ID             int64   `json:"id"`
	ProductHead    int64   `json:"product_head"`
	Size           int64   `json:"size"`
	Color          int64   `json:"color"`
	Price          string  `json:"price"`
	Discount       *string `json:"discount"`
	EffectivePrice string  `json:"effective_price"`
	Inventory      int     `json:"inventory"`
}

// ProductRequestDTO is the body of create and update. Inventory is only
// honoured on create.
type ProductRequestDTO struct {
	ProductHead int64            `json:"product_head"`
	Size        int64            `json:"size"`
	Color       int64            `json:"color"`
	Price       decimal.Decimal  `json:"price"`
	Discount    *decimal.Decimal `json:"discount"`
	Inventory   int              `json:"inventory"`
}

// RestockRequestDTO adds Quantity units to stock; negative values write off.
type RestockRequestDTO struct {
	Quantity int `json:"quantity"`
}

func (req ProductRequestDTO) toDomain() *domain.Product {
	p := &domain.Product{
		ProductHeadID: req.ProductHead,
		SizeID:        req.Size,
		ColorID:       req.Color,
		Price:         req.Price,
		Inventory:     req.Inventory,
	}
	if req.Discount != nil {
		p.Discount = decimal.NewNullDecimal(*req.Discount)
	}
	return p
}

func toProductDTO(p *domain.Product) ProductDTO {
	dto := ProductDTO{
		ID:             p.ID,
		ProductHead:    p.ProductHeadID,
		Size:           p.SizeID,
		Color:          p.ColorID,
		Price:          p.Price.StringFixed(2),
		EffectivePrice: p.EffectivePrice().StringFixed(2),
		Inventory:      p.Inventory,
	}
	if p.Discount.Valid {
		d := p.Discount.Decimal.StringFixed(2)
		dto.Discount = &d
	}
	return dto
}

type LineItemDTO struct {
	ID       int64  `json:"id"`
	User     int64  `json:"user"`
	Product  int64  `json:"product"`
	Quantity int    `json:"quantity"`
	Price    string `json:"price"`
	Active   bool   `json:"active"`
	Order    *int64 `json:"order"`
}

type AddLineItemRequestDTO struct {
	Product  int64 `json:"product"`
	Quantity int   `json:"quantity"`
}

type UpdateLineItemRequestDTO struct {
	Quantity int `json:"quantity"`
}

func toLineItemDTO(li *domain.LineItem) LineItemDTO {
	return LineItemDTO{
		ID:       li.ID,
		User:     li.UserID,
		Product:  li.ProductID,
		Quantity: li.Quantity,
		Price:    li.Price.StringFixed(2),
		Active:   li.Active,
		Order:    li.OrderID,
	}
}

func toLineItemDTOs(items []*domain.LineItem) []LineItemDTO {
	dtos := make([]LineItemDTO, 0, len(items))
	for _, li := range items {
		dtos = append(dtos, toLineItemDTO(li))
	}
	return dtos
}

type PlaceOrderRequestDTO struct {
	OrderAddress int64   `json:"order_address"`
	OrderItems   []int64 `json:"order_items"`
}

type OrderDTO struct {
	ID               int64         `json:"id"`
	Created          time.Time     `json:"created"`
	User             int64         `json:"user"`
	OrderAddress     int64         `json:"order_address"`
	OrderItems       []LineItemDTO `json:"order_items"`
	OrderPhoneNumber string        `json:"order_phone_number"`
	Price            string        `json:"price"`
	Status           string        `json:"status"`
}

func toOrderDTO(o *domain.Order) OrderDTO {
	return OrderDTO{
		ID:               o.ID,
		Created:          o.CreatedAt,
		User:             o.UserID,
		OrderAddress:     o.AddressID,
		OrderItems:       toLineItemDTOs(o.Items),
		OrderPhoneNumber: o.PhoneNumber,
		Price:            o.Price.StringFixed(2),
		Status:           string(o.Status),
	}
}

// PlaceOrderResponseDTO carries the session to pay, or the reason it could
// not be opened yet.
type PlaceOrderResponseDTO struct {
	OrderDTO
	Payment      *PaymentDTO `json:"payment,omitempty"`
	PaymentError string      `json:"payment_error,omitempty"`
}

type PaymentDTO struct {
	ID         int64      `json:"id"`
	Status     string     `json:"status"`
	Order      int64      `json:"order"`
	SessionURL string     `json:"session_url"`
	SessionID  string     `json:"session_id"`
	MoneyToPay string     `json:"money_to_pay"`
	User       int64      `json:"user"`
	ExpiredAt  *time.Time `json:"expired_at,omitempty"`
}

func toPaymentDTO(p *domain.Payment) *PaymentDTO {
	return &PaymentDTO{
		ID:         p.ID,
		Status:     string(p.Status),
		Order:      p.OrderID,
		SessionURL: p.SessionURL,
		SessionID:  p.SessionID,
		MoneyToPay: p.MoneyToPay.StringFixed(2),
		User:       p.UserID,
		ExpiredAt:  p.ExpiredAt,
	}
}

type RenewResponseDTO struct {
	Detail  string      `json:"detail"`
	Payment *PaymentDTO `json:"payment"`
	Order   OrderDTO    `json:"order"`
}

type AddressDTO struct {
	ID      int64  `json:"id"`
	Profile int64  `json:"profile"`
	Country string `json:"country"`
	Region  string `json:"region"`
	City    string `json:"city"`
	Street  string `json:"street"`
	ZipCode string `json:"zip_code"`
	Default bool   `json:"default"`
}

type AddressRequestDTO struct {
	Country string `json:"country"`
	Region  string `json:"region"`
	City    string `json:"city"`
	Street  string `json:"street"`
	ZipCode string `json:"zip_code"`
	Default bool   `json:"default"`
}

func (req AddressRequestDTO) toDomain() *domain.Address {
	return &domain.Address{
		Country: req.Country,
		Region:  req.Region,
		City:    req.City,
		Street:  req.Street,
		ZipCode: req.ZipCode,
		Default: req.Default,
	}
}

func toAddressDTO(a *domain.Address) AddressDTO {
	return AddressDTO{
		ID:      a.ID,
		Profile: a.ProfileID,
		Country: a.Country,
		Region:  a.Region,
		City:    a.City,
		Street:  a.Street,
		ZipCode: a.ZipCode,
		Default: a.Default,
	}
}

func toAddressDTOs(addresses []*domain.Address) []AddressDTO {
	dtos := make([]AddressDTO, 0, len(addresses))
	for _, a := range addresses {
		dtos = append(dtos, toAddressDTO(a))
	}
	return dtos
}

type ProfileDTO struct {
	ID          int64        `json:"id"`
	User        int64        `json:"user"`
	PhoneNumber string       `json:"phone_number"`
	Addresses   []AddressDTO `json:"addresses"`
}

type ProfileRequestDTO struct {
	PhoneNumber string `json:"phone_number"`
}

func toProfileDTO(p *domain.Profile) ProfileDTO {
	return ProfileDTO{
		ID:          p.ID,
		User:        p.UserID,
		PhoneNumber: p.PhoneNumber,
		Addresses:   toAddressDTOs(p.Addresses),
	}
}
