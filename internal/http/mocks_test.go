package http

import (
	"context"
	"sync"

	"github.com/V-Shkrobatskyi/lux-clothing-portal/internal/domain"
	"github.com/V-Shkrobatskyi/lux-clothing-portal/internal/service"
)

type CatalogServiceMock struct {
	product  *domain.Product
	products []*domain.Product
	err      error
	saved    *domain.Product
	caller   domain.Caller
	restock  int
}

func (m *CatalogServiceMock) GetProduct(_ context.Context, _ int64) (*domain.Product, error) {
	return m.product, m.err
}

func (m *CatalogServiceMock) ListProducts(context.Context) ([]*domain.Product, error) {
	return m.products, m.err
}

func (m *CatalogServiceMock) CreateProduct(_ context.Context, caller domain.Caller, p *domain.Product) error {
	m.caller, m.saved = caller, p
	if m.err == nil {
		p.ID = 10
	}
	return m.err
}

func (m *CatalogServiceMock) UpdateProduct(_ context.Context, caller domain.Caller, p *domain.Product) error {
	m.caller, m.saved = caller, p
	return m.err
}

func (m *CatalogServiceMock) RestockProduct(_ context.Context, caller domain.Caller, id int64, quantity int) (*domain.Product, error) {
	m.caller, m.restock = caller, quantity
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Product{ID: id, Price: dec("10.00"), Inventory: 3 + quantity}, nil
}

type CartServiceMock struct {
	items    []*domain.LineItem
	item     *domain.LineItem
	err      error
	quantity int
}

func (m *CartServiceMock) AddLineItem(_ context.Context, caller domain.Caller, productID int64, quantity int) (*domain.LineItem, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.quantity = quantity
	return &domain.LineItem{ID: 1, UserID: caller.ID, ProductID: productID, Quantity: quantity, Price: dec("90.00"), Active: true}, nil
}

func (m *CartServiceMock) UpdateLineItem(_ context.Context, _ domain.Caller, _ int64, quantity int) (*domain.LineItem, error) {
	m.quantity = quantity
	return m.item, m.err
}

func (m *CartServiceMock) RemoveLineItem(context.Context, domain.Caller, int64) error {
	return m.err
}

func (m *CartServiceMock) ListCart(context.Context, domain.Caller) ([]*domain.LineItem, error) {
	return m.items, m.err
}

type OrderServiceMock struct {
	mu        sync.Mutex
	result    *service.PlaceOrderResult
	orders    []*domain.Order
	err       error
	calls     int
	addressID int64
	itemIDs   []int64
	panicWith any
}

func (m *OrderServiceMock) PlaceOrder(_ context.Context, _ domain.Caller, addressID int64, lineItemIDs []int64) (*service.PlaceOrderResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.addressID, m.itemIDs = addressID, lineItemIDs
	if m.panicWith != nil {
		panic(m.panicWith)
	}
	return m.result, m.err
}

func (m *OrderServiceMock) ListOrders(context.Context, domain.Caller) ([]*domain.Order, error) {
	return m.orders, m.err
}

func (m *OrderServiceMock) GetOrder(_ context.Context, _ domain.Caller, id int64) (*domain.Order, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, o := range m.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, service.ErrNotFound
}

type PaymentServiceMock struct {
	payment   *domain.Payment
	payments  []*domain.Payment
	renewed   *service.RenewResult
	err       error
	sessionID string
}

func (m *PaymentServiceMock) Confirm(_ context.Context, sessionID string) (*domain.Payment, error) {
	m.sessionID = sessionID
	return m.payment, m.err
}

func (m *PaymentServiceMock) Cancel() error {
	return service.NewFieldError("error", service.CancelMessage)
}

func (m *PaymentServiceMock) Renew(context.Context, domain.Caller) (*service.RenewResult, error) {
	return m.renewed, m.err
}

func (m *PaymentServiceMock) ListPayments(context.Context, domain.Caller) ([]*domain.Payment, error) {
	return m.payments, m.err
}

func (m *PaymentServiceMock) GetPayment(context.Context, domain.Caller, int64) (*domain.Payment, error) {
	return m.payment, m.err
}

type ProfileServiceMock struct {
	profile *domain.Profile
	err     error
	deleted int64
}

func (m *ProfileServiceMock) GetProfile(context.Context, domain.Caller) (*domain.Profile, error) {
	return m.profile, m.err
}

func (m *ProfileServiceMock) CreateProfile(_ context.Context, caller domain.Caller, phone string) (*domain.Profile, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Profile{ID: 1, UserID: caller.ID, PhoneNumber: phone}, nil
}

func (m *ProfileServiceMock) UpdateProfile(_ context.Context, caller domain.Caller, phone string) (*domain.Profile, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Profile{ID: 1, UserID: caller.ID, PhoneNumber: phone}, nil
}

func (m *ProfileServiceMock) ListAddresses(context.Context, domain.Caller) ([]*domain.Address, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.profile.Addresses, nil
}

func (m *ProfileServiceMock) CreateAddress(_ context.Context, _ domain.Caller, a *domain.Address) error {
	if m.err == nil {
		a.ID, a.ProfileID = 5, 1
	}
	return m.err
}

func (m *ProfileServiceMock) DeleteAddress(_ context.Context, _ domain.Caller, id int64) error {
	m.deleted = id
	return m.err
}
