package service

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/V-Shkrobatskyi/lux-clothing-portal/internal/domain"
	"github.com/V-Shkrobatskyi/lux-clothing-portal/internal/provider"
	"github.com/V-Shkrobatskyi/lux-clothing-portal/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	store    *fakeStore
	products *MockProductCache
	catalog  *CatalogService
	provider *provider.Fake
	payments *PaymentService
	orders   *OrderService
	cart     *CartService
	profiles *ProfileService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newFakeStore()
	fake := provider.NewFake("http://localhost:8080")
	products := newMockProductCache()
	payments := NewPaymentService(store, fake, logger.Nop())
	return &testEnv{
		store:    store,
		products: products,
		catalog:  NewCatalogService(store, products, logger.Nop()),
		provider: fake,
		payments: payments,
		orders:   NewOrderService(store, payments, products, logger.Nop()),
		cart:     NewCartService(store, logger.Nop()),
		profiles: NewProfileService(store, logger.Nop()),
	}
}

func customer(id int64) domain.Caller {
	return domain.Caller{ID: id}
}

func admin(id int64) domain.Caller {
	return domain.Caller{ID: id, Capabilities: []domain.Capability{domain.CapabilityAdmin}}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// seedCustomer creates a profile with one default address.
func (e *testEnv) seedCustomer(t *testing.T, userID int64) *domain.Address {
	t.Helper()
	ctx := context.Background()
	_, err := e.profiles.CreateProfile(ctx, customer(userID), "+380501234567")
	require.NoError(t, err)

	addr := &domain.Address{Country: "Ukraine", Region: "Kyiv", City: "Kyiv", Street: "Khreshchatyk 1", ZipCode: "01001"}
	require.NoError(t, e.profiles.CreateAddress(ctx, customer(userID), addr))
	return addr
}

func (e *testEnv) seedProduct(t *testing.T, price string, discount int64, inventory int) *domain.Product {
	t.Helper()
	p := &domain.Product{
		ProductHeadID: int64(len(e.store.d().products) + 1),
		SizeID:        1,
		ColorID:       1,
		Price:         dec(price),
		Inventory:     inventory,
	}
	if discount > 0 {
		p.Discount = decimal.NewNullDecimal(decimal.NewFromInt(discount))
	}
	require.NoError(t, e.store.CreateProduct(context.Background(), p))
	return p
}

func (e *testEnv) addToCart(t *testing.T, userID int64, product *domain.Product, quantity int) *domain.LineItem {
	t.Helper()
	item, err := e.cart.AddLineItem(context.Background(), customer(userID), product.ID, quantity)
	require.NoError(t, err)
	return item
}

func (e *testEnv) inventory(t *testing.T, productID int64) int {
	t.Helper()
	p, err := e.store.GetProduct(context.Background(), productID)
	require.NoError(t, err)
	return p.Inventory
}

func assertFieldError(t *testing.T, err error, field string) {
	t.Helper()
	require.ErrorIs(t, err, ErrValidation)
	var fe *FieldError
	require.True(t, errors.As(err, &fe), "expected *FieldError, got %T", err)
	assert.Contains(t, fe.Fields, field)
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
