package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaymentStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, PaymentStatusPending.CanTransitionTo(PaymentStatusPaid))
	assert.True(t, PaymentStatusPending.CanTransitionTo(PaymentStatusExpired))
	assert.True(t, PaymentStatusExpired.CanTransitionTo(PaymentStatusPending))

	assert.False(t, PaymentStatusPaid.CanTransitionTo(PaymentStatusPending))
	assert.False(t, PaymentStatusPaid.CanTransitionTo(PaymentStatusExpired))
	assert.False(t, PaymentStatusExpired.CanTransitionTo(PaymentStatusPaid))
}

func TestPaymentStatus_OrderStatus(t *testing.T) {
	assert.Equal(t, OrderStatusPaid, PaymentStatusPaid.OrderStatus())
	assert.Equal(t, OrderStatusExpired, PaymentStatusExpired.OrderStatus())
	assert.Equal(t, OrderStatusPending, PaymentStatusPending.OrderStatus())
}

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, OrderStatusPending.CanTransitionTo(OrderStatusPaid))
	assert.True(t, OrderStatusExpired.CanTransitionTo(OrderStatusPending))
	assert.False(t, OrderStatusPaid.CanTransitionTo(OrderStatusPending))
	assert.False(t, OrderStatusCompleted.CanTransitionTo(OrderStatusCanceled))
	assert.True(t, OrderStatusCompleted.IsTerminal())
	assert.False(t, OrderStatusPending.IsTerminal())
}

func TestOrder_OwnedBy(t *testing.T) {
	order := &Order{ID: 1, UserID: 7}

	assert.True(t, order.OwnedBy(Caller{ID: 7}))
	assert.False(t, order.OwnedBy(Caller{ID: 8}))
	assert.True(t, order.OwnedBy(Caller{ID: 8, Capabilities: []Capability{CapabilityAdmin}}))
}
