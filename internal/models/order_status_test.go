package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct {
		from, to OrderStatus
	}{
		{OrderStatusPending, OrderStatusAccepted},
		{OrderStatusPending, OrderStatusCancelled},
		{OrderStatusAccepted, OrderStatusInProgress},
		{OrderStatusAccepted, OrderStatusCancelled},
		{OrderStatusInProgress, OrderStatusAwaitingPayment},
		{OrderStatusInProgress, OrderStatusCancelled},
		{OrderStatusAwaitingPayment, OrderStatusPaid},
		{OrderStatusAwaitingPayment, OrderStatusCancelled},
	}
	for _, tc := range allowed {
		assert.True(t, CanTransition(tc.from, tc.to), "%s -> %s должен быть разрешён", tc.from, tc.to)
	}

	forbidden := []struct {
		from, to OrderStatus
	}{
		{OrderStatusPending, OrderStatusInProgress},
		{OrderStatusPending, OrderStatusPaid},
		{OrderStatusAccepted, OrderStatusPaid},
		{OrderStatusAwaitingPayment, OrderStatusInProgress},
		{OrderStatusPaid, OrderStatusCancelled},
		{OrderStatusCancelled, OrderStatusPending},
		{OrderStatusPaid, OrderStatusPending},
	}
	for _, tc := range forbidden {
		assert.False(t, CanTransition(tc.from, tc.to), "%s -> %s должен быть запрещён", tc.from, tc.to)
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, OrderStatusPaid.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.False(t, OrderStatusPending.IsTerminal())
	assert.False(t, OrderStatusAwaitingPayment.IsTerminal())
}

func TestOrderPrice(t *testing.T) {
	assert.True(t, OrderPrice(3).Equal(decimal.NewFromInt(1800)))
	assert.True(t, OrderPrice(5).Equal(decimal.NewFromInt(3000)))
	assert.True(t, OrderPrice(10).Equal(decimal.NewFromInt(6000)))
}
