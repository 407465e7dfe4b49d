package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func cartFixture() []CartItem {
	return []CartItem{
		{ProductID: "a", Quantity: 2, Product: &Product{ID: "a", Price: 199.99, VP: 20, IsActive: true, Stock: 10}},
		{ProductID: "b", Quantity: 1, Product: &Product{ID: "b", Price: 49.5, VP: 5.5, IsActive: true, Stock: 1}},
		{ProductID: "c", Quantity: 3}, // product not loaded
	}
}

func TestComputeCartTotals(t *testing.T) {
	totals := ComputeCartTotals(cartFixture(), 0.15)

	assert.InDelta(t, 449.48, totals.Subtotal, 1e-9)
	assert.InDelta(t, 67.42, totals.Tax, 1e-9)
	assert.InDelta(t, 516.90, totals.Total, 1e-9)
	assert.InDelta(t, 45.5, totals.TotalVP, 1e-9)
	assert.Equal(t, 6, totals.ItemCount)
	assert.InDelta(t, 0.15, totals.TaxRate, 1e-9)
}

func TestComputeCartTotalsEmptyAndAltRate(t *testing.T) {
	empty := ComputeCartTotals(nil, 0.15)
	assert.Zero(t, empty.Subtotal)
	assert.Zero(t, empty.Total)

	eight := ComputeCartTotals(cartFixture()[:1], 0.08)
	assert.InDelta(t, 399.98, eight.Subtotal, 1e-9)
	assert.InDelta(t, 32.0, eight.Tax, 1e-9)
	assert.InDelta(t, 431.98, eight.Total, 1e-9)
}

func TestOrderStatusTransitions(t *testing.T) {
	allowed := [][2]OrderStatus{
		{OrderStatusPendingPayment, OrderStatusPaid},
		{OrderStatusPendingPayment, OrderStatusCancelled},
		{OrderStatusPaid, OrderStatusProcessing},
		{OrderStatusProcessing, OrderStatusShipped},
		{OrderStatusShipped, OrderStatusDelivered},
	}
	for _, tr := range allowed {
		assert.True(t, tr[0].CanTransitionTo(tr[1]), "%s -> %s", tr[0], tr[1])
	}

	denied := [][2]OrderStatus{
		{OrderStatusPaid, OrderStatusCancelled},
		{OrderStatusPaid, OrderStatusPendingPayment},
		{OrderStatusDelivered, OrderStatusShipped},
		{OrderStatusCancelled, OrderStatusPaid},
		{OrderStatusPendingPayment, OrderStatusShipped},
	}
	for _, tr := range denied {
		assert.False(t, tr[0].CanTransitionTo(tr[1]), "%s -> %s", tr[0], tr[1])
	}

	assert.False(t, OrderStatus("refunded").IsValid())
	assert.True(t, OrderStatusShipped.CountsAsRevenue())
	assert.False(t, OrderStatusPendingPayment.CountsAsRevenue())
}

func TestWithdrawalTransitions(t *testing.T) {
	assert.True(t, WithdrawalPending.CanTransitionTo(WithdrawalApproved))
	assert.True(t, WithdrawalPending.CanTransitionTo(WithdrawalRejected))
	assert.True(t, WithdrawalApproved.CanTransitionTo(WithdrawalPaid))
	assert.False(t, WithdrawalPending.CanTransitionTo(WithdrawalPaid))
	assert.False(t, WithdrawalRejected.CanTransitionTo(WithdrawalApproved))
	assert.False(t, WithdrawalPaid.CanTransitionTo(WithdrawalPending))
	assert.False(t, WithdrawalStatus("done").IsValid())
}

func TestMaskedAccount(t *testing.T) {
	assert.Equal(t, "******7890", Withdrawal{AccountNumber: "1234567890"}.MaskedAccount())
	assert.Equal(t, "123", Withdrawal{AccountNumber: "123"}.MaskedAccount())
}

func TestListParamsNormalize(t *testing.T) {
	p := ListParams{Limit: 500, SortOrder: "sideways"}
	p.Normalize()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 100, p.Limit)
	assert.Equal(t, "desc", p.SortOrder)
	assert.Equal(t, 0, p.Offset())

	p = ListParams{Page: 3, Limit: 20}
	p.Normalize()
	assert.Equal(t, 40, p.Offset())

	assert.Equal(t, 3, TotalPages(41, 20))
	assert.Equal(t, 0, TotalPages(0, 20))
	assert.Equal(t, 0, TotalPages(10, 0))
}

func TestProductRequestDefaults(t *testing.T) {
	price := 10.0
	p := ProductRequest{Name: "Shake", Price: &price, Stock: 4}.ToProduct()
	assert.True(t, p.IsActive)
	assert.Equal(t, 10.0, p.Price)
	assert.True(t, p.InStock(4))
	assert.False(t, p.InStock(5))
	assert.False(t, p.InStock(0))

	inactive := false
	p = ProductRequest{Name: "Old", Price: &price, IsActive: &inactive, Stock: 10}.ToProduct()
	assert.False(t, p.InStock(1))
}
