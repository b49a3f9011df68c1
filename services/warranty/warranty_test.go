package warranty

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var today = time.Date(2026, 10, 16, 15, 30, 0, 0, time.UTC)

func daysAgo(n int) time.Time {
	return today.AddDate(0, 0, -n)
}

func TestCalculateExpiry(t *testing.T) {
	orderDate := time.Date(2026, 1, 30, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), CalculateExpiry(orderDate, 30))
	assert.Equal(t, orderDate, CalculateExpiry(orderDate, 0))
}

func TestGetStatus_ZeroDaysIsNone(t *testing.T) {
	for _, orderDate := range []time.Time{daysAgo(0), daysAgo(5), daysAgo(400), today.AddDate(0, 0, 10)} {
		assert.Equal(t, StatusNone, GetStatus(orderDate, 0, today))
	}
}

func TestGetStatus_DayOfPurchaseIsActive(t *testing.T) {
	for _, days := range []int{8, 30, 365, 1000} {
		assert.Equal(t, StatusActive, GetStatus(today, days, today), "warrantyDays=%d", days)
	}
}

func TestGetStatus_ExpiringWindow(t *testing.T) {
	// 30-day warranty ordered n days ago leaves 30-n days.
	for remaining := 0; remaining <= 7; remaining++ {
		orderDate := daysAgo(30 - remaining)
		assert.Equal(t, StatusExpiringSoon, GetStatus(orderDate, 30, today), "remaining=%d", remaining)
	}
	assert.Equal(t, StatusActive, GetStatus(daysAgo(22), 30, today))
}

func TestGetStatus_Expired(t *testing.T) {
	assert.Equal(t, StatusExpired, GetStatus(daysAgo(31), 30, today))
	assert.Equal(t, StatusExpired, GetStatus(daysAgo(400), 365, today))
}

func TestGetStatus_NegativeDaysNotTreatedAsNone(t *testing.T) {
	assert.Equal(t, StatusExpired, GetStatus(today, -1, today))
}

func TestGetInfo(t *testing.T) {
	orderDate := daysAgo(10)
	info := GetInfo(orderDate, 30, true, false, true, today)

	assert.Equal(t, 30, info.WarrantyDays)
	assert.Equal(t, orderDate, info.OrderDate)
	assert.Equal(t, orderDate.AddDate(0, 0, 30), info.ExpiryDate)
	assert.Equal(t, StatusActive, info.Status)
	assert.Equal(t, 20, info.DaysRemaining)
	assert.True(t, info.CoversDamagedItems)
	assert.False(t, info.CoversLostItems)
	assert.True(t, info.CoversLateShipment)
}

func TestDaysRemaining_IgnoresTimeOfDay(t *testing.T) {
	lateOrder := time.Date(2026, 10, 6, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, 0, DaysRemaining(lateOrder, 10, today))
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name   string
		items  []Terms
		status OrderStatus
	}{
		{"no items", nil, OrderNone},
		{"no warranties", []Terms{{WarrantyDays: 0}}, OrderNone},
		{"all active", []Terms{{WarrantyDays: 90}, {WarrantyDays: 365}}, OrderActive},
		{"expiring counts as active", []Terms{{WarrantyDays: 25}}, OrderActive},
		{"all expired", []Terms{{WarrantyDays: 5}}, OrderExpired},
		{"mixed", []Terms{{WarrantyDays: 5}, {WarrantyDays: 90}}, OrderMixed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := Aggregate(daysAgo(20), tt.items, today)
			assert.True(t, ctx.HasOrder)
			assert.Equal(t, tt.status, ctx.OrderWarrantyStatus)
			assert.Equal(t, 20, ctx.OrderAgeDays)
		})
	}
}

func TestAggregate_EarliestExpiryAndCoverages(t *testing.T) {
	orderDate := daysAgo(20)
	ctx := Aggregate(orderDate, []Terms{
		{LineItemID: "a", WarrantyDays: 365, CoversLostItems: true},
		{LineItemID: "b", WarrantyDays: 25, CoversDamagedItems: true},
		{LineItemID: "c", WarrantyDays: 10, CoversLateShipment: true},
	}, today)

	require.NotNil(t, ctx.EarliestActiveExpiry)
	assert.Equal(t, orderDate.AddDate(0, 0, 25), *ctx.EarliestActiveExpiry)
	assert.Equal(t, Coverages{Damaged: true, Lost: true, Late: true}, ctx.ProductCoverages)
	assert.Equal(t, OrderMixed, ctx.OrderWarrantyStatus)
}

func TestNoOrder(t *testing.T) {
	ctx := NoOrder()
	assert.False(t, ctx.HasOrder)
	assert.Equal(t, OrderNone, ctx.OrderWarrantyStatus)
	assert.Nil(t, ctx.EarliestActiveExpiry)
}

func TestEvaluator_UsesClock(t *testing.T) {
	e := &Evaluator{Now: func() time.Time { return today }}
	assert.Equal(t, StatusExpired, e.Status(daysAgo(31), 30))
	assert.Equal(t, 20, e.Info(daysAgo(10), 30, false, false, false).DaysRemaining)
	assert.Equal(t, OrderActive, e.Aggregate(daysAgo(1), []Terms{{WarrantyDays: 30}}).OrderWarrantyStatus)
}
