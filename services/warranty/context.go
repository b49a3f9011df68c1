package warranty

import "time"

// Terms are the warranty terms attached to one line item.
type Terms struct {
	LineItemID         string `json:"lineItemId"`
	WarrantyDays       int    `json:"warrantyDays"`
	CoversDamagedItems bool   `json:"coversDamagedItems"`
	CoversLostItems    bool   `json:"coversLostItems"`
	CoversLateShipment bool   `json:"coversLateShipment"`
}

// Coverages holds coverage flags OR-ed across every line item of an order.
type Coverages struct {
	Damaged bool `json:"damaged"`
	Lost    bool `json:"lost"`
	Late    bool `json:"late"`
}

// Context is the warranty picture of a whole order, consumed by the decision engine.
type Context struct {
	HasOrder             bool        `json:"hasOrder"`
	OrderWarrantyStatus  OrderStatus `json:"orderWarrantyStatus"`
	EarliestActiveExpiry *time.Time  `json:"earliestActiveExpiry,omitempty"`
	ProductCoverages     Coverages   `json:"productCoverages"`
	OrderAgeDays         int         `json:"orderAgeDays"`
}

// NoOrder is the context used when a thread has no order to reason about.
func NoOrder() Context {
	return Context{HasOrder: false, OrderWarrantyStatus: OrderNone}
}

// Aggregate folds the per-item warranty terms of an order into a Context.
// Items with no warranty (zero days) contribute coverage flags but no status.
func Aggregate(orderDate time.Time, items []Terms, today time.Time) Context {
	ctx := Context{
		HasOrder:            true,
		OrderWarrantyStatus: OrderNone,
		OrderAgeDays:        daysBetween(orderDate, today),
	}

	var active, expired int
	for _, item := range items {
		ctx.ProductCoverages.Damaged = ctx.ProductCoverages.Damaged || item.CoversDamagedItems
		ctx.ProductCoverages.Lost = ctx.ProductCoverages.Lost || item.CoversLostItems
		ctx.ProductCoverages.Late = ctx.ProductCoverages.Late || item.CoversLateShipment

		switch GetStatus(orderDate, item.WarrantyDays, today) {
		case StatusActive, StatusExpiringSoon:
			active++
			expiry := CalculateExpiry(orderDate, item.WarrantyDays)
			if ctx.EarliestActiveExpiry == nil || expiry.Before(*ctx.EarliestActiveExpiry) {
				ctx.EarliestActiveExpiry = &expiry
			}
		case StatusExpired:
			expired++
		}
	}

	switch {
	case active > 0 && expired > 0:
		ctx.OrderWarrantyStatus = OrderMixed
	case active > 0:
		ctx.OrderWarrantyStatus = OrderActive
	case expired > 0:
		ctx.OrderWarrantyStatus = OrderExpired
	}
	return ctx
}
