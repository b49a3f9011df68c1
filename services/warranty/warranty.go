// Package warranty computes coverage and expiry status for order line items.
//
// Everything here is pure: callers pass the reference day explicitly so results are
// reproducible. Evaluator wraps the same functions with a clock for service code.
package warranty

import "time"

// Status is the coverage state of a single warranty.
type Status string

const (
	StatusActive       Status = "active"
	StatusExpiringSoon Status = "expiring_soon"
	StatusExpired      Status = "expired"
	StatusNone         Status = "none"
)

// OrderStatus is the aggregate coverage state across an order's line items.
type OrderStatus string

const (
	OrderActive  OrderStatus = "active"
	OrderExpired OrderStatus = "expired"
	OrderMixed   OrderStatus = "mixed"
	OrderNone    OrderStatus = "none"
)

// expiringSoonDays is the inclusive window in which an active warranty is reported as expiring.
const expiringSoonDays = 7

const day = 24 * time.Hour

// Info describes the warranty of one line item.
type Info struct {
	WarrantyDays       int       `json:"warrantyDays"`
	OrderDate          time.Time `json:"orderDate"`
	ExpiryDate         time.Time `json:"expiryDate"`
	Status             Status    `json:"status"`
	DaysRemaining      int       `json:"daysRemaining"`
	CoversDamagedItems bool      `json:"coversDamagedItems"`
	CoversLostItems    bool      `json:"coversLostItems"`
	CoversLateShipment bool      `json:"coversLateShipment"`
}

// CalculateExpiry returns orderDate plus warrantyDays calendar days.
func CalculateExpiry(orderDate time.Time, warrantyDays int) time.Time {
	return orderDate.AddDate(0, 0, warrantyDays)
}

// DaysRemaining returns the whole days between today and the expiry date.
// Negative once the warranty has lapsed.
func DaysRemaining(orderDate time.Time, warrantyDays int, today time.Time) int {
	return daysBetween(today, CalculateExpiry(orderDate, warrantyDays))
}

// GetStatus classifies a warranty. Only a zero term means "no warranty"; negative
// terms are not special-cased and will usually report as expired.
func GetStatus(orderDate time.Time, warrantyDays int, today time.Time) Status {
	if warrantyDays == 0 {
		return StatusNone
	}
	remaining := DaysRemaining(orderDate, warrantyDays, today)
	switch {
	case remaining < 0:
		return StatusExpired
	case remaining <= expiringSoonDays:
		return StatusExpiringSoon
	default:
		return StatusActive
	}
}

// GetInfo composes expiry, status and the coverage flags into a single Info.
func GetInfo(orderDate time.Time, warrantyDays int, coversDamaged, coversLost, coversLate bool, today time.Time) Info {
	return Info{
		WarrantyDays:       warrantyDays,
		OrderDate:          orderDate,
		ExpiryDate:         CalculateExpiry(orderDate, warrantyDays),
		Status:             GetStatus(orderDate, warrantyDays, today),
		DaysRemaining:      DaysRemaining(orderDate, warrantyDays, today),
		CoversDamagedItems: coversDamaged,
		CoversLostItems:    coversLost,
		CoversLateShipment: coversLate,
	}
}

// daysBetween counts calendar days from a to b, ignoring the time of day.
func daysBetween(a, b time.Time) int {
	return int(truncateDay(b).Sub(truncateDay(a)) / day)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Evaluator binds the pure functions to a clock.
type Evaluator struct {
	Now func() time.Time
}

// NewEvaluator returns an Evaluator using the wall clock.
func NewEvaluator() *Evaluator {
	return &Evaluator{Now: time.Now}
}

func (e *Evaluator) today() time.Time {
	if e == nil || e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

// Status reports the warranty status as of the evaluator's current day.
func (e *Evaluator) Status(orderDate time.Time, warrantyDays int) Status {
	return GetStatus(orderDate, warrantyDays, e.today())
}

// Info reports the full warranty info as of the evaluator's current day.
func (e *Evaluator) Info(orderDate time.Time, warrantyDays int, coversDamaged, coversLost, coversLate bool) Info {
	return GetInfo(orderDate, warrantyDays, coversDamaged, coversLost, coversLate, e.today())
}

// Aggregate builds the order-level context as of the evaluator's current day.
func (e *Evaluator) Aggregate(orderDate time.Time, items []Terms) Context {
	return Aggregate(orderDate, items, e.today())
}
