package entity

import (
	"strings"
	"time"
)

// Plan is a purchasable tier. Prices are keyed by upper-case ISO currency and
// expressed in the currency's minor unit.
type Plan struct {
	Code         string
	Name         string
	DurationDays int
	Prices       map[string]int64
}

// PriceFor returns the price of the plan in currency.
func (p *Plan) PriceFor(currency string) (int64, bool) {
	amount, ok := p.Prices[strings.ToUpper(currency)]

	return amount, ok && amount > 0
}

// ExpiresFrom computes the entitlement end for a settlement at start.
func (p *Plan) ExpiresFrom(start time.Time) time.Time {
	return start.AddDate(0, 0, p.DurationDays)
}
