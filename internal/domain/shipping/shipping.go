// Package shipping computes shipping quotes from a static regional rate
// table. The calculator is a pure function over its configuration: no
// lookups can fail, unknown region codes fall back to the default entry.
package shipping

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultKey is the fallback entry used for unrecognized region codes.
const DefaultKey = "default"

// Config holds the rate tables and the free-shipping rule. It is passed to
// the calculator at construction time; there is no ambient lookup.
type Config struct {
	// Rates maps 2-letter region codes to base shipping cost. Must contain
	// a DefaultKey entry.
	Rates map[string]decimal.Decimal
	// DeliveryDays maps region codes to estimated business days. Must
	// contain a DefaultKey entry.
	DeliveryDays map[string]int
	// FreeShippingThreshold is the subtotal at or above which shipping
	// is free.
	FreeShippingThreshold decimal.Decimal
}

// DefaultConfig returns the standard rate tables.
func DefaultConfig() Config {
	return Config{
		Rates: map[string]decimal.Decimal{
			"SP":       decimal.RequireFromString("10.00"),
			"RJ":       decimal.RequireFromString("15.00"),
			"MG":       decimal.RequireFromString("15.00"),
			"ES":       decimal.RequireFromString("20.00"),
			DefaultKey: decimal.RequireFromString("25.00"),
		},
		DeliveryDays: map[string]int{
			"SP": 2, "RJ": 3, "MG": 3, "ES": 4,
			"PR": 4, "SC": 5, "RS": 5,
			DefaultKey: 7,
		},
		FreeShippingThreshold: decimal.RequireFromString("200.00"),
	}
}

// Quote is the result of a shipping-cost computation. OriginalCost is always
// the table rate; FinalCost is zero when the free-shipping rule applies.
type Quote struct {
	State        string
	OriginalCost decimal.Decimal
	FinalCost    decimal.Decimal
	FreeShipping bool
	Message      string
	DeliveryDays int
}

// Calculator computes quotes from its configured tables.
type Calculator struct {
	cfg Config
}

// NewCalculator returns a Calculator using the given tables.
func NewCalculator(cfg Config) *Calculator {
	return &Calculator{cfg: cfg}
}

// Quote returns the shipping quote for a destination region and order
// subtotal. The state code is case-normalized before lookup; unmapped or
// empty codes receive the default rate.
func (c *Calculator) Quote(state string, subtotal decimal.Decimal) Quote {
	state = strings.ToUpper(state)
	cost := c.rateFor(state)

	if subtotal.GreaterThanOrEqual(c.cfg.FreeShippingThreshold) {
		return Quote{
			State:        state,
			OriginalCost: cost,
			FinalCost:    decimal.Zero.Round(2),
			FreeShipping: true,
			Message:      fmt.Sprintf("Free shipping for orders of %s or more", c.cfg.FreeShippingThreshold.StringFixed(2)),
			DeliveryDays: c.EstimateDays(state),
		}
	}

	return Quote{
		State:        state,
		OriginalCost: cost,
		FinalCost:    cost,
		FreeShipping: false,
		Message:      fmt.Sprintf("Shipping rate for %s", state),
		DeliveryDays: c.EstimateDays(state),
	}
}

// EstimateDays returns the estimated delivery time in business days for a
// region, falling back to the default entry for unknown codes.
func (c *Calculator) EstimateDays(state string) int {
	if days, ok := c.cfg.DeliveryDays[strings.ToUpper(state)]; ok {
		return days
	}
	return c.cfg.DeliveryDays[DefaultKey]
}

// Rates returns a copy of the configured rate table.
func (c *Calculator) Rates() map[string]decimal.Decimal {
	rates := make(map[string]decimal.Decimal, len(c.cfg.Rates))
	for state, cost := range c.cfg.Rates {
		rates[state] = cost
	}
	return rates
}

// FreeShippingThreshold returns the configured free-shipping cutoff.
func (c *Calculator) FreeShippingThreshold() decimal.Decimal {
	return c.cfg.FreeShippingThreshold
}

func (c *Calculator) rateFor(state string) decimal.Decimal {
	if cost, ok := c.cfg.Rates[state]; ok {
		return cost
	}
	return c.cfg.Rates[DefaultKey]
}
