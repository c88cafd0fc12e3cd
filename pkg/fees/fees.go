package fees

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Calculator computes the platform's cut of a sale. A single instance is
// shared by every caller that records a fee, so the rate can never drift
// between call sites.
type Calculator struct {
	rate decimal.Decimal
}

// NewCalculator parses a fractional rate string such as "0.10". Rates outside
// [0, 1] are rejected.
func NewCalculator(rate string) (*Calculator, error) {
	r, err := decimal.NewFromString(rate)
	if err != nil {
		return nil, fmt.Errorf("parsing platform rate: %w", err)
	}
	if r.IsNegative() || r.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("platform rate %s outside [0,1]", rate)
	}
	return &Calculator{rate: r}, nil
}

// Rate returns the configured fractional rate.
func (c *Calculator) Rate() decimal.Decimal {
	return c.rate
}

// PlatformFee returns the fee owed on amount, rounded to cents.
func (c *Calculator) PlatformFee(amount decimal.Decimal) decimal.Decimal {
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount.Mul(c.rate).Round(2)
}

// NetAmount returns what the seller keeps after the platform fee.
func (c *Calculator) NetAmount(amount decimal.Decimal) decimal.Decimal {
	return amount.Sub(c.PlatformFee(amount))
}
