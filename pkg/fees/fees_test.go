package fees

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestPlatformFeeRounding(t *testing.T) {
	calc, err := NewCalculator("0.10")
	if err != nil {
		t.Fatalf("NewCalculator: %v", err)
	}

	tests := []struct {
		amount string
		fee    string
		net    string
	}{
		{amount: "100.00", fee: "10", net: "90"},
		{amount: "19.99", fee: "2", net: "17.99"},
		{amount: "0.05", fee: "0.01", net: "0.04"},
		{amount: "0", fee: "0", net: "0"},
	}

	for _, tt := range tests {
		amount := decimal.RequireFromString(tt.amount)
		if got := calc.PlatformFee(amount); got.String() != tt.fee {
			t.Fatalf("fee(%s) = %s, want %s", tt.amount, got, tt.fee)
		}
		if got := calc.NetAmount(amount); got.String() != tt.net {
			t.Fatalf("net(%s) = %s, want %s", tt.amount, got, tt.net)
		}
	}
}

func TestPlatformFeeNegativeAmount(t *testing.T) {
	calc, err := NewCalculator("0.10")
	if err != nil {
		t.Fatalf("NewCalculator: %v", err)
	}
	if got := calc.PlatformFee(decimal.RequireFromString("-5")); !got.IsZero() {
		t.Fatalf("expected zero fee for negative amount, got %s", got)
	}
}

func TestNewCalculatorRejectsBadRates(t *testing.T) {
	for _, rate := range []string{"", "banana", "-0.01", "1.5"} {
		if _, err := NewCalculator(rate); err == nil {
			t.Fatalf("expected error for rate %q", rate)
		}
	}
}
