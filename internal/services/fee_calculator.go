package services

import (
	"github.com/shopspring/decimal"
	"github.com/slotbook/booking-engine/internal/models"
)

var hundred = decimal.NewFromInt(100)

// FeeBreakdown is the money split for one priced booking
type FeeBreakdown struct {
	PlatformFee    decimal.Decimal
	BusinessAmount decimal.Decimal
	TotalAmount    decimal.Decimal
}

// FeeCalculator derives platform fee and totals from a session price.
// The same inputs always produce the same figures, at checkout and at reconciliation.
type FeeCalculator struct {
	percentage decimal.Decimal
}

// NewFeeCalculator creates a calculator for a fee percentage such as 5 for 5%
func NewFeeCalculator(percentage decimal.Decimal) *FeeCalculator {
	return &FeeCalculator{percentage: percentage}
}

// Percentage returns the configured fee percentage
func (f *FeeCalculator) Percentage() decimal.Decimal {
	return f.percentage
}

// Calculate splits a price into fee, business amount and total.
// The fee is rounded to two places half-up.
func (f *FeeCalculator) Calculate(price decimal.Decimal) (FeeBreakdown, error) {
	if price.IsNegative() {
		return FeeBreakdown{}, models.ErrInvalidPrice
	}

	// Round is half away from zero, which is half-up for non-negative amounts
	fee := price.Mul(f.percentage).Div(hundred).Round(2)
	business := price.Round(2)

	return FeeBreakdown{
		PlatformFee:    fee,
		BusinessAmount: business,
		TotalAmount:    business.Add(fee),
	}, nil
}
