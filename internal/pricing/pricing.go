// Package pricing derives booking amounts from a flight's per-seat price.
package pricing

import (
	"github.com/shopspring/decimal"
)

// MinorUnits is the number of fractional digits kept on an amount
const MinorUnits = 2

// Amount returns price × passengers rounded to the currency's minor unit.
// The result is a snapshot; callers store it on the booking.
func Amount(price decimal.Decimal, passengers int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(passengers))).Round(MinorUnits)
}

// Normalize rounds an externally supplied amount (for example an admin
// override) to the same precision Amount produces.
func Normalize(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(MinorUnits)
}
