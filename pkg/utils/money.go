package utils

import "github.com/shopspring/decimal"

// FormatAmount renders a floating-point amount with exactly two decimals. Amounts are
// carried as float64 everywhere and only rounded here, at display/wire time. Rounding
// works on the exact binary value, half away from zero, so 1.005 (stored just below)
// renders as "1.00" the same way a browser's toFixed(2) does.
func FormatAmount(v float64) string {
	return decimal.NewFromFloatWithExponent(v, -2).StringFixed(2)
}

// TrimAmount renders an amount without trailing zeros (100 -> "100", 12.5 -> "12.5").
func TrimAmount(v float64) string {
	return decimal.NewFromFloat(v).String()
}
