package models

import "github.com/shopspring/decimal"

// ToFloat64 converts a money decimal to float64 for model input.
// Every numeric feature must be a plain float before it reaches a scaler.
func ToFloat64(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// BoolToFloat coerces a boolean flag to the 0/1 encoding used in feature vectors
func BoolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
