package utils

import "math"

// MaxAmount is the largest value a decimal(10,2) column holds.
const MaxAmount = 99999999.99

// Round2 rounds an amount to cents.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// HasCentsPrecision reports whether v carries at most two decimals.
func HasCentsPrecision(v float64) bool {
	scaled := v * 100
	return math.Abs(scaled-math.Round(scaled)) < 1e-6
}

// FitsAmount reports whether v can be stored in a decimal(10,2) column.
func FitsAmount(v float64) bool {
	return !math.IsNaN(v) && math.Abs(v) <= MaxAmount && HasCentsPrecision(v)
}
