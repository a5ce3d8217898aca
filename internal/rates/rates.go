// Package rates holds the null-safe arithmetic every ratio goes through.
package rates

import "math"

// Div returns numerator/denominator, or 0 when the denominator is zero or
// the result is not a finite number.
func Div(numerator, denominator float64) float64 {
	if denominator == 0 || math.IsNaN(denominator) {
		return 0
	}
	return Clamp(numerator / denominator)
}

// Per10k scales count by 10 000 trips.
func Per10k(count, trips float64) float64 {
	return Div(count*10000, trips)
}

// AveragePer divides total by the number of distinct periods that carry data.
func AveragePer(total float64, periods int64) float64 {
	return Div(total, float64(periods))
}

func Clamp(value float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return value
}

func NonNegative(value float64) float64 {
	value = Clamp(value)
	if value < 0 {
		return 0
	}
	return value
}

// Value reads a nullable aggregate, treating NULL as 0.
func Value(v *float64) float64 {
	if v == nil {
		return 0
	}
	return Clamp(*v)
}
