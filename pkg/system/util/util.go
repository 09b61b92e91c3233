//go:build linux

package util

import "math"

// DeltaU64 returns now-prev, treating a decrease as a counter wrap or an
// unset previous reading.
func DeltaU64(now, prev uint64) uint64 {
	if now >= prev {
		return now - prev
	}
	// counter wrapped or prev unset
	return 0
}

// SafeDiv divides n by d, returning 0 when the denominator is (near) zero.
func SafeDiv(n, d float64) float64 {
	const eps = 1e-12
	if d > eps || d < -eps {
		return n / d
	}
	return 0
}

// ClampPercent confines x to [0,100]. NaN collapses to 0.
func ClampPercent(x float64) float64 {
	if math.IsNaN(x) || x < 0 {
		return 0
	}
	if x > 100 {
		return 100
	}
	return x
}

// RoundTo rounds x to the given number of decimal digits.
func RoundTo(x float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	return math.Round(x*p) / p
}
