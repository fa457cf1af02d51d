package utils

import (
	"log"
	"math"
)

// GoSafe runs the given function in a new goroutine and recovers from any panic.
func GoSafe(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[Panic Recovered] %v", r)
			}
		}()
		fn()
	}()
}

func ToPointer[T any](value T) *T {
	return &value
}

// Round2 rounds a monetary value to 2 decimal places using half-even
// rounding, the single rounding rule applied to stored averages and totals.
func Round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}

// FloorDiv is integer division of a dollar amount by a unit price.
func FloorDiv(value, price float64) int64 {
	if price <= 0 {
		return 0
	}
	return int64(math.Floor(value / price))
}

// CeilDivInt divides units into count slices, rounding up.
func CeilDivInt(units int64, count int) int64 {
	if count <= 0 {
		return units
	}
	return int64(math.Ceil(float64(units) / float64(count)))
}

// Truncate shortens s to at most max runes, appending an elision marker when
// anything was cut.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	const marker = "…(truncated)"
	cut := max - len([]rune(marker))
	if cut < 0 {
		cut = 0
	}
	return string(runes[:cut]) + marker
}
