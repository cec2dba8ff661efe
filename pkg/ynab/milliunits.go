package ynab

import "fmt"

// MilliunitsToAmount converts YNAB milliunits to currency units
func MilliunitsToAmount(milliunits int64) float64 {
	return float64(milliunits) / 1000
}

// FormatMilliunits renders milliunits with two decimals, e.g. -12340 → "-12.34"
func FormatMilliunits(milliunits int64) string {
	return fmt.Sprintf("%.2f", MilliunitsToAmount(milliunits))
}
