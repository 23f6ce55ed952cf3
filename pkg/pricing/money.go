package pricing

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// nonNegative maps NaN, ±Inf and negative inputs to 0.
func nonNegative(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// RoundMoney rounds half away from zero to two decimals. It is only used for
// display and wire summaries; price composition never rounds.
func RoundMoney(v float64) float64 {
	if !finite(v) {
		return 0
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// FormatAmount renders v with two decimals and thousands separators, e.g. 50,000.00.
func FormatAmount(v float64) string {
	if !finite(v) {
		v = 0
	}
	fixed := decimal.NewFromFloat(v).StringFixed(2)
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	whole, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + b.String() + "." + frac
}

// WithinTolerance compares two money amounts. tolerance <= 0 still absorbs
// float noise below a tenth of a minor unit.
func WithinTolerance(a, b, tolerance float64) bool {
	if !finite(a) || !finite(b) {
		return false
	}
	if tolerance < 0.001 {
		tolerance = 0.001
	}
	return math.Abs(a-b) <= tolerance
}
