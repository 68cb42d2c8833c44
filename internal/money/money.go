package money

import (
	"errors"
	"fmt"
	"strings"
)

// Amount is a monetary value in minor units (e.g. cents).
type Amount = int64

// ErrInvalidDecimal is returned when a decimal string cannot be parsed.
var ErrInvalidDecimal = errors.New("invalid decimal amount")

// ParseDecimal converts a decimal string such as "123.45" into minor units.
// At most two fraction digits are accepted; money crosses service boundaries
// as strings or minor units, never as floats.
func ParseDecimal(value string) (Amount, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, fmt.Errorf("empty amount: %w", ErrInvalidDecimal)
	}
	negative := false
	switch trimmed[0] {
	case '-':
		negative = true
		trimmed = trimmed[1:]
	case '+':
		trimmed = trimmed[1:]
	}
	whole, frac, _ := strings.Cut(trimmed, ".")
	if whole == "" && frac == "" {
		return 0, fmt.Errorf("%q: %w", value, ErrInvalidDecimal)
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("%q has more than two fraction digits: %w", value, ErrInvalidDecimal)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	var total Amount
	for _, r := range whole + frac {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%q: %w", value, ErrInvalidDecimal)
		}
		total = total*10 + Amount(r-'0')
	}
	if negative {
		total = -total
	}
	return total, nil
}

// FormatDecimal renders minor units as a two-decimal string for display and
// persistence boundaries.
func FormatDecimal(a Amount) string {
	sign := ""
	if a < 0 {
		sign = "-"
		a = -a
	}
	return fmt.Sprintf("%s%d.%02d", sign, a/100, a%100)
}

// ApplyBps applies a basis-point percentage to base, rounding half-up.
// Rounding happens here, at the single point where a percentage is realised,
// not between intermediate steps.
func ApplyBps(base Amount, bps int64) Amount {
	if base <= 0 || bps <= 0 {
		return 0
	}
	return (base*bps + 5000) / 10000
}

// BpsFromPercent converts a whole-number percentage (0-100) to basis points.
func BpsFromPercent(percent int64) int64 {
	return percent * 100
}

// Allocate splits total across weights proportionally. The rounding remainder
// is assigned to the largest weight so the parts always sum to total exactly.
// A zero weight sum allocates zero everywhere.
func Allocate(total Amount, weights []Amount) []Amount {
	parts := make([]Amount, len(weights))
	if len(weights) == 0 || total == 0 {
		return parts
	}
	var weightSum Amount
	for _, w := range weights {
		if w > 0 {
			weightSum += w
		}
	}
	if weightSum <= 0 {
		return parts
	}
	var allocated Amount
	largest := 0
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		parts[i] = (total*w + weightSum/2) / weightSum
		allocated += parts[i]
		if w > weights[largest] {
			largest = i
		}
	}
	parts[largest] += total - allocated
	return parts
}
