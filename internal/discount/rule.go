package discount

import (
	"errors"
	"strings"

	"github.com/noah-isme/backend-promo/internal/money"
)

// Kind discriminates the discount rule variants.
type Kind string

const (
	// KindPercent discounts a basis-point share of the base amount.
	KindPercent Kind = "percent"
	// KindFixed discounts a fixed amount, floored at the base.
	KindFixed Kind = "fixed_amount"
)

// ErrInvalidKind is returned when a rule carries an unknown kind.
var ErrInvalidKind = errors.New("invalid discount kind")

// Rule is the single discount contract shared by combos and coupons.
type Rule struct {
	Kind       Kind
	Value      money.Amount // fixed amount in minor units
	PercentBps int64        // percentage in basis points
	Cap        money.Amount // optional ceiling for percent rules, 0 = none
}

// ParseKind normalises a kind string from upstream payloads.
func ParseKind(value string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(value))) {
	case KindPercent:
		return KindPercent, nil
	case KindFixed, "":
		return KindFixed, nil
	default:
		return "", ErrInvalidKind
	}
}

// Apply computes the discount for the given base amount. The result is never
// negative and never exceeds the base; percent rules honour the optional cap.
func (r Rule) Apply(base money.Amount) money.Amount {
	if base <= 0 {
		return 0
	}
	var d money.Amount
	switch r.Kind {
	case KindPercent:
		if r.PercentBps <= 0 {
			return 0
		}
		d = money.ApplyBps(base, r.PercentBps)
		if r.Cap > 0 && d > r.Cap {
			d = r.Cap
		}
	default:
		d = r.Value
	}
	if d > base {
		d = base
	}
	if d < 0 {
		d = 0
	}
	return d
}
