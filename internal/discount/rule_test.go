package discount_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-promo/internal/discount"
	"github.com/noah-isme/backend-promo/internal/money"
)

func TestApplyPercent(t *testing.T) {
	rule := discount.Rule{Kind: discount.KindPercent, PercentBps: 2000}
	require.Equal(t, money.Amount(10000), rule.Apply(50000))
}

func TestApplyPercentWithCap(t *testing.T) {
	rule := discount.Rule{Kind: discount.KindPercent, PercentBps: 5000, Cap: 15000}
	require.Equal(t, money.Amount(15000), rule.Apply(100000))
	// Below the cap the raw percentage applies.
	require.Equal(t, money.Amount(10000), rule.Apply(20000))
}

func TestApplyFixedFloorsAtBase(t *testing.T) {
	rule := discount.Rule{Kind: discount.KindFixed, Value: 50000}
	require.Equal(t, money.Amount(30000), rule.Apply(30000))
	require.Equal(t, money.Amount(50000), rule.Apply(80000))
}

func TestApplyNeverNegative(t *testing.T) {
	rule := discount.Rule{Kind: discount.KindFixed, Value: -100}
	require.Equal(t, money.Amount(0), rule.Apply(5000))
	require.Equal(t, money.Amount(0), rule.Apply(0))
}

func TestParseKind(t *testing.T) {
	kind, err := discount.ParseKind(" Percent ")
	require.NoError(t, err)
	require.Equal(t, discount.KindPercent, kind)

	kind, err = discount.ParseKind("")
	require.NoError(t, err)
	require.Equal(t, discount.KindFixed, kind)

	_, err = discount.ParseKind("bogus")
	require.ErrorIs(t, err, discount.ErrInvalidKind)
}
