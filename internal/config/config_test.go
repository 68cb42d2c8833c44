package config_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-promo/internal/config"
	"github.com/noah-isme/backend-promo/internal/money"
)

func baseEnv() map[string]string {
	return map[string]string{
		"DATABASE_URL": "postgres://localhost/promo_test",
		"REDIS_URL":    "redis://localhost:6379/0",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.LoadForTests(baseEnv())
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, money.Amount(99900), cfg.DeliveryFreeThreshold)
	require.Equal(t, money.Amount(6000), cfg.DeliveryFlatFee)
	require.Equal(t, 120, cfg.RateLimitMax)
}

func TestLoadDeliveryOverrides(t *testing.T) {
	env := baseEnv()
	env["DELIVERY_FREE_THRESHOLD"] = "1500.50"
	env["DELIVERY_FLAT_FEE"] = "45"
	cfg, err := config.LoadForTests(env)
	require.NoError(t, err)
	require.Equal(t, money.Amount(150050), cfg.DeliveryFreeThreshold)
	require.Equal(t, money.Amount(4500), cfg.DeliveryFlatFee)
}

func TestLoadRejectsBadAmounts(t *testing.T) {
	env := baseEnv()
	env["DELIVERY_FLAT_FEE"] = "sixty"
	_, err := config.LoadForTests(env)
	require.Error(t, err)
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	env := baseEnv()
	env["DATABASE_URL"] = ""
	_, err := config.LoadForTests(env)
	require.Error(t, err)
}
