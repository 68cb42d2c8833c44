package payment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-promo/internal/money"
	"github.com/noah-isme/backend-promo/internal/resilience"
)

// GuardedCharger wraps a Charger with a circuit breaker and bounded retries.
// When the breaker is open, charges fail fast with resilience.ErrOpenCircuit
// instead of piling up on a struggling provider.
type GuardedCharger struct {
	Inner   Charger
	Breaker *resilience.Breaker
	// Retries is the number of additional attempts after the first failure.
	Retries   int
	RetryBase time.Duration
}

func (g GuardedCharger) Charge(ctx context.Context, orderID uuid.UUID, amount money.Amount, currency string) (Receipt, error) {
	base := g.RetryBase
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	var lastErr error
	for attempt := 1; attempt <= g.Retries+1; attempt++ {
		if g.Breaker != nil && !g.Breaker.Allow(ctx) {
			return Receipt{}, resilience.ErrOpenCircuit
		}
		receipt, err := g.Inner.Charge(ctx, orderID, amount, currency)
		if g.Breaker != nil {
			g.Breaker.Report(ctx, err == nil)
		}
		if err == nil {
			return receipt, nil
		}
		lastErr = err
		if attempt > g.Retries {
			break
		}
		timer := time.NewTimer(resilience.Backoff(base, attempt, 0.2))
		select {
		case <-ctx.Done():
			timer.Stop()
			return Receipt{}, ctx.Err()
		case <-timer.C:
		}
	}
	return Receipt{}, lastErr
}
