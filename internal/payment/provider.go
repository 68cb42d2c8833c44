// Package payment defines the charge boundary the checkout flow hands an
// order total to. The engine treats the payment step as opaque.
package payment

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-promo/internal/money"
)

// Receipt is the provider's acknowledgement of a charge.
type Receipt struct {
	Provider  string `json:"provider"`
	Reference string `json:"reference"`
	Status    string `json:"status"`
}

// Charger authorises a charge for a placed order.
type Charger interface {
	Charge(ctx context.Context, orderID uuid.UUID, amount money.Amount, currency string) (Receipt, error)
}

// NoopCharger accepts every charge. It stands in where no real provider is
// configured, such as development and tests.
type NoopCharger struct{}

// Charge implements Charger.
func (NoopCharger) Charge(_ context.Context, orderID uuid.UUID, amount money.Amount, currency string) (Receipt, error) {
	return Receipt{
		Provider:  "noop",
		Reference: fmt.Sprintf("noop-%s", orderID),
		Status:    "captured",
	}, nil
}
