package policies

import (
	"context"

	"carrental/internal/domain/shared/money"
)

// IntentStatus values reported by the payment processor.
const (
	IntentSucceeded = "succeeded"
	IntentFailed    = "failed"
)

// Intent is the processor handle for an authorized-but-not-settled charge.
type Intent struct {
	ID           string
	ClientSecret string
}

// PaymentsPort reaches the external payment processor. Calls are network
// round-trips and must never run while a booking transaction is open.
type PaymentsPort interface {
	CreateIntent(ctx context.Context, amount money.Money, metadata map[string]string) (Intent, error)
	ConfirmIntent(ctx context.Context, intentID string) (string, error)
}
