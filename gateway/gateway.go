// Package gateway defines the payment-gateway contract. The engine treats
// the gateway as an opaque external collaborator: it creates an intent,
// verifies a confirmation, and lists captures for reconciliation. Nothing
// about the provider's wire protocol leaks past this interface.
package gateway

import (
	"context"
	"time"

	"github.com/xraph/storefront/types"
)

// Intent is a provider-side charge created before checkout commits. Ref is
// the opaque payment reference the ledger snapshots.
type Intent struct {
	Ref       string      `json:"ref"`
	Amount    types.Money `json:"amount"`
	CreatedAt time.Time   `json:"created_at"`
}

// Confirmation is the provider's answer to "did this payment capture".
// Verified false means checkout must fail closed: no entitlement is
// granted and the same reference is not retried without re-verifying.
type Confirmation struct {
	Ref      string      `json:"ref"`
	Verified bool        `json:"verified"`
	Captured types.Money `json:"captured"`
}

// Capture is one provider-side settled payment, used by the reconciliation
// worker to find captures that never reached the ledger.
type Capture struct {
	Ref        string      `json:"ref"`
	Amount     types.Money `json:"amount"`
	CapturedAt time.Time   `json:"captured_at"`
}

// Gateway is implemented per payment provider. All methods honor the
// context for cancellation; the engine never calls them inside a store
// transaction.
type Gateway interface {
	// CreateIntent registers a charge for the amount and returns the
	// reference the caller passes back to Confirm.
	CreateIntent(ctx context.Context, userID string, amount types.Money) (*Intent, error)

	// Confirm verifies the referenced payment captured for the expected
	// amount. A nil error with Verified false is a definitive rejection,
	// not a transient failure.
	Confirm(ctx context.Context, ref string) (*Confirmation, error)

	// Captures lists provider-side captures at or after since.
	Captures(ctx context.Context, since time.Time) ([]Capture, error)
}
