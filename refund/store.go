package refund

import (
	"context"

	"github.com/xraph/storefront/id"
)

// Store is the refund persistence contract. CommitDecision must be atomic
// across status, ledger stamp, library, and inventory.
type Store interface {
	Create(ctx context.Context, r *Request) error
	Get(ctx context.Context, requestID id.RefundID) (*Request, error)
	GetByPurchase(ctx context.Context, purchaseID id.PurchaseID) (*Request, error)
	List(ctx context.Context, status Status) ([]*Request, error)
	CommitDecision(ctx context.Context, c *Commit) error
}
