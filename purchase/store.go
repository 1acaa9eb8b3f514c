package purchase

import (
	"context"

	"github.com/xraph/storefront/id"
)

// Store is the ledger persistence contract. CommitCheckout is the only
// writer of purchase entries and must be atomic across the whole Commit.
type Store interface {
	List(ctx context.Context, userID string) ([]*Purchase, error)
	Get(ctx context.Context, purchaseID id.PurchaseID) (*Purchase, error)
	CommitCheckout(ctx context.Context, c *Commit) error
	HasPaymentRef(ctx context.Context, ref string) (bool, error)
}
