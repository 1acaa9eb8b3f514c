package cart

import (
	"context"

	"github.com/xraph/storefront/id"
)

// Store is the cart persistence contract. Multi-item Add must be atomic:
// a standalone DLC insert carries its base-game line in the same call and
// both land or neither does.
type Store interface {
	Items(ctx context.Context, userID string) ([]*LineItem, error)
	Add(ctx context.Context, userID string, items []*LineItem) error
	Remove(ctx context.Context, userID string, itemIDs []id.LineItemID) error
	Clear(ctx context.Context, userID string) error
}
