// Package purchase defines the append-only ledger of completed purchases —
// the system of record for ownership and revenue.
package purchase

import (
	"time"

	"github.com/xraph/storefront/id"
	"github.com/xraph/storefront/types"
)

// Purchase is one committed ledger entry. Entries are immutable after
// commit; a refund records its own request document and stamps RefundedAt
// here as the only permitted side effect.
//
// EditionID is the immutable ownership key; EditionName is a display
// snapshot taken at purchase time (editions can be renamed later).
type Purchase struct {
	types.Entity
	ID          id.PurchaseID `json:"id"`
	UserID      string        `json:"user_id"`
	GameID      id.GameID     `json:"game_id"`
	EditionID   id.EditionID  `json:"edition_id,omitempty"`
	EditionName string        `json:"edition_name,omitempty"`
	DLCID       id.DLCID      `json:"dlc_id,omitempty"`
	PricePaid   types.Money   `json:"price_paid"`
	PaymentRef  string        `json:"payment_ref,omitempty"`
	RefundedAt  *time.Time    `json:"refunded_at,omitempty"`
}

// Refunded reports whether this entry's entitlement has been reversed.
func (p *Purchase) Refunded() bool { return p.RefundedAt != nil }

// Commit is the unit of work a checkout hands to the store. Everything in
// it lands in a single transaction: the ledger entries, the library and
// wishlist mutations, the bonus-avatar union, and (for cart checkouts)
// the cart clear. A failure anywhere rolls the whole batch back.
type Commit struct {
	UserID         string
	Entries        []*Purchase
	LibraryAdd     []id.GameID
	WishlistRemove []id.GameID
	AvatarGrant    []string
	ClearCart      bool
}
