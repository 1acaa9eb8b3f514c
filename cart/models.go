// Package cart defines the per-user shopping cart line items.
package cart

import (
	"github.com/xraph/storefront/id"
	"github.com/xraph/storefront/types"
)

// LineItem is one cart entry. A bare line (no edition, no DLC) is a base
// game purchase; EditionID or DLCID narrows the selection. EditionID and
// DLCID are mutually exclusive.
type LineItem struct {
	types.Entity
	ID        id.LineItemID `json:"id"`
	UserID    string        `json:"user_id"`
	GameID    id.GameID     `json:"game_id"`
	EditionID id.EditionID  `json:"edition_id,omitempty"`
	DLCID     id.DLCID      `json:"dlc_id,omitempty"`
}

// Selection identifies what a buyer wants to add to the cart or buy
// directly. GameID is required; EditionID and DLCID are optional.
type Selection struct {
	GameID    id.GameID
	EditionID id.EditionID
	DLCID     id.DLCID
}

// IsBase reports whether the line is a bare base-game entry.
func (l *LineItem) IsBase() bool {
	return l.EditionID.IsNil() && l.DLCID.IsNil()
}

// Matches reports whether the line item selects exactly the given
// game/edition/DLC triple. Used for duplicate detection.
func (l *LineItem) Matches(sel Selection) bool {
	return l.GameID.Equal(sel.GameID) &&
		l.EditionID.Equal(sel.EditionID) &&
		l.DLCID.Equal(sel.DLCID)
}
