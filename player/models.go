// Package player holds the per-user state the commerce engine mutates:
// library membership, wishlist, and the accumulated bonus-content
// inventory.
package player

import (
	"github.com/xraph/storefront/id"
	"github.com/xraph/storefront/types"
)

// Profile is the user-profile snapshot achievement rules evaluate over.
// Profile editing itself lives outside the commerce engine.
type Profile struct {
	types.Entity
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
	Bio         string `json:"bio,omitempty"`
	AvatarID    string `json:"avatar_id,omitempty"`
	FriendCount int    `json:"friend_count"`
}

// Inventory is the set-valued collection of cosmetic items a user has
// accumulated. Both collections are sets: granting an item twice keeps a
// single copy, so grants are idempotent and order-independent.
type Inventory struct {
	Avatars []string `json:"avatars,omitempty"`
	Badges  []string `json:"badges,omitempty"`
}

// HasAvatar reports whether the inventory contains the avatar id.
func (inv *Inventory) HasAvatar(avatarID string) bool {
	for _, a := range inv.Avatars {
		if a == avatarID {
			return true
		}
	}
	return false
}

// HasBadge reports whether the inventory contains the badge id.
func (inv *Inventory) HasBadge(badgeID string) bool {
	for _, b := range inv.Badges {
		if b == badgeID {
			return true
		}
	}
	return false
}

// ContainsGame reports whether the library slice holds the given game.
func ContainsGame(library []id.GameID, gameID id.GameID) bool {
	for _, g := range library {
		if g.Equal(gameID) {
			return true
		}
	}
	return false
}
