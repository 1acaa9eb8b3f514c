// Package ownership answers "does this user own that" from the purchase
// ledger and the catalog's edition→DLC bundling graph. All functions are
// pure: they read the entries and the catalog they are handed and touch
// nothing else.
package ownership

import (
	"sort"

	"github.com/xraph/storefront/catalog"
	"github.com/xraph/storefront/id"
	"github.com/xraph/storefront/purchase"
)

// Target identifies what is being checked. GameID is required; setting
// EditionID or DLCID narrows the check to that edition or DLC.
type Target struct {
	GameID    id.GameID
	EditionID id.EditionID
	DLCID     id.DLCID
}

// CacheKey returns a stable key for caching a resolution result.
func (t Target) CacheKey() string {
	key := t.GameID.String()
	if !t.EditionID.IsNil() {
		key += ":" + t.EditionID.String()
	}
	if !t.DLCID.IsNil() {
		key += ":" + t.DLCID.String()
	}
	return key
}

// OwnsGame reports whether any non-refunded ledger entry exists for the
// game. Edition and DLC entries count: each carries the game id.
func OwnsGame(entries []*purchase.Purchase, gameID id.GameID) bool {
	for _, e := range entries {
		if e.Refunded() {
			continue
		}
		if e.GameID.Equal(gameID) {
			return true
		}
	}
	return false
}

// OwnsEdition reports whether a non-refunded ledger entry snapshots the
// edition id. Matching is by immutable id, so renaming an edition after
// purchase does not orphan historical ownership.
func OwnsEdition(entries []*purchase.Purchase, editionID id.EditionID) bool {
	for _, e := range entries {
		if e.Refunded() {
			continue
		}
		if e.EditionID.Equal(editionID) {
			return true
		}
	}
	return false
}

// OwnsDLC reports whether the user owns the DLC, either through a direct
// ledger entry or through an owned edition that bundles it.
func OwnsDLC(entries []*purchase.Purchase, game *catalog.Game, dlcID id.DLCID) bool {
	for _, e := range entries {
		if e.Refunded() {
			continue
		}
		if e.DLCID.Equal(dlcID) && !e.DLCID.IsNil() {
			return true
		}
	}

	for i := range game.Editions {
		ed := &game.Editions[i]
		if ed.Bundles(dlcID) && OwnsEdition(entries, ed.ID) {
			return true
		}
	}
	return false
}

// Owns resolves a target against the user's ledger entries and the
// catalog graph for the target's game.
func Owns(entries []*purchase.Purchase, game *catalog.Game, t Target) bool {
	switch {
	case !t.DLCID.IsNil():
		return OwnsDLC(entries, game, t.DLCID)
	case !t.EditionID.IsNil():
		return OwnsEdition(entries, t.EditionID)
	default:
		return OwnsGame(entries, t.GameID)
	}
}

// AvatarSet derives the full bonus-avatar entitlement from the given
// ledger entries: the union of the bonus-content lists of every game,
// edition, and DLC implicated by a non-refunded entry. lookup resolves a
// game id to its catalog record; unknown games contribute nothing.
//
// The result is sorted and de-duplicated. Refund processing installs this
// recomputed set wholesale instead of subtracting one purchase's items,
// so an avatar justified by another retained purchase survives.
func AvatarSet(entries []*purchase.Purchase, lookup func(id.GameID) *catalog.Game) []string {
	set := make(map[string]struct{})

	for _, e := range entries {
		if e.Refunded() {
			continue
		}
		game := lookup(e.GameID)
		if game == nil {
			continue
		}

		for _, a := range game.Avatars {
			set[a] = struct{}{}
		}
		if !e.EditionID.IsNil() {
			if ed := game.FindEdition(e.EditionID); ed != nil {
				for _, a := range ed.Avatars {
					set[a] = struct{}{}
				}
				// Bundled DLC bonus content comes with the edition.
				for _, dlcID := range ed.IncludesDLC {
					if d := game.FindDLC(dlcID); d != nil {
						for _, a := range d.Avatars {
							set[a] = struct{}{}
						}
					}
				}
			}
		}
		if !e.DLCID.IsNil() {
			if d := game.FindDLC(e.DLCID); d != nil {
				for _, a := range d.Avatars {
					set[a] = struct{}{}
				}
			}
		}
	}

	result := make([]string, 0, len(set))
	for a := range set {
		result = append(result, a)
	}
	sort.Strings(result)
	return result
}
