// Package pricing computes the canonical charge for a single storefront
// line item. It is deliberately side-effect free so the same computation
// backs cart display, payment quoting, and the final checkout commit —
// the quoted price and the charged price can never drift apart.
package pricing

import (
	"github.com/xraph/storefront/catalog"
	"github.com/xraph/storefront/types"
)

// Quote returns the amount charged for one line item.
//
// A line selects a game, optionally narrowed to an edition or a DLC
// (editionID and dlcID resolved by the caller against the catalog; nil
// means not selected). ownsBase reports whether the buyer already owns
// the base game at quote time.
//
// Rules, in order:
//   - DLC bundled into the edition on the same line: charged zero. The
//     bundling check runs before any ownership discount.
//   - DLC with the base game already owned: the DLC absorbs the base-game
//     price — charge max(0, dlcPrice - basePrice).
//   - DLC otherwise: full DLC price.
//   - Edition: its absolute price. Base-game sale state never applies.
//   - Base game: sale price while on sale, base price otherwise.
func Quote(game *catalog.Game, edition *catalog.Edition, dlc *catalog.DLC, ownsBase bool) types.Money {
	if dlc != nil {
		if edition != nil && edition.Bundles(dlc.ID) {
			return types.Zero(dlc.Price.Currency)
		}
		if ownsBase {
			return dlc.Price.Subtract(game.BasePrice).ClampZero()
		}
		return dlc.Price
	}

	if edition != nil {
		return edition.Price
	}

	return game.CurrentPrice()
}
