// Package catalog defines the read-only product graph the storefront sells
// against: games, their editions, and their DLC packs.
package catalog

import (
	"github.com/xraph/storefront/id"
	"github.com/xraph/storefront/types"
)

// Game is a sellable base title. SalePrice is only meaningful while OnSale
// is true; callers must go through CurrentPrice instead of reading it.
type Game struct {
	types.Entity
	ID        id.GameID         `json:"id"`
	Title     string            `json:"title"`
	Genre     string            `json:"genre"`
	BasePrice types.Money       `json:"base_price"`
	SalePrice *types.Money      `json:"sale_price,omitempty"`
	OnSale    bool              `json:"on_sale"`
	Editions  []Edition         `json:"editions,omitempty"`
	DLCs      []DLC             `json:"dlcs,omitempty"`
	Avatars   []string          `json:"avatars,omitempty"` // bonus-content avatar ids
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Edition is a packaged variant of a game with an absolute price.
// Its price already accounts for the DLCs it bundles — bundled DLCs are
// never charged separately to an edition buyer.
type Edition struct {
	types.Entity
	ID          id.EditionID `json:"id"`
	GameID      id.GameID    `json:"game_id"`
	Name        string       `json:"name"`
	Price       types.Money  `json:"price"`
	IncludesDLC []id.DLCID   `json:"includes_dlc,omitempty"`
	Avatars     []string     `json:"avatars,omitempty"`
}

// DLC is an add-on pack sold against a base game.
type DLC struct {
	types.Entity
	ID      id.DLCID    `json:"id"`
	GameID  id.GameID   `json:"game_id"`
	Name    string      `json:"name"`
	Price   types.Money `json:"price"`
	Avatars []string    `json:"avatars,omitempty"`
}

// CurrentPrice returns the effective base-game price, honoring the sale
// flag. SalePrice is ignored unless OnSale is set.
func (g *Game) CurrentPrice() types.Money {
	if g.OnSale && g.SalePrice != nil {
		return *g.SalePrice
	}
	return g.BasePrice
}

// FindEdition returns the edition with the given id, or nil.
func (g *Game) FindEdition(editionID id.EditionID) *Edition {
	for i := range g.Editions {
		if g.Editions[i].ID.Equal(editionID) {
			return &g.Editions[i]
		}
	}
	return nil
}

// FindDLC returns the DLC with the given id, or nil.
func (g *Game) FindDLC(dlcID id.DLCID) *DLC {
	for i := range g.DLCs {
		if g.DLCs[i].ID.Equal(dlcID) {
			return &g.DLCs[i]
		}
	}
	return nil
}

// Bundles reports whether this edition includes the given DLC in its
// flat price.
func (e *Edition) Bundles(dlcID id.DLCID) bool {
	for _, d := range e.IncludesDLC {
		if d.Equal(dlcID) {
			return true
		}
	}
	return false
}
