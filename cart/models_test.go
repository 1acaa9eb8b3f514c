package cart_test

import (
	"testing"

	"github.com/xraph/storefront/cart"
	"github.com/xraph/storefront/id"
)

func TestIsBase(t *testing.T) {
	gameID := id.NewGameID()

	tests := []struct {
		name string
		line cart.LineItem
		want bool
	}{
		{"bare line", cart.LineItem{GameID: gameID}, true},
		{"edition line", cart.LineItem{GameID: gameID, EditionID: id.NewEditionID()}, false},
		{"dlc line", cart.LineItem{GameID: gameID, DLCID: id.NewDLCID()}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.line.IsBase(); got != tt.want {
				t.Errorf("IsBase() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatches(t *testing.T) {
	gameID := id.NewGameID()
	editionID := id.NewEditionID()
	dlcID := id.NewDLCID()

	line := cart.LineItem{GameID: gameID, EditionID: editionID}

	tests := []struct {
		name string
		sel  cart.Selection
		want bool
	}{
		{"exact triple", cart.Selection{GameID: gameID, EditionID: editionID}, true},
		{"same game, bare selection", cart.Selection{GameID: gameID}, false},
		{"same game, dlc selection", cart.Selection{GameID: gameID, DLCID: dlcID}, false},
		{"different game", cart.Selection{GameID: id.NewGameID(), EditionID: editionID}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := line.Matches(tt.sel); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}
