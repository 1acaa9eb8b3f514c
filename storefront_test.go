package storefront_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	storefront "github.com/xraph/storefront"
	"github.com/xraph/storefront/cart"
	"github.com/xraph/storefront/catalog"
	"github.com/xraph/storefront/gateway"
	"github.com/xraph/storefront/gateway/gatewaytest"
	"github.com/xraph/storefront/id"
	"github.com/xraph/storefront/ownership"
	"github.com/xraph/storefront/purchase"
	"github.com/xraph/storefront/refund"
	"github.com/xraph/storefront/store/memory"
	"github.com/xraph/storefront/types"
)

// world wires an engine against the in-memory store and the fake gateway,
// with a small fixed catalog.
type world struct {
	t      *testing.T
	engine *storefront.Engine
	store  *memory.Store
	cat    *catalog.MapStore
	gw     *gatewaytest.Fake

	starfall *catalog.Game // base 499.00, deluxe edition bundles Frozen Wastes
	deluxe   *catalog.Edition
	frozen   *catalog.DLC // bundled into deluxe
	tide     *catalog.DLC // standalone add-on
	freebie  *catalog.Game
	nebula   *catalog.Game
}

func newWorld(t *testing.T, opts ...storefront.Option) *world {
	t.Helper()

	sale := types.INR(29900)
	starfall := &catalog.Game{
		ID:        id.NewGameID(),
		Title:     "Starfall",
		Genre:     "rpg",
		BasePrice: types.INR(49900),
		SalePrice: &sale,
		Avatars:   []string{"av_starfall"},
	}
	frozen := catalog.DLC{
		ID:      id.NewDLCID(),
		GameID:  starfall.ID,
		Name:    "Frozen Wastes",
		Price:   types.INR(19900),
		Avatars: []string{"av_frozen"},
	}
	tide := catalog.DLC{
		ID:      id.NewDLCID(),
		GameID:  starfall.ID,
		Name:    "Iron Tide",
		Price:   types.INR(9900),
		Avatars: []string{"av_tide"},
	}
	deluxe := catalog.Edition{
		ID:          id.NewEditionID(),
		GameID:      starfall.ID,
		Name:        "Deluxe",
		Price:       types.INR(79900),
		IncludesDLC: []id.DLCID{frozen.ID},
		Avatars:     []string{"av_deluxe"},
	}
	starfall.Editions = []catalog.Edition{deluxe}
	starfall.DLCs = []catalog.DLC{frozen, tide}

	freebie := &catalog.Game{
		ID:        id.NewGameID(),
		Title:     "Freebie Quest",
		Genre:     "casual",
		BasePrice: types.INR(0),
	}
	nebula := &catalog.Game{
		ID:        id.NewGameID(),
		Title:     "Nebula Drift",
		Genre:     "strategy",
		BasePrice: types.INR(39900),
		Avatars:   []string{"av_nebula"},
	}

	cat := catalog.NewMapStore()
	cat.Put(starfall)
	cat.Put(freebie)
	cat.Put(nebula)

	st := memory.New()
	gw := gatewaytest.New()

	return &world{
		t:        t,
		engine:   storefront.New(st, cat, gw, opts...),
		store:    st,
		cat:      cat,
		gw:       gw,
		starfall: starfall,
		deluxe:   &starfall.Editions[0],
		frozen:   &starfall.DLCs[0],
		tide:     &starfall.DLCs[1],
		freebie:  freebie,
		nebula:   nebula,
	}
}

// pay quotes the user's cart and returns a verifiable payment reference,
// or "" for a zero-total cart.
func (w *world) pay(userID string) string {
	w.t.Helper()
	intent, err := w.engine.QuotePayment(context.Background(), userID)
	if err != nil {
		w.t.Fatalf("QuotePayment: %v", err)
	}
	if intent == nil {
		return ""
	}
	return intent.Ref
}

// buy purchases a single selection through BuyNow with a fresh payment
// reference and returns the entry for the selection itself (the last one,
// when an orphan DLC pulled the base game in).
func (w *world) buy(userID string, sel cart.Selection) *purchase.Purchase {
	w.t.Helper()
	ctx := context.Background()

	intent, err := w.gw.CreateIntent(ctx, userID, types.INR(1))
	if err != nil {
		w.t.Fatalf("CreateIntent: %v", err)
	}
	entries, err := w.engine.BuyNow(ctx, userID, sel, intent.Ref)
	if err != nil {
		w.t.Fatalf("BuyNow: %v", err)
	}
	return entries[len(entries)-1]
}

func containsGame(ids []id.GameID, gameID id.GameID) bool {
	for _, g := range ids {
		if g.Equal(gameID) {
			return true
		}
	}
	return false
}

// ──────────────────────────────────────────────────
// Cart
// ──────────────────────────────────────────────────

func TestAddCartItemDuplicate(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	sel := cart.Selection{GameID: w.starfall.ID}

	if _, err := w.engine.AddCartItem(ctx, "u1", sel); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if _, err := w.engine.AddCartItem(ctx, "u1", sel); !errors.Is(err, storefront.ErrDuplicateItem) {
		t.Fatalf("got %v, want ErrDuplicateItem", err)
	}
}

func TestAddCartItemUnknownGame(t *testing.T) {
	w := newWorld(t)

	_, err := w.engine.AddCartItem(context.Background(), "u1", cart.Selection{GameID: id.NewGameID()})
	if !errors.Is(err, storefront.ErrGameNotFound) {
		t.Fatalf("got %v, want ErrGameNotFound", err)
	}
}

func TestEditionSupersedesBaseLine(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	if _, err := w.engine.AddCartItem(ctx, "u1", cart.Selection{GameID: w.starfall.ID}); err != nil {
		t.Fatal(err)
	}
	if _, err := w.engine.AddCartItem(ctx, "u1", cart.Selection{GameID: w.starfall.ID, EditionID: w.deluxe.ID}); err != nil {
		t.Fatal(err)
	}

	items, err := w.engine.Cart(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d lines, want 1", len(items))
	}
	if !items[0].EditionID.Equal(w.deluxe.ID) {
		t.Errorf("surviving line is not the edition")
	}
}

func TestBaseRejectedWhenEditionInCart(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	if _, err := w.engine.AddCartItem(ctx, "u1", cart.Selection{GameID: w.starfall.ID, EditionID: w.deluxe.ID}); err != nil {
		t.Fatal(err)
	}
	_, err := w.engine.AddCartItem(ctx, "u1", cart.Selection{GameID: w.starfall.ID})
	if !errors.Is(err, storefront.ErrDuplicateItem) {
		t.Fatalf("got %v, want ErrDuplicateItem", err)
	}
}

func TestDLCRejectedWhenBundledByCartEdition(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	if _, err := w.engine.AddCartItem(ctx, "u1", cart.Selection{GameID: w.starfall.ID, EditionID: w.deluxe.ID}); err != nil {
		t.Fatal(err)
	}

	// Frozen Wastes is bundled into deluxe; Iron Tide is not.
	_, err := w.engine.AddCartItem(ctx, "u1", cart.Selection{GameID: w.starfall.ID, DLCID: w.frozen.ID})
	if !errors.Is(err, storefront.ErrAlreadyBundled) {
		t.Fatalf("got %v, want ErrAlreadyBundled", err)
	}
	if _, err := w.engine.AddCartItem(ctx, "u1", cart.Selection{GameID: w.starfall.ID, DLCID: w.tide.ID}); err != nil {
		t.Fatalf("unbundled dlc add: %v", err)
	}
}

func TestStandaloneDLCPullsInBaseGame(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	inserted, err := w.engine.AddCartItem(ctx, "u1", cart.Selection{GameID: w.starfall.ID, DLCID: w.tide.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(inserted) != 2 {
		t.Fatalf("got %d lines, want base + dlc", len(inserted))
	}
	if !inserted[0].IsBase() {
		t.Errorf("first inserted line should be the base game")
	}
	if !inserted[1].DLCID.Equal(w.tide.ID) {
		t.Errorf("second inserted line should be the dlc")
	}

	total, err := w.engine.CartTotal(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	want := types.INR(49900 + 9900)
	if !total.Equal(want) {
		t.Errorf("total = %v, want %v", total, want)
	}
}

func TestDLCAloneWhenBaseCovered(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		setup func()
	}{
		{"base in cart", func() {
			if _, err := w.engine.AddCartItem(ctx, "u1", cart.Selection{GameID: w.starfall.ID}); err != nil {
				t.Fatal(err)
			}
		}},
		{"base owned", func() {
			w.buy("u2", cart.Selection{GameID: w.starfall.ID})
		}},
	}

	users := []string{"u1", "u2"}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			inserted, err := w.engine.AddCartItem(ctx, users[i], cart.Selection{GameID: w.starfall.ID, DLCID: w.tide.ID})
			if err != nil {
				t.Fatal(err)
			}
			if len(inserted) != 1 {
				t.Fatalf("got %d lines, want 1", len(inserted))
			}
		})
	}
}

func TestRemoveBaseLineCascadesDuplicates(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	// Duplicate bare lines cannot be created through AddCartItem; seed
	// them directly to exercise the cascade.
	bare := func() *cart.LineItem {
		return &cart.LineItem{Entity: types.NewEntity(), ID: id.NewLineItemID(), UserID: "u1", GameID: w.starfall.ID}
	}
	a, b := bare(), bare()
	if err := w.store.AddCartItems(ctx, "u1", []*cart.LineItem{a, b}); err != nil {
		t.Fatal(err)
	}
	if _, err := w.engine.AddCartItem(ctx, "u1", cart.Selection{GameID: w.starfall.ID, DLCID: w.tide.ID}); err != nil {
		t.Fatal(err)
	}

	if err := w.engine.RemoveCartItem(ctx, "u1", a.ID); err != nil {
		t.Fatal(err)
	}

	items, err := w.engine.Cart(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d lines, want only the dlc line", len(items))
	}
	if !items[0].DLCID.Equal(w.tide.ID) {
		t.Errorf("surviving line is not the dlc")
	}
}

func TestCartTotalTracksSaleState(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	if _, err := w.engine.AddCartItem(ctx, "u1", cart.Selection{GameID: w.starfall.ID}); err != nil {
		t.Fatal(err)
	}

	total, err := w.engine.CartTotal(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !total.Equal(types.INR(49900)) {
		t.Fatalf("pre-sale total = %v", total)
	}

	// The sale starts while the item sits in the cart; the next read
	// reflects it.
	w.starfall.OnSale = true
	w.cat.Put(w.starfall)

	total, err = w.engine.CartTotal(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !total.Equal(types.INR(29900)) {
		t.Errorf("on-sale total = %v, want sale price", total)
	}
}

// ──────────────────────────────────────────────────
// Checkout
// ──────────────────────────────────────────────────

func TestQuotePaymentEmptyCart(t *testing.T) {
	w := newWorld(t)

	if _, err := w.engine.QuotePayment(context.Background(), "u1"); !errors.Is(err, storefront.ErrEmptyCart) {
		t.Fatalf("got %v, want ErrEmptyCart", err)
	}
}

func TestQuotePaymentZeroTotal(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	if _, err := w.engine.AddCartItem(ctx, "u1", cart.Selection{GameID: w.freebie.ID}); err != nil {
		t.Fatal(err)
	}
	intent, err := w.engine.QuotePayment(ctx, "u1")
	if err != nil {
		t.Fatalf("got %v, want no error", err)
	}
	if intent != nil {
		t.Errorf("zero-total cart should produce no intent, got %+v", intent)
	}
}

func TestQuotePaymentGatewayDown(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	if _, err := w.engine.AddCartItem(ctx, "u1", cart.Selection{GameID: w.starfall.ID}); err != nil {
		t.Fatal(err)
	}
	w.gw.FailNext()

	if _, err := w.engine.QuotePayment(ctx, "u1"); !errors.Is(err, storefront.ErrGatewayUnreachable) {
		t.Fatalf("got %v, want ErrGatewayUnreachable", err)
	}
}

func TestCheckoutFlow(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	if err := w.engine.AddToWishlist(ctx, "u1", w.starfall.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := w.engine.AddCartItem(ctx, "u1", cart.Selection{GameID: w.starfall.ID, EditionID: w.deluxe.ID}); err != nil {
		t.Fatal(err)
	}

	entries, err := w.engine.Checkout(ctx, "u1", w.pay("u1"))
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if !e.PricePaid.Equal(types.INR(79900)) {
		t.Errorf("PricePaid = %v, want edition price", e.PricePaid)
	}
	if e.EditionName != "Deluxe" {
		t.Errorf("EditionName = %q, want snapshot of edition name", e.EditionName)
	}
	if e.PaymentRef == "" {
		t.Errorf("paid entry missing payment ref")
	}

	items, _ := w.engine.Cart(ctx, "u1")
	if len(items) != 0 {
		t.Errorf("cart not cleared, %d lines remain", len(items))
	}

	library, _ := w.engine.Library(ctx, "u1")
	if !containsGame(library, w.starfall.ID) {
		t.Errorf("library missing purchased game")
	}
	wishlist, _ := w.engine.Wishlist(ctx, "u1")
	if containsGame(wishlist, w.starfall.ID) {
		t.Errorf("purchased game still wishlisted")
	}

	inv, err := w.engine.Inventory(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	for _, avatar := range []string{"av_starfall", "av_deluxe", "av_frozen"} {
		if !inv.HasAvatar(avatar) {
			t.Errorf("inventory missing %s", avatar)
		}
	}
	if !inv.HasBadge("badge_first_purchase") {
		t.Errorf("first purchase badge not granted")
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	w := newWorld(t)

	if _, err := w.engine.Checkout(context.Background(), "u1", "pay_x"); !errors.Is(err, storefront.ErrEmptyCart) {
		t.Fatalf("got %v, want ErrEmptyCart", err)
	}
}

func TestCheckoutPaymentRequired(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	if _, err := w.engine.AddCartItem(ctx, "u1", cart.Selection{GameID: w.starfall.ID}); err != nil {
		t.Fatal(err)
	}

	if _, err := w.engine.Checkout(ctx, "u1", ""); !errors.Is(err, storefront.ErrPaymentUnverified) {
		t.Fatalf("empty ref: got %v, want ErrPaymentUnverified", err)
	}

	ref := w.pay("u1")
	w.gw.Decline(ref)
	if _, err := w.engine.Checkout(ctx, "u1", ref); !errors.Is(err, storefront.ErrPaymentUnverified) {
		t.Fatalf("declined ref: got %v, want ErrPaymentUnverified", err)
	}

	// Nothing was written.
	entries, _ := w.engine.PurchaseHistory(ctx, "u1")
	if len(entries) != 0 {
		t.Errorf("failed checkout wrote %d entries", len(entries))
	}
	items, _ := w.engine.Cart(ctx, "u1")
	if len(items) != 1 {
		t.Errorf("failed checkout touched the cart")
	}
}

func TestCheckoutFreeClaim(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	if _, err := w.engine.AddCartItem(ctx, "u1", cart.Selection{GameID: w.freebie.ID}); err != nil {
		t.Fatal(err)
	}

	entries, err := w.engine.Checkout(ctx, "u1", "")
	if err != nil {
		t.Fatalf("free claim: %v", err)
	}
	if entries[0].PaymentRef != "" {
		t.Errorf("free claim recorded a payment ref")
	}

	owned, err := w.engine.Owns(ctx, "u1", ownership.Target{GameID: w.freebie.ID})
	if err != nil {
		t.Fatal(err)
	}
	if !owned {
		t.Errorf("free claim did not grant ownership")
	}
}

func TestCheckoutAlreadyOwned(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	w.buy("u1", cart.Selection{GameID: w.starfall.ID})

	if _, err := w.engine.AddCartItem(ctx, "u1", cart.Selection{GameID: w.starfall.ID}); err != nil {
		t.Fatal(err)
	}
	_, err := w.engine.Checkout(ctx, "u1", w.pay("u1"))
	if !errors.Is(err, storefront.ErrAlreadyOwned) {
		t.Fatalf("got %v, want ErrAlreadyOwned", err)
	}

	// The duplicate attempt must not double the ledger.
	entries, _ := w.engine.PurchaseHistory(ctx, "u1")
	if len(entries) != 1 {
		t.Errorf("ledger has %d entries, want 1", len(entries))
	}
}

func TestCheckoutBatchAllOrNothing(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	w.buy("u1", cart.Selection{GameID: w.nebula.ID})

	if _, err := w.engine.AddCartItem(ctx, "u1", cart.Selection{GameID: w.starfall.ID}); err != nil {
		t.Fatal(err)
	}
	if _, err := w.engine.AddCartItem(ctx, "u1", cart.Selection{GameID: w.nebula.ID}); err != nil {
		t.Fatal(err)
	}

	// One line of the batch collides with the prior purchase; the whole
	// batch must fail, including the line that would have been fine.
	_, err := w.engine.Checkout(ctx, "u1", w.pay("u1"))
	if !errors.Is(err, storefront.ErrAlreadyOwned) {
		t.Fatalf("got %v, want ErrAlreadyOwned", err)
	}

	history, _ := w.engine.PurchaseHistory(ctx, "u1")
	if len(history) != 1 {
		t.Errorf("ledger has %d entries, want only the prior purchase", len(history))
	}
	items, _ := w.engine.Cart(ctx, "u1")
	if len(items) != 2 {
		t.Errorf("cart has %d lines, want both intact", len(items))
	}
	library, _ := w.engine.Library(ctx, "u1")
	if containsGame(library, w.starfall.ID) {
		t.Errorf("failed batch added a game to the library")
	}
}

func TestBuyNowLeavesCartAlone(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	if _, err := w.engine.AddCartItem(ctx, "u1", cart.Selection{GameID: w.nebula.ID}); err != nil {
		t.Fatal(err)
	}

	p := w.buy("u1", cart.Selection{GameID: w.starfall.ID})
	if !p.GameID.Equal(w.starfall.ID) {
		t.Errorf("purchase records wrong game")
	}

	items, _ := w.engine.Cart(ctx, "u1")
	if len(items) != 1 || !items[0].GameID.Equal(w.nebula.ID) {
		t.Errorf("BuyNow touched the cart")
	}
}

func TestBuyNowStandaloneDLCPullsInBaseGame(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	intent, err := w.gw.CreateIntent(ctx, "u1", types.INR(1))
	if err != nil {
		t.Fatal(err)
	}
	entries, err := w.engine.BuyNow(ctx, "u1", cart.Selection{GameID: w.starfall.ID, DLCID: w.tide.ID}, intent.Ref)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want base + dlc", len(entries))
	}
	if !entries[0].DLCID.IsNil() || !entries[0].GameID.Equal(w.starfall.ID) {
		t.Errorf("first entry should be the base game")
	}
	if !entries[1].DLCID.Equal(w.tide.ID) {
		t.Errorf("second entry should be the dlc")
	}
	if !entries[0].PricePaid.Equal(types.INR(49900)) || !entries[1].PricePaid.Equal(types.INR(9900)) {
		t.Errorf("prices = %v + %v, want full base + full dlc", entries[0].PricePaid, entries[1].PricePaid)
	}

	library, _ := w.engine.Library(ctx, "u1")
	if !containsGame(library, w.starfall.ID) {
		t.Errorf("base game missing from library")
	}

	// With the base now owned, a second DLC commits alone.
	intent, err = w.gw.CreateIntent(ctx, "u1", types.INR(1))
	if err != nil {
		t.Fatal(err)
	}
	entries, err = w.engine.BuyNow(ctx, "u1", cart.Selection{GameID: w.starfall.ID, DLCID: w.frozen.ID}, intent.Ref)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("owned base repurchased, got %d entries", len(entries))
	}
}

// ──────────────────────────────────────────────────
// Ownership
// ──────────────────────────────────────────────────

func TestOwnsResolvesAndCaches(t *testing.T) {
	hooks := &captureHooks{}
	w := newWorld(t, storefront.WithPlugin(hooks))
	ctx := context.Background()

	w.buy("u1", cart.Selection{GameID: w.starfall.ID, EditionID: w.deluxe.ID})

	target := ownership.Target{GameID: w.starfall.ID, DLCID: w.frozen.ID}
	for i := 0; i < 2; i++ {
		owned, err := w.engine.Owns(ctx, "u1", target)
		if err != nil {
			t.Fatal(err)
		}
		if !owned {
			t.Fatalf("bundled dlc not owned through edition")
		}
	}

	cached := hooks.ownershipChecks()
	if len(cached) != 2 || cached[0] || !cached[1] {
		t.Errorf("cache flags = %v, want [false true]", cached)
	}
}

func TestOwnsUnknownGame(t *testing.T) {
	w := newWorld(t)

	_, err := w.engine.Owns(context.Background(), "u1", ownership.Target{GameID: id.NewGameID()})
	if !errors.Is(err, storefront.ErrGameNotFound) {
		t.Fatalf("got %v, want ErrGameNotFound", err)
	}
}

// ──────────────────────────────────────────────────
// Refunds
// ──────────────────────────────────────────────────

func TestRefundLifecycle(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	target := w.buy("u1", cart.Selection{GameID: w.starfall.ID})
	w.buy("u1", cart.Selection{GameID: w.nebula.ID})

	req, err := w.engine.RequestRefund(ctx, "u1", target.ID, "changed my mind")
	if err != nil {
		t.Fatal(err)
	}
	if req.Status != refund.StatusPending {
		t.Fatalf("new request status = %s", req.Status)
	}

	if _, err := w.engine.RequestRefund(ctx, "u1", target.ID, "again"); !errors.Is(err, storefront.ErrRefundRequested) {
		t.Fatalf("duplicate request: got %v, want ErrRefundRequested", err)
	}

	resolved, err := w.engine.ReviewRefund(ctx, req.ID, refund.DecisionApprove, "ok")
	if err != nil {
		t.Fatal(err)
	}
	if resolved.Status != refund.StatusApproved {
		t.Errorf("status = %s, want approved", resolved.Status)
	}
	if resolved.DecidedAt == nil {
		t.Errorf("resolved request missing decision timestamp")
	}

	// The ledger entry stays, stamped refunded.
	history, _ := w.engine.PurchaseHistory(ctx, "u1")
	if len(history) != 2 {
		t.Fatalf("history has %d entries, want 2", len(history))
	}
	var refunded *purchase.Purchase
	for _, p := range history {
		if p.ID.Equal(target.ID) {
			refunded = p
		}
	}
	if refunded == nil || !refunded.Refunded() {
		t.Errorf("refunded purchase not stamped")
	}

	library, _ := w.engine.Library(ctx, "u1")
	if containsGame(library, w.starfall.ID) {
		t.Errorf("refunded game still in library")
	}
	if !containsGame(library, w.nebula.ID) {
		t.Errorf("unrelated game removed from library")
	}

	owned, _ := w.engine.Owns(ctx, "u1", ownership.Target{GameID: w.starfall.ID})
	if owned {
		t.Errorf("refunded game still owned")
	}

	if _, err := w.engine.ReviewRefund(ctx, req.ID, refund.DecisionReject, ""); !errors.Is(err, storefront.ErrRefundResolved) {
		t.Fatalf("re-review: got %v, want ErrRefundResolved", err)
	}
	if _, err := w.engine.RequestRefund(ctx, "u1", target.ID, "retry"); !errors.Is(err, storefront.ErrPurchaseRefunded) {
		t.Fatalf("request on refunded purchase: got %v, want ErrPurchaseRefunded", err)
	}
}

func TestRefundKeepsGameGrantedByAnotherPurchase(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	base := w.buy("u1", cart.Selection{GameID: w.starfall.ID})
	w.buy("u1", cart.Selection{GameID: w.starfall.ID, EditionID: w.deluxe.ID})

	req, err := w.engine.RequestRefund(ctx, "u1", base.ID, "upgraded to deluxe")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.engine.ReviewRefund(ctx, req.ID, refund.DecisionApprove, ""); err != nil {
		t.Fatal(err)
	}

	// The edition purchase still grants the game.
	library, _ := w.engine.Library(ctx, "u1")
	if !containsGame(library, w.starfall.ID) {
		t.Errorf("game removed despite surviving edition purchase")
	}
	owned, _ := w.engine.Owns(ctx, "u1", ownership.Target{GameID: w.starfall.ID})
	if !owned {
		t.Errorf("ownership lost despite surviving edition purchase")
	}
}

func TestRefundRewritesAvatarInventory(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	// Both games grant av_shared; only starfall grants av_starfall.
	w.nebula.Avatars = []string{"av_shared"}
	w.starfall.Avatars = []string{"av_starfall", "av_shared"}
	w.cat.Put(w.nebula)
	w.cat.Put(w.starfall)

	target := w.buy("u1", cart.Selection{GameID: w.starfall.ID})
	w.buy("u1", cart.Selection{GameID: w.nebula.ID})

	req, err := w.engine.RequestRefund(ctx, "u1", target.ID, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.engine.ReviewRefund(ctx, req.ID, refund.DecisionApprove, ""); err != nil {
		t.Fatal(err)
	}

	inv, err := w.engine.Inventory(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !inv.HasAvatar("av_shared") {
		t.Errorf("avatar justified by the retained purchase was removed")
	}
	if inv.HasAvatar("av_starfall") {
		t.Errorf("avatar unique to the refunded purchase survived")
	}
}

func TestRefundRejectLeavesEntitlements(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	target := w.buy("u1", cart.Selection{GameID: w.starfall.ID})

	req, err := w.engine.RequestRefund(ctx, "u1", target.ID, "")
	if err != nil {
		t.Fatal(err)
	}
	resolved, err := w.engine.ReviewRefund(ctx, req.ID, refund.DecisionReject, "outside window")
	if err != nil {
		t.Fatal(err)
	}
	if resolved.Status != refund.StatusRejected {
		t.Errorf("status = %s, want rejected", resolved.Status)
	}
	if resolved.Note != "outside window" {
		t.Errorf("note not recorded")
	}

	library, _ := w.engine.Library(ctx, "u1")
	if !containsGame(library, w.starfall.ID) {
		t.Errorf("rejected refund removed the game")
	}
	history, _ := w.engine.PurchaseHistory(ctx, "u1")
	if history[0].Refunded() {
		t.Errorf("rejected refund stamped the purchase")
	}
}

func TestReviewRefundInvalidDecision(t *testing.T) {
	w := newWorld(t)

	_, err := w.engine.ReviewRefund(context.Background(), id.NewRefundID(), refund.Decision("maybe"), "")
	if !errors.Is(err, storefront.ErrInvalidDecision) {
		t.Fatalf("got %v, want ErrInvalidDecision", err)
	}
}

func TestRefundOtherUsersPurchase(t *testing.T) {
	w := newWorld(t)

	target := w.buy("u1", cart.Selection{GameID: w.starfall.ID})

	_, err := w.engine.RequestRefund(context.Background(), "u2", target.ID, "")
	if !errors.Is(err, storefront.ErrPurchaseNotFound) {
		t.Fatalf("got %v, want ErrPurchaseNotFound", err)
	}
}

// ──────────────────────────────────────────────────
// Achievements
// ──────────────────────────────────────────────────

func TestAchievementsIdempotent(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	w.buy("u1", cart.Selection{GameID: w.starfall.ID})

	// BuyNow already evaluated; a manual re-run grants nothing new.
	granted, err := w.engine.EvaluateAchievements(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(granted) != 0 {
		t.Errorf("re-evaluation granted %d achievements", len(granted))
	}
}

func TestAchievementSurvivesRefundByDefault(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	target := w.buy("u1", cart.Selection{GameID: w.starfall.ID})

	req, err := w.engine.RequestRefund(ctx, "u1", target.ID, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.engine.ReviewRefund(ctx, req.ID, refund.DecisionApprove, ""); err != nil {
		t.Fatal(err)
	}

	inv, err := w.engine.Inventory(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !inv.HasBadge("badge_first_purchase") {
		t.Errorf("achievement badge revoked without opt-in")
	}
}

// ──────────────────────────────────────────────────
// Reconciliation
// ──────────────────────────────────────────────────

func TestReconcileDetectsPaymentGap(t *testing.T) {
	hooks := &captureHooks{}
	w := newWorld(t,
		storefront.WithPlugin(hooks),
		storefront.WithReconcileInterval(20*time.Millisecond, time.Hour),
	)
	ctx := context.Background()

	// One capture that committed, one that never did.
	committed := w.buy("u1", cart.Selection{GameID: w.starfall.ID})
	w.gw.InjectCapture("pay_orphan", types.INR(49900), time.Now())

	if err := w.engine.Start(ctx); err != nil {
		t.Fatal(err)
	}
	time.Sleep(120 * time.Millisecond)
	if err := w.engine.Stop(); err != nil {
		t.Fatal(err)
	}

	gaps := hooks.paymentGaps()
	if len(gaps) == 0 {
		t.Fatal("no payment gap reported")
	}
	for _, g := range gaps {
		if g.Ref == committed.PaymentRef {
			t.Errorf("committed payment %s flagged as a gap", g.Ref)
		}
	}
	found := false
	for _, g := range gaps {
		if g.Ref == "pay_orphan" {
			found = true
		}
	}
	if !found {
		t.Errorf("orphan capture never reported")
	}
}

// captureHooks records plugin callbacks for assertions. Safe for
// concurrent use; the reconciliation worker emits from its own goroutine.
type captureHooks struct {
	mu     sync.Mutex
	gaps   []gateway.Capture
	checks []bool
}

func (h *captureHooks) Name() string { return "capture-hooks" }

func (h *captureHooks) OnPaymentGapDetected(_ context.Context, c gateway.Capture) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.gaps = append(h.gaps, c)
	return nil
}

func (h *captureHooks) OnOwnershipChecked(_ context.Context, _, _ string, _, cached bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, cached)
	return nil
}

func (h *captureHooks) paymentGaps() []gateway.Capture {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]gateway.Capture(nil), h.gaps...)
}

func (h *captureHooks) ownershipChecks() []bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]bool(nil), h.checks...)
}
