// Package storefront provides a composable commerce and entitlement engine
// for digital storefronts.
//
// Storefront is designed as a library, not a service. Import it directly
// into your Go application. It provides:
//
//   - A pure pricing engine shared by cart display, payment quoting, and
//     the final checkout commit
//   - Ledger-derived ownership resolution with a short-TTL cache
//   - Cart management with edition/DLC bundling invariants
//   - Atomic checkout: ledger entries, library, wishlist, and bonus
//     inventory commit together or not at all
//   - Refund processing that preserves the audit trail and recomputes
//     entitlements from the retained purchases
//   - An idempotent rule-based achievement system
//   - Gateway reconciliation for captured-but-uncommitted payments
//
// # Quick Start
//
// Create an engine with your preferred store and payment gateway:
//
//	import (
//	    "github.com/xraph/storefront"
//	    "github.com/xraph/storefront/catalog"
//	    "github.com/xraph/storefront/store/mongo"
//	)
//
//	st, err := mongo.Connect(mongoURI, "storefront")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	engine := storefront.New(st, cat, gw)
//
//	// Start the engine (begins background workers)
//	if err := engine.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Stop()
//
// # Core Concepts
//
// The catalog is the read-only product graph: games, editions that bundle
// DLC at an absolute price, and standalone DLC packs. The purchase ledger
// is the append-only source of truth for ownership; everything else
// (library, ownership answers, bonus inventory) derives from it.
//
// Add to cart and check out:
//
//	_, err := engine.AddCartItem(ctx, userID, cart.Selection{GameID: gameID})
//	intent, err := engine.QuotePayment(ctx, userID)
//	// ... buyer completes payment externally ...
//	entries, err := engine.Checkout(ctx, userID, intent.Ref)
//
// Ownership checks serve both storefront gating and pricing:
//
//	owned, err := engine.Owns(ctx, userID, ownership.Target{GameID: gameID})
//
// # Money
//
// All monetary calculations use integer arithmetic to avoid floating-point
// precision issues. The Money type represents amounts in the smallest
// currency unit (paise for INR, cents for USD).
//
// # TypeID
//
// All entities use TypeID for globally unique, type-safe identifiers:
//
//	game_01h2xcejqtf2nbrexx3vqjhp41  // Game ID
//	pur_01h2xcejqtf2nbrexx3vqjhp41   // Purchase ID
//	rfnd_01h455vb4pex5vsknk084sn02q  // Refund request ID
//
// TypeIDs are K-sortable, making them ideal for database indexes and
// providing natural time-ordering of entities.
package storefront
