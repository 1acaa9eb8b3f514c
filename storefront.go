package storefront

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/storefront/achievement"
	"github.com/xraph/storefront/cart"
	"github.com/xraph/storefront/catalog"
	"github.com/xraph/storefront/gateway"
	"github.com/xraph/storefront/id"
	"github.com/xraph/storefront/ownership"
	"github.com/xraph/storefront/player"
	"github.com/xraph/storefront/plugin"
	"github.com/xraph/storefront/pricing"
	"github.com/xraph/storefront/purchase"
	"github.com/xraph/storefront/refund"
	"github.com/xraph/storefront/store"
	"github.com/xraph/storefront/types"
)

// Engine is the main commerce and entitlement engine.
type Engine struct {
	store   store.Store
	catalog catalog.Store
	gateway gateway.Gateway
	plugins *plugin.Registry
	logger  *slog.Logger

	// Background workers
	stopChan chan struct{}
	wg       sync.WaitGroup

	// Configuration
	ownershipCacheTTL  time.Duration
	reconcileInterval  time.Duration
	reconcileLookback  time.Duration
	rules              []achievement.Rule
	revokeAchievements bool
}

// New creates a new Engine instance.
func New(s store.Store, cat catalog.Store, gw gateway.Gateway, opts ...Option) *Engine {
	e := &Engine{
		store:             s,
		catalog:           cat,
		gateway:           gw,
		plugins:           plugin.NewRegistry(),
		logger:            slog.Default(),
		stopChan:          make(chan struct{}),
		ownershipCacheTTL: 30 * time.Second,
		reconcileInterval: 5 * time.Minute,
		reconcileLookback: time.Hour,
		rules:             achievement.DefaultRules(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithOwnershipCacheTTL sets the ownership resolution cache TTL.
func WithOwnershipCacheTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		e.ownershipCacheTTL = ttl
	}
}

// WithReconcileInterval configures how often the payment reconciliation
// worker compares gateway captures against the ledger.
func WithReconcileInterval(interval, lookback time.Duration) Option {
	return func(e *Engine) {
		e.reconcileInterval = interval
		e.reconcileLookback = lookback
	}
}

// WithAchievementRules replaces the default achievement rule set.
func WithAchievementRules(rules []achievement.Rule) Option {
	return func(e *Engine) {
		e.rules = rules
	}
}

// WithRevokeAchievementsOnRefund makes an approved refund revoke earned
// achievements whose conditions no longer hold. Achievements are permanent
// by default.
func WithRevokeAchievementsOnRefund() Option {
	return func(e *Engine) {
		e.revokeAchievements = true
	}
}

// Start begins background workers.
func (e *Engine) Start(ctx context.Context) error {
	// Migrate database
	if err := e.store.Migrate(ctx); err != nil {
		return err
	}

	// Initialize plugins
	e.plugins.EmitInit(ctx, e)

	// Start payment reconciliation worker
	e.wg.Add(1)
	go e.reconcileWorker(ctx)

	e.logger.Info("storefront started",
		"cache_ttl", e.ownershipCacheTTL,
		"reconcile_interval", e.reconcileInterval,
		"rules", len(e.rules),
	)

	return nil
}

// Stop shuts down the Engine.
func (e *Engine) Stop() error {
	close(e.stopChan)
	e.wg.Wait()

	ctx := context.Background()
	e.plugins.EmitShutdown(ctx)

	return e.store.Close()
}

// ──────────────────────────────────────────────────
// Cart
// ──────────────────────────────────────────────────

// Cart returns the user's current line items.
func (e *Engine) Cart(ctx context.Context, userID string) ([]*cart.LineItem, error) {
	return e.store.CartItems(ctx, userID)
}

// AddCartItem adds a selection to the user's cart and returns the inserted
// line items. An edition supersedes a bare base-game line for the same
// game; a standalone DLC whose base game is neither owned nor in the cart
// pulls the base game in as a second line in the same insert.
func (e *Engine) AddCartItem(ctx context.Context, userID string, sel cart.Selection) ([]*cart.LineItem, error) {
	if !sel.EditionID.IsNil() && !sel.DLCID.IsNil() {
		return nil, ValidationError{Field: "selection", Message: "edition and dlc are mutually exclusive"}
	}

	game, _, _, err := e.resolveSelection(ctx, sel)
	if err != nil {
		return nil, err
	}

	items, err := e.store.CartItems(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if item.Matches(sel) {
			return nil, ErrDuplicateItem
		}
	}

	switch {
	case !sel.EditionID.IsNil():
		// Editions supersede the bare base-game line.
		for _, item := range items {
			if item.IsBase() && item.GameID.Equal(sel.GameID) {
				if _, err := e.store.RemoveCartItem(ctx, userID, item.ID); err != nil {
					return nil, err
				}
			}
		}

	case !sel.DLCID.IsNil():
		for _, item := range items {
			if item.EditionID.IsNil() || !item.GameID.Equal(sel.GameID) {
				continue
			}
			if ed := game.FindEdition(item.EditionID); ed != nil && ed.Bundles(sel.DLCID) {
				return nil, ErrAlreadyBundled
			}
		}

	default:
		// A base-game add is redundant when an edition of the game is
		// already in the cart.
		for _, item := range items {
			if item.GameID.Equal(sel.GameID) && !item.EditionID.IsNil() {
				return nil, ErrDuplicateItem
			}
		}
	}

	insert := []*cart.LineItem{{
		Entity:    types.NewEntity(),
		ID:        id.NewLineItemID(),
		UserID:    userID,
		GameID:    sel.GameID,
		EditionID: sel.EditionID,
		DLCID:     sel.DLCID,
	}}

	// A DLC cannot be sold orphaned from its base game: if the buyer
	// neither owns the base nor has it (or an edition) in the cart, the
	// base game rides along in the same atomic insert.
	if !sel.DLCID.IsNil() {
		entries, err := e.store.ListPurchases(ctx, userID)
		if err != nil {
			return nil, err
		}
		baseCovered := ownership.OwnsGame(entries, sel.GameID)
		for _, item := range items {
			if item.GameID.Equal(sel.GameID) && item.DLCID.IsNil() {
				baseCovered = true
			}
		}
		if !baseCovered {
			insert = append([]*cart.LineItem{{
				Entity: types.NewEntity(),
				ID:     id.NewLineItemID(),
				UserID: userID,
				GameID: sel.GameID,
			}}, insert...)
		}
	}

	if err := e.store.AddCartItems(ctx, userID, insert); err != nil {
		return nil, err
	}

	e.logger.Debug("cart items added",
		"user_id", userID,
		"game_id", sel.GameID.String(),
		"lines", len(insert),
	)

	return insert, nil
}

// RemoveCartItem removes a line item. Removing a bare base-game line also
// removes any literal duplicate bare lines for the same game; edition and
// DLC lines are independent purchases and stay.
func (e *Engine) RemoveCartItem(ctx context.Context, userID string, itemID id.LineItemID) error {
	removed, err := e.store.RemoveCartItem(ctx, userID, itemID)
	if err != nil {
		return err
	}

	if removed.IsBase() {
		items, err := e.store.CartItems(ctx, userID)
		if err != nil {
			return err
		}
		for _, item := range items {
			if item.IsBase() && item.GameID.Equal(removed.GameID) {
				if _, err := e.store.RemoveCartItem(ctx, userID, item.ID); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

// CartTotal recomputes the live total of the user's cart. Prices are never
// cached: sale-state changes are reflected until checkout locks them in.
func (e *Engine) CartTotal(ctx context.Context, userID string) (types.Money, error) {
	items, err := e.store.CartItems(ctx, userID)
	if err != nil {
		return types.Money{}, err
	}

	entries, err := e.store.ListPurchases(ctx, userID)
	if err != nil {
		return types.Money{}, err
	}

	total := types.Zero("inr")
	for _, item := range items {
		amount, err := e.priceLine(ctx, entries, item)
		if err != nil {
			return types.Money{}, err
		}
		total = total.Add(amount)
	}
	return total, nil
}

// ──────────────────────────────────────────────────
// Checkout
// ──────────────────────────────────────────────────

// QuotePayment computes the cart total and registers a payment intent with
// the gateway. The returned reference is passed back to Checkout once the
// buyer completes payment. Zero-total carts need no intent and get none.
func (e *Engine) QuotePayment(ctx context.Context, userID string) (*gateway.Intent, error) {
	items, err := e.store.CartItems(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	total, err := e.CartTotal(ctx, userID)
	if err != nil {
		return nil, err
	}
	if total.IsZero() {
		return nil, nil
	}

	intent, err := e.gateway.CreateIntent(ctx, userID, total)
	if err != nil {
		e.logger.Error("payment intent failed", "user_id", userID, "error", err)
		return nil, ErrGatewayUnreachable
	}
	return intent, nil
}

// Checkout converts the user's cart into ledger entries. Prices are
// recomputed at commit time; the payment reference is re-verified against
// the gateway before anything is written. The whole batch commits in one
// transaction, and the cart is cleared on success.
//
// A zero total is a free claim: the gateway step is skipped entirely and
// paymentRef may be empty.
func (e *Engine) Checkout(ctx context.Context, userID, paymentRef string) ([]*purchase.Purchase, error) {
	items, err := e.store.CartItems(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	entries, err := e.commitItems(ctx, userID, items, paymentRef, true)
	if err != nil {
		return nil, err
	}

	e.logger.Info("checkout committed",
		"user_id", userID,
		"entries", len(entries),
	)

	return entries, nil
}

// BuyNow purchases a single selection directly, without touching the cart.
// The orphan-DLC rule from the cart path applies here too: a standalone DLC
// whose base game is not owned pulls the base game into the same batch, so
// the returned slice may hold two entries.
func (e *Engine) BuyNow(ctx context.Context, userID string, sel cart.Selection, paymentRef string) ([]*purchase.Purchase, error) {
	if !sel.EditionID.IsNil() && !sel.DLCID.IsNil() {
		return nil, ValidationError{Field: "selection", Message: "edition and dlc are mutually exclusive"}
	}
	if _, _, _, err := e.resolveSelection(ctx, sel); err != nil {
		return nil, err
	}

	lines := []*cart.LineItem{{
		ID:        id.NewLineItemID(),
		UserID:    userID,
		GameID:    sel.GameID,
		EditionID: sel.EditionID,
		DLCID:     sel.DLCID,
	}}

	if !sel.DLCID.IsNil() {
		entries, err := e.store.ListPurchases(ctx, userID)
		if err != nil {
			return nil, err
		}
		if !ownership.OwnsGame(entries, sel.GameID) {
			lines = append([]*cart.LineItem{{
				ID:     id.NewLineItemID(),
				UserID: userID,
				GameID: sel.GameID,
			}}, lines...)
		}
	}

	return e.commitItems(ctx, userID, lines, paymentRef, false)
}

// commitItems is the shared checkout path: price, verify payment, build
// the transactional unit of work, commit, then fire best-effort side
// effects.
func (e *Engine) commitItems(ctx context.Context, userID string, items []*cart.LineItem, paymentRef string, clearCart bool) ([]*purchase.Purchase, error) {
	owned, err := e.store.ListPurchases(ctx, userID)
	if err != nil {
		return nil, err
	}

	c := &purchase.Commit{UserID: userID, ClearCart: clearCart}
	total := types.Zero("inr")

	for _, item := range items {
		game, edition, dlc, err := e.resolveLine(ctx, item)
		if err != nil {
			return nil, err
		}

		amount, err := e.priceLine(ctx, owned, item)
		if err != nil {
			return nil, err
		}
		total = total.Add(amount)

		entry := &purchase.Purchase{
			Entity:    types.NewEntity(),
			ID:        id.NewPurchaseID(),
			UserID:    userID,
			GameID:    item.GameID,
			EditionID: item.EditionID,
			DLCID:     item.DLCID,
			PricePaid: amount,
		}
		if edition != nil {
			entry.EditionName = edition.Name
		}
		c.Entries = append(c.Entries, entry)

		c.LibraryAdd = append(c.LibraryAdd, item.GameID)
		c.WishlistRemove = append(c.WishlistRemove, item.GameID)
		c.AvatarGrant = append(c.AvatarGrant, lineAvatars(game, edition, dlc)...)
	}

	// Payment verification happens before the transaction, never inside
	// it. Checkout fails closed on an unverified reference.
	if !total.IsZero() {
		if paymentRef == "" {
			return nil, ErrPaymentUnverified
		}
		conf, err := e.gateway.Confirm(ctx, paymentRef)
		if err != nil {
			e.logger.Error("payment confirmation failed", "user_id", userID, "error", err)
			return nil, ErrGatewayUnreachable
		}
		if !conf.Verified {
			return nil, ErrPaymentUnverified
		}
		for _, entry := range c.Entries {
			entry.PaymentRef = paymentRef
		}
	}

	if err := e.store.CommitCheckout(ctx, c); err != nil {
		return nil, err
	}

	_ = e.store.InvalidateOwnership(ctx, userID) //nolint:errcheck // best-effort cache invalidation

	// Post-commit side effects are best-effort and never fail the
	// checkout.
	e.plugins.EmitCheckoutCommitted(ctx, c)
	e.plugins.SendPurchaseReceipts(ctx, userID, c.Entries)
	if _, err := e.EvaluateAchievements(ctx, userID); err != nil {
		e.logger.Warn("achievement evaluation failed", "user_id", userID, "error", err)
	}

	return c.Entries, nil
}

// ──────────────────────────────────────────────────
// Ownership
// ──────────────────────────────────────────────────

// Owns resolves whether the user owns the target, consulting the
// short-TTL cache first. Entitlement changes invalidate the cache, so the
// TTL only bounds staleness across processes.
func (e *Engine) Owns(ctx context.Context, userID string, target ownership.Target) (bool, error) {
	key := target.CacheKey()

	if owned, err := e.store.GetCachedOwnership(ctx, userID, key); err == nil {
		e.plugins.EmitOwnershipChecked(ctx, userID, key, owned, true)
		return owned, nil
	}

	game, err := e.game(ctx, target.GameID)
	if err != nil {
		return false, err
	}
	entries, err := e.store.ListPurchases(ctx, userID)
	if err != nil {
		return false, err
	}

	owned := ownership.Owns(entries, game, target)
	_ = e.store.SetCachedOwnership(ctx, userID, key, owned, e.ownershipCacheTTL) //nolint:errcheck // best-effort cache set
	e.plugins.EmitOwnershipChecked(ctx, userID, key, owned, false)

	return owned, nil
}

// PurchaseHistory returns all of the user's ledger entries, refunded ones
// included.
func (e *Engine) PurchaseHistory(ctx context.Context, userID string) ([]*purchase.Purchase, error) {
	return e.store.ListPurchases(ctx, userID)
}

// Library returns the user's owned game ids.
func (e *Engine) Library(ctx context.Context, userID string) ([]id.GameID, error) {
	return e.store.Library(ctx, userID)
}

// Wishlist returns the user's wishlisted game ids.
func (e *Engine) Wishlist(ctx context.Context, userID string) ([]id.GameID, error) {
	return e.store.Wishlist(ctx, userID)
}

// AddToWishlist adds a game to the wishlist.
func (e *Engine) AddToWishlist(ctx context.Context, userID string, gameID id.GameID) error {
	if _, err := e.game(ctx, gameID); err != nil {
		return err
	}
	return e.store.AddWishlist(ctx, userID, gameID)
}

// RemoveFromWishlist removes a game from the wishlist.
func (e *Engine) RemoveFromWishlist(ctx context.Context, userID string, gameID id.GameID) error {
	return e.store.RemoveWishlist(ctx, userID, gameID)
}

// Inventory returns the user's accumulated cosmetic inventory.
func (e *Engine) Inventory(ctx context.Context, userID string) (*player.Inventory, error) {
	return e.store.Inventory(ctx, userID)
}

// ──────────────────────────────────────────────────
// Refunds
// ──────────────────────────────────────────────────

// RequestRefund opens a refund request against one of the user's
// purchases. At most one request may ever exist per purchase.
func (e *Engine) RequestRefund(ctx context.Context, userID string, purchaseID id.PurchaseID, reason string) (*refund.Request, error) {
	p, err := e.store.GetPurchase(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, ErrPurchaseNotFound
	}
	if p.Refunded() {
		return nil, ErrPurchaseRefunded
	}
	if _, err := e.store.GetRefundByPurchase(ctx, purchaseID); err == nil {
		return nil, ErrRefundRequested
	}

	req := &refund.Request{
		Entity:     types.NewEntity(),
		ID:         id.NewRefundID(),
		UserID:     userID,
		PurchaseID: purchaseID,
		Reason:     reason,
		Status:     refund.StatusPending,
	}
	if err := e.store.CreateRefund(ctx, req); err != nil {
		return nil, err
	}

	e.logger.Info("refund requested",
		"user_id", userID,
		"purchase_id", purchaseID.String(),
	)

	return req, nil
}

// ListRefunds lists refund requests, optionally filtered by status.
func (e *Engine) ListRefunds(ctx context.Context, status refund.Status) ([]*refund.Request, error) {
	return e.store.ListRefunds(ctx, status)
}

// ReviewRefund resolves a pending refund request. Approval reverses the
// purchase's entitlement effects in one transaction: the ledger entry is
// stamped refunded, the game leaves the library unless another retained
// purchase still grants it, and the avatar inventory is rewritten to the
// set the remaining purchases justify.
func (e *Engine) ReviewRefund(ctx context.Context, requestID id.RefundID, decision refund.Decision, note string) (*refund.Request, error) {
	if decision != refund.DecisionApprove && decision != refund.DecisionReject {
		return nil, ErrInvalidDecision
	}

	req, err := e.store.GetRefund(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Resolved() {
		return nil, ErrRefundResolved
	}

	c := &refund.Commit{
		RequestID:  req.ID,
		UserID:     req.UserID,
		PurchaseID: req.PurchaseID,
		Decision:   decision,
		Note:       note,
	}

	if decision == refund.DecisionApprove {
		if err := e.buildReversal(ctx, req, c); err != nil {
			return nil, err
		}
	}

	if err := e.store.CommitDecision(ctx, c); err != nil {
		return nil, err
	}
	_ = e.store.InvalidateOwnership(ctx, req.UserID) //nolint:errcheck // best-effort cache invalidation

	resolved, err := e.store.GetRefund(ctx, requestID)
	if err != nil {
		return nil, err
	}

	e.plugins.EmitRefundResolved(ctx, resolved)
	e.plugins.SendRefundNotices(ctx, req.UserID, resolved)

	e.logger.Info("refund resolved",
		"request_id", requestID.String(),
		"decision", string(decision),
	)

	return resolved, nil
}

// buildReversal computes the entitlement rollback for an approval. The
// remaining entries (everything but the refunded purchase) decide what
// survives: the library keeps the game if another entry still grants it,
// and the avatar inventory is recomputed wholesale rather than subtracted
// from.
func (e *Engine) buildReversal(ctx context.Context, req *refund.Request, c *refund.Commit) error {
	target, err := e.store.GetPurchase(ctx, req.PurchaseID)
	if err != nil {
		return err
	}

	entries, err := e.store.ListPurchases(ctx, req.UserID)
	if err != nil {
		return err
	}

	remaining := make([]*purchase.Purchase, 0, len(entries))
	for _, p := range entries {
		if p.ID.Equal(req.PurchaseID) {
			continue
		}
		remaining = append(remaining, p)
	}

	if !ownership.OwnsGame(remaining, target.GameID) {
		c.LibraryRemove = []id.GameID{target.GameID}
	}

	games := make(map[string]*catalog.Game)
	lookup := func(gameID id.GameID) *catalog.Game {
		if g, ok := games[gameID.String()]; ok {
			return g
		}
		g, err := e.catalog.GetGame(ctx, gameID)
		if err != nil {
			g = nil
		}
		games[gameID.String()] = g
		return g
	}
	c.InventoryAvatars = ownership.AvatarSet(remaining, lookup)
	c.RewriteInventory = true

	if e.revokeAchievements {
		revoke, err := e.staleAchievements(ctx, req.UserID, remaining)
		if err != nil {
			return err
		}
		c.RevokeAchievements = revoke
	}

	return nil
}

// staleAchievements returns the earned condition keys whose predicates no
// longer hold against the post-refund ledger.
func (e *Engine) staleAchievements(ctx context.Context, userID string, remaining []*purchase.Purchase) ([]string, error) {
	earned, err := e.store.ListAchievements(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(earned) == 0 {
		return nil, nil
	}

	snap, err := e.snapshot(ctx, userID, remaining)
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]achievement.Rule, len(e.rules))
	for _, r := range e.rules {
		byKey[r.Key] = r
	}

	var stale []string
	for _, ua := range earned {
		rule, ok := byKey[ua.Key]
		if !ok {
			continue
		}
		if !rule.Predicate(snap) {
			stale = append(stale, ua.Key)
		}
	}
	return stale, nil
}

// ──────────────────────────────────────────────────
// Achievements
// ──────────────────────────────────────────────────

// EvaluateAchievements runs the rule set over the user's current state and
// grants whatever newly holds. It is idempotent and safe to invoke from
// any trigger; re-running it never duplicates a grant.
func (e *Engine) EvaluateAchievements(ctx context.Context, userID string) ([]*achievement.UserAchievement, error) {
	entries, err := e.store.ListPurchases(ctx, userID)
	if err != nil {
		return nil, err
	}
	snap, err := e.snapshot(ctx, userID, entries)
	if err != nil {
		return nil, err
	}

	earnedList, err := e.store.ListAchievements(ctx, userID)
	if err != nil {
		return nil, err
	}
	earned := make(map[string]bool, len(earnedList))
	for _, ua := range earnedList {
		earned[ua.Key] = true
	}

	var granted []*achievement.UserAchievement
	for _, rule := range achievement.Evaluate(e.rules, snap, earned) {
		ua := &achievement.UserAchievement{
			UserID:   userID,
			Key:      rule.Key,
			BadgeID:  rule.BadgeID,
			EarnedAt: time.Now(),
		}
		if err := e.store.GrantAchievement(ctx, ua); err != nil {
			return granted, err
		}
		if rule.BadgeID != "" {
			if err := e.store.GrantBadge(ctx, userID, rule.BadgeID); err != nil {
				return granted, err
			}
		}
		granted = append(granted, ua)
		e.plugins.EmitAchievementGranted(ctx, ua)

		e.logger.Info("achievement granted",
			"user_id", userID,
			"key", rule.Key,
		)
	}

	return granted, nil
}

// snapshot assembles the read-only state achievement rules evaluate over.
func (e *Engine) snapshot(ctx context.Context, userID string, entries []*purchase.Purchase) (*achievement.Snapshot, error) {
	snap := &achievement.Snapshot{
		Purchases: entries,
		Genres:    make(map[string]string),
	}

	profile, err := e.store.GetProfile(ctx, userID)
	if err == nil {
		snap.Profile = profile
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	inv, err := e.store.Inventory(ctx, userID)
	if err != nil {
		return nil, err
	}
	snap.Inventory = inv

	for _, p := range entries {
		if _, ok := snap.Genres[p.GameID.String()]; ok {
			continue
		}
		game, err := e.catalog.GetGame(ctx, p.GameID)
		if err != nil {
			continue
		}
		snap.Genres[p.GameID.String()] = game.Genre
	}

	return snap, nil
}

// ──────────────────────────────────────────────────
// Payment reconciliation
// ──────────────────────────────────────────────────

// reconcileWorker periodically compares gateway captures against the
// ledger to surface payments that captured but never committed.
func (e *Engine) reconcileWorker(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.reconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopChan:
			return
		case <-ticker.C:
			e.reconcile(ctx)
		}
	}
}

func (e *Engine) reconcile(ctx context.Context) {
	since := time.Now().Add(-e.reconcileLookback)

	captures, err := e.gateway.Captures(ctx, since)
	if err != nil {
		e.logger.Error("reconciliation fetch failed", "error", err)
		return
	}

	gaps := 0
	for _, c := range captures {
		committed, err := e.store.HasPaymentRef(ctx, c.Ref)
		if err != nil {
			e.logger.Error("reconciliation lookup failed", "ref", c.Ref, "error", err)
			continue
		}
		if committed {
			continue
		}

		gaps++
		e.logger.Warn("captured payment with no ledger entry",
			"ref", c.Ref,
			"amount", c.Amount.String(),
			"captured_at", c.CapturedAt,
		)
		e.plugins.EmitPaymentGapDetected(ctx, c)
	}

	e.logger.Debug("reconciliation pass complete",
		"captures", len(captures),
		"gaps", gaps,
	)
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func (e *Engine) game(ctx context.Context, gameID id.GameID) (*catalog.Game, error) {
	game, err := e.catalog.GetGame(ctx, gameID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, err
	}
	return game, nil
}

// resolveSelection resolves a selection against the catalog.
func (e *Engine) resolveSelection(ctx context.Context, sel cart.Selection) (*catalog.Game, *catalog.Edition, *catalog.DLC, error) {
	game, err := e.game(ctx, sel.GameID)
	if err != nil {
		return nil, nil, nil, err
	}

	var edition *catalog.Edition
	if !sel.EditionID.IsNil() {
		if edition = game.FindEdition(sel.EditionID); edition == nil {
			return nil, nil, nil, ErrEditionNotFound
		}
	}

	var dlc *catalog.DLC
	if !sel.DLCID.IsNil() {
		if dlc = game.FindDLC(sel.DLCID); dlc == nil {
			return nil, nil, nil, ErrDLCNotFound
		}
	}

	return game, edition, dlc, nil
}

func (e *Engine) resolveLine(ctx context.Context, item *cart.LineItem) (*catalog.Game, *catalog.Edition, *catalog.DLC, error) {
	return e.resolveSelection(ctx, cart.Selection{
		GameID:    item.GameID,
		EditionID: item.EditionID,
		DLCID:     item.DLCID,
	})
}

// priceLine prices one cart line against the catalog and the buyer's
// current ledger.
func (e *Engine) priceLine(ctx context.Context, entries []*purchase.Purchase, item *cart.LineItem) (types.Money, error) {
	game, edition, dlc, err := e.resolveLine(ctx, item)
	if err != nil {
		return types.Money{}, err
	}

	ownsBase := ownership.OwnsGame(entries, item.GameID)
	return pricing.Quote(game, edition, dlc, ownsBase), nil
}

// lineAvatars collects the bonus-content avatars a purchased line grants.
func lineAvatars(game *catalog.Game, edition *catalog.Edition, dlc *catalog.DLC) []string {
	avatars := append([]string(nil), game.Avatars...)
	if edition != nil {
		avatars = append(avatars, edition.Avatars...)
		for _, dlcID := range edition.IncludesDLC {
			if d := game.FindDLC(dlcID); d != nil {
				avatars = append(avatars, d.Avatars...)
			}
		}
	}
	if dlc != nil {
		avatars = append(avatars, dlc.Avatars...)
	}
	return avatars
}
