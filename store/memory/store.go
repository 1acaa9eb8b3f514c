// Package memory provides an in-memory store implementation, used in
// tests and for local development. All state lives behind one RWMutex, so
// the two Commit methods are trivially atomic.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/xraph/storefront"
	"github.com/xraph/storefront/achievement"
	"github.com/xraph/storefront/cart"
	"github.com/xraph/storefront/id"
	"github.com/xraph/storefront/player"
	"github.com/xraph/storefront/purchase"
	"github.com/xraph/storefront/refund"
	"github.com/xraph/storefront/store"
)

type Store struct {
	mu sync.RWMutex

	// Cart storage, keyed by user
	cartItems map[string][]*cart.LineItem

	// Purchase ledger
	purchases   map[string]*purchase.Purchase
	byUser      map[string][]*purchase.Purchase
	paymentRefs map[string]bool

	// Refund requests
	refunds          map[string]*refund.Request
	refundByPurchase map[string]*refund.Request

	// Player state
	profiles    map[string]*player.Profile
	libraries   map[string][]id.GameID
	wishlists   map[string][]id.GameID
	inventories map[string]*player.Inventory

	// Achievements, keyed by user then condition key
	achievements map[string]map[string]*achievement.UserAchievement

	// Ownership cache
	ownershipCache map[string]bool
	cacheExpiry    map[string]time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		cartItems:        make(map[string][]*cart.LineItem),
		purchases:        make(map[string]*purchase.Purchase),
		byUser:           make(map[string][]*purchase.Purchase),
		paymentRefs:      make(map[string]bool),
		refunds:          make(map[string]*refund.Request),
		refundByPurchase: make(map[string]*refund.Request),
		profiles:         make(map[string]*player.Profile),
		libraries:        make(map[string][]id.GameID),
		wishlists:        make(map[string][]id.GameID),
		inventories:      make(map[string]*player.Inventory),
		achievements:     make(map[string]map[string]*achievement.UserAchievement),
		ownershipCache:   make(map[string]bool),
		cacheExpiry:      make(map[string]time.Time),
	}
}

// Cart Store implementation

func (s *Store) CartItems(_ context.Context, userID string) ([]*cart.LineItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.cartItems[userID]
	result := make([]*cart.LineItem, len(items))
	copy(result, items)
	return result, nil
}

func (s *Store) AddCartItems(_ context.Context, userID string, items []*cart.LineItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cartItems[userID] = append(s.cartItems[userID], items...)
	return nil
}

func (s *Store) RemoveCartItem(_ context.Context, userID string, itemID id.LineItemID) (*cart.LineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.cartItems[userID]
	for i, item := range items {
		if item.ID.Equal(itemID) {
			s.cartItems[userID] = append(items[:i:i], items[i+1:]...)
			return item, nil
		}
	}
	return nil, storefront.ErrItemNotFound
}

func (s *Store) ClearCart(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.cartItems, userID)
	return nil
}

// Purchase ledger implementation

func (s *Store) ListPurchases(_ context.Context, userID string) ([]*purchase.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.byUser[userID]
	result := make([]*purchase.Purchase, len(entries))
	copy(result, entries)
	return result, nil
}

func (s *Store) GetPurchase(_ context.Context, purchaseID id.PurchaseID) (*purchase.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.purchases[purchaseID.String()]; ok {
		return p, nil
	}
	return nil, storefront.ErrPurchaseNotFound
}

func (s *Store) HasPaymentRef(_ context.Context, paymentRef string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paymentRefs[paymentRef], nil
}

// CommitCheckout applies the whole unit of work under one lock. The
// duplicate-entitlement guard runs first so a rejected commit changes
// nothing.
func (s *Store) CommitCheckout(_ context.Context, c *purchase.Commit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range c.Entries {
		for _, existing := range s.byUser[c.UserID] {
			if existing.Refunded() {
				continue
			}
			if existing.GameID.Equal(entry.GameID) &&
				existing.EditionID.Equal(entry.EditionID) &&
				existing.DLCID.Equal(entry.DLCID) {
				return storefront.ErrAlreadyOwned
			}
		}
	}

	for _, entry := range c.Entries {
		s.purchases[entry.ID.String()] = entry
		s.byUser[c.UserID] = append(s.byUser[c.UserID], entry)
		if entry.PaymentRef != "" {
			s.paymentRefs[entry.PaymentRef] = true
		}
	}

	for _, gameID := range c.LibraryAdd {
		if !player.ContainsGame(s.libraries[c.UserID], gameID) {
			s.libraries[c.UserID] = append(s.libraries[c.UserID], gameID)
		}
	}
	for _, gameID := range c.WishlistRemove {
		s.wishlists[c.UserID] = removeGame(s.wishlists[c.UserID], gameID)
	}
	if len(c.AvatarGrant) > 0 {
		inv := s.inventory(c.UserID)
		for _, avatarID := range c.AvatarGrant {
			if !inv.HasAvatar(avatarID) {
				inv.Avatars = append(inv.Avatars, avatarID)
			}
		}
	}
	if c.ClearCart {
		delete(s.cartItems, c.UserID)
	}

	return nil
}

// Refund Store implementation

func (s *Store) CreateRefund(_ context.Context, r *refund.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.refundByPurchase[r.PurchaseID.String()]; exists {
		return storefront.ErrRefundRequested
	}
	s.refunds[r.ID.String()] = r
	s.refundByPurchase[r.PurchaseID.String()] = r
	return nil
}

func (s *Store) GetRefund(_ context.Context, requestID id.RefundID) (*refund.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if r, ok := s.refunds[requestID.String()]; ok {
		return r, nil
	}
	return nil, storefront.ErrRefundNotFound
}

func (s *Store) GetRefundByPurchase(_ context.Context, purchaseID id.PurchaseID) (*refund.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if r, ok := s.refundByPurchase[purchaseID.String()]; ok {
		return r, nil
	}
	return nil, storefront.ErrRefundNotFound
}

func (s *Store) ListRefunds(_ context.Context, status refund.Status) ([]*refund.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*refund.Request, 0)
	for _, r := range s.refunds {
		if status == "" || r.Status == status {
			result = append(result, r)
		}
	}
	return result, nil
}

// CommitDecision resolves a pending request and, on approval, applies the
// full entitlement reversal under the same lock.
func (s *Store) CommitDecision(_ context.Context, c *refund.Commit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.refunds[c.RequestID.String()]
	if !ok {
		return storefront.ErrRefundNotFound
	}
	if req.Resolved() {
		return storefront.ErrRefundResolved
	}

	now := time.Now()
	req.Note = c.Note
	req.DecidedAt = &now
	req.Touch()

	if c.Decision == refund.DecisionReject {
		req.Status = refund.StatusRejected
		return nil
	}
	req.Status = refund.StatusApproved

	if p, ok := s.purchases[c.PurchaseID.String()]; ok {
		p.RefundedAt = &now
		p.Touch()
	}
	for _, gameID := range c.LibraryRemove {
		s.libraries[c.UserID] = removeGame(s.libraries[c.UserID], gameID)
	}
	if c.RewriteInventory {
		inv := s.inventory(c.UserID)
		inv.Avatars = append([]string(nil), c.InventoryAvatars...)
	}
	for _, key := range c.RevokeAchievements {
		if earned, ok := s.achievements[c.UserID]; ok {
			delete(earned, key)
		}
	}

	return nil
}

// Player Store implementation

func (s *Store) GetProfile(_ context.Context, userID string) (*player.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.profiles[userID]; ok {
		return p, nil
	}
	return nil, storefront.ErrNotFound
}

func (s *Store) PutProfile(_ context.Context, p *player.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiles[p.UserID] = p
	return nil
}

func (s *Store) Library(_ context.Context, userID string) ([]id.GameID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]id.GameID, len(s.libraries[userID]))
	copy(result, s.libraries[userID])
	return result, nil
}

func (s *Store) Wishlist(_ context.Context, userID string) ([]id.GameID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]id.GameID, len(s.wishlists[userID]))
	copy(result, s.wishlists[userID])
	return result, nil
}

func (s *Store) AddWishlist(_ context.Context, userID string, gameID id.GameID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !player.ContainsGame(s.wishlists[userID], gameID) {
		s.wishlists[userID] = append(s.wishlists[userID], gameID)
	}
	return nil
}

func (s *Store) RemoveWishlist(_ context.Context, userID string, gameID id.GameID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.wishlists[userID] = removeGame(s.wishlists[userID], gameID)
	return nil
}

func (s *Store) Inventory(_ context.Context, userID string) (*player.Inventory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv := &player.Inventory{}
	if stored, ok := s.inventories[userID]; ok {
		inv.Avatars = append(inv.Avatars, stored.Avatars...)
		inv.Badges = append(inv.Badges, stored.Badges...)
	}
	return inv, nil
}

func (s *Store) GrantBadge(_ context.Context, userID string, badgeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv := s.inventory(userID)
	if !inv.HasBadge(badgeID) {
		inv.Badges = append(inv.Badges, badgeID)
	}
	return nil
}

// Achievement Store implementation

func (s *Store) ListAchievements(_ context.Context, userID string) ([]*achievement.UserAchievement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*achievement.UserAchievement, 0, len(s.achievements[userID]))
	for _, ua := range s.achievements[userID] {
		result = append(result, ua)
	}
	return result, nil
}

// GrantAchievement is idempotent: re-granting an earned key is a no-op.
func (s *Store) GrantAchievement(_ context.Context, ua *achievement.UserAchievement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	earned, ok := s.achievements[ua.UserID]
	if !ok {
		earned = make(map[string]*achievement.UserAchievement)
		s.achievements[ua.UserID] = earned
	}
	if _, exists := earned[ua.Key]; exists {
		return nil
	}
	earned[ua.Key] = ua
	return nil
}

func (s *Store) RevokeAchievements(_ context.Context, userID string, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	earned := s.achievements[userID]
	for _, key := range keys {
		delete(earned, key)
	}
	return nil
}

// Ownership cache implementation

func (s *Store) GetCachedOwnership(_ context.Context, userID, targetKey string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := userID + ":" + targetKey
	if expiry, ok := s.cacheExpiry[key]; !ok || time.Now().After(expiry) {
		return false, storefront.ErrCacheMiss
	}
	return s.ownershipCache[key], nil
}

func (s *Store) SetCachedOwnership(_ context.Context, userID, targetKey string, owned bool, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := userID + ":" + targetKey
	s.ownershipCache[key] = owned
	s.cacheExpiry[key] = time.Now().Add(ttl)
	return nil
}

func (s *Store) InvalidateOwnership(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := userID + ":"
	for key := range s.ownershipCache {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(s.ownershipCache, key)
			delete(s.cacheExpiry, key)
		}
	}
	return nil
}

// Core methods

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// inventory returns the stored inventory for the user, creating it if
// needed. Caller must hold the write lock.
func (s *Store) inventory(userID string) *player.Inventory {
	inv, ok := s.inventories[userID]
	if !ok {
		inv = &player.Inventory{}
		s.inventories[userID] = inv
	}
	return inv
}

func removeGame(games []id.GameID, gameID id.GameID) []id.GameID {
	result := games[:0]
	for _, g := range games {
		if !g.Equal(gameID) {
			result = append(result, g)
		}
	}
	return result
}
