package store

import (
	"context"
	"time"

	"github.com/xraph/storefront/achievement"
	"github.com/xraph/storefront/cart"
	"github.com/xraph/storefront/id"
	"github.com/xraph/storefront/player"
	"github.com/xraph/storefront/purchase"
	"github.com/xraph/storefront/refund"
)

// Store is the unified storage interface for all storefront entities.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
//
// CommitCheckout and CommitDecision are the two transactional entry points:
// each applies its whole unit of work atomically or not at all.
type Store interface {
	// Cart methods
	CartItems(ctx context.Context, userID string) ([]*cart.LineItem, error)
	AddCartItems(ctx context.Context, userID string, items []*cart.LineItem) error
	RemoveCartItem(ctx context.Context, userID string, itemID id.LineItemID) (*cart.LineItem, error)
	ClearCart(ctx context.Context, userID string) error

	// Purchase ledger methods
	ListPurchases(ctx context.Context, userID string) ([]*purchase.Purchase, error)
	GetPurchase(ctx context.Context, purchaseID id.PurchaseID) (*purchase.Purchase, error)
	CommitCheckout(ctx context.Context, c *purchase.Commit) error
	HasPaymentRef(ctx context.Context, paymentRef string) (bool, error)

	// Refund methods
	CreateRefund(ctx context.Context, r *refund.Request) error
	GetRefund(ctx context.Context, requestID id.RefundID) (*refund.Request, error)
	GetRefundByPurchase(ctx context.Context, purchaseID id.PurchaseID) (*refund.Request, error)
	ListRefunds(ctx context.Context, status refund.Status) ([]*refund.Request, error)
	CommitDecision(ctx context.Context, c *refund.Commit) error

	// Player methods
	GetProfile(ctx context.Context, userID string) (*player.Profile, error)
	PutProfile(ctx context.Context, p *player.Profile) error
	Library(ctx context.Context, userID string) ([]id.GameID, error)
	Wishlist(ctx context.Context, userID string) ([]id.GameID, error)
	AddWishlist(ctx context.Context, userID string, gameID id.GameID) error
	RemoveWishlist(ctx context.Context, userID string, gameID id.GameID) error
	Inventory(ctx context.Context, userID string) (*player.Inventory, error)
	GrantBadge(ctx context.Context, userID string, badgeID string) error

	// Achievement methods
	ListAchievements(ctx context.Context, userID string) ([]*achievement.UserAchievement, error)
	GrantAchievement(ctx context.Context, ua *achievement.UserAchievement) error
	RevokeAchievements(ctx context.Context, userID string, keys []string) error

	// Ownership cache methods
	GetCachedOwnership(ctx context.Context, userID, targetKey string) (owned bool, err error)
	SetCachedOwnership(ctx context.Context, userID, targetKey string, owned bool, ttl time.Duration) error
	InvalidateOwnership(ctx context.Context, userID string) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
