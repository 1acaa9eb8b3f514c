// Package plugin provides an extensible plugin system for the storefront
// engine. Plugins can hook into commerce lifecycle events to extend
// functionality.
package plugin

import (
	"context"

	"github.com/xraph/storefront/achievement"
	"github.com/xraph/storefront/gateway"
	"github.com/xraph/storefront/purchase"
	"github.com/xraph/storefront/refund"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized. The engine passes
// itself as an opaque value to avoid an import cycle.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Checkout hooks
// ──────────────────────────────────────────────────

// OnCheckoutCommitted is called after a checkout transaction commits.
// Hook failures are logged and never roll the checkout back.
type OnCheckoutCommitted interface {
	Plugin
	OnCheckoutCommitted(ctx context.Context, c *purchase.Commit) error
}

// ──────────────────────────────────────────────────
// Refund hooks
// ──────────────────────────────────────────────────

// OnRefundResolved is called after a refund request reaches a terminal
// state, for both approvals and rejections.
type OnRefundResolved interface {
	Plugin
	OnRefundResolved(ctx context.Context, r *refund.Request) error
}

// ──────────────────────────────────────────────────
// Achievement hooks
// ──────────────────────────────────────────────────

// OnAchievementGranted is called once per newly earned achievement.
type OnAchievementGranted interface {
	Plugin
	OnAchievementGranted(ctx context.Context, ua *achievement.UserAchievement) error
}

// ──────────────────────────────────────────────────
// Ownership hooks
// ──────────────────────────────────────────────────

// OnOwnershipChecked is called after an ownership resolution, with the
// cache-key form of the target and whether the answer came from cache.
type OnOwnershipChecked interface {
	Plugin
	OnOwnershipChecked(ctx context.Context, userID, targetKey string, owned, cached bool) error
}

// ──────────────────────────────────────────────────
// Reconciliation hooks
// ──────────────────────────────────────────────────

// OnPaymentGapDetected is called when the reconciliation worker finds a
// provider-side capture with no matching ledger entry.
type OnPaymentGapDetected interface {
	Plugin
	OnPaymentGapDetected(ctx context.Context, c gateway.Capture) error
}

// ──────────────────────────────────────────────────
// Notification providers
// ──────────────────────────────────────────────────

// Notifier delivers user-facing messages. Delivery is best-effort: the
// engine calls these after commit and only logs failures.
type Notifier interface {
	Plugin
	SendPurchaseReceipt(ctx context.Context, userID string, entries []*purchase.Purchase) error
	SendRefundNotice(ctx context.Context, userID string, r *refund.Request) error
}
