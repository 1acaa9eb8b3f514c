package extension

import (
	"time"

	storefront "github.com/xraph/storefront"
	"github.com/xraph/storefront/catalog"
	"github.com/xraph/storefront/gateway"
	"github.com/xraph/storefront/plugin"
	"github.com/xraph/storefront/store"
)

// Option configures the Storefront Forge extension.
type Option func(*Extension)

// WithStore sets the store for the storefront engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithCatalog sets the catalog the engine sells against.
func WithCatalog(c catalog.Store) Option {
	return func(e *Extension) {
		e.catalog = c
	}
}

// WithGateway sets the payment gateway.
func WithGateway(g gateway.Gateway) Option {
	return func(e *Extension) {
		e.gateway = g
	}
}

// WithEngineOption passes a storefront.Option through to the underlying engine.
func WithEngineOption(opt storefront.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers a storefront plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, storefront.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithOwnershipCacheTTL sets the ownership resolution cache duration.
func WithOwnershipCacheTTL(d time.Duration) Option {
	return func(e *Extension) { e.config.OwnershipCacheTTL = d }
}

// WithReconcileInterval sets the reconciliation worker cadence.
func WithReconcileInterval(d time.Duration) Option {
	return func(e *Extension) { e.config.ReconcileInterval = d }
}

// WithReconcileLookback sets how far back each reconciliation pass looks.
func WithReconcileLookback(d time.Duration) Option {
	return func(e *Extension) { e.config.ReconcileLookback = d }
}

// WithRevokeAchievementsOnRefund makes approved refunds revoke earned
// achievements whose conditions no longer hold.
func WithRevokeAchievementsOnRefund() Option {
	return func(e *Extension) { e.config.RevokeAchievementsOnRefund = true }
}
