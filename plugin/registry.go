package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/storefront/achievement"
	"github.com/xraph/storefront/gateway"
	"github.com/xraph/storefront/purchase"
	"github.com/xraph/storefront/refund"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit               []OnInit
	onShutdown           []OnShutdown
	onCheckoutCommitted  []OnCheckoutCommitted
	onRefundResolved     []OnRefundResolved
	onAchievementGranted []OnAchievementGranted
	onOwnershipChecked   []OnOwnershipChecked
	onPaymentGapDetected []OnPaymentGapDetected
	notifiers            []Notifier
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnCheckoutCommitted); ok {
		r.onCheckoutCommitted = append(r.onCheckoutCommitted, v)
	}
	if v, ok := p.(OnRefundResolved); ok {
		r.onRefundResolved = append(r.onRefundResolved, v)
	}
	if v, ok := p.(OnAchievementGranted); ok {
		r.onAchievementGranted = append(r.onAchievementGranted, v)
	}
	if v, ok := p.(OnOwnershipChecked); ok {
		r.onOwnershipChecked = append(r.onOwnershipChecked, v)
	}
	if v, ok := p.(OnPaymentGapDetected); ok {
		r.onPaymentGapDetected = append(r.onPaymentGapDetected, v)
	}
	if v, ok := p.(Notifier); ok {
		r.notifiers = append(r.notifiers, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnCheckoutCommitted)(nil)).Elem(), "OnCheckoutCommitted")
	checkInterface(reflect.TypeOf((*OnRefundResolved)(nil)).Elem(), "OnRefundResolved")
	checkInterface(reflect.TypeOf((*OnAchievementGranted)(nil)).Elem(), "OnAchievementGranted")
	checkInterface(reflect.TypeOf((*OnOwnershipChecked)(nil)).Elem(), "OnOwnershipChecked")
	checkInterface(reflect.TypeOf((*OnPaymentGapDetected)(nil)).Elem(), "OnPaymentGapDetected")
	checkInterface(reflect.TypeOf((*Notifier)(nil)).Elem(), "Notifier")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, engine)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitCheckoutCommitted emits a checkout committed event.
func (r *Registry) EmitCheckoutCommitted(ctx context.Context, c *purchase.Commit) {
	r.mu.RLock()
	plugins := r.onCheckoutCommitted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnCheckoutCommitted(ctx, c)
		}); err != nil {
			r.logger.Warn("plugin OnCheckoutCommitted failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitRefundResolved emits a refund resolved event.
func (r *Registry) EmitRefundResolved(ctx context.Context, req *refund.Request) {
	r.mu.RLock()
	plugins := r.onRefundResolved
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnRefundResolved(ctx, req)
		}); err != nil {
			r.logger.Warn("plugin OnRefundResolved failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitAchievementGranted emits an achievement granted event.
func (r *Registry) EmitAchievementGranted(ctx context.Context, ua *achievement.UserAchievement) {
	r.mu.RLock()
	plugins := r.onAchievementGranted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnAchievementGranted(ctx, ua)
		}); err != nil {
			r.logger.Warn("plugin OnAchievementGranted failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitOwnershipChecked emits an ownership checked event.
func (r *Registry) EmitOwnershipChecked(ctx context.Context, userID, targetKey string, owned, cached bool) {
	r.mu.RLock()
	plugins := r.onOwnershipChecked
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnOwnershipChecked(ctx, userID, targetKey, owned, cached)
		}); err != nil {
			r.logger.Warn("plugin OnOwnershipChecked failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPaymentGapDetected emits a payment gap detected event.
func (r *Registry) EmitPaymentGapDetected(ctx context.Context, c gateway.Capture) {
	r.mu.RLock()
	plugins := r.onPaymentGapDetected
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPaymentGapDetected(ctx, c)
		}); err != nil {
			r.logger.Warn("plugin OnPaymentGapDetected failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// SendPurchaseReceipts delivers receipts through every registered notifier.
func (r *Registry) SendPurchaseReceipts(ctx context.Context, userID string, entries []*purchase.Purchase) {
	r.mu.RLock()
	plugins := r.notifiers
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.SendPurchaseReceipt(ctx, userID, entries)
		}); err != nil {
			r.logger.Warn("plugin SendPurchaseReceipt failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// SendRefundNotices delivers refund notices through every registered notifier.
func (r *Registry) SendRefundNotices(ctx context.Context, userID string, req *refund.Request) {
	r.mu.RLock()
	plugins := r.notifiers
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.SendRefundNotice(ctx, userID, req)
		}); err != nil {
			r.logger.Warn("plugin SendRefundNotice failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the commerce pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
