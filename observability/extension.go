// Package observability provides a metrics extension for Storefront that
// records commerce event counts via a pluggable MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/storefront/achievement"
	"github.com/xraph/storefront/gateway"
	"github.com/xraph/storefront/plugin"
	"github.com/xraph/storefront/purchase"
	"github.com/xraph/storefront/refund"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin               = (*MetricsExtension)(nil)
	_ plugin.OnInit               = (*MetricsExtension)(nil)
	_ plugin.OnCheckoutCommitted  = (*MetricsExtension)(nil)
	_ plugin.OnRefundResolved     = (*MetricsExtension)(nil)
	_ plugin.OnAchievementGranted = (*MetricsExtension)(nil)
	_ plugin.OnOwnershipChecked   = (*MetricsExtension)(nil)
	_ plugin.OnPaymentGapDetected = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide commerce metrics. Register it as a
// Storefront plugin to automatically track store activity.
type MetricsExtension struct {
	factory MetricFactory

	// Checkout metrics
	CheckoutsCommitted Counter
	LedgerEntries      Counter
	CheckoutTotal      Histogram

	// Refund metrics
	RefundsApproved Counter
	RefundsRejected Counter

	// Achievement metrics
	AchievementsGranted Counter

	// Ownership metrics
	OwnershipChecks      Counter
	OwnershipCacheHits   Counter
	OwnershipCacheMisses Counter

	// Reconciliation metrics
	PaymentGaps Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Checkout metrics
		CheckoutsCommitted: factory.Counter("storefront.checkout.committed"),
		LedgerEntries:      factory.Counter("storefront.ledger.entries"),
		CheckoutTotal:      factory.Histogram("storefront.checkout.total_amount"),

		// Refund metrics
		RefundsApproved: factory.Counter("storefront.refund.approved"),
		RefundsRejected: factory.Counter("storefront.refund.rejected"),

		// Achievement metrics
		AchievementsGranted: factory.Counter("storefront.achievement.granted"),

		// Ownership metrics
		OwnershipChecks:      factory.Counter("storefront.ownership.checks"),
		OwnershipCacheHits:   factory.Counter("storefront.ownership.cache.hits"),
		OwnershipCacheMisses: factory.Counter("storefront.ownership.cache.misses"),

		// Reconciliation metrics
		PaymentGaps: factory.Counter("storefront.reconcile.payment_gaps"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// OnCheckoutCommitted implements plugin.OnCheckoutCommitted.
func (m *MetricsExtension) OnCheckoutCommitted(_ context.Context, c *purchase.Commit) error {
	m.CheckoutsCommitted.Inc()
	m.LedgerEntries.Add(float64(len(c.Entries)))

	var total int64
	for _, entry := range c.Entries {
		total += entry.PricePaid.Amount
	}
	m.CheckoutTotal.Observe(float64(total))
	return nil
}

// OnRefundResolved implements plugin.OnRefundResolved.
func (m *MetricsExtension) OnRefundResolved(_ context.Context, r *refund.Request) error {
	if r.Status == refund.StatusApproved {
		m.RefundsApproved.Inc()
	} else {
		m.RefundsRejected.Inc()
	}
	return nil
}

// OnAchievementGranted implements plugin.OnAchievementGranted.
func (m *MetricsExtension) OnAchievementGranted(_ context.Context, _ *achievement.UserAchievement) error {
	m.AchievementsGranted.Inc()
	return nil
}

// OnOwnershipChecked implements plugin.OnOwnershipChecked.
func (m *MetricsExtension) OnOwnershipChecked(_ context.Context, _, _ string, _, cached bool) error {
	m.OwnershipChecks.Inc()
	if cached {
		m.OwnershipCacheHits.Inc()
	} else {
		m.OwnershipCacheMisses.Inc()
	}
	return nil
}

// OnPaymentGapDetected implements plugin.OnPaymentGapDetected.
func (m *MetricsExtension) OnPaymentGapDetected(_ context.Context, _ gateway.Capture) error {
	m.PaymentGaps.Inc()
	return nil
}
