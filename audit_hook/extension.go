// Package audithook bridges Storefront lifecycle events to an audit trail
// backend.
//
// It defines a local Recorder interface so the package does not depend on
// any particular audit system. Callers inject a RecorderFunc adapter that
// bridges to their backend at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/storefront/achievement"
	"github.com/xraph/storefront/gateway"
	"github.com/xraph/storefront/plugin"
	"github.com/xraph/storefront/purchase"
	"github.com/xraph/storefront/refund"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin               = (*Extension)(nil)
	_ plugin.OnCheckoutCommitted  = (*Extension)(nil)
	_ plugin.OnRefundResolved     = (*Extension)(nil)
	_ plugin.OnAchievementGranted = (*Extension)(nil)
	_ plugin.OnOwnershipChecked   = (*Extension)(nil)
	_ plugin.OnPaymentGapDetected = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement. It is
// defined locally so callers can inject any concrete audit system at
// wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges Storefront lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Checkout lifecycle hooks
// ──────────────────────────────────────────────────

// OnCheckoutCommitted implements plugin.OnCheckoutCommitted.
func (e *Extension) OnCheckoutCommitted(ctx context.Context, c *purchase.Commit) error {
	var total int64
	for _, entry := range c.Entries {
		total += entry.PricePaid.Amount
	}

	return e.record(ctx, ActionCheckoutCommitted, SeverityInfo, OutcomeSuccess,
		ResourcePurchase, "", CategoryCommerce, nil,
		"user_id", c.UserID,
		"entries", len(c.Entries),
		"total_amount", total,
	)
}

// ──────────────────────────────────────────────────
// Refund lifecycle hooks
// ──────────────────────────────────────────────────

// OnRefundResolved implements plugin.OnRefundResolved.
func (e *Extension) OnRefundResolved(ctx context.Context, r *refund.Request) error {
	action := ActionRefundApproved
	severity := SeverityWarning
	if r.Status == refund.StatusRejected {
		action = ActionRefundRejected
		severity = SeverityInfo
	}

	return e.record(ctx, action, severity, OutcomeSuccess,
		ResourceRefund, r.ID.String(), CategoryCommerce, nil,
		"user_id", r.UserID,
		"purchase_id", r.PurchaseID.String(),
	)
}

// ──────────────────────────────────────────────────
// Achievement lifecycle hooks
// ──────────────────────────────────────────────────

// OnAchievementGranted implements plugin.OnAchievementGranted.
func (e *Extension) OnAchievementGranted(ctx context.Context, ua *achievement.UserAchievement) error {
	return e.record(ctx, ActionAchievementGranted, SeverityInfo, OutcomeSuccess,
		ResourceAchievement, ua.Key, CategoryEntitlement, nil,
		"user_id", ua.UserID,
		"key", ua.Key,
		"badge_id", ua.BadgeID,
	)
}

// ──────────────────────────────────────────────────
// Ownership lifecycle hooks
// ──────────────────────────────────────────────────

// OnOwnershipChecked implements plugin.OnOwnershipChecked.
func (e *Extension) OnOwnershipChecked(_ context.Context, _, _ string, _, _ bool) error {
	// Ownership checks are high-volume reads; auditing each one is noise.
	return nil
}

// ──────────────────────────────────────────────────
// Reconciliation lifecycle hooks
// ──────────────────────────────────────────────────

// OnPaymentGapDetected implements plugin.OnPaymentGapDetected.
func (e *Extension) OnPaymentGapDetected(ctx context.Context, c gateway.Capture) error {
	return e.record(ctx, ActionPaymentGap, SeverityCritical, OutcomeFailure,
		ResourcePayment, c.Ref, CategoryPayment, nil,
		"ref", c.Ref,
		"amount", c.Amount.Amount,
		"captured_at", c.CapturedAt,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
