package audithook

// Action constants for audit events.
const (
	// Checkout actions
	ActionCheckoutCommitted = "checkout.committed"

	// Refund actions
	ActionRefundApproved = "refund.approved"
	ActionRefundRejected = "refund.rejected"

	// Achievement actions
	ActionAchievementGranted = "achievement.granted"

	// Ownership actions
	ActionOwnershipChecked = "ownership.checked"

	// Reconciliation actions
	ActionPaymentGap = "payment.gap"
)

// Resource constants for audit events.
const (
	ResourcePurchase    = "purchase"
	ResourceRefund      = "refund"
	ResourceAchievement = "achievement"
	ResourceOwnership   = "ownership"
	ResourcePayment     = "payment"
)

// Category constants for audit events.
const (
	CategoryCommerce    = "commerce"
	CategoryEntitlement = "entitlement"
	CategoryPayment     = "payment"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
