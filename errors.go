package storefront

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound     = errors.New("storefront: not found")
	ErrInvalidInput = errors.New("storefront: invalid input")

	// Catalog errors
	ErrGameNotFound    = errors.New("storefront: game not found")
	ErrEditionNotFound = errors.New("storefront: edition not found")
	ErrDLCNotFound     = errors.New("storefront: dlc not found")

	// Cart errors
	ErrItemNotFound   = errors.New("storefront: cart item not found")
	ErrDuplicateItem  = errors.New("storefront: item already in cart")
	ErrAlreadyBundled = errors.New("storefront: dlc already bundled by an edition in cart")
	ErrEmptyCart      = errors.New("storefront: cart is empty")

	// Checkout errors
	ErrAlreadyOwned       = errors.New("storefront: already owned")
	ErrPaymentUnverified  = errors.New("storefront: payment not verified")
	ErrGatewayUnreachable = errors.New("storefront: payment gateway unreachable")

	// Refund errors
	ErrPurchaseNotFound = errors.New("storefront: purchase not found")
	ErrRefundNotFound   = errors.New("storefront: refund request not found")
	ErrRefundRequested  = errors.New("storefront: refund already requested for purchase")
	ErrRefundResolved   = errors.New("storefront: refund request already resolved")
	ErrPurchaseRefunded = errors.New("storefront: purchase already refunded")
	ErrInvalidDecision  = errors.New("storefront: invalid refund decision")

	// Store errors
	ErrStoreNotReady     = errors.New("storefront: store not ready")
	ErrStoreClosed       = errors.New("storefront: store is closed")
	ErrTransactionFailed = errors.New("storefront: transaction failed")
	ErrMigrationFailed   = errors.New("storefront: migration failed")

	// Cache errors
	ErrCacheMiss       = errors.New("storefront: cache miss")
	ErrCacheInvalidate = errors.New("storefront: cache invalidation failed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("storefront: validation failed for %s: %s", e.Field, e.Message)
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrGameNotFound) ||
		errors.Is(err, ErrEditionNotFound) ||
		errors.Is(err, ErrDLCNotFound) ||
		errors.Is(err, ErrItemNotFound) ||
		errors.Is(err, ErrPurchaseNotFound) ||
		errors.Is(err, ErrRefundNotFound)
}

// IsConflict returns true for rejections that leave no partial state:
// duplicate cart lines, double-purchases, double refund requests.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateItem) ||
		errors.Is(err, ErrAlreadyBundled) ||
		errors.Is(err, ErrAlreadyOwned) ||
		errors.Is(err, ErrRefundRequested) ||
		errors.Is(err, ErrRefundResolved) ||
		errors.Is(err, ErrPurchaseRefunded)
}

// IsRetryable returns true if the error is temporary and the operation can
// be retried. Payment failures are deliberately excluded: a failed
// confirmation must not be retried with the same reference without
// re-verifying gateway state.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrTransactionFailed) ||
		errors.Is(err, ErrCacheInvalidate)
}
