// Package refund defines refund requests and the atomic unit of work that
// reverses a purchase's entitlement effects.
package refund

import (
	"time"

	"github.com/xraph/storefront/id"
	"github.com/xraph/storefront/types"
)

// Status is the review state of a refund request.
// PENDING → APPROVED | REJECTED; resolved states are terminal.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Decision is the reviewer's verdict on a pending request.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Request is a buyer's refund request against a single purchase. At most
// one request may exist per purchase.
type Request struct {
	types.Entity
	ID         id.RefundID   `json:"id"`
	UserID     string        `json:"user_id"`
	PurchaseID id.PurchaseID `json:"purchase_id"`
	Reason     string        `json:"reason,omitempty"`
	Status     Status        `json:"status"`
	Note       string        `json:"note,omitempty"`
	DecidedAt  *time.Time    `json:"decided_at,omitempty"`
}

// Resolved reports whether the request has reached a terminal state.
func (r *Request) Resolved() bool { return r.Status != StatusPending }

// Commit is the unit of work a refund review hands to the store. The
// status write, the purchase's refunded stamp, the library removal, and
// the inventory rewrite land in a single transaction.
//
// InventoryAvatars is the full recomputed avatar set for the user, derived
// from the purchases that remain after the refund. Installing the
// recomputed set (instead of subtracting this purchase's bonus items)
// keeps avatars that another retained purchase still justifies.
type Commit struct {
	RequestID  id.RefundID
	UserID     string
	PurchaseID id.PurchaseID
	Decision   Decision
	Note       string

	// Entitlement reversal; all empty/false on rejection.
	LibraryRemove      []id.GameID
	InventoryAvatars   []string
	RewriteInventory   bool
	RevokeAchievements []string
}
