// Package achievement implements the rule-based achievement system
// evaluated after every entitlement-changing event.
package achievement

import (
	"time"

	"github.com/xraph/storefront/player"
	"github.com/xraph/storefront/purchase"
)

// Rule pairs a stable condition key with a pure predicate over a user
// snapshot. Rules carry no state: every evaluation re-derives from the
// snapshot, which keeps the pass idempotent and safely re-invocable from
// any trigger (post-checkout, cron sweep, backfill).
type Rule struct {
	// Key is the immutable condition identifier; UserAchievement
	// records are unique per (user, key).
	Key string

	// Name is the display title.
	Name string

	// BadgeID, when non-empty, is unioned into the user's inventory
	// when the achievement is granted.
	BadgeID string

	// Predicate reports whether the snapshot currently satisfies the
	// condition. Must be pure.
	Predicate func(s *Snapshot) bool
}

// Snapshot is the read-only state a rule evaluates over.
type Snapshot struct {
	Profile   *player.Profile
	Purchases []*purchase.Purchase
	Inventory *player.Inventory

	// Genres maps each purchased game id (string form) to its genre.
	Genres map[string]string
}

// UserAchievement records an earned achievement. Created at most once per
// (user, key); immutable once earned unless the refund-revocation policy
// is enabled.
type UserAchievement struct {
	UserID   string    `json:"user_id"`
	Key      string    `json:"key"`
	BadgeID  string    `json:"badge_id,omitempty"`
	EarnedAt time.Time `json:"earned_at"`
}

// Evaluate runs every rule against the snapshot and returns the keys of
// rules that are satisfied but not yet in earned. Granting is the
// caller's job; Evaluate itself never mutates anything.
func Evaluate(rules []Rule, s *Snapshot, earned map[string]bool) []Rule {
	var newly []Rule
	for _, r := range rules {
		if earned[r.Key] {
			continue
		}
		if r.Predicate(s) {
			newly = append(newly, r)
		}
	}
	return newly
}

// ActivePurchases filters out refunded entries.
func (s *Snapshot) ActivePurchases() []*purchase.Purchase {
	active := make([]*purchase.Purchase, 0, len(s.Purchases))
	for _, p := range s.Purchases {
		if !p.Refunded() {
			active = append(active, p)
		}
	}
	return active
}

// DistinctGames counts distinct games across active purchases.
func (s *Snapshot) DistinctGames() int {
	seen := make(map[string]struct{})
	for _, p := range s.ActivePurchases() {
		seen[p.GameID.String()] = struct{}{}
	}
	return len(seen)
}

// DistinctGenres counts distinct genres across active purchases.
func (s *Snapshot) DistinctGenres() int {
	seen := make(map[string]struct{})
	for _, p := range s.ActivePurchases() {
		if genre, ok := s.Genres[p.GameID.String()]; ok && genre != "" {
			seen[genre] = struct{}{}
		}
	}
	return len(seen)
}
