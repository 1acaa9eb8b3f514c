package extension

import "time"

// Config holds the Storefront extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.storefront" or "storefront" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// OwnershipCacheTTL controls how long ownership resolution results are
	// cached before re-deriving them from the ledger (default: 30s).
	OwnershipCacheTTL time.Duration `json:"ownership_cache_ttl" mapstructure:"ownership_cache_ttl" yaml:"ownership_cache_ttl"`

	// ReconcileInterval is how often the reconciliation worker compares
	// gateway captures against the ledger (default: 5m).
	ReconcileInterval time.Duration `json:"reconcile_interval" mapstructure:"reconcile_interval" yaml:"reconcile_interval"`

	// ReconcileLookback is how far back each reconciliation pass looks
	// for captures (default: 1h).
	ReconcileLookback time.Duration `json:"reconcile_lookback" mapstructure:"reconcile_lookback" yaml:"reconcile_lookback"`

	// RevokeAchievementsOnRefund makes approved refunds revoke earned
	// achievements whose conditions no longer hold (default: false,
	// achievements are permanent).
	RevokeAchievementsOnRefund bool `json:"revoke_achievements_on_refund" mapstructure:"revoke_achievements_on_refund" yaml:"revoke_achievements_on_refund"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		OwnershipCacheTTL: 30 * time.Second,
		ReconcileInterval: 5 * time.Minute,
		ReconcileLookback: time.Hour,
	}
}
