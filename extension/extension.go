// Package extension provides the Forge extension adapter for Storefront.
//
// It implements the forge.Extension interface to integrate the Storefront
// commerce engine into a Forge application with automatic dependency
// discovery, DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.storefront" or
// "storefront" keys.
package extension

import (
	"context"
	"errors"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	storefront "github.com/xraph/storefront"
	"github.com/xraph/storefront/catalog"
	"github.com/xraph/storefront/gateway"
	"github.com/xraph/storefront/gateway/gatewaytest"
	"github.com/xraph/storefront/store"
	"github.com/xraph/storefront/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "storefront"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Digital storefront commerce and entitlement engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Storefront as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *storefront.Engine
	store      store.Store
	catalog    catalog.Store
	gateway    gateway.Gateway
	engineOpts []storefront.Option
}

// New creates a new Storefront Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Storefront engine.
// This is nil until Register is called.
func (e *Extension) Engine() *storefront.Engine { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the storefront engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Fall back to in-process implementations when dependencies were not
	// provided programmatically. The fake gateway auto-verifies intents,
	// which is what local development wants.
	if e.store == nil {
		e.store = memory.New()
	}
	if e.catalog == nil {
		e.catalog = catalog.NewMapStore()
	}
	if e.gateway == nil {
		e.gateway = gatewaytest.New()
	}

	opts := e.buildEngineOpts()

	eng := storefront.New(e.store, e.catalog, e.gateway, opts...)
	e.engine = eng

	return vessel.Provide(fapp.Container(), func() (*storefront.Engine, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("storefront: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("storefront: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildEngineOpts constructs storefront.Option values from the resolved config.
func (e *Extension) buildEngineOpts() []storefront.Option {
	opts := make([]storefront.Option, 0, len(e.engineOpts)+3)

	if e.config.OwnershipCacheTTL > 0 {
		opts = append(opts, storefront.WithOwnershipCacheTTL(e.config.OwnershipCacheTTL))
	}

	if e.config.ReconcileInterval > 0 || e.config.ReconcileLookback > 0 {
		interval := e.config.ReconcileInterval
		lookback := e.config.ReconcileLookback
		defaults := DefaultConfig()
		if interval == 0 {
			interval = defaults.ReconcileInterval
		}
		if lookback == 0 {
			lookback = defaults.ReconcileLookback
		}
		opts = append(opts, storefront.WithReconcileInterval(interval, lookback))
	}

	if e.config.RevokeAchievementsOnRefund {
		opts = append(opts, storefront.WithRevokeAchievementsOnRefund())
	}

	// Append any pass-through engine options.
	opts = append(opts, e.engineOpts...)

	return opts
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("storefront: configuration is required but not found in config files; " +
				"ensure 'extensions.storefront' or 'storefront' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("storefront: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("ownership_cache_ttl", e.config.OwnershipCacheTTL),
		forge.F("reconcile_interval", e.config.ReconcileInterval),
		forge.F("reconcile_lookback", e.config.ReconcileLookback),
		forge.F("revoke_achievements_on_refund", e.config.RevokeAchievementsOnRefund),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.storefront" first (namespaced pattern).
	if cm.IsSet("extensions.storefront") {
		if err := cm.Bind("extensions.storefront", &cfg); err == nil {
			e.Logger().Debug("storefront: loaded config from file",
				forge.F("key", "extensions.storefront"),
			)
			return cfg, true
		}
		e.Logger().Warn("storefront: failed to bind extensions.storefront config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "storefront" key.
	if cm.IsSet("storefront") {
		if err := cm.Bind("storefront", &cfg); err == nil {
			e.Logger().Debug("storefront: loaded config from file",
				forge.F("key", "storefront"),
			)
			return cfg, true
		}
		e.Logger().Warn("storefront: failed to bind storefront config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.OwnershipCacheTTL == 0 {
		cfg.OwnershipCacheTTL = defaults.OwnershipCacheTTL
	}
	if cfg.ReconcileInterval == 0 {
		cfg.ReconcileInterval = defaults.ReconcileInterval
	}
	if cfg.ReconcileLookback == 0 {
		cfg.ReconcileLookback = defaults.ReconcileLookback
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.RevokeAchievementsOnRefund {
		yamlConfig.RevokeAchievementsOnRefund = true
	}

	// Duration fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.OwnershipCacheTTL == 0 && programmaticConfig.OwnershipCacheTTL != 0 {
		yamlConfig.OwnershipCacheTTL = programmaticConfig.OwnershipCacheTTL
	}
	if yamlConfig.ReconcileInterval == 0 && programmaticConfig.ReconcileInterval != 0 {
		yamlConfig.ReconcileInterval = programmaticConfig.ReconcileInterval
	}
	if yamlConfig.ReconcileLookback == 0 && programmaticConfig.ReconcileLookback != 0 {
		yamlConfig.ReconcileLookback = programmaticConfig.ReconcileLookback
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
