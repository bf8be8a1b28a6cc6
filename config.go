package studentgate

import (
	"errors"
	"time"
)

// Config defines the tunable behavior of the engine.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Guard     GuardConfig
	Session   SessionConfig
	Risk      RiskConfig
	Provider  ProviderConfig
	Migration MigrationConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
GUARD CONFIG
====================================
*/

// GuardConfig tunes the failed-attempt counters and lockout windows.
type GuardConfig struct {
	MaxAttempts     int
	LockoutDuration time.Duration
	RedisPrefix     string
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig tunes the local session, which is independent of the
// identity provider's own token lifetime.
type SessionConfig struct {
	Timeout time.Duration
}

// RiskConfig tunes the advisory device risk assessor.
type RiskConfig struct {
	Enabled             bool
	RapidLoginWindow    time.Duration
	HighVolumeThreshold int
	RedisPrefix         string
}

// ProviderConfig tunes how identifiers map onto provider-side login keys.
type ProviderConfig struct {
	// LoginKeyDomain is the fixed suffix appended to the normalized
	// identifier, e.g. "student.app" yields "s1001@student.app".
	LoginKeyDomain string
}

// MigrationConfig throttles bulk roster migration so the provider's own
// rate limits are not tripped.
type MigrationConfig struct {
	RatePerSecond float64
	Burst         int
}

// AuditConfig tunes the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig tunes the in-process metrics system.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		Guard: GuardConfig{
			MaxAttempts:     3,
			LockoutDuration: 15 * time.Minute,
			RedisPrefix:     "sg",
		},
		Session: SessionConfig{
			Timeout: 2 * time.Hour,
		},
		Risk: RiskConfig{
			Enabled:             true,
			RapidLoginWindow:    10 * time.Minute,
			HighVolumeThreshold: 10,
			RedisPrefix:         "sg",
		},
		Provider: ProviderConfig{
			LoginKeyDomain: "student.app",
		},
		Migration: MigrationConfig{
			RatePerSecond: 10,
			Burst:         1,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

// DefaultConfig returns the package defaults: 3 attempts, 15 minute lockout,
// 2 hour session timeout, risk assessment enabled.
func DefaultConfig() Config {
	return defaultConfig()
}

func cloneConfig(cfg Config) Config {
	return cfg
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks the configuration for values the engine cannot operate
// with. It is called by [Builder.Build]; callers normally do not need it.
func (c *Config) Validate() error {
	if c.Guard.MaxAttempts <= 0 {
		return errors.New("Guard.MaxAttempts must be positive")
	}
	if c.Guard.LockoutDuration <= 0 {
		return errors.New("Guard.LockoutDuration must be positive")
	}
	if c.Session.Timeout <= 0 {
		return errors.New("Session.Timeout must be positive")
	}
	if c.Risk.Enabled {
		if c.Risk.RapidLoginWindow <= 0 {
			return errors.New("Risk.RapidLoginWindow must be positive")
		}
		if c.Risk.HighVolumeThreshold <= 0 {
			return errors.New("Risk.HighVolumeThreshold must be positive")
		}
	}
	if c.Provider.LoginKeyDomain == "" {
		return errors.New("Provider.LoginKeyDomain must not be empty")
	}
	if c.Migration.RatePerSecond <= 0 {
		return errors.New("Migration.RatePerSecond must be positive")
	}
	if c.Migration.Burst <= 0 {
		return errors.New("Migration.Burst must be positive")
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit.BufferSize must be positive when audit is enabled")
	}
	return nil
}
