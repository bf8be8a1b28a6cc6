package studentgate

import (
	"errors"

	"github.com/OyePriscilla/studentgate/fingerprint"
	"github.com/redis/go-redis/v9"
)

// Builder defines a public type used by studentgate APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	roster   *Roster
	provider IdentityProvider

	fingerprintSource fingerprint.Source
	auditSink         AuditSink

	built bool
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig may return an error when input validation, dependency calls, or security checks fail.
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// WithRedis may return an error when input validation, dependency calls, or security checks fail.
// WithRedis does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithRoster describes the withroster operation and its observable behavior.
//
// WithRoster may return an error when input validation, dependency calls, or security checks fail.
// WithRoster does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRoster(r *Roster) *Builder {
	b.roster = r
	return b
}

// WithIdentityProvider describes the withidentityprovider operation and its observable behavior.
//
// WithIdentityProvider may return an error when input validation, dependency calls, or security checks fail.
// WithIdentityProvider does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithIdentityProvider(p IdentityProvider) *Builder {
	b.provider = p
	return b
}

// WithFingerprintSource describes the withfingerprintsource operation and its observable behavior.
//
// WithFingerprintSource may return an error when input validation, dependency calls, or security checks fail.
// WithFingerprintSource does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithFingerprintSource(src fingerprint.Source) *Builder {
	b.fingerprintSource = src
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink may return an error when input validation, dependency calls, or security checks fail.
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled may return an error when input validation, dependency calls, or security checks fail.
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
//
// WithLatencyHistograms may return an error when input validation, dependency calls, or security checks fail.
// WithLatencyHistograms does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.roster == nil || b.roster.Len() == 0 {
		return nil, errors.New("roster must be provided and non-empty")
	}

	if b.provider == nil {
		return nil, errors.New("identity provider required")
	}

	engine := &Engine{
		config:   cloneConfig(cfg),
		roster:   b.roster,
		provider: b.provider,
		subs:     make(map[int]func(accountID string)),
	}

	engine.guard = newAccessGuard(b.redis, cfg.Guard)
	if cfg.Risk.Enabled {
		engine.risk = newRiskAssessor(b.redis, cfg.Risk)
	}
	engine.sessions = newSessionManager(cfg.Session)
	engine.fingerprint = b.fingerprintSource
	if engine.fingerprint == nil {
		engine.fingerprint = fingerprint.SystemSource{}
	}
	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return engine, nil
}
