package studentgate

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/OyePriscilla/studentgate/fingerprint"
)

// Login authenticates (identifier, secret) against the roster and the
// remote identity provider, lazily provisioning the remote account on first
// login. On success it starts the local session and returns the
// provider-assigned account ID.
//
// Login may return an error when input validation, dependency calls, or security checks fail.
// Login does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Login(ctx context.Context, identifier, secret string) (string, error) {
	result, err := e.LoginWithResult(ctx, identifier, secret)
	if err != nil {
		return "", err
	}
	if result == nil {
		return "", ErrEngineNotReady
	}
	return result.AccountID, nil
}

// LoginWithResult is Login plus the migration flag and the advisory risk
// assessment for this attempt.
func (e *Engine) LoginWithResult(ctx context.Context, identifier, secret string) (*LoginResult, error) {
	if e == nil || e.roster == nil || e.provider == nil || e.guard == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}

	if e.metrics != nil && e.metrics.LatencyEnabled() {
		start := time.Now()
		defer e.metrics.Observe(MetricLoginLatency, time.Since(start))
	}

	// Whole-attempt critical section per identifier: the guard's
	// check-then-record and the provisioning branch must not interleave
	// with a concurrent attempt for the same identifier (double-submit).
	lock := e.identifierLock(identifier)
	lock.Lock()
	defer lock.Unlock()

	// Risk assessment runs alongside every attempt, advisory only.
	risk := e.assessRisk(ctx, identifier)

	status, err := e.guard.CheckAllowed(ctx, identifier)
	if err != nil {
		e.emitAudit(ctx, auditEventLoginFailure, false, identifier, "", err, func() map[string]string {
			return map[string]string{"reason": "guard_unavailable"}
		})
		return nil, err
	}
	if !status.Allowed {
		e.metricInc(MetricLoginLocked)
		lockErr := &LockoutError{Until: status.LockedUntil}
		e.emitAudit(ctx, auditEventLoginLocked, false, identifier, "", lockErr, func() map[string]string {
			return map[string]string{
				"locked_until": status.LockedUntil.UTC().Format(time.RFC3339),
			}
		})
		return nil, lockErr
	}

	if !e.roster.Lookup(identifier, secret) {
		if err := e.guard.RecordFailure(ctx, identifier); err != nil {
			log.Print("studentgate: failure record write failed")
		}
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, identifier, "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"reason": "roster_mismatch"}
		})
		return nil, ErrInvalidCredentials
	}

	loginKey := deriveLoginKey(identifier, e.config.Provider.LoginKeyDomain)

	accountID, err := e.provider.SignIn(ctx, loginKey, secret)
	migrated := false
	if err != nil {
		switch {
		case errors.Is(err, ErrProviderAccountNotFound):
			// The remote account has never been created: take the
			// one-time provisioning path with the validated roster secret.
			accountID, err = e.provision(ctx, identifier, loginKey, secret)
			if err != nil {
				return nil, err
			}
			migrated = true

		case errors.Is(err, ErrProviderWrongSecret):
			// Remote account exists but the roster secret no longer
			// matches it: the two stores have diverged. Charged as a
			// failed attempt, surfaced generically.
			if recErr := e.guard.RecordFailure(ctx, identifier); recErr != nil {
				log.Print("studentgate: failure record write failed")
			}
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditEventLoginFailure, false, identifier, "", ErrInvalidCredentials, func() map[string]string {
				return map[string]string{"reason": "remote_secret_mismatch"}
			})
			return nil, ErrInvalidCredentials

		default:
			classified := e.classifyProviderError(err)
			if errors.Is(classified, ErrProviderUnavailable) {
				e.metricInc(MetricProviderUnavailable)
			}
			e.emitAudit(ctx, auditEventLoginFailure, false, identifier, "", classified, func() map[string]string {
				return map[string]string{"reason": "provider_error"}
			})
			return nil, classified
		}
	}

	if !migrated {
		e.touchLastLogin(ctx, accountID)
	}

	if err := e.guard.RecordSuccess(ctx, identifier); err != nil {
		// Best-effort: a stale attempt record must not fail a valid login.
		log.Print("studentgate: attempt record clear failed")
	}

	e.sessions.Start(identifier, accountID)
	e.metricInc(MetricSessionStarted)
	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, identifier, accountID, nil, func() map[string]string {
		return map[string]string{"migrated": boolLabel(migrated)}
	})
	e.notifyIdentity(accountID)

	return &LoginResult{AccountID: accountID, Migrated: migrated, Risk: risk}, nil
}

// provision creates the remote account exactly once for a roster-validated
// identifier. Infrastructure failures here are never charged against the
// attempt counter: the roster secret was valid.
func (e *Engine) provision(ctx context.Context, identifier, loginKey, secret string) (string, error) {
	accountID, err := e.provider.CreateAccount(ctx, loginKey, secret)
	if err != nil {
		if errors.Is(err, ErrProviderAccountExists) {
			// Lost a race outside this process, or sign-in raced a
			// concurrent provisioner. Resolve via sign-in; a mismatch
			// there is a genuine divergence.
			accountID, signInErr := e.provider.SignIn(ctx, loginKey, secret)
			if signInErr == nil {
				return accountID, nil
			}
			if errors.Is(signInErr, ErrProviderWrongSecret) {
				if recErr := e.guard.RecordFailure(ctx, identifier); recErr != nil {
					log.Print("studentgate: failure record write failed")
				}
				e.metricInc(MetricLoginFailure)
				e.emitAudit(ctx, auditEventLoginFailure, false, identifier, "", ErrInvalidCredentials, func() map[string]string {
					return map[string]string{"reason": "remote_secret_mismatch"}
				})
				return "", ErrInvalidCredentials
			}
			err = signInErr
		}

		classified := e.classifyProviderError(err)
		e.metricInc(MetricMigrationFailure)
		if errors.Is(classified, ErrProviderUnavailable) {
			e.metricInc(MetricProviderUnavailable)
		}
		e.emitAudit(ctx, auditEventMigrationFailure, false, identifier, "", classified, nil)
		return "", classified
	}

	now := time.Now().UTC()
	doc := ProfileDocument{
		Identifier:            identifier,
		DisplayLabel:          identifier,
		CreatedAt:             now,
		LastLoginAt:           now,
		IsActive:              true,
		ProvisionedFromRoster: true,
	}
	if err := e.provider.PutProfile(ctx, accountID, doc); err != nil {
		// Account exists, profile write did not land. The account is
		// still usable and the next login repairs nothing here; log and
		// proceed rather than stranding a half-migrated identity.
		log.Print("studentgate: profile write failed after provisioning")
	}

	e.metricInc(MetricMigrationSuccess)
	e.emitAudit(ctx, auditEventMigrationSuccess, true, identifier, accountID, nil, nil)
	return accountID, nil
}

// classifyProviderError maps provider failures into the public taxonomy.
// Raw provider errors never leak past this boundary.
func (e *Engine) classifyProviderError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrProviderMisconfigured):
		return ErrProviderMisconfigured
	case errors.Is(err, ErrProviderRateLimited):
		return ErrProviderUnavailable
	case errors.Is(err, ErrProfileNotFound):
		return ErrProviderUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		// Caller-imposed timeouts resolve to retryable, never to a
		// credential rejection.
		return ErrProviderUnavailable
	default:
		return ErrProviderUnavailable
	}
}

func (e *Engine) assessRisk(ctx context.Context, identifier string) RiskAssessment {
	if e.risk == nil || !e.config.Risk.Enabled {
		return RiskAssessment{Level: RiskLow}
	}

	src := e.fingerprint
	if src == nil {
		src = fingerprint.SystemSource{}
	}
	fp := fingerprint.Token(src.Signals(ctx))

	risk, err := e.risk.Assess(ctx, identifier, fp)
	if err != nil {
		// Advisory subsystem: degrade to low risk, never block login.
		log.Print("studentgate: device risk assessment unavailable")
		return RiskAssessment{Level: RiskLow}
	}

	if risk.Suspicious {
		e.emitRiskFlag(ctx, identifier, risk)
	}
	return risk
}

func (e *Engine) touchLastLogin(ctx context.Context, accountID string) {
	doc, err := e.provider.GetProfile(ctx, accountID)
	if err != nil {
		log.Print("studentgate: last-login profile read failed")
		return
	}

	doc.LastLoginAt = time.Now().UTC()
	if err := e.provider.PutProfile(ctx, accountID, *doc); err != nil {
		log.Print("studentgate: last-login profile write failed")
	}
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
