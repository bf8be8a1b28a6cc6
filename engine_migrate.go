package studentgate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// MigrateRoster provisions remote accounts for every roster identifier ahead
// of first login, as an alternative to the lazy per-login path. Calls are
// throttled against the provider by the configured migration rate limit.
// Identifiers that already have a remote account are counted, not failed, so
// the operation is safe to re-run after a partial outage. The first context
// cancellation aborts the remaining work and is returned alongside the
// report for everything processed so far.
func (e *Engine) MigrateRoster(ctx context.Context) (MigrationReport, error) {
	report := MigrationReport{}

	if e == nil || e.provider == nil || e.roster == nil {
		return report, ErrEngineNotReady
	}

	limiter := rate.NewLimiter(rate.Limit(e.config.Migration.RatePerSecond), e.config.Migration.Burst)
	started := time.Now()

	for _, identifier := range e.roster.Identifiers() {
		if err := limiter.Wait(ctx); err != nil {
			e.emitRosterRun(ctx, report, started, err)
			return report, err
		}

		secret, ok := e.roster.secret(identifier)
		if !ok {
			continue
		}

		if err := e.migrateOne(ctx, identifier, secret, &report); err != nil && ctx.Err() != nil {
			e.emitRosterRun(ctx, report, started, ctx.Err())
			return report, ctx.Err()
		}
	}

	e.emitRosterRun(ctx, report, started, nil)
	return report, nil
}

func (e *Engine) migrateOne(ctx context.Context, identifier, secret string, report *MigrationReport) error {
	lock := e.identifierLock(identifier)
	lock.Lock()
	defer lock.Unlock()

	loginKey := deriveLoginKey(identifier, e.config.Provider.LoginKeyDomain)

	accountID, err := e.provider.CreateAccount(ctx, loginKey, secret)
	if err != nil {
		if errors.Is(err, ErrProviderAccountExists) {
			report.AlreadyMigrated++
			return nil
		}

		classified := e.classifyProviderError(err)
		report.Failed++
		report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", identifier, classified))
		e.metricInc(MetricMigrationFailure)
		if errors.Is(classified, ErrProviderUnavailable) {
			e.metricInc(MetricProviderUnavailable)
		}
		e.emitAudit(ctx, auditEventMigrationFailure, false, identifier, "", classified, nil)
		return classified
	}

	now := time.Now().UTC()
	doc := ProfileDocument{
		Identifier:            identifier,
		DisplayLabel:          identifier,
		CreatedAt:             now,
		LastLoginAt:           time.Time{},
		IsActive:              true,
		ProvisionedFromRoster: true,
	}
	if err := e.provider.PutProfile(ctx, accountID, doc); err != nil {
		// The account exists; a re-run lands in AlreadyMigrated and the
		// lazy path repairs the profile on first login.
		classified := e.classifyProviderError(err)
		report.Failed++
		report.Errors = append(report.Errors, fmt.Sprintf("%s: profile write: %v", identifier, classified))
		e.metricInc(MetricMigrationFailure)
		e.emitAudit(ctx, auditEventMigrationFailure, false, identifier, accountID, classified, nil)
		return classified
	}

	report.Migrated++
	e.metricInc(MetricMigrationSuccess)
	e.emitAudit(ctx, auditEventMigrationSuccess, true, identifier, accountID, nil, nil)
	return nil
}

func (e *Engine) emitRosterRun(ctx context.Context, report MigrationReport, started time.Time, runErr error) {
	e.metricInc(MetricRosterMigrationRun)
	e.emitAudit(ctx, auditEventRosterMigrationRun, runErr == nil, "", "", runErr, func() map[string]string {
		return map[string]string{
			"migrated":         strconv.Itoa(report.Migrated),
			"already_migrated": strconv.Itoa(report.AlreadyMigrated),
			"failed":           strconv.Itoa(report.Failed),
			"duration_ms":      strconv.FormatInt(time.Since(started).Milliseconds(), 10),
		}
	})
}
