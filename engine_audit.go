package studentgate

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventLoginSuccess        = "login_success"
	auditEventLoginFailure        = "login_failure"
	auditEventLoginLocked         = "login_locked"
	auditEventMigrationSuccess    = "migration_success"
	auditEventMigrationFailure    = "migration_failure"
	auditEventRiskFlagged         = "risk_flagged"
	auditEventRegistrationSuccess = "registration_success"
	auditEventRegistrationFailure = "registration_failure"
	auditEventLogout              = "logout"
	auditEventSessionExpired      = "session_expired"
	auditEventRosterMigrationRun  = "roster_migration_run"
)

// AuditErrorCode is the stable error label attached to audit events.
// Audit records carry codes, never raw error strings, so downstream
// pipelines are not coupled to message wording.
type AuditErrorCode string

const (
	auditErrInvalidCredentials    AuditErrorCode = "invalid_credentials"
	auditErrLocked                AuditErrorCode = "locked"
	auditErrProviderUnavailable   AuditErrorCode = "provider_unavailable"
	auditErrProviderMisconfigured AuditErrorCode = "provider_misconfigured"
	auditErrSessionExpired        AuditErrorCode = "session_expired"
	auditErrNotAuthenticated      AuditErrorCode = "not_authenticated"
	auditErrAccountExists         AuditErrorCode = "account_exists"
	auditErrGuardUnavailable      AuditErrorCode = "guard_unavailable"
	auditErrInternal              AuditErrorCode = "internal_error"
)

func auditErrorCode(err error) AuditErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrLocked):
		return auditErrLocked
	case errors.Is(err, ErrProviderUnavailable):
		return auditErrProviderUnavailable
	case errors.Is(err, ErrProviderMisconfigured):
		return auditErrProviderMisconfigured
	case errors.Is(err, ErrSessionExpired):
		return auditErrSessionExpired
	case errors.Is(err, ErrNotAuthenticated):
		return auditErrNotAuthenticated
	case errors.Is(err, ErrAccountExists):
		return auditErrAccountExists
	case errors.Is(err, ErrGuardUnavailable):
		return auditErrGuardUnavailable
	default:
		return auditErrInternal
	}
}

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	identifier string,
	accountID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp:  time.Now().UTC(),
		EventType:  eventType,
		Identifier: identifier,
		AccountID:  accountID,
		IP:         clientIPFromContext(ctx),
		Success:    success,
		Metadata:   metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRiskFlag(ctx context.Context, identifier string, risk RiskAssessment) {
	switch risk.Level {
	case RiskMedium:
		e.metricInc(MetricRiskFlaggedMedium)
	case RiskHigh:
		e.metricInc(MetricRiskFlaggedHigh)
	default:
		return
	}

	e.emitAudit(ctx, auditEventRiskFlagged, true, identifier, "", nil, func() map[string]string {
		return map[string]string{
			"risk_level": risk.Level.String(),
			"reason":     risk.Reason,
		}
	})
}
