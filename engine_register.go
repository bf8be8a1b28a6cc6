package studentgate

import (
	"context"
	"errors"
	"time"
)

// Register provisions a remote account through direct self-registration,
// outside the roster migration path. The resulting profile carries
// ProvisionedFromRoster=false; only the migration path ever sets it true.
// A duplicate derived account key is rejected with [ErrAccountExists].
func (e *Engine) Register(ctx context.Context, identifier, secret, displayLabel string) (string, error) {
	if e == nil || e.provider == nil {
		return "", ErrEngineNotReady
	}
	if identifier == "" || secret == "" {
		return "", ErrInvalidCredentials
	}

	lock := e.identifierLock(identifier)
	lock.Lock()
	defer lock.Unlock()

	loginKey := deriveLoginKey(identifier, e.config.Provider.LoginKeyDomain)

	accountID, err := e.provider.CreateAccount(ctx, loginKey, secret)
	if err != nil {
		if errors.Is(err, ErrProviderAccountExists) {
			e.metricInc(MetricRegistrationDuplicate)
			e.emitAudit(ctx, auditEventRegistrationFailure, false, identifier, "", ErrAccountExists, nil)
			return "", ErrAccountExists
		}

		classified := e.classifyProviderError(err)
		e.emitAudit(ctx, auditEventRegistrationFailure, false, identifier, "", classified, nil)
		return "", classified
	}

	if displayLabel == "" {
		displayLabel = identifier
	}

	now := time.Now().UTC()
	doc := ProfileDocument{
		Identifier:            identifier,
		DisplayLabel:          displayLabel,
		CreatedAt:             now,
		LastLoginAt:           now,
		IsActive:              true,
		ProvisionedFromRoster: false,
	}
	if err := e.provider.PutProfile(ctx, accountID, doc); err != nil {
		return "", e.classifyProviderError(err)
	}

	e.metricInc(MetricRegistrationSuccess)
	e.emitAudit(ctx, auditEventRegistrationSuccess, true, identifier, accountID, nil, nil)
	return accountID, nil
}
