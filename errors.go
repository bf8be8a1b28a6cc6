package studentgate

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidCredentials is returned for roster mismatches and for remote
	// secret mismatches alike. The two cases are intentionally indistinguishable
	// to callers so identifiers cannot be enumerated.
	ErrInvalidCredentials = errors.New("invalid identifier or secret")
	// ErrLocked is returned while an identifier is under guard lockout.
	// Use errors.As with [LockoutError] to read the remaining wait.
	ErrLocked = errors.New("too many failed attempts")
	// ErrProviderUnavailable indicates a transient identity provider failure.
	// Retryable; a ProviderUnavailable login never charges the attempt counter.
	ErrProviderUnavailable = errors.New("identity provider unavailable")
	// ErrProviderMisconfigured indicates a fatal provider configuration
	// problem. Not retryable by the end user.
	ErrProviderMisconfigured = errors.New("identity provider misconfigured")
	// ErrSessionExpired indicates the local session outlived the configured
	// timeout; the caller must re-authenticate.
	ErrSessionExpired = errors.New("session expired")
	// ErrNotAuthenticated indicates no session has been started at all.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrAccountExists is returned by registration when the derived account
	// key already has a remote account.
	ErrAccountExists = errors.New("account already exists")
	// ErrGuardUnavailable indicates the attempt-tracking backend is
	// unreachable. Retryable; the attempt is not charged.
	ErrGuardUnavailable = errors.New("access guard backend unavailable")
	// ErrEngineNotReady is returned when the engine is used before Build
	// wired its collaborators.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// Sentinels that IdentityProvider implementations must return (possibly
// wrapped) so the engine can classify failures. They never surface to
// Engine callers directly.
var (
	// ErrProviderAccountNotFound means no remote account exists for the
	// derived login key. This is the only error class that triggers the
	// one-time provisioning path.
	ErrProviderAccountNotFound = errors.New("provider: account not found")
	// ErrProviderWrongSecret means the remote account exists but the secret
	// does not match — the roster and the remote store have diverged.
	ErrProviderWrongSecret = errors.New("provider: wrong secret")
	// ErrProviderRateLimited means the provider throttled the call.
	ErrProviderRateLimited = errors.New("provider: rate limited")
	// ErrProviderAccountExists is returned by CreateAccount for a login key
	// that is already provisioned.
	ErrProviderAccountExists = errors.New("provider: account exists")
	// ErrProfileNotFound is returned by GetProfile for an unknown account.
	ErrProfileNotFound = errors.New("provider: profile not found")
)

// LockoutError wraps [ErrLocked] and carries when the lockout lifts.
type LockoutError struct {
	Until time.Time
}

func (e *LockoutError) Error() string {
	return fmt.Sprintf("too many failed attempts, locked until %s", e.Until.UTC().Format(time.RFC3339))
}

// Unwrap makes errors.Is(err, ErrLocked) hold for every lockout error.
func (e *LockoutError) Unwrap() error {
	return ErrLocked
}

// Remaining returns the lockout time left relative to now, floored at zero.
func (e *LockoutError) Remaining(now time.Time) time.Duration {
	if d := e.Until.Sub(now); d > 0 {
		return d
	}
	return 0
}
