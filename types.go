package studentgate

import (
	"context"
	"time"
)

// EnrollmentRecord is a single (identifier, secret) pair from the static
// enrollment source. Records are immutable after roster load.
type EnrollmentRecord struct {
	Identifier string `json:"identifier"`
	Secret     string `json:"secret"`
}

// ProfileDocument is the provider-side profile stored alongside a remote
// account. The engine only reads and writes it through [IdentityProvider];
// it never keeps a mutable local copy.
type ProfileDocument struct {
	Identifier            string    `json:"identifier"`
	DisplayLabel          string    `json:"display_label"`
	CreatedAt             time.Time `json:"created_at"`
	LastLoginAt           time.Time `json:"last_login_at"`
	IsActive              bool      `json:"is_active"`
	ProvisionedFromRoster bool      `json:"provisioned_from_roster"`
}

// IdentityProvider is the boundary to the remote account and profile store.
// Implementations must classify their failures with the provider error
// sentinels (ErrProviderAccountNotFound, ErrProviderWrongSecret,
// ErrProviderRateLimited, ErrProviderMisconfigured) so the engine can map
// them into its public taxonomy; any unclassified error is treated as
// transient provider unavailability.
type IdentityProvider interface {
	// CreateAccount provisions a remote account for the derived login key
	// and returns its provider-assigned account ID. The login key must be
	// unique: a second CreateAccount for the same key fails with
	// ErrProviderAccountExists, atomically.
	CreateAccount(ctx context.Context, loginKey, secret string) (string, error)
	// SignIn authenticates against an existing remote account.
	SignIn(ctx context.Context, loginKey, secret string) (string, error)
	// SignOut ends the provider-side session, if any.
	SignOut(ctx context.Context) error
	GetProfile(ctx context.Context, accountID string) (*ProfileDocument, error)
	PutProfile(ctx context.Context, accountID string, doc ProfileDocument) error
	// SubscribeAuthState registers a callback invoked with the current
	// account ID on provider-side sign-in ("" on sign-out). The returned
	// disposer removes the subscription.
	SubscribeAuthState(cb func(accountID string)) (unsubscribe func())
}

// RiskLevel classifies a login attempt's device-risk assessment.
type RiskLevel uint8

const (
	// RiskLow is the default assessment.
	RiskLow RiskLevel = iota
	// RiskMedium flags a login from a device not seen before.
	RiskMedium
	// RiskHigh flags unusually frequent activity suggestive of
	// credential sharing.
	RiskHigh
)

// String describes the risk level for audit records and logs.
func (l RiskLevel) String() string {
	switch l {
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	default:
		return "low"
	}
}

// RiskAssessment is the advisory outcome of the device risk check that runs
// alongside every login attempt. It never blocks authentication.
type RiskAssessment struct {
	Suspicious bool
	Level      RiskLevel
	Reason     string
}

// AttemptStatus is returned by the access guard's check. When Allowed is
// false, LockedUntil carries the end of the active lockout window.
type AttemptStatus struct {
	Allowed           bool
	RemainingAttempts int
	LockedUntil       time.Time
}

// LoginResult is returned by [Engine.LoginWithResult]. Migrated reports
// whether this call took the one-time provisioning path.
type LoginResult struct {
	AccountID string
	Migrated  bool
	Risk      RiskAssessment
}

// MigrationReport summarizes a bulk roster migration run.
type MigrationReport struct {
	Migrated        int
	AlreadyMigrated int
	Failed          int
	Errors          []string
}
