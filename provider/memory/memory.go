package memory

import (
	"context"
	"crypto/subtle"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/OyePriscilla/studentgate"
)

// Config tunes the in-memory provider.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	// TokenTTL is the lifetime of issued ID tokens. Token expiry is a
	// provider-side concern and is independent of the engine's session
	// timeout. Defaults to 1 hour.
	TokenTTL time.Duration

	// SigningKey is the HMAC key for issued ID tokens. Required.
	SigningKey []byte

	// Issuer is placed in the token's iss claim. Defaults to
	// "studentgate-memory".
	Issuer string
}

type account struct {
	secret    string
	accountID string
	profile   *studentgate.ProfileDocument
}

// Provider is a map-backed [studentgate.IdentityProvider].
//
// Provider instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Provider struct {
	cfg Config

	mu       sync.Mutex
	accounts map[string]*account // keyed by login key

	current      string // signed-in account ID, "" when signed out
	currentToken string

	subs    map[int]func(accountID string)
	nextSub int
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New(cfg Config) (*Provider, error) {
	if len(cfg.SigningKey) == 0 {
		return nil, fmt.Errorf("%w: signing key required", studentgate.ErrProviderMisconfigured)
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = time.Hour
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "studentgate-memory"
	}

	return &Provider{
		cfg:      cfg,
		accounts: make(map[string]*account),
		subs:     make(map[int]func(accountID string)),
	}, nil
}

// CreateAccount describes the createaccount operation and its observable behavior.
//
// CreateAccount may return an error when input validation, dependency calls, or security checks fail.
// CreateAccount does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *Provider) CreateAccount(ctx context.Context, loginKey, secret string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.accounts[loginKey]; exists {
		return "", studentgate.ErrProviderAccountExists
	}

	acct := &account{
		secret:    secret,
		accountID: uuid.NewString(),
	}
	p.accounts[loginKey] = acct

	return acct.accountID, nil
}

// SignIn describes the signin operation and its observable behavior.
//
// SignIn may return an error when input validation, dependency calls, or security checks fail.
// SignIn does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *Provider) SignIn(ctx context.Context, loginKey, secret string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	p.mu.Lock()

	acct, exists := p.accounts[loginKey]
	if !exists {
		p.mu.Unlock()
		return "", studentgate.ErrProviderAccountNotFound
	}
	if subtle.ConstantTimeCompare([]byte(acct.secret), []byte(secret)) != 1 {
		p.mu.Unlock()
		return "", studentgate.ErrProviderWrongSecret
	}

	token, err := p.issueToken(acct.accountID)
	if err != nil {
		p.mu.Unlock()
		return "", err
	}

	p.current = acct.accountID
	p.currentToken = token
	callbacks := p.snapshotSubsLocked()
	p.mu.Unlock()

	for _, cb := range callbacks {
		cb(acct.accountID)
	}

	return acct.accountID, nil
}

// SignOut describes the signout operation and its observable behavior.
//
// SignOut may return an error when input validation, dependency calls, or security checks fail.
// SignOut does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *Provider) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	p.current = ""
	p.currentToken = ""
	callbacks := p.snapshotSubsLocked()
	p.mu.Unlock()

	for _, cb := range callbacks {
		cb("")
	}

	return nil
}

// CurrentAccount returns the signed-in account ID after validating the
// stored ID token, or "" when signed out or when the token has expired.
// Token expiry here does not affect any engine-side session.
func (p *Provider) CurrentAccount() string {
	p.mu.Lock()
	token := p.currentToken
	current := p.current
	p.mu.Unlock()

	if token == "" {
		return ""
	}

	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.cfg.SigningKey, nil
	})
	if err != nil || !parsed.Valid {
		return ""
	}

	return current
}

// GetProfile describes the getprofile operation and its observable behavior.
//
// GetProfile may return an error when input validation, dependency calls, or security checks fail.
// GetProfile does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *Provider) GetProfile(ctx context.Context, accountID string) (*studentgate.ProfileDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, acct := range p.accounts {
		if acct.accountID == accountID {
			if acct.profile == nil {
				return nil, studentgate.ErrProfileNotFound
			}
			doc := *acct.profile
			return &doc, nil
		}
	}

	return nil, studentgate.ErrProfileNotFound
}

// PutProfile describes the putprofile operation and its observable behavior.
//
// PutProfile may return an error when input validation, dependency calls, or security checks fail.
// PutProfile does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *Provider) PutProfile(ctx context.Context, accountID string, doc studentgate.ProfileDocument) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, acct := range p.accounts {
		if acct.accountID == accountID {
			copied := doc
			acct.profile = &copied
			return nil
		}
	}

	return studentgate.ErrProviderAccountNotFound
}

// SubscribeAuthState describes the subscribeauthstate operation and its observable behavior.
//
// SubscribeAuthState may return an error when input validation, dependency calls, or security checks fail.
// SubscribeAuthState does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *Provider) SubscribeAuthState(cb func(accountID string)) (unsubscribe func()) {
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = cb
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

func (p *Provider) issueToken(accountID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    p.cfg.Issuer,
		Subject:   accountID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(p.cfg.TokenTTL)),
		ID:        uuid.NewString(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.cfg.SigningKey)
	if err != nil {
		return "", fmt.Errorf("%w: token signing: %v", studentgate.ErrProviderMisconfigured, err)
	}
	return signed, nil
}

func (p *Provider) snapshotSubsLocked() []func(accountID string) {
	out := make([]func(accountID string), 0, len(p.subs))
	for _, cb := range p.subs {
		out = append(out, cb)
	}
	return out
}

var _ studentgate.IdentityProvider = (*Provider)(nil)
