package studentgate

import (
	"context"
	"log"
	"sync"

	"github.com/OyePriscilla/studentgate/fingerprint"
)

// Engine is the authenticated login surface over the credential roster and
// the remote identity provider. Construct it through [Builder.Build].
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config      Config
	roster      *Roster
	provider    IdentityProvider
	guard       *accessGuard
	risk        *riskAssessor
	sessions    *sessionManager
	fingerprint fingerprint.Source
	audit       *auditDispatcher
	metrics     *Metrics

	// loginLocks serializes login attempts per identifier so the guard's
	// check-then-record sequence and the provisioning branch form a
	// critical section. Distinct identifiers proceed in parallel.
	loginLocks sync.Map

	subMu   sync.Mutex
	subs    map[int]func(accountID string)
	nextSub int
}

// Close shuts down the engine's audit dispatcher, draining buffered events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were discarded under
// backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of all engine metrics.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// CurrentIdentity returns the account ID of the active session, or ok=false
// when no valid session exists. An expired session is cleared as a side
// effect and published to identity subscribers as a sign-out.
func (e *Engine) CurrentIdentity() (accountID string, ok bool) {
	if e == nil || e.sessions == nil {
		return "", false
	}

	accountID, ok, expired := e.sessions.Current()
	if expired {
		e.metricInc(MetricSessionExpired)
		e.emitAudit(context.Background(), auditEventSessionExpired, false, "", "", ErrSessionExpired, nil)
		e.notifyIdentity("")
	}
	return accountID, ok
}

// SessionValid reports whether the local session exists and has not
// outlived the configured timeout.
func (e *Engine) SessionValid() bool {
	if e == nil || e.sessions == nil {
		return false
	}
	return e.sessions.Valid()
}

// Logout ends the local session and signs out of the identity provider.
// Provider sign-out is best-effort: the local session is gone either way.
func (e *Engine) Logout(ctx context.Context) error {
	if e == nil || e.sessions == nil {
		return ErrEngineNotReady
	}

	e.sessions.End()
	e.notifyIdentity("")

	var err error
	if e.provider != nil {
		if err = e.provider.SignOut(ctx); err != nil {
			log.Print("studentgate: provider sign-out failed")
		}
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, err == nil, "", "", err, nil)
	return nil
}

// OnIdentityChange registers a callback invoked with the account ID on
// login ("" on logout or session expiry). The returned disposer removes the
// subscription; it is safe to call more than once.
func (e *Engine) OnIdentityChange(cb func(accountID string)) (unsubscribe func()) {
	if e == nil || cb == nil {
		return func() {}
	}

	e.subMu.Lock()
	if e.subs == nil {
		e.subs = make(map[int]func(string))
	}
	id := e.nextSub
	e.nextSub++
	e.subs[id] = cb
	e.subMu.Unlock()

	return func() {
		e.subMu.Lock()
		delete(e.subs, id)
		e.subMu.Unlock()
	}
}

func (e *Engine) notifyIdentity(accountID string) {
	e.subMu.Lock()
	cbs := make([]func(string), 0, len(e.subs))
	for _, cb := range e.subs {
		cbs = append(cbs, cb)
	}
	e.subMu.Unlock()

	// Callbacks run outside the lock so a subscriber may unsubscribe
	// or call back into the engine.
	for _, cb := range cbs {
		cb(accountID)
	}
}

// Profile fetches the remote profile document for the current session's
// account. Without a valid session it returns ErrSessionExpired for an
// expired one and ErrNotAuthenticated otherwise.
func (e *Engine) Profile(ctx context.Context) (*ProfileDocument, error) {
	accountID, err := e.requireSession()
	if err != nil {
		return nil, err
	}

	doc, err := e.provider.GetProfile(ctx, accountID)
	if err != nil {
		return nil, e.classifyProviderError(err)
	}
	return doc, nil
}

// UpdateProfile rewrites the mutable parts of the current account's remote
// profile. Provisioning provenance and timestamps owned by the login path
// cannot be changed here.
func (e *Engine) UpdateProfile(ctx context.Context, displayLabel string) error {
	accountID, err := e.requireSession()
	if err != nil {
		return err
	}

	doc, err := e.provider.GetProfile(ctx, accountID)
	if err != nil {
		return e.classifyProviderError(err)
	}

	doc.DisplayLabel = displayLabel
	if err := e.provider.PutProfile(ctx, accountID, *doc); err != nil {
		return e.classifyProviderError(err)
	}
	return nil
}

func (e *Engine) requireSession() (string, error) {
	if e == nil || e.sessions == nil || e.provider == nil {
		return "", ErrEngineNotReady
	}

	accountID, ok, expired := e.sessions.Current()
	if expired {
		e.metricInc(MetricSessionExpired)
		e.emitAudit(context.Background(), auditEventSessionExpired, false, "", "", ErrSessionExpired, nil)
		e.notifyIdentity("")
		return "", ErrSessionExpired
	}
	if !ok {
		return "", ErrNotAuthenticated
	}
	return accountID, nil
}

func (e *Engine) identifierLock(identifier string) *sync.Mutex {
	v, _ := e.loginLocks.LoadOrStore(identifier, &sync.Mutex{})
	return v.(*sync.Mutex)
}
