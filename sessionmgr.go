package studentgate

import (
	"sync"
	"time"
)

// sessionManager holds the single in-process session and enforces the
// absolute session timeout, which is independent of the identity provider's
// own token lifetime. There is no background expiry: validity is checked
// lazily on access, and an expired session forces re-authentication on the
// next privileged action.
type sessionManager struct {
	mu        sync.Mutex
	timeout   time.Duration
	now       func() time.Time
	active    bool
	accountID string
	ident     string
	startedAt time.Time
}

func newSessionManager(cfg SessionConfig) *sessionManager {
	return &sessionManager{
		timeout: cfg.Timeout,
		now:     time.Now,
	}
}

// Start begins a session for the authenticated identity, replacing any
// previous session.
func (s *sessionManager) Start(identifier, accountID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = true
	s.ident = identifier
	s.accountID = accountID
	s.startedAt = s.now()
}

// Valid reports whether a session exists and has not outlived the timeout.
func (s *sessionManager) Valid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.active && s.now().Sub(s.startedAt) < s.timeout
}

// Current returns the account ID of the active session. When the session
// has expired it is cleared as a side effect and expired=true is reported
// exactly once for it.
func (s *sessionManager) Current() (accountID string, ok bool, expired bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return "", false, false
	}
	if s.now().Sub(s.startedAt) >= s.timeout {
		s.clearLocked()
		return "", false, true
	}

	return s.accountID, true, false
}

// End clears the session. Safe to call with no session active.
func (s *sessionManager) End() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearLocked()
}

func (s *sessionManager) clearLocked() {
	s.active = false
	s.ident = ""
	s.accountID = ""
	s.startedAt = time.Time{}
}
