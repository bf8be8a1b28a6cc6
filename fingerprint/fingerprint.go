package fingerprint

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"os"
	"runtime"
	"time"
)

// Signals are the environment-derived inputs folded into a device
// fingerprint. Empty fields are allowed; the derivation is best-effort and
// the resulting token is an anomaly heuristic, not a security boundary.
type Signals struct {
	UserAgent      string
	Locale         string
	ScreenGeometry string
	Timezone       string
	// Surface is a rendering-surface signature (GPU vendor/renderer or an
	// equivalent environment signature).
	Surface string
}

// Source supplies the signals for the calling device. Implementations may
// read request-scoped values from ctx (see [WithSignals]) so the core logic
// stays testable without any real environment.
type Source interface {
	Signals(ctx context.Context) Signals
}

type signalsContextKey struct{}

// WithSignals attaches explicit signals to ctx. [ContextSource] prefers
// them over anything it would derive itself.
func WithSignals(ctx context.Context, s Signals) context.Context {
	return context.WithValue(ctx, signalsContextKey{}, s)
}

func signalsFromContext(ctx context.Context) (Signals, bool) {
	if ctx == nil {
		return Signals{}, false
	}
	s, ok := ctx.Value(signalsContextKey{}).(Signals)
	return s, ok
}

// Token derives the opaque fingerprint string from a set of signals.
// sha256 over the concatenated signals, base64url, truncated to 32 bytes —
// matching the size of the tokens the rest of the system stores.
func Token(s Signals) string {
	h := sha256.New()
	for _, part := range []string{s.UserAgent, s.Locale, s.ScreenGeometry, s.Timezone, s.Surface} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}

	token := base64.RawURLEncoding.EncodeToString(h.Sum(nil))
	if len(token) > 32 {
		token = token[:32]
	}
	return token
}

// SystemSource derives signals from the local process environment:
// hostname, OS/arch, LANG, and the local timezone. It is the default source
// when the builder is given none.
type SystemSource struct{}

// Signals implements [Source].
func (SystemSource) Signals(ctx context.Context) Signals {
	if s, ok := signalsFromContext(ctx); ok {
		return s
	}

	host, _ := os.Hostname()
	return Signals{
		UserAgent: host,
		Locale:    os.Getenv("LANG"),
		Surface:   runtime.GOOS + "-" + runtime.GOARCH,
		Timezone:  time.Local.String(),
	}
}

// ContextSource reads signals exclusively from ctx and yields zero signals
// otherwise. Useful for servers that collect signals per request.
type ContextSource struct{}

// Signals implements [Source].
func (ContextSource) Signals(ctx context.Context) Signals {
	s, _ := signalsFromContext(ctx)
	return s
}

// Fixed returns a source that always reports the same user-agent signal.
// Intended for tests and single-device deployments.
func Fixed(userAgent string) Source {
	return fixedSource{ua: userAgent}
}

type fixedSource struct {
	ua string
}

func (f fixedSource) Signals(context.Context) Signals {
	return Signals{UserAgent: f.ua}
}
