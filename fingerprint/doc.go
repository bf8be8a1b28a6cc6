// Package fingerprint derives opaque, best-effort device fingerprints from
// environment signals. Tokens are stable for a given set of signals and are
// used for anomaly heuristics only, never for security enforcement.
package fingerprint
