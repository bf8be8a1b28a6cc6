package studentgate

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// Roster is the read-only credential roster loaded once at startup from the
// enrollment source. Lookup is a pure function over the dataset: no side
// effects, no network access.
type Roster struct {
	secrets map[string]string
	count   int
}

// LoadRoster reads the enrollment dataset from r. The format is the JSON
// array produced by the enrollment export: [{"identifier":..,"secret":..}].
// Identifier uniqueness is assumed, not enforced; on duplicates the last
// record wins.
func LoadRoster(r io.Reader) (*Roster, error) {
	var records []EnrollmentRecord
	dec := json.NewDecoder(r)
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("roster decode failed: %w", err)
	}

	roster := &Roster{
		secrets: make(map[string]string, len(records)),
	}
	for _, rec := range records {
		if rec.Identifier == "" {
			return nil, errors.New("roster record with empty identifier")
		}
		roster.secrets[rec.Identifier] = rec.Secret
	}
	roster.count = len(roster.secrets)

	return roster, nil
}

// LoadRosterFile reads the enrollment dataset from path.
func LoadRosterFile(path string) (*Roster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("roster open failed: %w", err)
	}
	defer f.Close()

	return LoadRoster(f)
}

// NewRoster builds a roster directly from records. Intended for callers that
// embed the enrollment data rather than reading it from a file.
func NewRoster(records []EnrollmentRecord) *Roster {
	roster := &Roster{
		secrets: make(map[string]string, len(records)),
	}
	for _, rec := range records {
		roster.secrets[rec.Identifier] = rec.Secret
	}
	roster.count = len(roster.secrets)
	return roster
}

// Lookup reports whether (identifier, secret) is a valid enrollment pair.
// An absent identifier and a mismatched secret are indistinguishable, which
// keeps identifier enumeration out of the login surface. The secret compare
// is constant time.
func (r *Roster) Lookup(identifier, secret string) bool {
	if r == nil {
		return false
	}

	stored, ok := r.secrets[identifier]
	if !ok {
		// Burn a comparison anyway so the miss is not observably faster.
		subtle.ConstantTimeCompare([]byte(secret), []byte(secret))
		return false
	}

	return subtle.ConstantTimeCompare([]byte(stored), []byte(secret)) == 1
}

// Len returns the number of distinct identifiers in the roster.
func (r *Roster) Len() int {
	if r == nil {
		return 0
	}
	return r.count
}

// Identifiers returns the roster identifiers in unspecified order. Used by
// bulk migration; secrets are never exposed.
func (r *Roster) Identifiers() []string {
	if r == nil {
		return nil
	}

	out := make([]string, 0, len(r.secrets))
	for id := range r.secrets {
		out = append(out, id)
	}
	return out
}

func (r *Roster) secret(identifier string) (string, bool) {
	s, ok := r.secrets[identifier]
	return s, ok
}
