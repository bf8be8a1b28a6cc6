package studentgate

import "strings"

// deriveLoginKey maps a roster identifier onto the provider-side account
// key. The mapping is a fixed normalization — lower-case, path separators
// substituted, fixed domain suffix — so the same identifier always resolves
// to the same remote account. "CSC/21/001" with domain "student.app" becomes
// "csc-21-001@student.app".
func deriveLoginKey(identifier, domain string) string {
	key := strings.ToLower(identifier)
	key = strings.ReplaceAll(key, "/", "-")
	key = strings.ReplaceAll(key, "\\", "-")
	return key + "@" + domain
}
