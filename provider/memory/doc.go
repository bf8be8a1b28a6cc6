// Package memory implements an in-process identity provider backed by a
// map. It exists for development, examples, and integration tests where a
// real remote provider is unavailable; it honors the provider contract
// exactly, including the error sentinels and auth-state notifications, and
// issues signed ID tokens so token-lifetime behavior can be exercised.
//
// The provider keeps at most one signed-in account at a time, matching the
// single-identity surface of the engine it backs.
package memory
