// Package studentgate authenticates students against a closed, pre-provisioned
// credential roster and lazily migrates each authenticated identity into a
// remote identity provider the first time it logs in.
//
// The package is designed for concurrent use: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build], and
// login attempts for distinct identifiers proceed fully in parallel while
// attempts for the same identifier are serialized.
//
// # Architecture boundaries
//
// studentgate is the public surface. It exposes [Engine], [Builder], [Config],
// and value types (LoginResult, RiskAssessment, MetricsSnapshot, etc.). The
// remote account store is reached exclusively through the [IdentityProvider]
// interface; raw provider errors never cross the Engine boundary — they are
// classified into the package's error taxonomy first.
//
// # What this package must NOT do
//
//   - Expose Redis clients, attempt-record layouts, or fingerprint internals
//     in its public API.
//   - Distinguish "unknown identifier" from "wrong secret" anywhere a caller
//     can observe it.
//   - Re-provision a remote account for an identifier that already has one:
//     provisioning happens at most once, and only through the migration path.
package studentgate
