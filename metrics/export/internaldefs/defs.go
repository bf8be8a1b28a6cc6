package internaldefs

import (
	studentgate "github.com/OyePriscilla/studentgate"
)

// CounterDef defines a public type used by studentgate APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   studentgate.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by studentgate APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   studentgate.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the authentication engine.
var CounterDefs = []CounterDef{
	{ID: studentgate.MetricLoginSuccess, Name: "studentgate_login_success_total", Help: "Successful login attempts."},
	{ID: studentgate.MetricLoginFailure, Name: "studentgate_login_failure_total", Help: "Failed login attempts."},
	{ID: studentgate.MetricLoginLocked, Name: "studentgate_login_locked_total", Help: "Login attempts rejected by the lockout guard."},
	{ID: studentgate.MetricMigrationSuccess, Name: "studentgate_migration_success_total", Help: "Successful lazy account migrations."},
	{ID: studentgate.MetricMigrationFailure, Name: "studentgate_migration_failure_total", Help: "Failed lazy account migrations."},
	{ID: studentgate.MetricProviderUnavailable, Name: "studentgate_provider_unavailable_total", Help: "Operations that hit an unavailable identity provider."},
	{ID: studentgate.MetricRiskFlaggedMedium, Name: "studentgate_risk_flagged_medium_total", Help: "Logins flagged at medium device risk."},
	{ID: studentgate.MetricRiskFlaggedHigh, Name: "studentgate_risk_flagged_high_total", Help: "Logins flagged at high device risk."},
	{ID: studentgate.MetricSessionStarted, Name: "studentgate_session_started_total", Help: "Started sessions."},
	{ID: studentgate.MetricSessionExpired, Name: "studentgate_session_expired_total", Help: "Sessions observed expired."},
	{ID: studentgate.MetricLogout, Name: "studentgate_logout_total", Help: "Logout operations."},
	{ID: studentgate.MetricRegistrationSuccess, Name: "studentgate_registration_success_total", Help: "Successful self-registrations."},
	{ID: studentgate.MetricRegistrationDuplicate, Name: "studentgate_registration_duplicate_total", Help: "Self-registrations rejected as duplicate."},
	{ID: studentgate.MetricRosterMigrationRun, Name: "studentgate_roster_migration_run_total", Help: "Bulk roster migration runs."},
}

// HistogramDefs is an exported constant or variable used by the authentication engine.
var HistogramDefs = []HistogramDef{
	{ID: studentgate.MetricLoginLatency, Name: "studentgate_login_latency_seconds", Help: "Login latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the authentication engine.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the authentication engine.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
// NormalizeBuckets may return an error when input validation, dependency calls, or security checks fail.
// NormalizeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets may return an error when input validation, dependency calls, or security checks fail.
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
