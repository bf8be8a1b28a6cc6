package studentgate

import (
	"context"
	"errors"
	"testing"
)

func migrateTestConfig() Config {
	cfg := loginTestConfig()
	// Keep bulk runs fast in tests.
	cfg.Migration.RatePerSecond = 1000
	cfg.Migration.Burst = 10
	return cfg
}

func TestMigrateRosterProvisionsAll(t *testing.T) {
	provider := newMockProvider()
	engine, _, done := newLoginEngine(t, migrateTestConfig(), provider)
	defer done()

	report, err := engine.MigrateRoster(context.Background())
	if err != nil {
		t.Fatalf("MigrateRoster failed: %v", err)
	}
	if report.Migrated != engine.roster.Len() {
		t.Fatalf("expected %d migrated, got %+v", engine.roster.Len(), report)
	}
	if report.Failed != 0 || report.AlreadyMigrated != 0 {
		t.Fatalf("expected clean run, got %+v", report)
	}

	for accountID, doc := range provider.profiles {
		if !doc.ProvisionedFromRoster {
			t.Fatalf("expected roster provenance on %s", accountID)
		}
		if !doc.LastLoginAt.IsZero() {
			t.Fatalf("expected zero LastLoginAt before first login, got %v", doc.LastLoginAt)
		}
	}
}

func TestMigrateRosterRerunCountsExisting(t *testing.T) {
	provider := newMockProvider()
	engine, _, done := newLoginEngine(t, migrateTestConfig(), provider)
	defer done()

	ctx := context.Background()
	if _, err := engine.MigrateRoster(ctx); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	report, err := engine.MigrateRoster(ctx)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if report.Migrated != 0 || report.AlreadyMigrated != engine.roster.Len() {
		t.Fatalf("expected all already migrated, got %+v", report)
	}
}

func TestMigrateRosterAfterLazyLogin(t *testing.T) {
	provider := newMockProvider()
	engine, _, done := newLoginEngine(t, migrateTestConfig(), provider)
	defer done()

	ctx := context.Background()
	if _, err := engine.Login(ctx, "alice", "wonder"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	report, err := engine.MigrateRoster(ctx)
	if err != nil {
		t.Fatalf("MigrateRoster failed: %v", err)
	}
	if report.AlreadyMigrated != 1 {
		t.Fatalf("expected the lazily migrated identifier to be counted, got %+v", report)
	}
	if report.Migrated != engine.roster.Len()-1 {
		t.Fatalf("expected remaining identifiers migrated, got %+v", report)
	}
}

func TestMigrateRosterRecordsFailures(t *testing.T) {
	provider := newMockProvider()
	provider.createErr = errors.New("backend down")
	engine, _, done := newLoginEngine(t, migrateTestConfig(), provider)
	defer done()

	report, err := engine.MigrateRoster(context.Background())
	if err != nil {
		t.Fatalf("MigrateRoster returned run error: %v", err)
	}
	if report.Failed != engine.roster.Len() {
		t.Fatalf("expected all failed, got %+v", report)
	}
	if len(report.Errors) != report.Failed {
		t.Fatalf("expected one error per failure, got %d errors", len(report.Errors))
	}
}

func TestMigrateRosterRespectsCancellation(t *testing.T) {
	provider := newMockProvider()
	cfg := migrateTestConfig()
	engine, _, done := newLoginEngine(t, cfg, provider)
	defer done()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := engine.MigrateRoster(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if report.Migrated != 0 {
		t.Fatalf("expected no work after cancellation, got %+v", report)
	}
}

func TestMigrateRosterMetrics(t *testing.T) {
	provider := newMockProvider()
	cfg := migrateTestConfig()
	cfg.Metrics.Enabled = true
	engine, _, done := newLoginEngine(t, cfg, provider)
	defer done()

	if _, err := engine.MigrateRoster(context.Background()); err != nil {
		t.Fatalf("MigrateRoster failed: %v", err)
	}

	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricRosterMigrationRun] != 1 {
		t.Fatalf("expected 1 run counted, got %d", snap.Counters[MetricRosterMigrationRun])
	}
	if int(snap.Counters[MetricMigrationSuccess]) != engine.roster.Len() {
		t.Fatalf("expected %d migration successes, got %d", engine.roster.Len(), snap.Counters[MetricMigrationSuccess])
	}
}
