package studentgate

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestGuard(t *testing.T) (*accessGuard, func()) {
	t.Helper()

	mr, rdb := newTestRedis(t)
	guard := newAccessGuard(rdb, defaultConfig().Guard)
	return guard, func() { mr.Close() }
}

func TestGuardFreshIdentifierAllowed(t *testing.T) {
	guard, done := newTestGuard(t)
	defer done()

	status, err := guard.CheckAllowed(context.Background(), "alice")
	if err != nil {
		t.Fatalf("CheckAllowed failed: %v", err)
	}
	if !status.Allowed {
		t.Fatal("expected fresh identifier to be allowed")
	}
	if status.RemainingAttempts != guard.config.MaxAttempts {
		t.Fatalf("expected %d remaining, got %d", guard.config.MaxAttempts, status.RemainingAttempts)
	}
}

func TestGuardCountsDownRemaining(t *testing.T) {
	guard, done := newTestGuard(t)
	defer done()

	ctx := context.Background()
	for i := 1; i < guard.config.MaxAttempts; i++ {
		if err := guard.RecordFailure(ctx, "alice"); err != nil {
			t.Fatalf("RecordFailure failed: %v", err)
		}
		status, err := guard.CheckAllowed(ctx, "alice")
		if err != nil {
			t.Fatalf("CheckAllowed failed: %v", err)
		}
		if !status.Allowed {
			t.Fatalf("expected allowed after %d failures", i)
		}
		if got := guard.config.MaxAttempts - i; status.RemainingAttempts != got {
			t.Fatalf("after %d failures expected %d remaining, got %d", i, got, status.RemainingAttempts)
		}
	}
}

func TestGuardLocksAtMaxAttempts(t *testing.T) {
	guard, done := newTestGuard(t)
	defer done()

	ctx := context.Background()
	for i := 0; i < guard.config.MaxAttempts; i++ {
		if err := guard.RecordFailure(ctx, "alice"); err != nil {
			t.Fatalf("RecordFailure failed: %v", err)
		}
	}

	status, err := guard.CheckAllowed(ctx, "alice")
	if err != nil {
		t.Fatalf("CheckAllowed failed: %v", err)
	}
	if status.Allowed {
		t.Fatal("expected lockout at max attempts")
	}
	if status.LockedUntil.IsZero() {
		t.Fatal("expected lockout end time")
	}

	want := time.Now().Add(guard.config.LockoutDuration)
	if diff := status.LockedUntil.Sub(want); diff < -time.Minute || diff > time.Minute {
		t.Fatalf("lockout end %v too far from expected %v", status.LockedUntil, want)
	}
}

func TestGuardFailuresBeyondMaxDoNotExtendLockout(t *testing.T) {
	guard, done := newTestGuard(t)
	defer done()

	ctx := context.Background()
	for i := 0; i < guard.config.MaxAttempts; i++ {
		_ = guard.RecordFailure(ctx, "alice")
	}
	first, _ := guard.CheckAllowed(ctx, "alice")

	// A stray extra failure while locked must not push the window out by
	// more than the time that has passed.
	_ = guard.RecordFailure(ctx, "alice")
	second, _ := guard.CheckAllowed(ctx, "alice")

	if second.LockedUntil.Sub(first.LockedUntil) > time.Second {
		t.Fatalf("lockout extended from %v to %v", first.LockedUntil, second.LockedUntil)
	}
}

func TestGuardExpiredLockoutResets(t *testing.T) {
	guard, done := newTestGuard(t)
	defer done()

	ctx := context.Background()
	for i := 0; i < guard.config.MaxAttempts; i++ {
		_ = guard.RecordFailure(ctx, "alice")
	}

	guard.now = func() time.Time {
		return time.Now().Add(guard.config.LockoutDuration + time.Second)
	}

	status, err := guard.CheckAllowed(ctx, "alice")
	if err != nil {
		t.Fatalf("CheckAllowed failed: %v", err)
	}
	if !status.Allowed {
		t.Fatal("expected expired lockout to reset")
	}
	if status.RemainingAttempts != guard.config.MaxAttempts {
		t.Fatalf("expected full attempt window after reset, got %d", status.RemainingAttempts)
	}
}

func TestGuardSuccessClearsRecord(t *testing.T) {
	guard, done := newTestGuard(t)
	defer done()

	ctx := context.Background()
	_ = guard.RecordFailure(ctx, "alice")
	_ = guard.RecordFailure(ctx, "alice")

	if err := guard.RecordSuccess(ctx, "alice"); err != nil {
		t.Fatalf("RecordSuccess failed: %v", err)
	}

	status, err := guard.CheckAllowed(ctx, "alice")
	if err != nil {
		t.Fatalf("CheckAllowed failed: %v", err)
	}
	if status.RemainingAttempts != guard.config.MaxAttempts {
		t.Fatalf("expected fresh record after success, got %d remaining", status.RemainingAttempts)
	}
}

func TestGuardIdentifiersIndependent(t *testing.T) {
	guard, done := newTestGuard(t)
	defer done()

	ctx := context.Background()
	for i := 0; i < guard.config.MaxAttempts; i++ {
		_ = guard.RecordFailure(ctx, "alice")
	}

	status, err := guard.CheckAllowed(ctx, "bob")
	if err != nil {
		t.Fatalf("CheckAllowed failed: %v", err)
	}
	if !status.Allowed {
		t.Fatal("expected unrelated identifier to be unaffected")
	}
}

func TestGuardBackendDownSurfacesGuardUnavailable(t *testing.T) {
	mr, rdb := newTestRedis(t)
	guard := newAccessGuard(rdb, defaultConfig().Guard)
	mr.Close()

	_, err := guard.CheckAllowed(context.Background(), "alice")
	if !errors.Is(err, ErrGuardUnavailable) {
		t.Fatalf("expected ErrGuardUnavailable, got %v", err)
	}
	if err := guard.RecordFailure(context.Background(), "alice"); !errors.Is(err, ErrGuardUnavailable) {
		t.Fatalf("expected ErrGuardUnavailable from RecordFailure, got %v", err)
	}
}
