package studentgate

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	guardFieldCount        = "failure_count"
	guardFieldFirstFailure = "first_failure"
	guardFieldLastFailure  = "last_failure"
	guardFieldLockedUntil  = "locked_until"
)

// accessGuard tracks failed-attempt counters and lockout windows per
// identifier in Redis. It is pure bookkeeping: it never denies for reasons
// other than its own counters, and backend failures surface as
// ErrGuardUnavailable rather than as a denial.
//
// Callers must serialize check-then-record sequences per identifier; the
// engine holds its per-identifier lock across the whole login attempt.
type accessGuard struct {
	redis  redis.UniversalClient
	config GuardConfig
	now    func() time.Time
}

func newAccessGuard(redisClient redis.UniversalClient, cfg GuardConfig) *accessGuard {
	return &accessGuard{
		redis:  redisClient,
		config: cfg,
		now:    time.Now,
	}
}

func (g *accessGuard) key(identifier string) string {
	return g.config.RedisPrefix + ":ga:" + identifier
}

// CheckAllowed reports whether the identifier may attempt a login. An
// expired lockout discards the attempt record as a side effect, so the
// identifier is treated as fresh.
func (g *accessGuard) CheckAllowed(ctx context.Context, identifier string) (AttemptStatus, error) {
	fields, err := g.redis.HGetAll(ctx, g.key(identifier)).Result()
	if err != nil {
		return AttemptStatus{}, fmt.Errorf("%w: %v", ErrGuardUnavailable, err)
	}

	if len(fields) == 0 {
		return AttemptStatus{Allowed: true, RemainingAttempts: g.config.MaxAttempts}, nil
	}

	now := g.now()
	if raw, ok := fields[guardFieldLockedUntil]; ok && raw != "" {
		lockedUntil := parseUnixMilli(raw)
		if now.Before(lockedUntil) {
			return AttemptStatus{Allowed: false, RemainingAttempts: 0, LockedUntil: lockedUntil}, nil
		}

		// Lockout elapsed: start over.
		if err := g.redis.Del(ctx, g.key(identifier)).Err(); err != nil {
			return AttemptStatus{}, fmt.Errorf("%w: %v", ErrGuardUnavailable, err)
		}
		return AttemptStatus{Allowed: true, RemainingAttempts: g.config.MaxAttempts}, nil
	}

	count, _ := strconv.Atoi(fields[guardFieldCount])
	remaining := g.config.MaxAttempts - count
	if remaining < 0 {
		remaining = 0
	}

	return AttemptStatus{Allowed: remaining > 0, RemainingAttempts: remaining}, nil
}

// RecordFailure increments the failure counter and, on reaching the
// configured maximum, sets the lockout window. The counter never exceeds
// MaxAttempts.
func (g *accessGuard) RecordFailure(ctx context.Context, identifier string) error {
	key := g.key(identifier)
	now := g.now()

	fields, err := g.redis.HGetAll(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGuardUnavailable, err)
	}

	count, _ := strconv.Atoi(fields[guardFieldCount])
	if count < g.config.MaxAttempts {
		count++
	}

	values := map[string]interface{}{
		guardFieldCount:       count,
		guardFieldLastFailure: now.UnixMilli(),
	}
	if len(fields) == 0 {
		values[guardFieldFirstFailure] = now.UnixMilli()
	}
	if count >= g.config.MaxAttempts {
		values[guardFieldLockedUntil] = now.Add(g.config.LockoutDuration).UnixMilli()
	}

	if err := g.redis.HSet(ctx, key, values).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrGuardUnavailable, err)
	}

	// TTL keeps abandoned records from accumulating; the lockout window
	// itself is enforced by the locked_until field, not the TTL.
	if err := g.redis.Expire(ctx, key, 2*g.config.LockoutDuration).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrGuardUnavailable, err)
	}

	return nil
}

// RecordSuccess discards the attempt record after a successful
// authentication.
func (g *accessGuard) RecordSuccess(ctx context.Context, identifier string) error {
	if err := g.redis.Del(ctx, g.key(identifier)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrGuardUnavailable, err)
	}
	return nil
}

func parseUnixMilli(raw string) time.Time {
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
