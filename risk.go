package studentgate

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	trustFieldFingerprint = "fingerprint"
	trustFieldFirstSeen   = "first_seen"
	trustFieldLastSeen    = "last_seen"
	trustFieldLoginCount  = "login_count"
	trustFieldPreviousFP  = "previous_fingerprint"
)

// riskAssessor keeps one device trust record per identifier and classifies
// login patterns as low/medium/high risk. The assessment is advisory only:
// it is surfaced for audit and alerting and never blocks a login.
type riskAssessor struct {
	redis  redis.UniversalClient
	config RiskConfig
	now    func() time.Time
}

func newRiskAssessor(redisClient redis.UniversalClient, cfg RiskConfig) *riskAssessor {
	return &riskAssessor{
		redis:  redisClient,
		config: cfg,
		now:    time.Now,
	}
}

func (a *riskAssessor) key(identifier string) string {
	return a.config.RedisPrefix + ":dt:" + identifier
}

// Assess updates the trust record for the identifier and returns the risk
// classification. It runs on every login attempt, successful or not.
//
// First observation stores the fingerprint and reports low risk. A changed
// fingerprint reports medium risk and replaces the stored fingerprint,
// keeping the old one for audit only: the design trusts the most recent
// device, not the full history. A matching fingerprint reports high risk
// when the login is both rapid and the cumulative count is over the
// high-volume threshold.
func (a *riskAssessor) Assess(ctx context.Context, identifier, fp string) (RiskAssessment, error) {
	key := a.key(identifier)
	now := a.now()

	fields, err := a.redis.HGetAll(ctx, key).Result()
	if err != nil {
		return RiskAssessment{}, fmt.Errorf("device trust store: %w", err)
	}

	if len(fields) == 0 {
		err := a.redis.HSet(ctx, key, map[string]interface{}{
			trustFieldFingerprint: fp,
			trustFieldFirstSeen:   now.UnixMilli(),
			trustFieldLastSeen:    now.UnixMilli(),
			trustFieldLoginCount:  1,
		}).Err()
		if err != nil {
			return RiskAssessment{}, fmt.Errorf("device trust store: %w", err)
		}
		return RiskAssessment{Level: RiskLow}, nil
	}

	stored := fields[trustFieldFingerprint]
	loginCount, _ := strconv.Atoi(fields[trustFieldLoginCount])
	lastSeen := parseUnixMilli(fields[trustFieldLastSeen])

	if stored != fp {
		err := a.redis.HSet(ctx, key, map[string]interface{}{
			trustFieldFingerprint: fp,
			trustFieldLastSeen:    now.UnixMilli(),
			trustFieldLoginCount:  loginCount + 1,
			trustFieldPreviousFP:  stored,
		}).Err()
		if err != nil {
			return RiskAssessment{}, fmt.Errorf("device trust store: %w", err)
		}
		return RiskAssessment{
			Suspicious: true,
			Level:      RiskMedium,
			Reason:     "login from new device",
		}, nil
	}

	rapid := now.Sub(lastSeen) < a.config.RapidLoginWindow
	highVolume := loginCount > a.config.HighVolumeThreshold

	err = a.redis.HSet(ctx, key, map[string]interface{}{
		trustFieldLastSeen:   now.UnixMilli(),
		trustFieldLoginCount: loginCount + 1,
	}).Err()
	if err != nil {
		return RiskAssessment{}, fmt.Errorf("device trust store: %w", err)
	}

	if rapid && highVolume {
		return RiskAssessment{
			Suspicious: true,
			Level:      RiskHigh,
			Reason:     "unusually frequent login activity",
		}, nil
	}

	return RiskAssessment{Level: RiskLow}, nil
}
