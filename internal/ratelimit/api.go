package ratelimit

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/detailflow/internal/config"
	"go.uber.org/zap"
)

const employeeKeyPrefix = "detailflow:ratelimit:employee:"

// APILimiter throttles authenticated API calls per employee. A nil limiter
// allows everything.
type APILimiter struct {
	bucket *bucket
	log    *zap.Logger
	rate   float64
	burst  int
}

func NewAPILimiter(client *redis.Client, cfg config.Config, log *zap.Logger) *APILimiter {
	if client == nil || cfg.APIRateLimitRPS <= 0 || cfg.APIRateLimitBurst <= 0 {
		return nil
	}
	return &APILimiter{
		bucket: newBucket(client),
		log:    log.Named("ratelimit.api"),
		rate:   cfg.APIRateLimitRPS,
		burst:  cfg.APIRateLimitBurst,
	}
}

// AllowEmployee takes one token from the employee's bucket. Redis failures
// let the request through.
func (l *APILimiter) AllowEmployee(ctx context.Context, employeeID string) Decision {
	if l == nil {
		return Decision{Allowed: true}
	}
	d, err := l.bucket.take(ctx, employeeKeyPrefix+employeeID, l.rate, l.burst)
	if err != nil {
		l.log.Warn("rate limit check failed", zap.String("employee_id", employeeID), zap.Error(err))
		return Decision{Allowed: true, Limit: l.burst}
	}
	return d
}
