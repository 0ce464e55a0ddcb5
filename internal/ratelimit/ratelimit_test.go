package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/detailflow/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNilLimiterAllows(t *testing.T) {
	limiter := NewAPILimiter(nil, config.Config{APIRateLimitRPS: 5, APIRateLimitBurst: 10}, zap.NewNop())
	require.Nil(t, limiter)

	d := limiter.AllowEmployee(context.Background(), "7")
	assert.True(t, d.Allowed)
}

func TestUnconfiguredBucketRejects(t *testing.T) {
	var b *bucket
	d, err := b.take(context.Background(), "k", 1, 1)
	require.ErrorIs(t, err, errNoBucket)
	assert.False(t, d.Allowed)
}

func TestBucketTTL(t *testing.T) {
	assert.Equal(t, 4*time.Second, bucketTTL(20, 40))
	assert.Equal(t, time.Second, bucketTTL(100, 10))
	assert.Equal(t, time.Second, bucketTTL(0, 10))
}
