package ratelimit

import (
	"context"
	"errors"
	"math"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// The bucket lives in one hash: tokens left and the last refill time in ms.
// Refill uses the redis clock so every API replica agrees on elapsed time.
const takeTokenScript = `
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local t = redis.call("TIME")
local now = t[1] * 1000 + math.floor(t[2] / 1000)

local state = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(state[1]) or burst
local last = tonumber(state[2]) or now
if now > last then
  tokens = math.min(burst, tokens + (now - last) * rate / 1000)
end

local granted = 0
if tokens >= 1 then
  tokens = tokens - 1
  granted = 1
end

redis.call("HSET", KEYS[1], "tokens", tokens, "ts", now)
redis.call("PEXPIRE", KEYS[1], ttl)
return {granted, math.floor(tokens)}
`

var (
	errNoBucket      = errors.New("ratelimit: bucket not configured")
	errBadBucketArgs = errors.New("ratelimit: key, rate and burst are required")
	errBadReply      = errors.New("ratelimit: unexpected script reply")
)

// Decision is the outcome of one token request.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type bucket struct {
	client *redis.Client
	script *redis.Script
}

func newBucket(client *redis.Client) *bucket {
	if client == nil {
		return nil
	}
	return &bucket{client: client, script: redis.NewScript(takeTokenScript)}
}

func (b *bucket) take(ctx context.Context, key string, rate float64, burst int) (Decision, error) {
	if b == nil {
		return Decision{}, errNoBucket
	}
	if key == "" || rate <= 0 || burst <= 0 {
		return Decision{}, errBadBucketArgs
	}

	reply, err := b.script.Run(ctx, b.client, []string{key}, rate, burst, bucketTTL(rate, burst).Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, err
	}
	if len(reply) != 2 {
		return Decision{}, errBadReply
	}

	d := Decision{Allowed: reply[0] == 1, Limit: burst, Remaining: int(reply[1])}
	if !d.Allowed {
		d.RetryAfter = time.Duration(float64(time.Second) / rate)
	}
	return d, nil
}

// bucketTTL keeps an idle bucket around for twice its full refill time.
func bucketTTL(rate float64, burst int) time.Duration {
	if rate <= 0 || burst <= 0 {
		return time.Second
	}
	return time.Duration(math.Max(1, math.Ceil(2*float64(burst)/rate))) * time.Second
}
