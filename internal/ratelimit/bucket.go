package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// KEYS[1] bucket hash. ARGV rate per second, burst, ttl ms.
// Returns integers only: allowed, whole tokens left, wait ms, redis now ms.
const takeTokenScript = `
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local clock = redis.call("TIME")
local now = clock[1] * 1000 + math.floor(clock[2] / 1000)

local state = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(state[1]) or burst
local last = tonumber(state[2]) or now
if now > last then
  tokens = math.min(burst, tokens + (now - last) * rate / 1000)
end

local allowed = 0
local wait = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
else
  wait = math.ceil((1 - tokens) * 1000 / rate)
end

redis.call("HSET", KEYS[1], "tokens", tostring(tokens), "ts", now)
redis.call("PEXPIRE", KEYS[1], ttl)
return {allowed, math.floor(tokens), wait, now}
`

var errInvalidPolicy = errors.New("rate limit policy needs a positive rate and burst")

// Policy is the refill rate per second and the capacity of one scope.
type Policy struct {
	Rate  float64
	Burst int
}

func (p Policy) Valid() bool {
	return p.Rate > 0 && p.Burst > 0
}

// idleTTL keeps a bucket for twice the time it takes to refill from empty.
func (p Policy) idleTTL() time.Duration {
	if !p.Valid() {
		return time.Second
	}
	seconds := math.Ceil(2 * float64(p.Burst) / p.Rate)
	return time.Duration(math.Max(seconds, 1)) * time.Second
}

type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// bucket keeps one token bucket per redis key, refilled on read.
type bucket struct {
	client *redis.Client
	take   *redis.Script
}

func newBucket(client *redis.Client) *bucket {
	if client == nil {
		return nil
	}
	return &bucket{client: client, take: redis.NewScript(takeTokenScript)}
}

func (b *bucket) Take(ctx context.Context, key string, policy Policy) (*RateLimitResult, error) {
	if b == nil || b.client == nil {
		return nil, errors.New("rate limiter not configured")
	}
	if key == "" {
		return nil, errors.New("rate limiter key is empty")
	}
	if !policy.Valid() {
		return nil, errInvalidPolicy
	}

	raw, err := b.take.Run(ctx, b.client, []string{key},
		policy.Rate,
		policy.Burst,
		policy.idleTTL().Milliseconds(),
	).Slice()
	if err != nil {
		return nil, err
	}
	reply, err := scriptInts(raw, 4)
	if err != nil {
		return nil, err
	}
	return resultFromReply(reply, policy), nil
}

func resultFromReply(reply []int64, policy Policy) *RateLimitResult {
	wait := time.Duration(reply[2]) * time.Millisecond
	return &RateLimitResult{
		Allowed:    reply[0] == 1,
		Limit:      policy.Burst,
		Remaining:  int(reply[1]),
		ResetTime:  time.UnixMilli(reply[3]).Add(wait),
		RetryAfter: wait,
	}
}

// scriptInts checks a Lua reply of want integers.
func scriptInts(raw []interface{}, want int) ([]int64, error) {
	if len(raw) != want {
		return nil, fmt.Errorf("rate limit script returned %d values, want %d", len(raw), want)
	}
	out := make([]int64, want)
	for i, v := range raw {
		n, ok := v.(int64)
		if !ok {
			return nil, fmt.Errorf("rate limit script value %d is %T", i, v)
		}
		out[i] = n
	}
	return out, nil
}
