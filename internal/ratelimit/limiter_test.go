package ratelimit

import (
	"context"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/sorteos/internal/config"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPublicLimiterDisabledAllows(t *testing.T) {
	var nilLimiter *PublicLimiter
	require.False(t, nilLimiter.Enabled())
	require.True(t, nilLimiter.Allow(context.Background(), ScopeReservation, "1.2.3.4").Allowed)

	cfg := config.Config{RateLimit: config.RateLimitConfig{Enabled: true, ReservationRate: 1, ReservationBurst: 1}}
	limiter := NewPublicLimiter(LimiterParams{Config: cfg, Log: zap.NewNop()})
	require.Nil(t, limiter, "no redis client means no limiter")
}

func TestRetryAfterSecondsRoundsUp(t *testing.T) {
	require.Equal(t, 0, (*RateLimitResult)(nil).RetryAfterSeconds())
	require.Equal(t, 0, (&RateLimitResult{}).RetryAfterSeconds())
	require.Equal(t, 1, (&RateLimitResult{RetryAfter: 200 * time.Millisecond}).RetryAfterSeconds())
	require.Equal(t, 3, (&RateLimitResult{RetryAfter: 2*time.Second + time.Millisecond}).RetryAfterSeconds())
}

func TestBucketKeyAndTTL(t *testing.T) {
	require.Equal(t, "sorteos:rl:login:10.0.0.1", bucketKey(ScopeLogin, "10.0.0.1"))
	require.Equal(t, 20*time.Second, Policy{Rate: 0.5, Burst: 5}.idleTTL())
	require.Equal(t, time.Second, Policy{Rate: 100, Burst: 1}.idleTTL())
	require.Equal(t, time.Second, Policy{}.idleTTL())
	require.False(t, Policy{Rate: 1}.Valid())
}

func TestNilHelpersAreSafe(t *testing.T) {
	require.Nil(t, newBucket(nil))
	require.Nil(t, NewJobLock(nil, ""))

	var b *bucket
	_, err := b.Take(context.Background(), "k", Policy{Rate: 1, Burst: 1})
	require.Error(t, err)

	var lock *JobLock
	lease, ok, err := lock.Acquire(context.Background(), "sweep", time.Second)
	require.ErrorIs(t, err, ErrLockUnavailable)
	require.False(t, ok)
	require.False(t, lease.Held())

	released, err := Lease{}.Release(context.Background())
	require.NoError(t, err)
	require.False(t, released)
}

func TestJobLockKeysPerJob(t *testing.T) {
	lock := &JobLock{prefix: SchedulerLockPrefix}
	require.Equal(t, "sorteos:scheduler:release_expired_reservations", lock.key(" Release_Expired_Reservations "))

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()
	redisLock := NewJobLock(client, "")
	require.Equal(t, SchedulerLockPrefix, redisLock.prefix)

	_, ok, err := redisLock.Acquire(context.Background(), " ", time.Second)
	require.ErrorIs(t, err, ErrInvalidLease)
	require.False(t, ok)
	_, _, err = redisLock.Acquire(context.Background(), "sweep", 0)
	require.ErrorIs(t, err, ErrInvalidLease)
}

func TestScriptReply(t *testing.T) {
	_, err := scriptInts([]interface{}{int64(1), int64(2)}, 4)
	require.Error(t, err)
	_, err = scriptInts([]interface{}{int64(1), "2", int64(0), int64(0)}, 4)
	require.Error(t, err)

	reply, err := scriptInts([]interface{}{int64(0), int64(0), int64(1500), int64(1700000000000)}, 4)
	require.NoError(t, err)
	res := resultFromReply(reply, Policy{Rate: 2, Burst: 5})
	require.False(t, res.Allowed)
	require.Equal(t, 5, res.Limit)
	require.Equal(t, 1500*time.Millisecond, res.RetryAfter)
	require.Equal(t, 2, res.RetryAfterSeconds())
	require.Equal(t, time.UnixMilli(1700000001500), res.ResetTime)
}
