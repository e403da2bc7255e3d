package ratelimit

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// SchedulerLockPrefix namespaces the per-job leases of the sweeper.
const SchedulerLockPrefix = "sorteos:scheduler:"

// Deletes the lease only while it still carries our token, so an expired
// lease taken over by another instance is left alone.
const leaseReleaseScript = `
if redis.call("GET", KEYS[1]) ~= ARGV[1] then
  return 0
end
redis.call("DEL", KEYS[1])
return 1
`

var (
	ErrLockUnavailable = errors.New("job lock not configured")
	ErrInvalidLease    = errors.New("invalid job lease")
)

// JobLock hands out one lease per scheduler job across instances.
type JobLock struct {
	client  *redis.Client
	prefix  string
	release *redis.Script
}

// Lease is a held job lock. The zero Lease is not held.
type Lease struct {
	Job       string
	Key       string
	Token     string
	ExpiresAt time.Time
	lock      *JobLock
}

func NewJobLock(client *redis.Client, prefix string) *JobLock {
	if client == nil {
		return nil
	}
	if strings.TrimSpace(prefix) == "" {
		prefix = SchedulerLockPrefix
	}
	return &JobLock{
		client:  client,
		prefix:  prefix,
		release: redis.NewScript(leaseReleaseScript),
	}
}

func (l *JobLock) key(job string) string {
	return l.prefix + strings.ToLower(strings.TrimSpace(job))
}

// Acquire takes the lease of job for ttl. ok is false when another instance
// holds it.
func (l *JobLock) Acquire(ctx context.Context, job string, ttl time.Duration) (lease Lease, ok bool, err error) {
	if l == nil || l.client == nil {
		return Lease{}, false, ErrLockUnavailable
	}
	if strings.TrimSpace(job) == "" || ttl <= 0 {
		return Lease{}, false, ErrInvalidLease
	}

	lease = Lease{
		Job:       job,
		Key:       l.key(job),
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(ttl),
		lock:      l,
	}
	ok, err = l.client.SetNX(ctx, lease.Key, lease.Token, ttl).Result()
	if err != nil || !ok {
		return Lease{}, false, err
	}
	return lease, true, nil
}

// Release gives the lease back. released is false when it had already expired
// or been taken over.
func (l Lease) Release(ctx context.Context) (released bool, err error) {
	if l.lock == nil || l.lock.client == nil || l.Token == "" {
		return false, nil
	}
	n, err := l.lock.release.Run(ctx, l.lock.client, []string{l.Key}, l.Token).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (l Lease) Held() bool {
	return l.lock != nil && l.Token != ""
}
