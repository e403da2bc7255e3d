package ratelimit

import (
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var Module = fx.Module("rate.limit",
	fx.Provide(NewRedisClient),
	fx.Provide(func(client *redis.Client) *JobLock { return NewJobLock(client, SchedulerLockPrefix) }),
	fx.Provide(NewPublicLimiter),
)
