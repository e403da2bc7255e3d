package ratelimit

import (
	"context"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/sorteos/internal/config"
	"github.com/smallbiznis/sorteos/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Scope names a rate limited public endpoint.
type Scope string

const (
	ScopeReservation Scope = "reservation"
	ScopeCheckout    Scope = "checkout"
	ScopeLogin       Scope = "login"
)

// PublicLimiter throttles anonymous endpoints per client IP.
// A nil limiter, or one without redis, allows everything.
type PublicLimiter struct {
	bucket  *bucket
	limits  map[Scope]Policy
	metrics *metrics.Metrics
	log     *zap.Logger
}

type LimiterParams struct {
	fx.In

	Config  config.Config
	Client  *redis.Client    `optional:"true"`
	Metrics *metrics.Metrics `optional:"true"`
	Log     *zap.Logger
}

func NewPublicLimiter(p LimiterParams) *PublicLimiter {
	rl := p.Config.RateLimit
	if !rl.Enabled || p.Client == nil {
		return nil
	}
	return &PublicLimiter{
		bucket: newBucket(p.Client),
		limits: map[Scope]Policy{
			ScopeReservation: {Rate: rl.ReservationRate, Burst: rl.ReservationBurst},
			ScopeCheckout:    {Rate: rl.CheckoutRate, Burst: rl.CheckoutBurst},
			ScopeLogin:       {Rate: rl.LoginRate, Burst: rl.LoginBurst},
		},
		metrics: p.Metrics,
		log:     p.Log.Named("ratelimit"),
	}
}

func (l *PublicLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// Allow consumes one token for clientKey in scope. Redis errors fail open.
func (l *PublicLimiter) Allow(ctx context.Context, scope Scope, clientKey string) *RateLimitResult {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}
	}
	policy, ok := l.limits[scope]
	if !ok || !policy.Valid() {
		return &RateLimitResult{Allowed: true}
	}

	clientKey = strings.TrimSpace(clientKey)
	if clientKey == "" {
		clientKey = "unknown"
	}

	res, err := l.bucket.Take(ctx, bucketKey(scope, clientKey), policy)
	if err != nil {
		l.log.Warn("rate limit check failed", zap.String("scope", string(scope)), zap.Error(err))
		if l.metrics != nil {
			l.metrics.RecordRateLimitDenied(ctx, string(scope), "error")
		}
		return &RateLimitResult{Allowed: true, Limit: policy.Burst}
	}

	if l.metrics != nil {
		if res.Allowed {
			l.metrics.RecordRateLimitAllowed(ctx, string(scope))
		} else {
			l.metrics.RecordRateLimitDenied(ctx, string(scope), "exceeded")
		}
	}
	return res
}

// RetryAfterSeconds rounds up so clients never retry early.
func (r *RateLimitResult) RetryAfterSeconds() int {
	if r == nil || r.RetryAfter <= 0 {
		return 0
	}
	return int((r.RetryAfter + time.Second - 1) / time.Second)
}

func bucketKey(scope Scope, clientKey string) string {
	return "sorteos:rl:" + string(scope) + ":" + clientKey
}
