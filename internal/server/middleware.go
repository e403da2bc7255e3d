package server

import (
	"strconv"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/sorteos/internal/audit/domain"
	authdomain "github.com/smallbiznis/sorteos/internal/auth/domain"
	obscontext "github.com/smallbiznis/sorteos/internal/observability/context"
	"github.com/smallbiznis/sorteos/internal/observability/logger"
	"github.com/smallbiznis/sorteos/internal/ratelimit"
	"go.uber.org/zap"
)

const (
	contextSessionKey = "admin_session"
	contextRaffleKey  = "raffle_id"
)

// AuthRequired resolves the admin session from the cookie or bearer token.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := s.sessions.ReadToken(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		session, err := s.authsvc.Authenticate(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := obscontext.WithActor(c.Request.Context(), string(ActorUser), session.UserID.String())
		ctx = auditdomain.WithClient(ctx, c.ClientIP(), c.Request.UserAgent())
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextSessionKey, session)
		c.Next()
	}
}

func sessionFromContext(c *gin.Context) (*authdomain.Session, bool) {
	value, ok := c.Get(contextSessionKey)
	if !ok {
		return nil, false
	}
	session, ok := value.(*authdomain.Session)
	return session, ok && session != nil
}

// RateLimit throttles a public endpoint per client IP.
func (s *Server) RateLimit(scope ratelimit.Scope) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}

		res := s.limiter.Allow(c.Request.Context(), scope, c.ClientIP())
		if res.Limit > 0 {
			c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		}
		if !res.Allowed {
			logger.FromContext(c.Request.Context()).Warn("rate limit exceeded",
				zap.String("scope", string(scope)),
				zap.String("endpoint", normalizeRateLimitEndpoint(c)),
			)
			c.Header("Retry-After", strconv.Itoa(max(res.RetryAfterSeconds(), 1)))
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	endpoint := c.FullPath()
	if endpoint == "" {
		endpoint = c.Request.URL.Path
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}
