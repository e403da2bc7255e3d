package context

import (
	"context"
	"strings"
)

type contextKey string

const (
	requestIDKey contextKey = "obs_request_id"
	actorTypeKey contextKey = "obs_actor_type"
	actorIDKey   contextKey = "obs_actor_id"
)

// Actor types attached to request contexts.
const (
	ActorAnonymous = "anonymous"
	ActorAdmin     = "admin"
	ActorWebhook   = "webhook"
	ActorScheduler = "scheduler"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey).(string)
	return value
}

// WithActor records who is acting on behalf of the request.
func WithActor(ctx context.Context, actorType, actorID string) context.Context {
	ctx = context.WithValue(ctx, actorTypeKey, strings.TrimSpace(actorType))
	return context.WithValue(ctx, actorIDKey, strings.TrimSpace(actorID))
}

func ActorFromContext(ctx context.Context) (string, string) {
	if ctx == nil {
		return "", ""
	}
	actorType, _ := ctx.Value(actorTypeKey).(string)
	actorID, _ := ctx.Value(actorIDKey).(string)
	return actorType, actorID
}
