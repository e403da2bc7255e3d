package liveevents

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("liveevents",
	fx.Provide(NewHub),
	fx.Provide(func(h *Hub) Publisher { return h }),
	fx.Invoke(registerRelay),
)

type relayParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Hub       *Hub
	Client    *redis.Client `optional:"true"`
	Log       *zap.Logger
}

func registerRelay(p relayParams) {
	relay := NewRedisRelay(p.Hub, p.Client, p.Log)
	if relay == nil {
		return
	}
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := relay.Start(ctx); err != nil {
				p.Log.Warn("ticket relay disabled", zap.Error(err))
			}
			return nil
		},
		OnStop: relay.Stop,
	})
}
