package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sorteos/internal/buyer"
	"github.com/smallbiznis/sorteos/internal/clock"
	"github.com/smallbiznis/sorteos/internal/config"
	"github.com/smallbiznis/sorteos/internal/liveevents"
	"github.com/smallbiznis/sorteos/internal/observability"
	"github.com/smallbiznis/sorteos/internal/promoter"
	"github.com/smallbiznis/sorteos/internal/raffle"
	"github.com/smallbiznis/sorteos/internal/ratelimit"
	"github.com/smallbiznis/sorteos/internal/reservation"
	"github.com/smallbiznis/sorteos/internal/scheduler"
	"github.com/smallbiznis/sorteos/internal/ticket"
	"github.com/smallbiznis/sorteos/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		observability.PushModule,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Redis backs the scheduler lock and relays ticket events to the API pods
		ratelimit.Module,
		liveevents.Module,

		// Domain services required by the sweeper
		buyer.Module,
		raffle.Module,
		ticket.Module,
		promoter.Module,
		reservation.Module,

		// No server module!
		fx.Decorate(func(cfg config.Config) config.Config {
			cfg.Scheduler.Enabled = true
			return cfg
		}),
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
