package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sorteos/internal/clock"
	"github.com/smallbiznis/sorteos/internal/config"
	"github.com/smallbiznis/sorteos/internal/migration"
	"github.com/smallbiznis/sorteos/internal/observability"
	"github.com/smallbiznis/sorteos/internal/scheduler"
	"github.com/smallbiznis/sorteos/internal/server"
	"github.com/smallbiznis/sorteos/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// HTTP surface and the domain modules it serves
		server.Module,

		// Reservation sweeper, started only when SCHEDULER_ENABLED is set
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
