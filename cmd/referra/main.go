package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/referra/internal/clock"
	"github.com/smallbiznis/referra/internal/migration"
	"github.com/smallbiznis/referra/internal/observability"
	"github.com/smallbiznis/referra/internal/scheduler"
	"github.com/smallbiznis/referra/internal/server"
	"github.com/smallbiznis/referra/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure. config.Module rides in with server.Module.
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		server.Module,

		// Background work
		scheduler.Module,
		migration.Module,
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
