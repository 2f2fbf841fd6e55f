package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/smallbiznis/innkeep/internal/clock"
	"github.com/smallbiznis/innkeep/internal/config"
	"github.com/smallbiznis/innkeep/internal/migration"
	"github.com/smallbiznis/innkeep/internal/observability"
	"github.com/smallbiznis/innkeep/internal/scheduler"
	"github.com/smallbiznis/innkeep/internal/server"
	"github.com/smallbiznis/innkeep/pkg/db"
	"github.com/smallbiznis/innkeep/pkg/log"
)

func main() {
	app := fx.New(
		config.Module,
		log.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
