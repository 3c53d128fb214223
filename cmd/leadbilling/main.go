package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/leadbilling/internal/clock"
	"github.com/smallbiznis/leadbilling/internal/config"
	"github.com/smallbiznis/leadbilling/internal/migration"
	"github.com/smallbiznis/leadbilling/internal/observability"
	"github.com/smallbiznis/leadbilling/internal/providers/leadapi"
	"github.com/smallbiznis/leadbilling/internal/server"
	"github.com/smallbiznis/leadbilling/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,

		// Lead store
		leadapi.Module,

		// HTTP surface and the domains behind it
		server.Module,
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
