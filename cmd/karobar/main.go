package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/karobar/karobar/internal/authclient"
	"github.com/karobar/karobar/internal/bom"
	"github.com/karobar/karobar/internal/branch"
	"github.com/karobar/karobar/internal/company"
	"github.com/karobar/karobar/internal/config"
	"github.com/karobar/karobar/internal/evolution"
	"github.com/karobar/karobar/internal/financialyear"
	"github.com/karobar/karobar/internal/migration"
	"github.com/karobar/karobar/internal/quotation"
	"github.com/karobar/karobar/internal/sequence"
	"github.com/karobar/karobar/internal/server"
	"github.com/karobar/karobar/internal/user"
	"github.com/karobar/karobar/internal/versioning"
	"github.com/karobar/karobar/pkg/db"
	"github.com/karobar/karobar/pkg/log"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		log.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		authclient.Module,
		versioning.Module,

		// Schema: base migrations first, evolution steps after.
		migration.Module,
		evolution.Module,

		// Functional domains
		sequence.Module,
		company.Module,
		branch.Module,
		financialyear.Module,
		user.Module,
		quotation.Module,
		bom.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) *snowflake.Node {
	node, err := snowflake.NewNode(cfg.SnowflakeNode)
	if err != nil {
		panic(err)
	}
	return node
}
