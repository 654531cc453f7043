package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mensalidade/internal/aging"
	"github.com/smallbiznis/mensalidade/internal/billingdashboard"
	"github.com/smallbiznis/mensalidade/internal/client"
	"github.com/smallbiznis/mensalidade/internal/clock"
	"github.com/smallbiznis/mensalidade/internal/collection"
	"github.com/smallbiznis/mensalidade/internal/config"
	"github.com/smallbiznis/mensalidade/internal/installment"
	"github.com/smallbiznis/mensalidade/internal/messagelog"
	"github.com/smallbiznis/mensalidade/internal/migration"
	"github.com/smallbiznis/mensalidade/internal/observability"
	"github.com/smallbiznis/mensalidade/internal/plan"
	"github.com/smallbiznis/mensalidade/internal/providers"
	"github.com/smallbiznis/mensalidade/internal/providers/whatsapp"
	"github.com/smallbiznis/mensalidade/internal/ratelimit"
	"github.com/smallbiznis/mensalidade/internal/scheduler"
	"github.com/smallbiznis/mensalidade/internal/server"
	"github.com/smallbiznis/mensalidade/internal/subscription"
	"github.com/smallbiznis/mensalidade/pkg/db"
	"go.uber.org/fx"
)

// Single process: HTTP API, reminder scheduler and schema migrations.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		ratelimit.Module,
		providers.Module,

		client.Module,
		plan.Module,
		installment.Module,
		messagelog.Module,
		subscription.Module,
		billingdashboard.Module,
		aging.Module,
		collection.Module,

		fx.Provide(func(c *whatsapp.Client) scheduler.Pinger { return c }),
		scheduler.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
