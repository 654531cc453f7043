package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mensalidade/internal/client"
	"github.com/smallbiznis/mensalidade/internal/clock"
	"github.com/smallbiznis/mensalidade/internal/collection"
	"github.com/smallbiznis/mensalidade/internal/config"
	"github.com/smallbiznis/mensalidade/internal/installment"
	"github.com/smallbiznis/mensalidade/internal/messagelog"
	"github.com/smallbiznis/mensalidade/internal/migration"
	"github.com/smallbiznis/mensalidade/internal/observability"
	"github.com/smallbiznis/mensalidade/internal/providers"
	"github.com/smallbiznis/mensalidade/internal/providers/whatsapp"
	"github.com/smallbiznis/mensalidade/internal/ratelimit"
	"github.com/smallbiznis/mensalidade/internal/scheduler"
	"github.com/smallbiznis/mensalidade/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Usage:
//
//	scheduler            run the cron loop until signalled
//	scheduler run <job>  run one job now and exit
func main() {
	if len(os.Args) == 3 && os.Args[1] == "run" {
		os.Exit(runOnce(os.Args[2]))
	}

	app := fx.New(
		infrastructure(),
		migration.Module,
		scheduler.Module,
	)
	app.Run()
}

func infrastructure() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		ratelimit.Module,
		providers.Module,

		client.Module,
		installment.Module,
		messagelog.Module,
		collection.Module,

		fx.Provide(func(c *whatsapp.Client) scheduler.Pinger { return c }),
	)
}

func runOnce(name string) int {
	var (
		sched *scheduler.Scheduler
		log   *zap.Logger
	)
	app := fx.New(
		infrastructure(),
		fx.Provide(scheduler.ProvideConfig),
		fx.Provide(scheduler.New),
		fx.Populate(&sched, &log),
		fx.NopLogger,
	)
	if err := app.Err(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	code := 0
	if err := sched.RunJob(context.Background(), name); err != nil {
		log.Error("job failed", zap.String("job", name), zap.Error(err))
		code = 1
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		log.Warn("shutdown failed", zap.Error(err))
	}
	return code
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
