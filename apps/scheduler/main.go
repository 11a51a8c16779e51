package main

import (
	"os"

	"github.com/bwmarrin/snowflake"
	"github.com/joho/godotenv"
	"github.com/smallbiznis/countrystat/internal/clock"
	"github.com/smallbiznis/countrystat/internal/config"
	"github.com/smallbiznis/countrystat/internal/country"
	"github.com/smallbiznis/countrystat/internal/gdp"
	"github.com/smallbiznis/countrystat/internal/lock"
	"github.com/smallbiznis/countrystat/internal/migration"
	"github.com/smallbiznis/countrystat/internal/observability"
	"github.com/smallbiznis/countrystat/internal/refresh"
	"github.com/smallbiznis/countrystat/internal/render"
	"github.com/smallbiznis/countrystat/internal/scheduler"
	"github.com/smallbiznis/countrystat/internal/upstream"
	"github.com/smallbiznis/countrystat/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

const defaultWorkerInterval = "1h"

func main() {
	// the dedicated worker keeps running when REFRESH_INTERVAL is unset
	_ = godotenv.Load()
	if os.Getenv("REFRESH_INTERVAL") == "" {
		_ = os.Setenv("REFRESH_INTERVAL", defaultWorkerInterval)
	}

	app := fx.New(
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		lock.Module,

		// Domain services required by scheduler
		gdp.Module,
		country.Module,
		upstream.Module,
		render.Module,
		refresh.Module,

		// No server module!
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
