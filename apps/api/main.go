package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/countrystat/internal/clock"
	"github.com/smallbiznis/countrystat/internal/config"
	"github.com/smallbiznis/countrystat/internal/country"
	"github.com/smallbiznis/countrystat/internal/gdp"
	"github.com/smallbiznis/countrystat/internal/lock"
	"github.com/smallbiznis/countrystat/internal/migration"
	"github.com/smallbiznis/countrystat/internal/observability"
	"github.com/smallbiznis/countrystat/internal/refresh"
	"github.com/smallbiznis/countrystat/internal/render"
	"github.com/smallbiznis/countrystat/internal/server"
	"github.com/smallbiznis/countrystat/internal/upstream"
	"github.com/smallbiznis/countrystat/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// The API keeps the refresh pipeline for POST /countries/refresh/ but runs no
// background loop. Point several replicas at one REDIS_ADDR to share the lock.
func main() {
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

		gdp.Module,
		country.Module,
		upstream.Module,
		render.Module,
		refresh.Module,

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
