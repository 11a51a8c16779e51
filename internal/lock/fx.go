package lock

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/countrystat/internal/clock"
	"github.com/smallbiznis/countrystat/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("lock",
	fx.Provide(New),
)

// New returns a RedisLocker when REDIS_ADDR is set and a LocalLocker otherwise.
func New(lc fx.Lifecycle, cfg config.Config, c clock.Clock, log *zap.Logger) Locker {
	if !cfg.Redis.Enabled() {
		log.Info("using in-process refresh lock")
		return NewLocalLocker(c)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if lc != nil {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if err := client.Ping(ctx).Err(); err != nil {
					log.Warn("redis ping failed", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
				}
				return nil
			},
			OnStop: func(ctx context.Context) error {
				_ = ctx
				return client.Close()
			},
		})
	}
	log.Info("using redis refresh lock", zap.String("addr", cfg.Redis.Addr))
	return NewRedisLocker(client)
}
