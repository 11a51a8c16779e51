package scheduler

import (
	"time"

	"github.com/smallbiznis/countrystat/internal/config"
)

const refreshJob = "refresh"

// Config controls the background refresh loop.
type Config struct {
	// RunInterval between refresh runs. Zero disables the loop.
	RunInterval time.Duration
	JobTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		JobTimeout: 5 * time.Minute,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval: cfg.Refresh.Interval,
		JobTimeout:  cfg.Refresh.LockTTL,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval < 0 {
		c.RunInterval = 0
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	return c
}

// Enabled reports whether the loop should run.
func (c Config) Enabled() bool {
	return c.RunInterval > 0
}
