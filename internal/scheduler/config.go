package scheduler

import (
	"time"

	"github.com/smallbiznis/referra/internal/config"
)

// Config controls the payout scheduler cadence.
type Config struct {
	TickInterval time.Duration
	JobTimeout   time.Duration
}

func DefaultConfig() Config {
	return Config{
		TickInterval: time.Hour,
		JobTimeout:   10 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.TickInterval <= 0 {
		c.TickInterval = defaults.TickInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	return c
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		TickInterval: cfg.SchedulerTickInterval,
	}
}
