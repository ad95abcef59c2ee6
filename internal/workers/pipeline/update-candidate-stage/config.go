package updatecandidatestage

import (
	"time"

	"hiring-pipeline/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

// LoadConfig reads the worker timeout, falling back to 10s.
func LoadConfig(cfg *config.Config) *Config {
	c := &Config{Timeout: 10 * time.Second}
	if cfg == nil {
		return c
	}
	if wc := config.GetWorkerConfig(cfg, TaskType); wc.Timeout > 0 {
		c.Timeout = config.GetDuration(wc.Timeout)
	}
	return c
}
