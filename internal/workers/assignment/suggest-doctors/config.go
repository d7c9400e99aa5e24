package suggestdoctors

import (
	"fmt"
	"time"

	"dispatch-workers/internal/common/config"
)

type Config struct {
	Enabled       bool
	MaxJobsActive int
	Timeout       time.Duration
	DefaultTopK   int
	MaxTopK       int
}

func NewConfig(appCfg *config.Config) *Config {
	wc := config.GetWorkerConfig(appCfg, TaskType)
	return &Config{
		Enabled:       wc.Enabled,
		MaxJobsActive: wc.MaxJobsActive,
		Timeout:       config.GetDuration(wc.Timeout),
		DefaultTopK:   appCfg.Dispatch.TopK,
		MaxTopK:       appCfg.Dispatch.MaxTopK,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxTopK <= 0 {
		return fmt.Errorf("max top-k must be positive")
	}
	return nil
}
