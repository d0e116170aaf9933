package sessions

import (
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const fallbackSweepSpec = "@every 1m"

// Sweeper evicts idle editor sessions on a cron schedule.
type Sweeper struct {
	registry *Registry
	maxIdle  time.Duration
	spec     string
	logger   *slog.Logger
	cron     *cron.Cron
}

func NewSweeper(registry *Registry, maxIdle time.Duration, spec string, logger *slog.Logger) *Sweeper {
	return &Sweeper{registry: registry, maxIdle: maxIdle, spec: spec, logger: logger}
}

func (s *Sweeper) Start() {
	c := cron.New()
	if _, err := c.AddFunc(s.spec, s.runOnce); err != nil {
		s.logger.Warn("invalid sweep schedule, using fallback", "spec", s.spec, "fallback", fallbackSweepSpec, "error", err)
		c = cron.New()
		_, _ = c.AddFunc(fallbackSweepSpec, s.runOnce)
	}
	c.Start()
	s.cron = c
}

// Stop waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

func (s *Sweeper) runOnce() {
	if n := s.registry.Sweep(s.maxIdle); n > 0 {
		s.logger.Info("editor sessions expired", "count", n, "remaining", s.registry.Len())
	}
}
