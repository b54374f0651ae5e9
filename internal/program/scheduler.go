package program

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler drives TriggerProgramReleases on a cron cadence, grounded on
// r3e-network-service_layer's cron.New()/AddFunc dispatch loop for its
// own periodic jobs. Production runs this once per process; tests call
// TriggerProgramReleases directly and never need the ticker.
type Scheduler struct {
	c   *cron.Cron
	e   *Engine
	log *slog.Logger
}

// NewScheduler builds a Scheduler that calls e.TriggerProgramReleases on
// spec, a standard 5-field cron expression (e.g. "* * * * *" for every
// minute — schedules are second-granularity in data but the dispatch
// loop itself only needs to run often enough to not miss a window by
// more than a tick).
func NewScheduler(e *Engine, log *slog.Logger, spec string) (*Scheduler, error) {
	c := cron.New()
	s := &Scheduler{c: c, e: e, log: log}
	_, err := c.AddFunc(spec, s.tick)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) tick() {
	n, err := s.e.TriggerProgramReleases(context.Background())
	if err != nil {
		s.log.Warn("scheduled release dispatch failed", "error", err)
		return
	}
	if n > 0 {
		s.log.Info("scheduled releases dispatched", "count", n)
	}
}

// Start begins the cron loop in the background.
func (s *Scheduler) Start() { s.c.Start() }

// Stop blocks until in-flight jobs finish, then stops the loop.
func (s *Scheduler) Stop() { <-s.c.Stop().Done() }
