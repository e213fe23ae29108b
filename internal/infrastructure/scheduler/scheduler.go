// Package scheduler runs the periodic write-behind flush.
package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"
)

// Flusher persists dirty in-memory state to the durable store.
type Flusher interface {
	FlushDirty(ctx context.Context) error
}

// Scheduler drives a Flusher on a fixed interval.
type Scheduler struct {
	cron     *gocron.Scheduler
	flusher  Flusher
	interval time.Duration
	logger   *logrus.Logger
}

// New builds a flush scheduler. It does not start until Start is called.
func New(flusher Flusher, interval time.Duration, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:     gocron.NewScheduler(time.UTC),
		flusher:  flusher,
		interval: interval,
		logger:   logger,
	}
}

// Start registers the flush job and runs the scheduler in the background.
func (s *Scheduler) Start() error {
	if _, err := s.cron.Every(s.interval).Do(s.flushTick); err != nil {
		return err
	}
	s.cron.StartAsync()
	s.logger.WithField("interval", s.interval.String()).Info("flush scheduler started")
	return nil
}

// Stop halts the scheduler. Pending in-memory changes are the caller's
// responsibility; call the store's Finalize after Stop.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

func (s *Scheduler) flushTick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()
	if err := s.flusher.FlushDirty(ctx); err != nil {
		s.logger.WithError(err).Warn("periodic flush incomplete")
	}
}
