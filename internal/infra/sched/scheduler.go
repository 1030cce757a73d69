package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"telegram-affiliate-bot/internal/infra/metrics"
)

// Job is one periodic unit of work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler runs a Job every interval, plus once right after Start.
type Scheduler struct {
	interval time.Duration
	timeout  time.Duration
	job      Job
	log      *zerolog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler defaults interval to one minute. Each run is bounded by timeout
// (30s when zero).
func NewScheduler(interval, timeout time.Duration, job Job, logger *zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	l := logger.With().Str("component", "scheduler").Str("job", job.Name()).Logger()
	return &Scheduler{interval: interval, timeout: timeout, job: job, log: &l}
}

// Start begins the loop in a background goroutine. A second call is a no-op.
func (s *Scheduler) Start(parent context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx)
}

func (s *Scheduler) loop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer func() {
		ticker.Stop()
		close(s.done)
	}()

	s.log.Info().Dur("interval", s.interval).Msg("scheduler started")
	s.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("scheduler stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err := s.job.Run(runCtx)
	if ctx.Err() != nil {
		return
	}
	metrics.ObserveScheduledRun(s.job.Name(), time.Since(start), err)
	if err != nil {
		s.log.Error().Err(err).Msg("scheduled job failed")
	}
}

// Stop cancels the loop and waits for the running job to return.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
}
