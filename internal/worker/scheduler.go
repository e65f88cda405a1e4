package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"ffsync/internal/log"
	"ffsync/internal/services"
)

// Runner is one collection pass.
type Runner interface {
	Run(ctx context.Context) (services.RunResult, error)
}

// Scheduler runs a Runner immediately and then once per interval until its
// context is cancelled. A tick that arrives while a run is still going is
// skipped.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	logger   *log.Logger

	wg      sync.WaitGroup
	running atomic.Bool
	runs    atomic.Int64
	skipped atomic.Int64
}

func NewScheduler(runner Runner, interval time.Duration, logger *log.Logger) (*Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("invalid interval %v: must be positive", interval)
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Scheduler{
		runner:   runner,
		interval: interval,
		logger:   logger.WithComponent(log.ComponentWorker),
	}, nil
}

// Start blocks until ctx is done and returns ctx.Err(). Run failures are
// logged, never returned.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Scheduler started", log.FieldOperation, log.OpStartup, "interval", s.interval.String())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.launch(ctx)

	for {
		select {
		case <-ctx.Done():
			// Let an in-flight run observe the cancellation before returning.
			s.wg.Wait()
			s.logger.Info("Scheduler stopped", log.FieldOperation, log.OpShutdown, "runs", s.runs.Load(), "skipped", s.skipped.Load())
			return ctx.Err()
		case <-ticker.C:
			if s.running.Load() {
				s.skipped.Add(1)
				s.logger.WarnContext(ctx, "Previous run still in progress, skipping tick")
				continue
			}
			s.launch(ctx)
		}
	}
}

func (s *Scheduler) launch(ctx context.Context) {
	s.running.Store(true)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)
		s.runOnce(ctx)
	}()
}

func (s *Scheduler) runOnce(ctx context.Context) {
	start := time.Now()
	res, err := s.runner.Run(ctx)
	s.runs.Add(1)

	fields := []any{
		log.FieldRunID, res.RunID,
		log.FieldDuration, time.Since(start).Milliseconds(),
		"managers", res.Managers,
		"reports", len(res.Reports),
	}
	switch {
	case err == nil:
		s.logger.InfoContext(ctx, "Scheduled run completed", fields...)
	case errors.Is(err, context.Canceled):
		s.logger.InfoContext(ctx, "Scheduled run cancelled", fields...)
	default:
		s.logger.ErrorContext(ctx, "Scheduled run failed", append(fields, log.FieldError, err)...)
	}
}

// Runs reports how many runs have finished.
func (s *Scheduler) Runs() int64 { return s.runs.Load() }

// Skipped reports how many ticks were dropped because a run was in progress.
func (s *Scheduler) Skipped() int64 { return s.skipped.Load() }
