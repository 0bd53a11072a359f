// Package scheduler runs the periodic sample capture and retention cleanup jobs.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kodacci/o-monitor-rest/internal/apperr"
	"github.com/kodacci/o-monitor-rest/internal/stats/domain"
)

// Sampler produces samples and owns the rolling CPU load.
type Sampler interface {
	CaptureSample(ctx context.Context) (*domain.Sample, error)
	RunLoadLoop(ctx context.Context, interval time.Duration)
}

// Store is the subset of the stats repository used by the jobs.
type Store interface {
	Write(ctx context.Context, s *domain.Sample) error
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// Options configures the job cadence. Specs use the six-field cron syntax (with seconds).
type Options struct {
	CaptureSpec  string
	CleanupSpec  string
	Retention    time.Duration
	LoadInterval time.Duration
}

// Scheduler owns the capture and cleanup cron jobs and the load recompute loop.
type Scheduler struct {
	sampler Sampler
	store   Store
	opts    Options
	logger  *slog.Logger
	now     func() time.Time

	cron    *cron.Cron
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// New validates opts and registers both jobs. Nothing runs until Start.
func New(sampler Sampler, store Store, opts Options, logger *slog.Logger) (*Scheduler, error) {
	if opts.Retention <= 0 {
		return nil, errors.New("scheduler: retention must be positive")
	}
	if opts.LoadInterval <= 0 {
		opts.LoadInterval = time.Second
	}
	logger = logger.With("component", "scheduler")
	cronLog := cronLogger{logger: logger}
	s := &Scheduler{
		sampler: sampler,
		store:   store,
		opts:    opts,
		logger:  logger,
		now:     time.Now,
		ctx:     context.Background(),
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
	}
	if _, err := s.cron.AddFunc(opts.CaptureSpec, s.captureJob); err != nil {
		return nil, fmt.Errorf("scheduler: capture spec %q: %w", opts.CaptureSpec, err)
	}
	if _, err := s.cron.AddFunc(opts.CleanupSpec, s.cleanupJob); err != nil {
		return nil, fmt.Errorf("scheduler: cleanup spec %q: %w", opts.CleanupSpec, err)
	}
	return s, nil
}

// Start begins the cron jobs, the load loop and one immediate cleanup run. Jobs stop when ctx is
// cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.sampler.RunLoadLoop(s.ctx, s.opts.LoadInterval)
	}()
	go func() {
		defer s.wg.Done()
		s.cleanupJob()
	}()
	s.cron.Start()
	s.logger.Info("scheduler started",
		"capture", s.opts.CaptureSpec, "cleanup", s.opts.CleanupSpec, "retention", s.opts.Retention)
}

// Stop cancels the jobs and waits for running ones to finish or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.cancel()
	s.mu.Unlock()

	cronDone := s.cron.Stop()
	waitDone := make(chan struct{})
	go func() {
		s.wg.Wait()
		<-cronDone.Done()
		close(waitDone)
	}()
	select {
	case <-waitDone:
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) runContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// CaptureOnce captures one sample and writes it to the store.
func (s *Scheduler) CaptureOnce(ctx context.Context) error {
	sample, err := s.sampler.CaptureSample(ctx)
	if err != nil {
		return apperr.Wrap(err, apperr.CodeWatcherSaveStats, "capture sample")
	}
	if err := s.store.Write(ctx, sample); err != nil {
		return apperr.Wrap(err, apperr.CodeWatcherSaveStats, "write sample")
	}
	return nil
}

// CleanupOnce deletes samples older than the retention window and returns how many were removed.
func (s *Scheduler) CleanupOnce(ctx context.Context) (int64, error) {
	before := s.now().Add(-s.opts.Retention)
	n, err := s.store.DeleteOlderThan(ctx, before)
	if err != nil {
		return 0, apperr.Wrap(err, apperr.CodeWatcherCleanupStats, "delete old samples")
	}
	return n, nil
}

func (s *Scheduler) captureJob() {
	if err := s.CaptureOnce(s.runContext()); err != nil {
		s.logger.Error("save stats failed", "code", apperr.CodeWatcherSaveStats, "error", err)
	}
}

func (s *Scheduler) cleanupJob() {
	n, err := s.CleanupOnce(s.runContext())
	if err != nil {
		s.logger.Error("cleanup stats failed", "code", apperr.CodeWatcherCleanupStats, "error", err)
		return
	}
	s.logger.Info("old stats removed", "count", n)
}

// cronLogger routes cron's own messages to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append([]any{"error", err}, keysAndValues...)...)
}
