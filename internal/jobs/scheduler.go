package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"electricity-compare/internal/observability/metrics"
)

const defaultTimeout = 30 * time.Minute

var (
	// ErrJobRunning is returned when the job is already running in this process.
	ErrJobRunning = errors.New("jobs: job already running")
	// ErrJobLocked is returned when another replica holds the job lock.
	ErrJobLocked = errors.New("jobs: job locked by another instance")
)

// Job is one scheduled unit of work.
type Job struct {
	Name     string
	Schedule string
	Timeout  time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler runs jobs on cron schedules. A job never overlaps itself; with a
// Locker it also never overlaps across replicas.
type Scheduler struct {
	cron    *cron.Cron
	locker  Locker
	logger  *zap.Logger
	mu      sync.Mutex
	running map[string]bool
	baseCtx context.Context
	cancel  context.CancelFunc
}

// Option configures the scheduler.
type Option func(*Scheduler)

// WithLocker enables distributed locking of job runs.
func WithLocker(locker Locker) Option {
	return func(s *Scheduler) { s.locker = locker }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLocation evaluates schedules in loc.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.cron = cron.New(cron.WithLocation(loc))
		}
	}
}

// NewScheduler constructs a scheduler.
func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		cron:    cron.New(),
		logger:  zap.NewNop(),
		running: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.baseCtx, s.cancel = context.WithCancel(context.Background())
	return s
}

// Add registers a job. An empty schedule disables it.
func (s *Scheduler) Add(job Job) error {
	if job.Name == "" || job.Run == nil {
		return errors.New("jobs: job name and run func required")
	}
	if job.Schedule == "" {
		s.logger.Info("job disabled", zap.String("job", job.Name))
		return nil
	}
	if _, err := s.cron.AddFunc(job.Schedule, func() { s.runScheduled(job) }); err != nil {
		return fmt.Errorf("jobs: schedule %s %q: %w", job.Name, job.Schedule, err)
	}
	return nil
}

// Start begins running scheduled jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
}

// Exec runs job once. It returns ErrJobRunning when a previous run is still
// active here and ErrJobLocked when another replica holds the job lock.
func (s *Scheduler) Exec(ctx context.Context, job Job) error {
	if !s.claim(job.Name) {
		metrics.IncJobRun(job.Name, metrics.ResultSkipped)
		return ErrJobRunning
	}
	defer s.unclaim(job.Name)

	timeout := job.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if s.locker != nil {
		token, ok, err := s.locker.TryLock(ctx, job.Name, timeout)
		if err != nil {
			metrics.IncJobRun(job.Name, metrics.ResultError)
			return fmt.Errorf("jobs: lock %s: %w", job.Name, err)
		}
		if !ok {
			metrics.IncJobRun(job.Name, metrics.ResultSkipped)
			return ErrJobLocked
		}
		defer func() {
			if err := s.locker.Release(context.Background(), job.Name, token); err != nil {
				s.logger.Warn("job lock release failed", zap.String("job", job.Name), zap.Error(err))
			}
		}()
	}

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		metrics.IncJobRun(job.Name, metrics.ResultError)
		s.logger.Error("job failed", zap.String("job", job.Name), zap.Duration("took", time.Since(start)), zap.Error(err))
		return err
	}
	metrics.IncJobRun(job.Name, metrics.ResultSuccess)
	s.logger.Info("job done", zap.String("job", job.Name), zap.Duration("took", time.Since(start)))
	return nil
}

func (s *Scheduler) runScheduled(job Job) {
	err := s.Exec(s.baseCtx, job)
	switch {
	case errors.Is(err, ErrJobRunning):
		s.logger.Warn("job still running, skipped", zap.String("job", job.Name))
	case errors.Is(err, ErrJobLocked):
		s.logger.Info("job locked elsewhere, skipped", zap.String("job", job.Name))
	}
}

func (s *Scheduler) claim(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[name] {
		return false
	}
	s.running[name] = true
	return true
}

func (s *Scheduler) unclaim(name string) {
	s.mu.Lock()
	delete(s.running, name)
	s.mu.Unlock()
}
