// Package scheduler runs the periodic maintenance jobs on cron schedules with
// an explicit start/stop lifecycle owned by main.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/MikeMC777/tienda-ecom/internal/logging"
	"github.com/MikeMC777/tienda-ecom/internal/metrics"
)

// Job is one idempotent bulk operation. Run reports how many rows it touched.
type Job interface {
	Name() string
	Run(ctx context.Context) (int64, error)
}

type Scheduler struct {
	cron    *cron.Cron
	log     *zap.Logger
	metrics *metrics.Metrics
	timeout time.Duration
}

type Option func(*Scheduler)

func WithMetrics(m *metrics.Metrics) Option { return func(s *Scheduler) { s.metrics = m } }

// WithJobTimeout bounds a single run. Default 5 minutes.
func WithJobTimeout(d time.Duration) Option { return func(s *Scheduler) { s.timeout = d } }

func New(log *zap.Logger, opts ...Option) *Scheduler {
	cl := cronLogger{s: log.Named("cron").Sugar()}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		log:     log,
		timeout: 5 * time.Minute,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Register schedules job on a standard five-field cron spec.
func (s *Scheduler) Register(spec string, job Job) error {
	if _, err := s.cron.AddFunc(spec, func() { _, _ = s.RunNow(context.Background(), job) }); err != nil {
		return fmt.Errorf("schedule %s %q: %w", job.Name(), spec, err)
	}
	s.log.Info("job_registered", zap.String("job", job.Name()), zap.String("spec", spec))
	return nil
}

// RunNow executes job once with the scheduler's timeout, logging and
// recording the outcome.
func (s *Scheduler) RunNow(ctx context.Context, job Job) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	log := s.log.With(zap.String("job", job.Name()))
	ctx = logging.ContextWithLogger(ctx, log)

	start := time.Now()
	n, err := job.Run(ctx)
	s.metrics.JobDone(job.Name(), n, err)
	if err != nil {
		log.Error("job_run_failed", zap.Duration("latency", time.Since(start)), zap.Error(err))
		return n, err
	}
	log.Info("job_run_done", zap.Int64("affected", n), zap.Duration("latency", time.Since(start)))
	return n, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler_started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop prevents new runs and waits for running jobs until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.log.Info("scheduler_stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct{ s *zap.SugaredLogger }

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
