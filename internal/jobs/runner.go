// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package jobs schedules the periodic evaluators. A job runs from cron, from
// the admin trigger, or directly from tests, and never overlaps itself on
// this replica or, through the shared lock, on any other.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"backdrop/internal/metrics"
)

// Job is a periodic evaluator.
type Job interface {
	Name() string
	Run(ctx context.Context, now time.Time) error
}

// Locker provides a lock shared between replicas.
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (release func(), ok bool, err error)
}

var (
	// ErrUnknownJob is returned by RunNow for unregistered names.
	ErrUnknownJob = errors.New("unknown job")
	// ErrBusy is returned when the job is already running here or on
	// another replica.
	ErrBusy = errors.New("job is already running")
)

// DefaultLockTTL bounds how long a crashed replica can hold a job lock.
const DefaultLockTTL = 30 * time.Minute

// Runner owns the cron scheduler and the registered jobs.
type Runner struct {
	cron    *cron.Cron
	locker  Locker
	lockTTL time.Duration
	now     func() time.Time

	mu      sync.Mutex
	jobs    map[string]*entry
	baseCtx context.Context
}

type entry struct {
	job     Job
	running sync.Mutex
}

// NewRunner creates a runner. locker may be nil, in which case only local
// overlap is prevented.
func NewRunner(locker Locker) *Runner {
	logger := slogLogger{}
	return &Runner{
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		locker:  locker,
		lockTTL: DefaultLockTTL,
		now:     time.Now,
		jobs:    make(map[string]*entry),
		baseCtx: context.Background(),
	}
}

// Register adds job under the given cron spec. Specs use the standard
// five-field format or descriptors such as "@every 15m".
func (r *Runner) Register(job Job, spec string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := job.Name()
	if _, ok := r.jobs[name]; ok {
		return fmt.Errorf("job %s already registered", name)
	}
	e := &entry{job: job}
	if _, err := r.cron.AddFunc(spec, func() { r.scheduled(e) }); err != nil {
		return fmt.Errorf("schedule job %s with %q: %w", name, spec, err)
	}
	r.jobs[name] = e
	slog.Info("job registered", "job", name, "schedule", spec)
	return nil
}

// Every returns the cron spec for a fixed interval.
func Every(d time.Duration) string {
	return "@every " + d.String()
}

// Start begins scheduled execution. Runs are detached from ctx
// cancellation so a shutdown never interrupts a job halfway.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	r.baseCtx = ctx
	r.mu.Unlock()
	r.cron.Start()
}

// Stop stops scheduling and waits for running jobs until ctx is done.
func (r *Runner) Stop(ctx context.Context) error {
	done := r.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for running jobs: %w", ctx.Err())
	}
}

// RunNow runs the named job immediately and returns its error.
func (r *Runner) RunNow(ctx context.Context, name string) error {
	r.mu.Lock()
	e, ok := r.jobs[name]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return r.run(context.WithoutCancel(ctx), e)
}

func (r *Runner) scheduled(e *entry) {
	r.mu.Lock()
	ctx := context.WithoutCancel(r.baseCtx)
	r.mu.Unlock()

	if err := r.run(ctx, e); err != nil && !errors.Is(err, ErrBusy) {
		slog.Error("job failed", "job", e.job.Name(), "error", err)
	}
}

func (r *Runner) run(ctx context.Context, e *entry) error {
	name := e.job.Name()
	if !e.running.TryLock() {
		metrics.JobRunsTotal.WithLabelValues(name, "skipped").Inc()
		return fmt.Errorf("%w: %s", ErrBusy, name)
	}
	defer e.running.Unlock()

	if r.locker != nil {
		release, ok, err := r.locker.TryLock(ctx, name, r.lockTTL)
		if err != nil {
			metrics.JobRunsTotal.WithLabelValues(name, "error").Inc()
			return err
		}
		if !ok {
			slog.Info("job is running on another replica, skipping", "job", name)
			metrics.JobRunsTotal.WithLabelValues(name, "skipped").Inc()
			return fmt.Errorf("%w: %s", ErrBusy, name)
		}
		defer release()
	}

	start := time.Now()
	err := e.job.Run(ctx, r.now())
	elapsed := time.Since(start)
	metrics.JobDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	if err != nil {
		metrics.JobRunsTotal.WithLabelValues(name, "error").Inc()
		return fmt.Errorf("run job %s: %w", name, err)
	}
	metrics.JobRunsTotal.WithLabelValues(name, "ok").Inc()
	metrics.JobLastSuccess.WithLabelValues(name).SetToCurrentTime()
	slog.Debug("job finished", "job", name, "duration", elapsed)
	return nil
}

// slogLogger adapts slog to the cron logger interface.
type slogLogger struct{}

func (slogLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (slogLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
