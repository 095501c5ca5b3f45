package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vietanh2810/fuelticket-api/internal/domain"
	"github.com/vietanh2810/fuelticket-api/internal/pkg/clock"
)

const expirationLockName = "fuelticket:jobs:ticket-expiration"

// JobLock is a lock shared by every replica of the service.
type JobLock interface {
	TryAcquire(ctx context.Context, name string, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

type ExpirationJob interface {
	Run(ctx context.Context) (domain.ExpirationReport, error)
}

// Scheduler runs the expiration job once a day at a wall-clock time. A run
// never overlaps another one in this process, nor in other replicas when a
// JobLock is configured.
type Scheduler struct {
	job     ExpirationJob
	clock   clock.Clock
	lock    JobLock
	lockTTL time.Duration

	running sync.Mutex

	mu     sync.Mutex
	hour   int
	minute int
	loc    *time.Location
}

type SchedulerOption func(*Scheduler)

func WithJobLock(lock JobLock, ttl time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.lock = lock
		s.lockTTL = ttl
	}
}

func NewScheduler(job ExpirationJob, clk clock.Clock, hour, minute int, loc *time.Location, opts ...SchedulerOption) *Scheduler {
	if loc == nil {
		loc = time.Local
	}

	s := &Scheduler{
		job:     job,
		clock:   clk,
		lockTTL: 10 * time.Minute,
		hour:    hour,
		minute:  minute,
		loc:     loc,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// SetRunAt changes the daily run time. It applies from the next arming of
// the timer.
func (s *Scheduler) SetRunAt(hour, minute int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hour = hour
	s.minute = minute
}

func (s *Scheduler) nextRun(now time.Time) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	return nextRun(now, s.hour, s.minute, s.loc)
}

// nextRun returns the first hour:minute in loc strictly after now.
func nextRun(now time.Time, hour, minute int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
	}

	return next
}

// Start blocks until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	for {
		now := s.clock.Now()
		next := s.nextRun(now)
		zap.L().Info("ticket expiration scheduled", zap.Time("at", next))

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if _, err := s.Trigger(ctx); err != nil {
			zap.L().Error("ticket expiration run failed", zap.Error(err))
		}
	}
}

// Trigger runs the job now unless a run is already in progress here or, with
// a JobLock, on another replica.
func (s *Scheduler) Trigger(ctx context.Context) (domain.ExpirationReport, error) {
	if !s.running.TryLock() {
		return domain.ExpirationReport{}, domain.ErrExpirationRunning
	}
	defer s.running.Unlock()

	if s.lock != nil {
		release, ok, err := s.lock.TryAcquire(ctx, expirationLockName, s.lockTTL)
		if err != nil {
			return domain.ExpirationReport{}, fmt.Errorf("s.lock.TryAcquire -> %w", err)
		}
		if !ok {
			return domain.ExpirationReport{}, domain.ErrExpirationRunning
		}
		defer func() {
			if err := release(context.Background()); err != nil {
				zap.L().Warn("failed to release expiration lock", zap.Error(err))
			}
		}()
	}

	report, err := s.job.Run(ctx)
	if err != nil {
		return report, fmt.Errorf("s.job.Run -> %w", err)
	}

	return report, nil
}
