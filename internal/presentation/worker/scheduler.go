package workerpresentation

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Zhima-Mochi/honeyshop/internal/application"
	appinventory "github.com/Zhima-Mochi/honeyshop/internal/application/inventory"
	"github.com/Zhima-Mochi/honeyshop/internal/observability"
)

const (
	componentScheduler = "refresh_scheduler"

	DefaultRefreshInterval = 300 * time.Second
	DefaultFetchTimeout    = 15 * time.Second
)

// RefreshUseCase is the inventory refresh the scheduler fires.
type RefreshUseCase = application.UseCase[appinventory.RefreshCommand, *appinventory.RefreshResult]

// Scheduler fires one inventory refresh at startup and one per interval afterwards. Every
// refresh runs on its own goroutine with its own timeout, so a slow fetch never delays the
// next tick and refreshes may overlap.
type Scheduler struct {
	useCase  RefreshUseCase
	interval time.Duration
	timeout  time.Duration
	log      observability.Logger

	wg       sync.WaitGroup
	inflight atomic.Int64
}

func NewScheduler(uc RefreshUseCase, interval, timeout time.Duration, logger observability.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Scheduler{
		useCase:  uc,
		interval: interval,
		timeout:  timeout,
		log:      logger.With(observability.F("component", componentScheduler)),
	}
}

// Run blocks until ctx is cancelled, then waits for in-flight refreshes to return.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info("refresh_scheduler_started",
		observability.F("interval_seconds", s.interval.Seconds()),
		observability.F("timeout_seconds", s.timeout.Seconds()),
	)
	s.fire(ctx, appinventory.TriggerStartup)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			s.log.Info("refresh_scheduler_stopped")
			return nil
		case <-ticker.C:
			s.fire(ctx, appinventory.TriggerSchedule)
		}
	}
}

// Trigger runs one refresh outside the schedule without waiting for it.
func (s *Scheduler) Trigger(ctx context.Context) {
	s.fire(ctx, appinventory.TriggerManual)
}

// InFlight is the number of refreshes currently running.
func (s *Scheduler) InFlight() int {
	return int(s.inflight.Load())
}

func (s *Scheduler) fire(ctx context.Context, trigger string) {
	s.wg.Add(1)
	s.inflight.Add(1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("refresh_panic",
					observability.F("trigger", trigger),
					observability.F("panic", r),
					observability.F("stack", string(debug.Stack())),
				)
			}
			s.inflight.Add(-1)
			s.wg.Done()
		}()

		rctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		rctx = WithEventContext(rctx, s.log, map[string]string{
			"trigger": trigger,
		})

		if _, err := s.useCase.Execute(rctx, appinventory.RefreshCommand{Trigger: trigger}); err != nil {
			s.log.Warn("refresh_failed",
				observability.F("trigger", trigger),
				observability.F("error", err),
			)
		}
	}()
}
