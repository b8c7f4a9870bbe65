package cart

import (
	"context"
	"time"

	"github.com/Zhima-Mochi/honeyshop/internal/observability"
)

const (
	sweeperService = "cart_sweeper"

	DefaultSweepInterval = 5 * time.Minute
)

// Sweeper expires idle sessions on its own ticker, independent of inventory refreshes.
type Sweeper struct {
	sessions *Sessions
	interval time.Duration

	log    observability.Logger
	active observability.Gauge // cart_sessions_active
}

func NewSweeper(sessions *Sessions, interval time.Duration, tel observability.Observability) *Sweeper {
	if tel == nil {
		tel = observability.Nop()
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		sessions: sessions,
		interval: interval,
		log:      tel.Logger().With(observability.F("service", sweeperService)),
		active:   tel.Metrics().Gauge(observability.MCartSessions),
	}
}

// Run sweeps every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	s.log.Info("session_sweeper_started", observability.F("interval_seconds", s.interval.Seconds()))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("session_sweeper_stopped")
			return nil
		case now := <-ticker.C:
			s.SweepAt(now)
		}
	}
}

// SweepAt drops sessions idle at now and reports how many went away.
func (s *Sweeper) SweepAt(now time.Time) int {
	dropped := s.sessions.Sweep(now)
	remaining := s.sessions.Len()
	s.active.Set(float64(remaining))
	if dropped > 0 {
		s.log.Info("sessions_swept",
			observability.F("sessions_swept", dropped),
			observability.F("sessions_active", remaining),
		)
	}
	return dropped
}
