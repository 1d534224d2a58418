package session

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// DefaultSweepInterval is how often expired sessions are purged.
const DefaultSweepInterval = 60 * time.Second

// Sweeper purges expired sessions on a fixed interval.
type Sweeper struct {
	registry *Registry
	interval time.Duration
	log      zerolog.Logger
}

// NewSweeper builds a sweeper for registry. A non-positive interval falls
// back to DefaultSweepInterval.
func NewSweeper(registry *Registry, interval time.Duration, log zerolog.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{registry: registry, interval: interval, log: log}
}

// Run sweeps every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.registry.Sweep(); removed > 0 {
				s.log.Debug().Int("removed", removed).Int("remaining", s.registry.Len()).Msg("swept expired sessions")
			}
		}
	}
}

// Start runs the sweeper in the background. The returned stop function
// cancels it and waits for the loop to exit.
func (s *Sweeper) Start(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		s.Run(ctx)
	}()

	return func() {
		cancel()
		<-done
	}
}
