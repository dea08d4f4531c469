package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"wallet-reconciler/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const tickLeaseName = "reconcile"

// TickLocker grants a tick to a single replica. Implemented by the Redis tick lease.
type TickLocker interface {
	TryAcquire(ctx context.Context, name string, holder string, ttl time.Duration) (bool, error)
}

// Scheduler triggers a reconciliation run on a fixed interval.
type Scheduler struct {
	svc      ports.ReconciliationService
	lease    TickLocker
	interval time.Duration
	holder   string
	log      zerolog.Logger
}

// NewScheduler creates a Scheduler. A nil lease lets every replica run every tick.
func NewScheduler(svc ports.ReconciliationService, lease TickLocker, interval time.Duration, log zerolog.Logger) *Scheduler {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return &Scheduler{
		svc:      svc,
		lease:    lease,
		interval: interval,
		holder:   fmt.Sprintf("%s/%s", host, uuid.NewString()),
		log:      log,
	}
}

// Start blocks until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info().Dur("interval", s.interval).Str("holder", s.holder).Msg("reconciliation scheduler started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("reconciliation scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if s.lease != nil {
		held, err := s.lease.TryAcquire(ctx, tickLeaseName, s.holder, s.interval)
		switch {
		case err != nil:
			// Overlapping runs are safe, only wasteful.
			s.log.Warn().Err(err).Msg("tick lease unavailable, running anyway")
		case !held:
			s.log.Debug().Msg("tick claimed by another replica")
			return
		}
	}

	run, err := s.svc.Run(ctx)
	if err != nil {
		// Already logged by the run recorder.
		return
	}
	s.log.Debug().Str("run_id", run.ID.String()).Int("processed", run.Processed).Msg("scheduled run finished")
}
