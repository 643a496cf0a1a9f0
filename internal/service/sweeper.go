package service

import (
	"context"
	"time"

	"github.com/npezzotti/vibehub/internal/database"
	"github.com/npezzotti/vibehub/internal/stats"
	"github.com/npezzotti/vibehub/internal/types"
	"github.com/sirupsen/logrus"
)

// GuestSweeper periodically purges guests that have been idle for longer
// than the idle timeout.
type GuestSweeper struct {
	log         *logrus.Logger
	repo        database.VibeHubRepository
	notifier    RoomNotifier
	stats       stats.StatsProvider
	interval    time.Duration
	idleTimeout time.Duration
	now         func() time.Time
}

func NewGuestSweeper(logger *logrus.Logger, repo database.VibeHubRepository, notifier RoomNotifier, su stats.StatsProvider, interval, idleTimeout time.Duration) *GuestSweeper {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &GuestSweeper{
		log:         logger,
		repo:        repo,
		notifier:    notifier,
		stats:       su,
		interval:    interval,
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

// Run sweeps on every tick until ctx is cancelled. A failed sweep is logged
// and retried on the next tick.
func (s *GuestSweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.WithFields(logrus.Fields{
		"interval":     s.interval,
		"idle_timeout": s.idleTimeout,
	}).Info("guest sweeper started")

	for {
		select {
		case <-ctx.Done():
			s.log.Info("guest sweeper stopped")
			return nil
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
				s.log.WithError(err).Error("guest sweep failed")
			}
		}
	}
}

// Sweep deletes every guest idle since before now minus the idle timeout
// and returns how many were purged.
func (s *GuestSweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.idleTimeout)
	purged, err := s.repo.DeleteInactiveGuests(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	for _, g := range purged {
		s.log.WithFields(logrus.Fields{
			"guest_id":    g.Id,
			"name":        g.Name,
			"last_active": g.LastActive,
		}).Info("purged inactive guest")
		if g.RoomId.Valid {
			s.notifier.Notify(newEvent(types.EventMemberLeft, g.RoomId.UUID, memberId(g.Id), nil))
		}
	}
	if len(purged) > 0 {
		s.stats.Add(stats.GuestsPurged, len(purged))
	}

	return len(purged), nil
}
