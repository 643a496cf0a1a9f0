package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/npezzotti/vibehub/internal/database"
	"github.com/npezzotti/vibehub/internal/session"
	"github.com/npezzotti/vibehub/internal/stats"
	"github.com/npezzotti/vibehub/internal/types"
	"github.com/sirupsen/logrus"
)

type GuestService struct {
	log          *logrus.Logger
	repo         database.VibeHubRepository
	sessions     session.CredentialResolver
	notifier     RoomNotifier
	stats        stats.StatsProvider
	generateName func() (string, error)
}

func NewGuestService(logger *logrus.Logger, repo database.VibeHubRepository, sessions session.CredentialResolver, notifier RoomNotifier, su stats.StatsProvider) *GuestService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &GuestService{
		log:          logger,
		repo:         repo,
		sessions:     sessions,
		notifier:     notifier,
		stats:        su,
		generateName: generateGuestName,
	}
}

// CreateGuest creates an anonymous identity and a session for it.
func (s *GuestService) CreateGuest(ctx context.Context) (database.Guest, string, error) {
	name, err := s.generateName()
	if err != nil {
		return database.Guest{}, "", fmt.Errorf("generate guest name: %w", err)
	}

	guest, err := s.repo.CreateGuest(ctx, name)
	if err != nil {
		return database.Guest{}, "", fmt.Errorf("create guest: %w", err)
	}

	token, err := s.sessions.CreateSession(ctx, session.Caller{Guest: &guest})
	if err != nil {
		return database.Guest{}, "", fmt.Errorf("create guest session: %w", err)
	}

	s.stats.Incr(stats.GuestsCreated)
	s.log.WithField("guest_id", guest.Id).Info("guest created")

	return guest, token, nil
}

// DeleteGuest removes the calling guest and frees its room slot.
func (s *GuestService) DeleteGuest(ctx context.Context, caller session.Caller, credential string) error {
	if !caller.IsGuest() {
		return ErrGuestNotFound
	}

	if err := s.sessions.InvalidateSession(ctx, credential); err != nil {
		if errors.Is(err, session.ErrUnauthenticated) {
			return ErrGuestNotFound
		}
		return fmt.Errorf("invalidate guest session: %w", err)
	}

	if caller.Guest.RoomId.Valid {
		s.notifier.Notify(newEvent(types.EventMemberLeft, caller.Guest.RoomId.UUID, memberId(caller.Guest.Id), nil))
	}

	return nil
}
