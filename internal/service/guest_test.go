package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/npezzotti/vibehub/internal/database"
	"github.com/npezzotti/vibehub/internal/session"
	"github.com/npezzotti/vibehub/internal/stats"
	"github.com/npezzotti/vibehub/internal/testutil"
	"github.com/npezzotti/vibehub/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestGuestServiceCreateGuest(t *testing.T) {
	repo := &database.MockVibeHubRepository{}
	defer repo.AssertExpectations(t)
	su := &stats.MockStatsUpdater{}
	defer su.AssertExpectations(t)
	resolver := &fakeResolver{}
	s := NewGuestService(testutil.TestLogger(t), repo, resolver, nil, su)
	s.generateName = func() (string, error) { return "GuestAbCdE12345", nil }

	guest := database.Guest{Id: uuid.New(), Name: "GuestAbCdE12345"}
	repo.On("CreateGuest", mock.Anything, "GuestAbCdE12345").Return(guest, nil)
	su.On("Incr", stats.GuestsCreated).Return()

	got, token, err := s.CreateGuest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, guest, got)
	assert.Equal(t, "token-1", token)
	require.Len(t, resolver.created, 1)
	assert.True(t, resolver.created[0].IsGuest())
}

func TestGuestServiceDeleteGuest(t *testing.T) {
	roomId := uuid.New()

	tcases := []struct {
		name       string
		caller     session.Caller
		err        error
		wantErr    error
		wantEvents []types.EventType
	}{
		{name: "user caller", caller: session.Caller{User: &database.User{Id: uuid.New()}}, wantErr: ErrGuestNotFound},
		{name: "already gone", caller: session.Caller{Guest: &database.Guest{Id: uuid.New()}}, err: session.ErrUnauthenticated, wantErr: ErrGuestNotFound},
		{name: "guest outside a room", caller: session.Caller{Guest: &database.Guest{Id: uuid.New()}}},
		{
			name:       "guest in a room",
			caller:     session.Caller{Guest: &database.Guest{Id: uuid.New(), RoomId: inRoom(roomId)}},
			wantEvents: []types.EventType{types.EventMemberLeft},
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			resolver := &fakeResolver{err: tc.err}
			notifier := &recordingNotifier{}
			s := NewGuestService(testutil.TestLogger(t), &database.MockVibeHubRepository{}, resolver, notifier, stats.NoopStats{})

			err := s.DeleteGuest(context.Background(), tc.caller, "credential")
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []string{"credential"}, resolver.invalidated)
			assert.Equal(t, tc.wantEvents, notifier.eventTypes())
		})
	}
}
