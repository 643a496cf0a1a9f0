package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/npezzotti/vibehub/internal/database"
	"github.com/npezzotti/vibehub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestMusicServiceGetFile(t *testing.T) {
	id := uuid.New()

	tcases := []struct {
		name   string
		record error
	}{
		{name: "no record", record: sql.ErrNoRows},
		{name: "record without file"},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &database.MockVibeHubRepository{}
			defer repo.AssertExpectations(t)
			s := NewMusicService(testutil.TestLogger(t), repo, newFakeFiles())

			repo.On("GetMusicById", mock.Anything, id).Return(database.Music{Id: id}, tc.record)

			_, f, err := s.GetFile(context.Background(), id)
			assert.ErrorIs(t, err, ErrMusicNotFound)
			assert.Nil(t, f)
		})
	}
}

func TestMusicServiceExists(t *testing.T) {
	repo := &database.MockVibeHubRepository{}
	defer repo.AssertExpectations(t)
	s := NewMusicService(testutil.TestLogger(t), repo, newFakeFiles())
	id := uuid.New()

	repo.On("MusicExists", mock.Anything, id).Return(true, nil)

	ok, err := s.Exists(context.Background(), id)
	assert.NoError(t, err)
	assert.True(t, ok)
}
