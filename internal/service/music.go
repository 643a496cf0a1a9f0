package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/npezzotti/vibehub/internal/database"
	"github.com/npezzotti/vibehub/internal/music"
	"github.com/sirupsen/logrus"
)

// MusicFiles stores and serves the audio behind music records.
type MusicFiles interface {
	Save(name string, r io.Reader) (music.Saved, error)
	Open(id uuid.UUID) (*music.File, error)
	Delete(id uuid.UUID) error
}

type MusicService struct {
	log   *logrus.Logger
	repo  database.VibeHubRepository
	files MusicFiles
}

func NewMusicService(logger *logrus.Logger, repo database.VibeHubRepository, files MusicFiles) *MusicService {
	return &MusicService{log: logger, repo: repo, files: files}
}

func (s *MusicService) GetById(ctx context.Context, id uuid.UUID) (database.Music, error) {
	m, err := s.repo.GetMusicById(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return database.Music{}, ErrMusicNotFound
	} else if err != nil {
		return database.Music{}, fmt.Errorf("get music: %w", err)
	}

	return m, nil
}

// GetFile opens the audio of a known music record. The caller closes the
// file.
func (s *MusicService) GetFile(ctx context.Context, id uuid.UUID) (database.Music, *music.File, error) {
	m, err := s.GetById(ctx, id)
	if err != nil {
		return database.Music{}, nil, err
	}

	f, err := s.files.Open(id)
	if errors.Is(err, music.ErrNotFound) {
		s.log.WithField("music_id", id).Warn("music record has no file")
		return database.Music{}, nil, ErrMusicNotFound
	} else if err != nil {
		return database.Music{}, nil, fmt.Errorf("open music file: %w", err)
	}

	return m, f, nil
}

func (s *MusicService) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	exists, err := s.repo.MusicExists(ctx, id)
	if err != nil {
		return false, fmt.Errorf("music exists: %w", err)
	}

	return exists, nil
}
