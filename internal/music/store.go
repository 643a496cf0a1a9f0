// Package music stores uploaded audio files on disk under generated names
// and reads their title and artist tags.
package music

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	UnknownArtist      = "Unknown Artist"
	DefaultContentType = "application/octet-stream"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrContentMismatch   = errors.New("file content does not match its extension")
	ErrNotFound          = errors.New("music file not found")
)

var contentTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".flac": "audio/flac",
}

// ContentType maps a file extension to the MIME type it is served with.
func ContentType(ext string) string {
	if ct, ok := contentTypes[strings.ToLower(ext)]; ok {
		return ct
	}
	return DefaultContentType
}

type Saved struct {
	Id       uuid.UUID
	FileName string
	Title    string
	Artist   string
}

type File struct {
	*os.File
	ContentType string
	ModTime     time.Time
}

type Store struct {
	log *logrus.Logger
	dir string
}

func NewStore(logger *logrus.Logger, dir string) *Store {
	return &Store{log: logger, dir: dir}
}

// Save writes the upload as <uuid><ext> and returns its stored name and
// tags. Files whose extension or sniffed content is not an accepted audio
// format are rejected and nothing is left on disk.
func (s *Store) Save(name string, r io.Reader) (Saved, error) {
	ext := strings.ToLower(filepath.Ext(name))
	want, ok := contentTypes[ext]
	if !ok {
		return Saved{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Saved{}, fmt.Errorf("create upload dir: %w", err)
	}

	id := uuid.New()
	fileName := id.String() + ext
	path := filepath.Join(s.dir, fileName)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o644)
	if err != nil {
		return Saved{}, fmt.Errorf("create file: %w", err)
	}

	saved, err := s.ingest(f, r, name, want)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return Saved{}, err
	}

	saved.Id = id
	saved.FileName = fileName
	return saved, nil
}

func (s *Store) ingest(f *os.File, r io.Reader, name, want string) (Saved, error) {
	if _, err := io.Copy(f, r); err != nil {
		return Saved{}, fmt.Errorf("write file: %w", err)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return Saved{}, err
	}
	mime, err := mimetype.DetectReader(f)
	if err != nil {
		return Saved{}, fmt.Errorf("detect content type: %w", err)
	}
	if !mime.Is(want) {
		return Saved{}, fmt.Errorf("%w: got %s, want %s", ErrContentMismatch, mime.String(), want)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return Saved{}, err
	}

	return s.readTags(f, name), nil
}

func (s *Store) readTags(rs io.ReadSeeker, name string) Saved {
	saved := Saved{
		Title:  strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)),
		Artist: UnknownArtist,
	}

	m, err := tag.ReadFrom(rs)
	if err != nil {
		s.log.WithError(err).WithField("file", name).Debug("no readable tags")
		return saved
	}

	if title := strings.TrimSpace(m.Title()); title != "" {
		saved.Title = title
	}
	if artist := strings.TrimSpace(m.Artist()); artist != "" {
		saved.Artist = artist
	}

	return saved
}

// Open finds the stored file for id regardless of its extension.
func (s *Store) Open(id uuid.UUID) (*File, error) {
	path, err := s.find(id)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	return &File{
		File:        f,
		ContentType: ContentType(filepath.Ext(path)),
		ModTime:     info.ModTime(),
	}, nil
}

// Delete removes the stored file for id. A missing file is logged, not
// returned.
func (s *Store) Delete(id uuid.UUID) error {
	path, err := s.find(id)
	if errors.Is(err, ErrNotFound) {
		s.log.WithField("music_id", id).Warn("music file to delete not found")
		return nil
	} else if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove file: %w", err)
	}

	return nil
}

func (s *Store) find(id uuid.UUID) (string, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, id.String()+".*"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", ErrNotFound
	}

	return matches[0], nil
}
