package service

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/npezzotti/vibehub/internal/database"
	"github.com/npezzotti/vibehub/internal/filter"
	"github.com/npezzotti/vibehub/internal/music"
	"github.com/npezzotti/vibehub/internal/stats"
	"github.com/npezzotti/vibehub/internal/types"
	"github.com/sirupsen/logrus"
)

const (
	maxCodeAttempts = 10
	maxUsersLimit   = 100
	maxPageSize     = 100
)

type RoomPage struct {
	Rooms      []database.Room
	PageNumber int
	PageSize   int
	TotalCount int
}

type Upload struct {
	Name    string
	Content io.Reader
}

type SettingsUpdate struct {
	UsersLimit            int
	Availability          bool
	Password              string
	AllowUsersUpdateMusic bool
}

type RoomService struct {
	log          *logrus.Logger
	repo         database.VibeHubRepository
	files        MusicFiles
	notifier     RoomNotifier
	stats        stats.StatsProvider
	generateCode func() (string, error)
}

func NewRoomService(logger *logrus.Logger, repo database.VibeHubRepository, files MusicFiles, notifier RoomNotifier, su stats.StatsProvider) *RoomService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &RoomService{
		log:          logger,
		repo:         repo,
		files:        files,
		notifier:     notifier,
		stats:        su,
		generateCode: generateRoomCode,
	}
}

func (s *RoomService) GetList(ctx context.Context, pageNumber, pageSize int) (RoomPage, error) {
	if pageNumber < 1 {
		return RoomPage{}, badInput("Page number must be at least 1.")
	}
	if pageSize < 1 || pageSize > maxPageSize {
		return RoomPage{}, badInput("Page size must be between 1 and %d.", maxPageSize)
	}

	total, err := s.repo.CountRooms(ctx)
	if err != nil {
		return RoomPage{}, fmt.Errorf("count rooms: %w", err)
	}

	rooms, err := s.repo.ListRooms(ctx, pageSize, (pageNumber-1)*pageSize)
	if err != nil {
		return RoomPage{}, fmt.Errorf("list rooms: %w", err)
	}

	return RoomPage{
		Rooms:      rooms,
		PageNumber: pageNumber,
		PageSize:   pageSize,
		TotalCount: total,
	}, nil
}

func (s *RoomService) GetById(ctx context.Context, id uuid.UUID) (database.Room, error) {
	return s.loadRoom(ctx, id)
}

// Create opens a new room owned by the caller, who becomes its first
// occupant.
func (s *RoomService) Create(ctx context.Context, callerId uuid.UUID) (database.Room, error) {
	logCtx := s.log.WithField("caller_id", callerId)

	owner, err := s.repo.GetUserById(ctx, callerId)
	if errors.Is(err, sql.ErrNoRows) {
		return database.Room{}, ErrUserForRoomNotFound
	} else if err != nil {
		return database.Room{}, fmt.Errorf("get owner: %w", err)
	}

	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := s.generateCode()
		if err != nil {
			return database.Room{}, fmt.Errorf("generate room code: %w", err)
		}

		room, err := s.repo.CreateRoom(ctx, database.CreateRoomParams{
			Code:     code,
			OwnerId:  owner.Id,
			Settings: database.DefaultRoomSettings(),
		})
		if errors.Is(err, database.ErrDuplicateCode) {
			logCtx.WithField("code", code).Warnf("room code taken, retrying (attempt %d)", attempt)
			continue
		} else if err != nil {
			return database.Room{}, fmt.Errorf("create room: %w", err)
		}

		if owner.RoomId.Valid {
			s.notifier.Notify(newEvent(types.EventMemberLeft, owner.RoomId.UUID, memberId(owner.Id), nil))
		}
		s.stats.Incr(stats.RoomsCreated)
		logCtx.WithFields(logrus.Fields{"room_id": room.Id, "code": room.Code}).Info("room created")

		return room, nil
	}

	return database.Room{}, fmt.Errorf("no unique room code after %d attempts", maxCodeAttempts)
}

// JoinByCode moves the caller into the room with the given code. The
// checks run in a fixed order and the first failing one is reported.
func (s *RoomService) JoinByCode(ctx context.Context, callerId uuid.UUID, code, password string) (database.Room, error) {
	occupant, current, err := s.resolveOccupant(ctx, callerId)
	if err != nil {
		return database.Room{}, err
	}

	room, err := s.repo.GetRoomByCode(ctx, code)
	if errors.Is(err, sql.ErrNoRows) {
		return database.Room{}, ErrRoomNotFound
	} else if err != nil {
		return database.Room{}, fmt.Errorf("get room by code: %w", err)
	}

	logCtx := s.log.WithFields(logrus.Fields{"caller_id": callerId, "room_id": room.Id})

	if current.Valid && current.UUID == room.Id {
		return database.Room{}, ErrAlreadyInRoom
	}

	if room.UserCount >= room.Settings.UsersLimit {
		return database.Room{}, ErrRoomIsFull
	}

	if !room.Settings.Availability &&
		subtle.ConstantTimeCompare([]byte(password), []byte(room.Settings.Password)) != 1 {
		logCtx.Info("rejected join to private room")
		return database.Room{}, ErrRoomIsPrivate
	}

	err = s.repo.AddOccupant(ctx, room.Id, occupant)
	switch {
	case errors.Is(err, database.ErrRoomFull):
		return database.Room{}, ErrRoomIsFull
	case errors.Is(err, sql.ErrNoRows):
		return database.Room{}, ErrRoomNotFound
	case err != nil:
		return database.Room{}, fmt.Errorf("add occupant: %w", err)
	}

	if current.Valid {
		s.notifier.Notify(newEvent(types.EventMemberLeft, current.UUID, memberId(callerId), nil))
	}
	s.notifier.Notify(newEvent(types.EventMemberJoined, room.Id, memberId(callerId), nil))
	s.stats.Incr(stats.RoomJoins)
	logCtx.WithField("kind", occupant.Kind).Info("joined room")

	return s.loadRoom(ctx, room.Id)
}

func (s *RoomService) Leave(ctx context.Context, roomId, callerId uuid.UUID) error {
	if _, err := s.loadRoom(ctx, roomId); err != nil {
		return err
	}

	occupant, current, err := s.resolveOccupant(ctx, callerId)
	if err != nil {
		return err
	}

	if !current.Valid || current.UUID != roomId {
		return ErrNotInRoom
	}

	err = s.repo.RemoveOccupant(ctx, roomId, occupant)
	if errors.Is(err, database.ErrNotInRoom) {
		return ErrNotInRoom
	} else if err != nil {
		return fmt.Errorf("remove occupant: %w", err)
	}

	s.notifier.Notify(newEvent(types.EventMemberLeft, roomId, memberId(callerId), nil))
	s.stats.Incr(stats.RoomLeaves)
	s.log.WithFields(logrus.Fields{"caller_id": callerId, "room_id": roomId}).Info("left room")

	return nil
}

// Kick removes target from the room. Only the owner may kick, and the
// ownership check runs before the target is looked up.
func (s *RoomService) Kick(ctx context.Context, roomId, callerId, targetId uuid.UUID) error {
	room, err := s.loadRoom(ctx, roomId)
	if err != nil {
		return err
	}

	if _, err := s.repo.GetUserById(ctx, callerId); errors.Is(err, sql.ErrNoRows) {
		return ErrUserForRoomNotFound
	} else if err != nil {
		return fmt.Errorf("get caller: %w", err)
	}

	if room.OwnerId != callerId {
		return ErrNotUserOwner
	}

	if callerId == targetId {
		return ErrSelfKick
	}

	target, err := s.targetInRoom(ctx, roomId, targetId)
	if err != nil {
		return err
	}

	err = s.repo.RemoveOccupant(ctx, roomId, target)
	if errors.Is(err, database.ErrNotInRoom) {
		return ErrTargetNotInRoom
	} else if err != nil {
		return fmt.Errorf("remove occupant: %w", err)
	}

	s.notifier.Notify(newEvent(types.EventMemberKicked, roomId, memberId(targetId), nil))
	s.stats.Incr(stats.MembersKicked)
	s.log.WithFields(logrus.Fields{"room_id": roomId, "target_id": targetId}).Info("member kicked")

	return nil
}

// AddMusics stores the uploaded files and appends them to the playlist.
// Files already written are removed if the batch fails.
func (s *RoomService) AddMusics(ctx context.Context, roomId, callerId uuid.UUID, uploads []Upload) (database.Room, error) {
	if _, err := s.musicGate(ctx, roomId, callerId); err != nil {
		return database.Room{}, err
	}

	if len(uploads) == 0 {
		return database.Room{}, badInput("No files were uploaded.")
	}

	musics := make([]database.Music, 0, len(uploads))
	cleanup := func() {
		for _, m := range musics {
			if err := s.files.Delete(m.Id); err != nil {
				s.log.WithError(err).WithField("music_id", m.Id).Error("failed to remove music file")
			}
		}
	}

	for _, u := range uploads {
		saved, err := s.files.Save(u.Name, u.Content)
		if err != nil {
			cleanup()
			if errors.Is(err, music.ErrUnsupportedFormat) || errors.Is(err, music.ErrContentMismatch) {
				return database.Room{}, badInput("File %q is not a supported audio file.", u.Name)
			}
			return database.Room{}, fmt.Errorf("save music file: %w", err)
		}

		musics = append(musics, database.Music{
			Id:       saved.Id,
			Title:    saved.Title,
			Artist:   saved.Artist,
			RoomId:   uuid.NullUUID{UUID: roomId, Valid: true},
			FileName: saved.FileName,
		})
	}

	filtered, err := filter.ApplyAll(musics)
	if err != nil {
		cleanup()
		return database.Room{}, badInput("%s", err.Error())
	}
	for i := range filtered {
		fillBlankTags(&filtered[i], uploads[i].Name)
	}

	if err := s.repo.AddMusics(ctx, roomId, filtered); err != nil {
		cleanup()
		return database.Room{}, fmt.Errorf("add musics: %w", err)
	}

	room, err := s.loadRoom(ctx, roomId)
	if err != nil {
		return database.Room{}, err
	}

	s.notifier.Notify(newEvent(types.EventPlaylistUpdated, roomId, nil, types.NewPlaylist(room.Playlist)))
	s.stats.Add(stats.MusicsUploaded, len(filtered))
	s.log.WithFields(logrus.Fields{"room_id": roomId, "caller_id": callerId, "count": len(filtered)}).Info("musics added")

	return room, nil
}

// fillBlankTags restores a title or artist that filtering left blank. The
// title falls back to the upload's name without extension, then to the
// stored file name.
func fillBlankTags(m *database.Music, uploadName string) {
	if strings.TrimSpace(m.Title) == "" {
		m.Title = filter.StripTags(strings.TrimSuffix(filepath.Base(uploadName), filepath.Ext(uploadName)))
	}
	if strings.TrimSpace(m.Title) == "" {
		m.Title = strings.TrimSuffix(m.FileName, filepath.Ext(m.FileName))
	}
	if strings.TrimSpace(m.Artist) == "" {
		m.Artist = music.UnknownArtist
	}
}

func (s *RoomService) RemoveMusics(ctx context.Context, roomId, callerId uuid.UUID, musicIds []uuid.UUID) (database.Room, error) {
	if _, err := s.musicGate(ctx, roomId, callerId); err != nil {
		return database.Room{}, err
	}

	if len(musicIds) == 0 {
		return database.Room{}, badInput("No music ids were given.")
	}

	removed, err := s.repo.RemoveMusics(ctx, roomId, musicIds)
	if err != nil {
		return database.Room{}, fmt.Errorf("remove musics: %w", err)
	}

	s.deleteFiles(removed)

	room, err := s.loadRoom(ctx, roomId)
	if err != nil {
		return database.Room{}, err
	}

	s.notifier.Notify(newEvent(types.EventPlaylistUpdated, roomId, nil, types.NewPlaylist(room.Playlist)))
	s.log.WithFields(logrus.Fields{"room_id": roomId, "caller_id": callerId, "count": len(removed)}).Info("musics removed")

	return room, nil
}

func (s *RoomService) UpdateSettings(ctx context.Context, roomId, callerId uuid.UUID, update SettingsUpdate) error {
	room, err := s.loadRoom(ctx, roomId)
	if err != nil {
		return err
	}

	if room.OwnerId != callerId {
		return ErrNotUserOwner
	}

	update, err = filter.Apply(update)
	if err != nil {
		return badInput("%s", err.Error())
	}

	switch {
	case update.UsersLimit < 1 || update.UsersLimit > maxUsersLimit:
		return badInput("Users limit must be between 1 and %d.", maxUsersLimit)
	case !update.Availability && update.Password == "":
		return badInput("A private room requires a password.")
	case update.UsersLimit < room.UserCount:
		return badInput("Users limit cannot be lower than the number of users in the room.")
	}

	if update.Availability {
		update.Password = ""
	}

	settings := database.RoomSettings{
		RoomId:                roomId,
		UsersLimit:            update.UsersLimit,
		Availability:          update.Availability,
		Password:              update.Password,
		AllowUsersUpdateMusic: update.AllowUsersUpdateMusic,
	}
	if err := s.repo.UpdateRoomSettings(ctx, settings); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRoomNotFound
		}
		return fmt.Errorf("update room settings: %w", err)
	}

	s.notifier.Notify(newEvent(types.EventSettingsUpdated, roomId, nil, types.NewRoomSettings(settings)))
	s.log.WithFields(logrus.Fields{"room_id": roomId}).Info("room settings updated")

	return nil
}

// Delete removes the room with its playlist, messages and files. Occupants
// are released by the store.
func (s *RoomService) Delete(ctx context.Context, roomId, callerId uuid.UUID) error {
	room, err := s.loadRoom(ctx, roomId)
	if err != nil {
		return err
	}

	if _, err := s.repo.GetUserById(ctx, callerId); errors.Is(err, sql.ErrNoRows) {
		return ErrUserForRoomNotFound
	} else if err != nil {
		return fmt.Errorf("get caller: %w", err)
	}

	if room.OwnerId != callerId {
		return ErrNotUserOwner
	}

	if err := s.repo.DeleteRoom(ctx, roomId); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRoomNotFound
		}
		return fmt.Errorf("delete room: %w", err)
	}

	s.roomDeleted(room)

	return nil
}

// roomDeleted removes the files of a deleted room and closes its live
// connections.
func (s *RoomService) roomDeleted(room database.Room) {
	s.deleteFiles(room.Playlist)
	s.notifier.Notify(newEvent(types.EventRoomDeleted, room.Id, nil, nil))
	s.stats.Incr(stats.RoomsDeleted)
	s.log.WithField("room_id", room.Id).Info("room deleted")
}

func (s *RoomService) deleteFiles(musics []database.Music) {
	for _, m := range musics {
		if err := s.files.Delete(m.Id); err != nil {
			s.log.WithError(err).WithField("music_id", m.Id).Error("failed to delete music file")
		}
	}
}

func (s *RoomService) loadRoom(ctx context.Context, id uuid.UUID) (database.Room, error) {
	room, err := s.repo.GetRoomById(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return database.Room{}, ErrRoomNotFound
	} else if err != nil {
		return database.Room{}, fmt.Errorf("get room: %w", err)
	}

	return room, nil
}

// resolveOccupant finds the caller as a user, then as a guest, and returns
// the room it currently occupies.
func (s *RoomService) resolveOccupant(ctx context.Context, callerId uuid.UUID) (database.Occupant, uuid.NullUUID, error) {
	user, err := s.repo.GetUserById(ctx, callerId)
	if err == nil {
		return database.Occupant{Id: user.Id, Kind: database.OccupantUser}, user.RoomId, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return database.Occupant{}, uuid.NullUUID{}, fmt.Errorf("get user: %w", err)
	}

	guest, err := s.repo.GetGuestById(ctx, callerId)
	if errors.Is(err, sql.ErrNoRows) {
		return database.Occupant{}, uuid.NullUUID{}, ErrUserForRoomNotFound
	} else if err != nil {
		return database.Occupant{}, uuid.NullUUID{}, fmt.Errorf("get guest: %w", err)
	}

	return database.Occupant{Id: guest.Id, Kind: database.OccupantGuest}, guest.RoomId, nil
}

// targetInRoom resolves a kick target. A user takes precedence over a guest
// with the same id.
func (s *RoomService) targetInRoom(ctx context.Context, roomId, targetId uuid.UUID) (database.Occupant, error) {
	occupant, current, err := s.resolveOccupant(ctx, targetId)
	if errors.Is(err, ErrUserForRoomNotFound) {
		return database.Occupant{}, ErrTargetNotInRoom
	} else if err != nil {
		return database.Occupant{}, err
	}

	if !current.Valid || current.UUID != roomId {
		return database.Occupant{}, ErrTargetNotInRoom
	}

	return occupant, nil
}

// musicGate checks that the caller may change the room's playlist.
func (s *RoomService) musicGate(ctx context.Context, roomId, callerId uuid.UUID) (database.Room, error) {
	_, current, err := s.resolveOccupant(ctx, callerId)
	if err != nil {
		return database.Room{}, err
	}

	room, err := s.loadRoom(ctx, roomId)
	if err != nil {
		return database.Room{}, err
	}

	if !current.Valid || current.UUID != roomId {
		return database.Room{}, ErrUserNotInRoom
	}

	if room.OwnerId != callerId && !room.Settings.AllowUsersUpdateMusic {
		return database.Room{}, ErrMusicUpdateDenied
	}

	return room, nil
}
