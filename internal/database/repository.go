package database

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrRoomFull is returned when the occupancy counter is already at the
	// room's users limit.
	ErrRoomFull = errors.New("room is full")
	// ErrNotInRoom is returned when the occupant does not reference the room.
	ErrNotInRoom = errors.New("occupant is not in room")
	// ErrDuplicateEmail, ErrDuplicateNickname and ErrDuplicateCode map unique
	// constraint violations.
	ErrDuplicateEmail    = errors.New("email already exists")
	ErrDuplicateNickname = errors.New("nickname already exists")
	ErrDuplicateCode     = errors.New("room code already exists")
)

type VibeHubRepository interface {
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, params CreateUserParams) (User, error)
	GetUserById(ctx context.Context, id uuid.UUID) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByNickname(ctx context.Context, nickname string) (User, error)
	GetUserBySession(ctx context.Context, sessionId string) (User, error)
	UpdateUser(ctx context.Context, params UpdateUserParams) (User, error)
	SetUserSession(ctx context.Context, userId uuid.UUID, sessionId *string) error
	DeleteUser(ctx context.Context, id uuid.UUID) error

	CreateGuest(ctx context.Context, name string) (Guest, error)
	GetGuestById(ctx context.Context, id uuid.UUID) (Guest, error)
	CreateGuestSession(ctx context.Context, guestId uuid.UUID, sessionId string) error
	GetGuestBySession(ctx context.Context, sessionId string) (Guest, error)
	TouchGuest(ctx context.Context, id uuid.UUID, at time.Time) error
	DeleteGuest(ctx context.Context, id uuid.UUID) error
	DeleteInactiveGuests(ctx context.Context, cutoff time.Time) ([]Guest, error)

	ListRooms(ctx context.Context, limit, offset int) ([]Room, error)
	CountRooms(ctx context.Context) (int, error)
	GetRoomById(ctx context.Context, id uuid.UUID) (Room, error)
	GetRoomByCode(ctx context.Context, code string) (Room, error)
	ListRoomsByOwner(ctx context.Context, ownerId uuid.UUID) ([]Room, error)
	CreateRoom(ctx context.Context, params CreateRoomParams) (Room, error)
	UpdateRoomSettings(ctx context.Context, settings RoomSettings) error
	DeleteRoom(ctx context.Context, id uuid.UUID) error
	AddOccupant(ctx context.Context, roomId uuid.UUID, occupant Occupant) error
	RemoveOccupant(ctx context.Context, roomId uuid.UUID, occupant Occupant) error

	AddMusics(ctx context.Context, roomId uuid.UUID, musics []Music) error
	GetMusicById(ctx context.Context, id uuid.UUID) (Music, error)
	MusicExists(ctx context.Context, id uuid.UUID) (bool, error)
	ListRoomMusics(ctx context.Context, roomId uuid.UUID) ([]Music, error)
	RemoveMusics(ctx context.Context, roomId uuid.UUID, musicIds []uuid.UUID) ([]Music, error)

	CreateMessage(ctx context.Context, params CreateMessageParams) (Message, error)
	ListMessages(ctx context.Context, roomId uuid.UUID) ([]Message, error)
}
