package database

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	Id           uuid.UUID
	Nickname     string
	EmailAddress string
	PasswordHash string
	IsAdmin      bool
	SessionId    *string
	Avatar       *string
	RoomId       uuid.NullUUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Guest struct {
	Id         uuid.UUID
	Name       string
	LastActive time.Time
	RoomId     uuid.NullUUID
}

type Room struct {
	Id        uuid.UUID
	Code      string
	OwnerId   uuid.UUID
	UserCount int
	Settings  RoomSettings
	Playlist  []Music
	CreatedAt time.Time
	UpdatedAt time.Time
}

type RoomSettings struct {
	RoomId                uuid.UUID
	UsersLimit            int
	Availability          bool
	Password              string
	AllowUsersUpdateMusic bool
}

// DefaultRoomSettings returns the settings a room is created with.
func DefaultRoomSettings() RoomSettings {
	return RoomSettings{
		UsersLimit:            10,
		Availability:          true,
		AllowUsersUpdateMusic: true,
	}
}

type Music struct {
	Id        uuid.UUID
	Title     string
	Artist    string
	RoomId    uuid.NullUUID
	FileName  string
	CreatedAt time.Time
}

type Message struct {
	Id        uuid.UUID
	RoomId    uuid.UUID
	UserId    uuid.UUID
	Text      string
	CreatedAt time.Time
}

type OccupantKind int

const (
	OccupantUser OccupantKind = iota + 1
	OccupantGuest
)

func (k OccupantKind) String() string {
	switch k {
	case OccupantUser:
		return "user"
	case OccupantGuest:
		return "guest"
	default:
		return "unknown"
	}
}

// Occupant identifies a user or guest whose room reference is being changed.
type Occupant struct {
	Id   uuid.UUID
	Kind OccupantKind
}

type CreateUserParams struct {
	Nickname     string
	EmailAddress string
	PasswordHash string
}

type UpdateUserParams struct {
	UserId       uuid.UUID
	Nickname     string
	EmailAddress string
	PasswordHash string
	Avatar       *string
}

type CreateRoomParams struct {
	Code     string
	OwnerId  uuid.UUID
	Settings RoomSettings
}

type CreateMessageParams struct {
	RoomId uuid.UUID
	UserId uuid.UUID
	Text   string
}
