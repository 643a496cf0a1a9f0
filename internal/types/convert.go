package types

import (
	"github.com/google/uuid"
	"github.com/npezzotti/vibehub/internal/database"
)

func nullableId(id uuid.NullUUID) *uuid.UUID {
	if !id.Valid {
		return nil
	}
	v := id.UUID
	return &v
}

func NewUser(u database.User) User {
	return User{
		Id:           u.Id,
		Nickname:     u.Nickname,
		EmailAddress: u.EmailAddress,
		Avatar:       u.Avatar,
		IsAdmin:      u.IsAdmin,
		RoomId:       nullableId(u.RoomId),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// NewPublicUser omits the email address.
func NewPublicUser(u database.User) User {
	user := NewUser(u)
	user.EmailAddress = ""
	return user
}

func NewGuest(g database.Guest) Guest {
	return Guest{
		Id:         g.Id,
		Name:       g.Name,
		LastActive: g.LastActive,
		RoomId:     nullableId(g.RoomId),
	}
}

func NewRoomSettings(s database.RoomSettings) RoomSettings {
	return RoomSettings{
		UsersLimit:            s.UsersLimit,
		Availability:          s.Availability,
		AllowUsersUpdateMusic: s.AllowUsersUpdateMusic,
	}
}

func NewMusic(m database.Music) Music {
	return Music{
		Id:     m.Id,
		Title:  m.Title,
		Artist: m.Artist,
		RoomId: m.RoomId.UUID,
	}
}

func NewPlaylist(musics []database.Music) []Music {
	playlist := make([]Music, 0, len(musics))
	for _, m := range musics {
		playlist = append(playlist, NewMusic(m))
	}
	return playlist
}

func NewRoom(r database.Room) Room {
	return Room{
		Id:        r.Id,
		Code:      r.Code,
		OwnerId:   r.OwnerId,
		UserCount: r.UserCount,
		Settings:  NewRoomSettings(r.Settings),
		Playlist:  NewPlaylist(r.Playlist),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func NewRooms(rooms []database.Room) []Room {
	out := make([]Room, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, NewRoom(r))
	}
	return out
}

func NewMessage(m database.Message) Message {
	return Message{
		Id:        m.Id,
		RoomId:    m.RoomId,
		UserId:    m.UserId,
		Text:      m.Text,
		Timestamp: m.CreatedAt,
	}
}

func NewMessages(messages []database.Message) []Message {
	out := make([]Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, NewMessage(m))
	}
	return out
}
