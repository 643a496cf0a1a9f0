package types

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	Id           uuid.UUID  `json:"id"`
	Nickname     string     `json:"nickname"`
	EmailAddress string     `json:"email,omitempty"`
	Avatar       *string    `json:"avatar,omitempty"`
	IsAdmin      bool       `json:"isAdmin"`
	RoomId       *uuid.UUID `json:"roomId"`
	CreatedAt    time.Time  `json:"createdAt,omitempty"`
	UpdatedAt    time.Time  `json:"updatedAt,omitempty"`
}

type Guest struct {
	Id         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	LastActive time.Time  `json:"lastActive"`
	RoomId     *uuid.UUID `json:"roomId"`
}

// Caller is the authenticated principal of a request, either a user or a
// guest.
type Caller struct {
	Kind  string `json:"kind"`
	User  *User  `json:"user,omitempty"`
	Guest *Guest `json:"guest,omitempty"`
}

// RoomSettings never carries the room password.
type RoomSettings struct {
	UsersLimit            int  `json:"usersLimit"`
	Availability          bool `json:"availability"`
	AllowUsersUpdateMusic bool `json:"allowUsersUpdateMusic"`
}

type Room struct {
	Id        uuid.UUID    `json:"id"`
	Code      string       `json:"code"`
	OwnerId   uuid.UUID    `json:"ownerId"`
	UserCount int          `json:"userCount"`
	Settings  RoomSettings `json:"settings"`
	Playlist  []Music      `json:"playlist"`
	CreatedAt time.Time    `json:"createdAt,omitempty"`
	UpdatedAt time.Time    `json:"updatedAt,omitempty"`
}

type Page[T any] struct {
	Items      []T `json:"items"`
	PageNumber int `json:"pageNumber"`
	PageSize   int `json:"pageSize"`
	TotalCount int `json:"totalCount"`
}

type Music struct {
	Id     uuid.UUID `json:"id"`
	Title  string    `json:"title"`
	Artist string    `json:"artist"`
	RoomId uuid.UUID `json:"roomId"`
}

type Message struct {
	Id        uuid.UUID `json:"id"`
	RoomId    uuid.UUID `json:"roomId"`
	UserId    uuid.UUID `json:"userId"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

type TokenResponse struct {
	Token string `json:"token"`
	Guest *Guest `json:"guest,omitempty"`
}

type EventType string

const (
	EventMemberJoined    EventType = "member_joined"
	EventMemberLeft      EventType = "member_left"
	EventMemberKicked    EventType = "member_kicked"
	EventPlaylistUpdated EventType = "playlist_updated"
	EventSettingsUpdated EventType = "settings_updated"
	EventMessagePosted   EventType = "message_posted"
	EventRoomDeleted     EventType = "room_deleted"
)

// RoomEvent is pushed to every live connection of the room's members.
type RoomEvent struct {
	Type      EventType  `json:"type"`
	RoomId    uuid.UUID  `json:"roomId"`
	MemberId  *uuid.UUID `json:"memberId,omitempty"`
	Payload   any        `json:"payload,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// Detaches reports whether the event ends the named member's presence in
// the room.
func (e RoomEvent) Detaches() bool {
	return e.Type == EventMemberLeft || e.Type == EventMemberKicked
}
