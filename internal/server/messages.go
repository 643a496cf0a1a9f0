package server

import (
	"time"

	"github.com/google/uuid"
	"github.com/npezzotti/vibehub/internal/types"
)

// ServerMessage is the only frame type written to a live connection.
type ServerMessage struct {
	Welcome *Welcome         `json:"welcome,omitempty"`
	Event   *types.RoomEvent `json:"event,omitempty"`
}

// Welcome is sent once when the connection is attached to its room.
type Welcome struct {
	RoomId    uuid.UUID `json:"roomId"`
	MemberId  uuid.UUID `json:"memberId"`
	Timestamp time.Time `json:"timestamp"`
}

func welcomeMessage(c *Client) *ServerMessage {
	return &ServerMessage{
		Welcome: &Welcome{
			RoomId:    c.roomId,
			MemberId:  c.callerId,
			Timestamp: Now(),
		},
	}
}

func eventMessage(e types.RoomEvent) *ServerMessage {
	return &ServerMessage{Event: &e}
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
