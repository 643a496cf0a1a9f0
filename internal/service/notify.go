package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/npezzotti/vibehub/internal/types"
)

// RoomNotifier delivers room events to the live connections of a room.
type RoomNotifier interface {
	Notify(event types.RoomEvent)
}

type nopNotifier struct{}

func (nopNotifier) Notify(types.RoomEvent) {}

func newEvent(typ types.EventType, roomId uuid.UUID, member *uuid.UUID, payload any) types.RoomEvent {
	return types.RoomEvent{
		Type:      typ,
		RoomId:    roomId,
		MemberId:  member,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

func memberId(id uuid.UUID) *uuid.UUID {
	return &id
}
