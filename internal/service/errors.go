package service

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindNotFound Kind = iota + 1
	KindUnauthorized
	KindForbidden
	KindConflict
	KindCapacity
	KindBadInput
)

// Error is an expected business failure. Handlers map its Kind to a status
// code and show its Message to the client.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func badInput(format string, args ...any) *Error {
	return &Error{Kind: KindBadInput, Message: fmt.Sprintf(format, args...)}
}

// AsError returns the business error wrapped in err, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

var (
	ErrUnauthenticated    = &Error{KindUnauthorized, "Unauthorized"}
	ErrInvalidCredentials = &Error{KindUnauthorized, "Invalid email or password."}

	ErrUserNotFound          = &Error{KindNotFound, "The user was not found."}
	ErrEmailAlreadyExists    = &Error{KindConflict, "Email already registered"}
	ErrNicknameAlreadyExists = &Error{KindConflict, "Nickname already registered"}
	ErrGuestNotFound         = &Error{KindNotFound, "The guest was not found."}

	ErrRoomNotFound         = &Error{KindNotFound, "The room was not found."}
	ErrUserForRoomNotFound  = &Error{KindNotFound, "The user was not found."}
	ErrNotUserOwner         = &Error{KindForbidden, "You are not the owner of this room."}
	ErrUserNotInRoom        = &Error{KindForbidden, "You are not in room"}
	ErrMusicUpdateDenied    = &Error{KindForbidden, "You cannot update music"}
	ErrRoomIsFull           = &Error{KindCapacity, "The room is full."}
	ErrSelfKick             = &Error{KindBadInput, "You can't kick yourself"}
	ErrAlreadyInRoom        = &Error{KindConflict, "You are already in room"}
	ErrRoomIsPrivate        = &Error{KindForbidden, "The room is private."}
	ErrNotInRoom            = &Error{KindBadInput, "You are not in room"}
	ErrTargetNotInRoom      = &Error{KindBadInput, "The user is not in this room."}
	ErrMusicNotFound        = &Error{KindNotFound, "The music was not found."}
	ErrMessagesRoomNotFound = &Error{KindNotFound, "The messages was not found."}
	ErrRoomOrUserNotFound   = &Error{KindNotFound, "User or Room not found"}
	ErrMessageIsEmpty       = &Error{KindBadInput, "Message is empty"}
)
