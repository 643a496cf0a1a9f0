package service

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/npezzotti/vibehub/internal/database"
	"github.com/npezzotti/vibehub/internal/filter"
	"github.com/npezzotti/vibehub/internal/types"
	"github.com/sirupsen/logrus"
)

var avatarTypes = []string{"image/jpeg", "image/png", "image/bmp", "image/webp"}

// UpdateProfileInput leaves nil fields unchanged.
type UpdateProfileInput struct {
	Nickname *string `validate:"omitempty,min=3,max=20,alphanum" filter:"min=3"`
	Email    *string `validate:"omitempty,email,max=254"`
	Password *string `validate:"omitempty,min=5,max=72,password"`
	Avatar   *string
}

type UserService struct {
	log   *logrus.Logger
	repo  database.VibeHubRepository
	rooms *RoomService
}

func NewUserService(logger *logrus.Logger, repo database.VibeHubRepository, rooms *RoomService) *UserService {
	return &UserService{log: logger, repo: repo, rooms: rooms}
}

func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (database.User, error) {
	user, err := s.repo.GetUserById(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return database.User{}, ErrUserNotFound
	} else if err != nil {
		return database.User{}, fmt.Errorf("get user: %w", err)
	}

	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userId uuid.UUID, in UpdateProfileInput) (database.User, error) {
	user, err := s.GetUser(ctx, userId)
	if err != nil {
		return database.User{}, err
	}

	if err := validate.Struct(in); err != nil {
		return database.User{}, validationError(err)
	}

	in, err = filter.Apply(in)
	if err != nil {
		return database.User{}, badInput("%s", err.Error())
	}

	params := database.UpdateUserParams{
		UserId:       user.Id,
		Nickname:     user.Nickname,
		EmailAddress: user.EmailAddress,
		PasswordHash: user.PasswordHash,
		Avatar:       user.Avatar,
	}

	if in.Email != nil && *in.Email != user.EmailAddress {
		if existing, err := s.repo.GetUserByEmail(ctx, *in.Email); err == nil && existing.Id != user.Id {
			return database.User{}, ErrEmailAlreadyExists
		} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return database.User{}, fmt.Errorf("get user by email: %w", err)
		}
		params.EmailAddress = *in.Email
	}

	if in.Nickname != nil && *in.Nickname != user.Nickname {
		if existing, err := s.repo.GetUserByNickname(ctx, *in.Nickname); err == nil && existing.Id != user.Id {
			return database.User{}, ErrNicknameAlreadyExists
		} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return database.User{}, fmt.Errorf("get user by nickname: %w", err)
		}
		params.Nickname = *in.Nickname
	}

	if in.Password != nil {
		hash, err := hashPassword(*in.Password)
		if err != nil {
			return database.User{}, fmt.Errorf("hash password: %w", err)
		}
		params.PasswordHash = hash
	}

	if in.Avatar != nil {
		avatar, err := checkAvatar(*in.Avatar)
		if err != nil {
			return database.User{}, err
		}
		params.Avatar = avatar
	}

	updated, err := s.repo.UpdateUser(ctx, params)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return database.User{}, ErrUserNotFound
		}
		return database.User{}, mapDuplicate(err, "update user")
	}

	s.log.WithField("user_id", user.Id).Info("profile updated")
	return updated, nil
}

// DeleteAccount removes the user together with every room they own.
func (s *UserService) DeleteAccount(ctx context.Context, userId uuid.UUID) error {
	user, err := s.GetUser(ctx, userId)
	if err != nil {
		return err
	}

	owned, err := s.repo.ListRoomsByOwner(ctx, userId)
	if err != nil {
		return fmt.Errorf("list owned rooms: %w", err)
	}

	if err := s.repo.DeleteUser(ctx, userId); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}

	for _, room := range owned {
		s.rooms.roomDeleted(room)
	}
	if user.RoomId.Valid && !ownsRoom(owned, user.RoomId.UUID) {
		s.rooms.notifier.Notify(newEvent(types.EventMemberLeft, user.RoomId.UUID, memberId(userId), nil))
	}

	s.log.WithFields(logrus.Fields{"user_id": userId, "rooms": len(owned)}).Info("account deleted")
	return nil
}

func ownsRoom(rooms []database.Room, id uuid.UUID) bool {
	for _, r := range rooms {
		if r.Id == id {
			return true
		}
	}
	return false
}

// checkAvatar accepts a base64 image, optionally given as a data URL, and
// returns the value to store. An empty value removes the avatar.
func checkAvatar(avatar string) (*string, error) {
	avatar = strings.TrimSpace(avatar)
	if avatar == "" {
		return nil, nil
	}

	encoded := avatar
	if strings.HasPrefix(encoded, "data:") {
		if i := strings.Index(encoded, ","); i >= 0 {
			encoded = encoded[i+1:]
		}
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, badInput("Avatar must be a base64 encoded image.")
	}

	if !isAvatarType(mimetype.Detect(raw)) {
		return nil, badInput("Avatar must be a jpeg, png, bmp or webp image.")
	}

	return &avatar, nil
}

func isAvatarType(m *mimetype.MIME) bool {
	for _, t := range avatarTypes {
		if m.Is(t) {
			return true
		}
	}
	return false
}
