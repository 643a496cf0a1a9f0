package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/npezzotti/vibehub/internal/database"
	"github.com/npezzotti/vibehub/internal/filter"
	"github.com/npezzotti/vibehub/internal/stats"
	"github.com/npezzotti/vibehub/internal/types"
	"github.com/sirupsen/logrus"
)

const maxMessageLength = 100

type MessageService struct {
	log      *logrus.Logger
	repo     database.VibeHubRepository
	notifier RoomNotifier
	stats    stats.StatsProvider
}

func NewMessageService(logger *logrus.Logger, repo database.VibeHubRepository, notifier RoomNotifier, su stats.StatsProvider) *MessageService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &MessageService{log: logger, repo: repo, notifier: notifier, stats: su}
}

// Add appends a message to the room's history. The timestamp is assigned by
// the store.
func (s *MessageService) Add(ctx context.Context, roomId, userId uuid.UUID, text string) (database.Message, error) {
	if _, err := s.repo.GetUserById(ctx, userId); errors.Is(err, sql.ErrNoRows) {
		return database.Message{}, ErrRoomOrUserNotFound
	} else if err != nil {
		return database.Message{}, fmt.Errorf("get user: %w", err)
	}

	if _, err := s.repo.GetRoomById(ctx, roomId); errors.Is(err, sql.ErrNoRows) {
		return database.Message{}, ErrRoomOrUserNotFound
	} else if err != nil {
		return database.Message{}, fmt.Errorf("get room: %w", err)
	}

	text = filter.StripTags(text)
	if strings.TrimSpace(text) == "" {
		return database.Message{}, ErrMessageIsEmpty
	}
	if utf8.RuneCountInString(text) > maxMessageLength {
		return database.Message{}, badInput("Message must be at most %d characters.", maxMessageLength)
	}

	msg, err := s.repo.CreateMessage(ctx, database.CreateMessageParams{
		RoomId: roomId,
		UserId: userId,
		Text:   text,
	})
	if err != nil {
		return database.Message{}, fmt.Errorf("create message: %w", err)
	}

	s.notifier.Notify(newEvent(types.EventMessagePosted, roomId, memberId(userId), types.NewMessage(msg)))
	s.stats.Incr(stats.MessagesPosted)

	return msg, nil
}

// GetList returns the room's messages oldest first.
func (s *MessageService) GetList(ctx context.Context, roomId uuid.UUID) ([]database.Message, error) {
	if _, err := s.repo.GetRoomById(ctx, roomId); errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMessagesRoomNotFound
	} else if err != nil {
		return nil, fmt.Errorf("get room: %w", err)
	}

	messages, err := s.repo.ListMessages(ctx, roomId)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	return messages, nil
}
