package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockVibeHubRepository struct {
	mock.Mock
}

func (m *MockVibeHubRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockVibeHubRepository) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockVibeHubRepository) GetUserById(ctx context.Context, id uuid.UUID) (User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockVibeHubRepository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockVibeHubRepository) GetUserByNickname(ctx context.Context, nickname string) (User, error) {
	args := m.Called(ctx, nickname)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockVibeHubRepository) GetUserBySession(ctx context.Context, sessionId string) (User, error) {
	args := m.Called(ctx, sessionId)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockVibeHubRepository) UpdateUser(ctx context.Context, params UpdateUserParams) (User, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockVibeHubRepository) SetUserSession(ctx context.Context, userId uuid.UUID, sessionId *string) error {
	args := m.Called(ctx, userId, sessionId)
	return args.Error(0)
}
func (m *MockVibeHubRepository) DeleteUser(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockVibeHubRepository) CreateGuest(ctx context.Context, name string) (Guest, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(Guest), args.Error(1)
}
func (m *MockVibeHubRepository) GetGuestById(ctx context.Context, id uuid.UUID) (Guest, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Guest), args.Error(1)
}
func (m *MockVibeHubRepository) CreateGuestSession(ctx context.Context, guestId uuid.UUID, sessionId string) error {
	args := m.Called(ctx, guestId, sessionId)
	return args.Error(0)
}
func (m *MockVibeHubRepository) GetGuestBySession(ctx context.Context, sessionId string) (Guest, error) {
	args := m.Called(ctx, sessionId)
	return args.Get(0).(Guest), args.Error(1)
}
func (m *MockVibeHubRepository) TouchGuest(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}
func (m *MockVibeHubRepository) DeleteGuest(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockVibeHubRepository) DeleteInactiveGuests(ctx context.Context, cutoff time.Time) ([]Guest, error) {
	args := m.Called(ctx, cutoff)
	if guests, ok := args.Get(0).([]Guest); ok {
		return guests, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockVibeHubRepository) ListRooms(ctx context.Context, limit, offset int) ([]Room, error) {
	args := m.Called(ctx, limit, offset)
	if rooms, ok := args.Get(0).([]Room); ok {
		return rooms, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockVibeHubRepository) CountRooms(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
func (m *MockVibeHubRepository) GetRoomById(ctx context.Context, id uuid.UUID) (Room, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockVibeHubRepository) GetRoomByCode(ctx context.Context, code string) (Room, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockVibeHubRepository) ListRoomsByOwner(ctx context.Context, ownerId uuid.UUID) ([]Room, error) {
	args := m.Called(ctx, ownerId)
	if rooms, ok := args.Get(0).([]Room); ok {
		return rooms, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockVibeHubRepository) CreateRoom(ctx context.Context, params CreateRoomParams) (Room, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockVibeHubRepository) UpdateRoomSettings(ctx context.Context, settings RoomSettings) error {
	args := m.Called(ctx, settings)
	return args.Error(0)
}
func (m *MockVibeHubRepository) DeleteRoom(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockVibeHubRepository) AddOccupant(ctx context.Context, roomId uuid.UUID, occupant Occupant) error {
	args := m.Called(ctx, roomId, occupant)
	return args.Error(0)
}
func (m *MockVibeHubRepository) RemoveOccupant(ctx context.Context, roomId uuid.UUID, occupant Occupant) error {
	args := m.Called(ctx, roomId, occupant)
	return args.Error(0)
}

func (m *MockVibeHubRepository) AddMusics(ctx context.Context, roomId uuid.UUID, musics []Music) error {
	args := m.Called(ctx, roomId, musics)
	return args.Error(0)
}
func (m *MockVibeHubRepository) GetMusicById(ctx context.Context, id uuid.UUID) (Music, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Music), args.Error(1)
}
func (m *MockVibeHubRepository) MusicExists(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}
func (m *MockVibeHubRepository) ListRoomMusics(ctx context.Context, roomId uuid.UUID) ([]Music, error) {
	args := m.Called(ctx, roomId)
	if musics, ok := args.Get(0).([]Music); ok {
		return musics, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockVibeHubRepository) RemoveMusics(ctx context.Context, roomId uuid.UUID, musicIds []uuid.UUID) ([]Music, error) {
	args := m.Called(ctx, roomId, musicIds)
	if musics, ok := args.Get(0).([]Music); ok {
		return musics, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockVibeHubRepository) CreateMessage(ctx context.Context, params CreateMessageParams) (Message, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockVibeHubRepository) ListMessages(ctx context.Context, roomId uuid.UUID) ([]Message, error) {
	args := m.Called(ctx, roomId)
	if messages, ok := args.Get(0).([]Message); ok {
		return messages, args.Error(1)
	}
	return nil, args.Error(1)
}
