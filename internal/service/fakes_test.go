package service

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/npezzotti/vibehub/internal/database"
	"github.com/npezzotti/vibehub/internal/music"
	"github.com/npezzotti/vibehub/internal/session"
	"github.com/npezzotti/vibehub/internal/types"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []types.RoomEvent
}

func (n *recordingNotifier) Notify(e types.RoomEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) eventTypes() []types.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []types.EventType
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeFiles struct {
	mu      sync.Mutex
	stored  map[uuid.UUID][]byte
	deleted []uuid.UUID
	reject  map[string]error
	titles  map[string]string
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{stored: map[uuid.UUID][]byte{}, reject: map[string]error{}, titles: map[string]string{}}
}

func (f *fakeFiles) Save(name string, r io.Reader) (music.Saved, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.reject[name]; ok {
		return music.Saved{}, err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return music.Saved{}, err
	}
	id := uuid.New()
	f.stored[id] = b
	title, ok := f.titles[name]
	if !ok {
		title = name
	}
	return music.Saved{Id: id, FileName: id.String() + ".mp3", Title: title, Artist: music.UnknownArtist}, nil
}

func (f *fakeFiles) Open(id uuid.UUID) (*music.File, error) {
	return nil, music.ErrNotFound
}

func (f *fakeFiles) Delete(id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.stored, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeFiles) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.stored)
}

func upload(name string) Upload {
	return Upload{Name: name, Content: bytes.NewReader([]byte("audio"))}
}

type fakeResolver struct {
	created     []session.Caller
	invalidated []string
	err         error
}

func (r *fakeResolver) CreateSession(_ context.Context, subject session.Caller) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	r.created = append(r.created, subject)
	return fmt.Sprintf("token-%d", len(r.created)), nil
}

func (r *fakeResolver) ResolveCaller(context.Context, string) (session.Caller, error) {
	return session.Caller{}, session.ErrUnauthenticated
}

func (r *fakeResolver) InvalidateSession(_ context.Context, credential string) error {
	if r.err != nil {
		return r.err
	}
	r.invalidated = append(r.invalidated, credential)
	return nil
}

func (r *fakeResolver) TTL() time.Duration { return time.Hour }

// memRepo keeps users, guests and rooms in memory and applies occupancy
// changes under one lock, the way the SQL store applies them in one
// transaction. Methods it does not override fall through to the embedded
// mock.
type memRepo struct {
	*database.MockVibeHubRepository

	mu     sync.Mutex
	users  map[uuid.UUID]database.User
	guests map[uuid.UUID]database.Guest
	rooms  map[uuid.UUID]database.Room
}

func newMemRepo() *memRepo {
	return &memRepo{
		MockVibeHubRepository: &database.MockVibeHubRepository{},
		users:                 map[uuid.UUID]database.User{},
		guests:                map[uuid.UUID]database.Guest{},
		rooms:                 map[uuid.UUID]database.Room{},
	}
}

func (m *memRepo) addUser(nickname string) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.users[id] = database.User{Id: id, Nickname: nickname}
	return id
}

func (m *memRepo) addGuest() uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.guests[id] = database.Guest{Id: id, Name: "Guest" + id.String()[:10]}
	return id
}

func (m *memRepo) room(id uuid.UUID) database.Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rooms[id]
}

// occupantsOf counts users and guests pointing at the room.
func (m *memRepo) occupantsOf(id uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, u := range m.users {
		if u.RoomId.Valid && u.RoomId.UUID == id {
			n++
		}
	}
	for _, g := range m.guests {
		if g.RoomId.Valid && g.RoomId.UUID == id {
			n++
		}
	}
	return n
}

func (m *memRepo) GetUserById(_ context.Context, id uuid.UUID) (database.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return database.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (m *memRepo) GetGuestById(_ context.Context, id uuid.UUID) (database.Guest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.guests[id]
	if !ok {
		return database.Guest{}, sql.ErrNoRows
	}
	return g, nil
}

func (m *memRepo) GetRoomById(_ context.Context, id uuid.UUID) (database.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	if !ok {
		return database.Room{}, sql.ErrNoRows
	}
	return r, nil
}

func (m *memRepo) GetRoomByCode(_ context.Context, code string) (database.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rooms {
		if r.Code == code {
			return r, nil
		}
	}
	return database.Room{}, sql.ErrNoRows
}

func (m *memRepo) CreateRoom(_ context.Context, params database.CreateRoomParams) (database.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rooms {
		if r.Code == params.Code {
			return database.Room{}, database.ErrDuplicateCode
		}
	}
	id := uuid.New()
	settings := params.Settings
	settings.RoomId = id
	room := database.Room{Id: id, Code: params.Code, OwnerId: params.OwnerId, UserCount: 1, Settings: settings, Playlist: []database.Music{}}
	m.rooms[id] = room
	m.move(database.Occupant{Id: params.OwnerId, Kind: database.OccupantUser}, id)
	return m.rooms[id], nil
}

func (m *memRepo) UpdateRoomSettings(_ context.Context, settings database.RoomSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[settings.RoomId]
	if !ok {
		return sql.ErrNoRows
	}
	r.Settings = settings
	m.rooms[r.Id] = r
	return nil
}

func (m *memRepo) AddOccupant(_ context.Context, roomId uuid.UUID, occupant database.Occupant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[roomId]
	if !ok {
		return sql.ErrNoRows
	}
	if r.UserCount >= r.Settings.UsersLimit {
		return database.ErrRoomFull
	}
	r.UserCount++
	m.rooms[roomId] = r
	m.move(occupant, roomId)
	return nil
}

func (m *memRepo) RemoveOccupant(_ context.Context, roomId uuid.UUID, occupant database.Occupant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current := m.roomOf(occupant)
	if !current.Valid || current.UUID != roomId {
		return database.ErrNotInRoom
	}
	m.setRoom(occupant, uuid.NullUUID{})
	m.release(current)
	return nil
}

// move must be called with mu held and the new slot already claimed.
func (m *memRepo) move(occupant database.Occupant, roomId uuid.UUID) {
	previous := m.roomOf(occupant)
	m.setRoom(occupant, uuid.NullUUID{UUID: roomId, Valid: true})
	m.release(previous)
}

func (m *memRepo) release(id uuid.NullUUID) {
	if !id.Valid {
		return
	}
	if r, ok := m.rooms[id.UUID]; ok && r.UserCount > 0 {
		r.UserCount--
		m.rooms[id.UUID] = r
	}
}

func (m *memRepo) roomOf(o database.Occupant) uuid.NullUUID {
	if o.Kind == database.OccupantUser {
		return m.users[o.Id].RoomId
	}
	return m.guests[o.Id].RoomId
}

func (m *memRepo) setRoom(o database.Occupant, id uuid.NullUUID) {
	if o.Kind == database.OccupantUser {
		u := m.users[o.Id]
		u.RoomId = id
		m.users[o.Id] = u
		return
	}
	g := m.guests[o.Id]
	g.RoomId = id
	m.guests[o.Id] = g
}
