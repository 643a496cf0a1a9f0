package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	userColumns  = "id, nickname, email, password_hash, is_admin, session_id, avatar, room_id, created_at, updated_at"
	guestColumns = "id, name, last_active, room_id"
)

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (User, error) {
	var u User
	err := row.Scan(
		&u.Id,
		&u.Nickname,
		&u.EmailAddress,
		&u.PasswordHash,
		&u.IsAdmin,
		&u.SessionId,
		&u.Avatar,
		&u.RoomId,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, err
}

func scanGuest(row scanner) (Guest, error) {
	var g Guest
	err := row.Scan(
		&g.Id,
		&g.Name,
		&g.LastActive,
		&g.RoomId,
	)

	return g, err
}

func (db *PgVibeHubRepository) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	now := time.Now().UTC()
	row := db.conn.QueryRowContext(ctx,
		"INSERT INTO users (id, nickname, email, password_hash, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $5) RETURNING "+userColumns,
		uuid.New(),
		params.Nickname,
		params.EmailAddress,
		params.PasswordHash,
		now,
	)

	u, err := scanUser(row)
	if err != nil {
		return User{}, mapUniqueViolation(err)
	}

	return u, nil
}

func (db *PgVibeHubRepository) GetUserById(ctx context.Context, id uuid.UUID) (User, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1 LIMIT 1",
		id,
	)

	return scanUser(row)
}

func (db *PgVibeHubRepository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = $1 LIMIT 1",
		email,
	)

	return scanUser(row)
}

func (db *PgVibeHubRepository) GetUserByNickname(ctx context.Context, nickname string) (User, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE nickname = $1 LIMIT 1",
		nickname,
	)

	return scanUser(row)
}

func (db *PgVibeHubRepository) GetUserBySession(ctx context.Context, sessionId string) (User, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE session_id = $1 LIMIT 1",
		sessionId,
	)

	return scanUser(row)
}

func (db *PgVibeHubRepository) UpdateUser(ctx context.Context, params UpdateUserParams) (User, error) {
	row := db.conn.QueryRowContext(ctx,
		"UPDATE users SET nickname = $2, email = $3, password_hash = $4, avatar = $5, updated_at = $6 "+
			"WHERE id = $1 RETURNING "+userColumns,
		params.UserId,
		params.Nickname,
		params.EmailAddress,
		params.PasswordHash,
		params.Avatar,
		time.Now().UTC(),
	)

	u, err := scanUser(row)
	if err != nil {
		return User{}, mapUniqueViolation(err)
	}

	return u, nil
}

// SetUserSession replaces the stored session id. A nil session id logs the
// user out.
func (db *PgVibeHubRepository) SetUserSession(ctx context.Context, userId uuid.UUID, sessionId *string) error {
	res, err := db.conn.ExecContext(ctx,
		"UPDATE users SET session_id = $2, updated_at = $3 WHERE id = $1",
		userId,
		sessionId,
		time.Now().UTC(),
	)
	if err != nil {
		return err
	}

	return expectRows(res)
}

func (db *PgVibeHubRepository) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		var roomId uuid.NullUUID
		err := tx.QueryRowContext(ctx,
			"DELETE FROM users WHERE id = $1 RETURNING room_id",
			id,
		).Scan(&roomId)
		if err != nil {
			return err
		}

		return decrementRoom(ctx, tx, roomId)
	})
}

func (db *PgVibeHubRepository) CreateGuest(ctx context.Context, name string) (Guest, error) {
	row := db.conn.QueryRowContext(ctx,
		"INSERT INTO guests (id, name, last_active) VALUES ($1, $2, $3) RETURNING "+guestColumns,
		uuid.New(),
		name,
		time.Now().UTC(),
	)

	return scanGuest(row)
}

func (db *PgVibeHubRepository) GetGuestById(ctx context.Context, id uuid.UUID) (Guest, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT "+guestColumns+" FROM guests WHERE id = $1 LIMIT 1",
		id,
	)

	return scanGuest(row)
}

func (db *PgVibeHubRepository) CreateGuestSession(ctx context.Context, guestId uuid.UUID, sessionId string) error {
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO guest_sessions (session_id, guest_id, created_at) VALUES ($1, $2, $3)",
		sessionId,
		guestId,
		time.Now().UTC(),
	)

	return err
}

func (db *PgVibeHubRepository) GetGuestBySession(ctx context.Context, sessionId string) (Guest, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT g.id, g.name, g.last_active, g.room_id FROM guests g "+
			"JOIN guest_sessions s ON s.guest_id = g.id "+
			"WHERE s.session_id = $1 LIMIT 1",
		sessionId,
	)

	return scanGuest(row)
}

func (db *PgVibeHubRepository) TouchGuest(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := db.conn.ExecContext(ctx,
		"UPDATE guests SET last_active = $2 WHERE id = $1",
		id,
		at.UTC(),
	)
	if err != nil {
		return err
	}

	return expectRows(res)
}

// DeleteGuest removes the guest with its sessions and releases its room slot.
func (db *PgVibeHubRepository) DeleteGuest(ctx context.Context, id uuid.UUID) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		var roomId uuid.NullUUID
		err := tx.QueryRowContext(ctx,
			"DELETE FROM guests WHERE id = $1 RETURNING room_id",
			id,
		).Scan(&roomId)
		if err != nil {
			return err
		}

		return decrementRoom(ctx, tx, roomId)
	})
}

// DeleteInactiveGuests purges every guest idle since before cutoff and
// decrements the counters of the rooms they occupied in the same statement.
func (db *PgVibeHubRepository) DeleteInactiveGuests(ctx context.Context, cutoff time.Time) ([]Guest, error) {
	query := `
		WITH purged AS (
			DELETE FROM guests WHERE last_active < $1
			RETURNING id, name, last_active, room_id
		), counts AS (
			SELECT room_id, count(*) AS n FROM purged
			WHERE room_id IS NOT NULL
			GROUP BY room_id
		), released AS (
			UPDATE rooms r SET user_count = GREATEST(r.user_count - counts.n, 0)
			FROM counts WHERE r.id = counts.room_id
		)
		SELECT id, name, last_active, room_id FROM purged;
`

	rows, err := db.conn.QueryContext(ctx, query, cutoff.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var guests []Guest
	for rows.Next() {
		g, err := scanGuest(rows)
		if err != nil {
			return nil, err
		}
		guests = append(guests, g)
	}

	return guests, rows.Err()
}

func (db *PgVibeHubRepository) CreateMessage(ctx context.Context, params CreateMessageParams) (Message, error) {
	row := db.conn.QueryRowContext(ctx,
		"INSERT INTO message_history (id, room_id, user_id, text, created_at) "+
			"VALUES ($1, $2, $3, $4, $5) RETURNING id, room_id, user_id, text, created_at",
		uuid.New(),
		params.RoomId,
		params.UserId,
		params.Text,
		time.Now().UTC(),
	)

	var m Message
	err := row.Scan(
		&m.Id,
		&m.RoomId,
		&m.UserId,
		&m.Text,
		&m.CreatedAt,
	)

	return m, err
}

func (db *PgVibeHubRepository) ListMessages(ctx context.Context, roomId uuid.UUID) ([]Message, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT id, room_id, user_id, text, created_at FROM message_history "+
			"WHERE room_id = $1 ORDER BY created_at, id",
		roomId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]Message, 0)
	for rows.Next() {
		var m Message
		if err := rows.Scan(
			&m.Id,
			&m.RoomId,
			&m.UserId,
			&m.Text,
			&m.CreatedAt,
		); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}

	return messages, rows.Err()
}

func expectRows(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// decrementRoom releases one slot in the given room, if any.
func decrementRoom(ctx context.Context, tx *sql.Tx, roomId uuid.NullUUID) error {
	if !roomId.Valid {
		return nil
	}

	_, err := tx.ExecContext(ctx,
		"UPDATE rooms SET user_count = GREATEST(user_count - 1, 0) WHERE id = $1",
		roomId.UUID,
	)

	return err
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
