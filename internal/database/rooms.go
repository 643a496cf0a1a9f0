package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	roomSelect = "SELECT r.id, r.code, r.owner_id, r.user_count, r.created_at, r.updated_at, " +
		"s.users_limit, s.availability, s.password, s.allow_users_update_music " +
		"FROM rooms r JOIN room_settings s ON s.room_id = r.id "
	musicColumns = "m.id, m.title, m.artist, m.room_id, m.file_name, m.created_at"
)

func scanRoom(row scanner) (Room, error) {
	var r Room
	err := row.Scan(
		&r.Id,
		&r.Code,
		&r.OwnerId,
		&r.UserCount,
		&r.CreatedAt,
		&r.UpdatedAt,
		&r.Settings.UsersLimit,
		&r.Settings.Availability,
		&r.Settings.Password,
		&r.Settings.AllowUsersUpdateMusic,
	)
	r.Settings.RoomId = r.Id

	return r, err
}

func scanMusic(row scanner) (Music, error) {
	var m Music
	err := row.Scan(
		&m.Id,
		&m.Title,
		&m.Artist,
		&m.RoomId,
		&m.FileName,
		&m.CreatedAt,
	)

	return m, err
}

func (db *PgVibeHubRepository) ListRooms(ctx context.Context, limit, offset int) ([]Room, error) {
	rows, err := db.conn.QueryContext(ctx,
		roomSelect+"ORDER BY r.created_at DESC, r.id LIMIT $1 OFFSET $2",
		limit,
		offset,
	)
	if err != nil {
		return nil, err
	}

	return db.collectRooms(ctx, rows)
}

func (db *PgVibeHubRepository) CountRooms(ctx context.Context) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx, "SELECT count(*) FROM rooms").Scan(&n)
	return n, err
}

func (db *PgVibeHubRepository) GetRoomById(ctx context.Context, id uuid.UUID) (Room, error) {
	return db.getRoom(ctx, roomSelect+"WHERE r.id = $1 LIMIT 1", id)
}

func (db *PgVibeHubRepository) GetRoomByCode(ctx context.Context, code string) (Room, error) {
	return db.getRoom(ctx, roomSelect+"WHERE r.code = $1 LIMIT 1", code)
}

func (db *PgVibeHubRepository) ListRoomsByOwner(ctx context.Context, ownerId uuid.UUID) ([]Room, error) {
	rows, err := db.conn.QueryContext(ctx,
		roomSelect+"WHERE r.owner_id = $1 ORDER BY r.created_at",
		ownerId,
	)
	if err != nil {
		return nil, err
	}

	return db.collectRooms(ctx, rows)
}

func (db *PgVibeHubRepository) getRoom(ctx context.Context, query string, arg any) (Room, error) {
	room, err := scanRoom(db.conn.QueryRowContext(ctx, query, arg))
	if err != nil {
		return Room{}, err
	}

	room.Playlist, err = db.ListRoomMusics(ctx, room.Id)
	if err != nil {
		return Room{}, fmt.Errorf("list playlist: %w", err)
	}

	return room, nil
}

func (db *PgVibeHubRepository) collectRooms(ctx context.Context, rows *sql.Rows) ([]Room, error) {
	rooms := make([]Room, 0)
	for rows.Next() {
		r, err := scanRoom(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		rooms = append(rooms, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range rooms {
		playlist, err := db.ListRoomMusics(ctx, rooms[i].Id)
		if err != nil {
			return nil, fmt.Errorf("list playlist: %w", err)
		}
		rooms[i].Playlist = playlist
	}

	return rooms, nil
}

// CreateRoom persists the room and its settings and moves the owner into it,
// leaving any room the owner previously occupied.
func (db *PgVibeHubRepository) CreateRoom(ctx context.Context, params CreateRoomParams) (Room, error) {
	var room Room
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		err := tx.QueryRowContext(ctx,
			"INSERT INTO rooms (id, code, owner_id, user_count, created_at, updated_at) "+
				"VALUES ($1, $2, $3, 1, $4, $4) RETURNING id, code, owner_id, user_count, created_at, updated_at",
			uuid.New(),
			params.Code,
			params.OwnerId,
			now,
		).Scan(
			&room.Id,
			&room.Code,
			&room.OwnerId,
			&room.UserCount,
			&room.CreatedAt,
			&room.UpdatedAt,
		)
		if err != nil {
			return mapUniqueViolation(err)
		}

		room.Settings = params.Settings
		room.Settings.RoomId = room.Id
		_, err = tx.ExecContext(ctx,
			"INSERT INTO room_settings (room_id, users_limit, availability, password, allow_users_update_music) "+
				"VALUES ($1, $2, $3, $4, $5)",
			room.Id,
			room.Settings.UsersLimit,
			room.Settings.Availability,
			room.Settings.Password,
			room.Settings.AllowUsersUpdateMusic,
		)
		if err != nil {
			return fmt.Errorf("insert settings: %w", err)
		}

		return moveOccupant(ctx, tx, "users", params.OwnerId, room.Id)
	})
	if err != nil {
		return Room{}, err
	}

	room.Playlist = make([]Music, 0)
	return room, nil
}

func (db *PgVibeHubRepository) UpdateRoomSettings(ctx context.Context, settings RoomSettings) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE room_settings SET users_limit = $2, availability = $3, password = $4, allow_users_update_music = $5 "+
				"WHERE room_id = $1",
			settings.RoomId,
			settings.UsersLimit,
			settings.Availability,
			settings.Password,
			settings.AllowUsersUpdateMusic,
		)
		if err != nil {
			return err
		}
		if err := expectRows(res); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			"UPDATE rooms SET updated_at = $2 WHERE id = $1",
			settings.RoomId,
			time.Now().UTC(),
		)
		return err
	})
}

// DeleteRoom removes the room. Settings, playlist rows, musics and messages
// cascade; occupants' room references are cleared by the foreign key.
func (db *PgVibeHubRepository) DeleteRoom(ctx context.Context, id uuid.UUID) error {
	res, err := db.conn.ExecContext(ctx, "DELETE FROM rooms WHERE id = $1", id)
	if err != nil {
		return err
	}

	return expectRows(res)
}

// AddOccupant claims a slot in the room and points the occupant at it. The
// increment only applies while user_count is below the users limit, so
// concurrent joins can never overfill a room.
func (db *PgVibeHubRepository) AddOccupant(ctx context.Context, roomId uuid.UUID, occupant Occupant) error {
	table, err := occupantTable(occupant.Kind)
	if err != nil {
		return err
	}

	return db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE rooms r SET user_count = r.user_count + 1, updated_at = $2 "+
				"FROM room_settings s "+
				"WHERE r.id = $1 AND s.room_id = r.id AND r.user_count < s.users_limit",
			roomId,
			time.Now().UTC(),
		)
		if err != nil {
			return err
		}

		if err := expectRows(res); isNoRows(err) {
			var exists bool
			if err := tx.QueryRowContext(ctx,
				"SELECT EXISTS (SELECT 1 FROM rooms WHERE id = $1)",
				roomId,
			).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return sql.ErrNoRows
			}
			return ErrRoomFull
		} else if err != nil {
			return err
		}

		return moveOccupant(ctx, tx, table, occupant.Id, roomId)
	})
}

// RemoveOccupant clears the occupant's room reference and releases its slot.
// It fails with ErrNotInRoom when the occupant is not in the room.
func (db *PgVibeHubRepository) RemoveOccupant(ctx context.Context, roomId uuid.UUID, occupant Occupant) error {
	table, err := occupantTable(occupant.Kind)
	if err != nil {
		return err
	}

	return db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE "+table+" SET room_id = NULL WHERE id = $1 AND room_id = $2",
			occupant.Id,
			roomId,
		)
		if err != nil {
			return err
		}
		if err := expectRows(res); isNoRows(err) {
			return ErrNotInRoom
		} else if err != nil {
			return err
		}

		return decrementRoom(ctx, tx, uuid.NullUUID{UUID: roomId, Valid: true})
	})
}

// moveOccupant points the occupant at roomId and releases the slot of the
// room it previously occupied. The caller has already claimed the new slot;
// when the occupant was already in roomId the release undoes that claim.
func moveOccupant(ctx context.Context, tx *sql.Tx, table string, id, roomId uuid.UUID) error {
	var previous uuid.NullUUID
	err := tx.QueryRowContext(ctx,
		"SELECT room_id FROM "+table+" WHERE id = $1 FOR UPDATE",
		id,
	).Scan(&previous)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE "+table+" SET room_id = $2 WHERE id = $1",
		id,
		roomId,
	)
	if err != nil {
		return err
	}

	return decrementRoom(ctx, tx, previous)
}

func (db *PgVibeHubRepository) AddMusics(ctx context.Context, roomId uuid.UUID, musics []Music) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		for _, m := range musics {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO musics (id, title, artist, room_id, file_name, created_at) "+
					"VALUES ($1, $2, $3, $4, $5, $6)",
				m.Id,
				m.Title,
				m.Artist,
				roomId,
				m.FileName,
				now,
			)
			if err != nil {
				return fmt.Errorf("insert music: %w", err)
			}

			_, err = tx.ExecContext(ctx,
				"INSERT INTO rooms_musics (music_id, room_id) VALUES ($1, $2)",
				m.Id,
				roomId,
			)
			if err != nil {
				return fmt.Errorf("insert playlist row: %w", err)
			}
		}

		_, err := tx.ExecContext(ctx,
			"UPDATE rooms SET updated_at = $2 WHERE id = $1",
			roomId,
			now,
		)
		return err
	})
}

func (db *PgVibeHubRepository) GetMusicById(ctx context.Context, id uuid.UUID) (Music, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT "+musicColumns+" FROM musics m WHERE m.id = $1 LIMIT 1",
		id,
	)

	return scanMusic(row)
}

func (db *PgVibeHubRepository) MusicExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := db.conn.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM musics WHERE id = $1)",
		id,
	).Scan(&exists)

	return exists, err
}

func (db *PgVibeHubRepository) ListRoomMusics(ctx context.Context, roomId uuid.UUID) ([]Music, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+musicColumns+" FROM rooms_musics rm "+
			"JOIN musics m ON m.id = rm.music_id "+
			"WHERE rm.room_id = $1 ORDER BY rm.position",
		roomId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	musics := make([]Music, 0)
	for rows.Next() {
		m, err := scanMusic(rows)
		if err != nil {
			return nil, err
		}
		musics = append(musics, m)
	}

	return musics, rows.Err()
}

// RemoveMusics deletes the playlist rows and music records of the given ids
// that belong to the room and returns the removed musics.
func (db *PgVibeHubRepository) RemoveMusics(ctx context.Context, roomId uuid.UUID, musicIds []uuid.UUID) ([]Music, error) {
	ids := make([]string, len(musicIds))
	for i, id := range musicIds {
		ids[i] = id.String()
	}

	removed := make([]Music, 0)
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"DELETE FROM rooms_musics WHERE room_id = $1 AND music_id = ANY($2::uuid[])",
			roomId,
			pq.Array(ids),
		)
		if err != nil {
			return fmt.Errorf("delete playlist rows: %w", err)
		}

		rows, err := tx.QueryContext(ctx,
			"DELETE FROM musics m WHERE m.room_id = $1 AND m.id = ANY($2::uuid[]) RETURNING "+musicColumns,
			roomId,
			pq.Array(ids),
		)
		if err != nil {
			return fmt.Errorf("delete musics: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			m, err := scanMusic(rows)
			if err != nil {
				return err
			}
			removed = append(removed, m)
		}

		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return removed, nil
}
