package database

import (
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ VibeHubRepository = (*PgVibeHubRepository)(nil)
var _ VibeHubRepository = (*MockVibeHubRepository)(nil)

func TestMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(migrationFiles, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("unexpected migration file %q", name)
		}
	}

	assert.Equal(t, ups, downs)
}

func TestSchemaDeclaresMappedConstraints(t *testing.T) {
	b, err := fs.ReadFile(migrationFiles, "migrations/000001_init_schema.up.sql")
	require.NoError(t, err)
	schema := string(b)

	for _, c := range []string{"users_email_key", "users_nickname_key", "rooms_code_key"} {
		assert.Contains(t, schema, c)
	}
}

func TestMapUniqueViolation(t *testing.T) {
	other := errors.New("boom")

	tcases := []struct {
		name string
		err  error
		want error
	}{
		{"email", &pq.Error{Code: uniqueViolation, Constraint: "users_email_key"}, ErrDuplicateEmail},
		{"nickname", &pq.Error{Code: uniqueViolation, Constraint: "users_nickname_key"}, ErrDuplicateNickname},
		{"room code", &pq.Error{Code: uniqueViolation, Constraint: "rooms_code_key"}, ErrDuplicateCode},
		{"unknown constraint", &pq.Error{Code: uniqueViolation, Constraint: "other"}, nil},
		{"not a unique violation", &pq.Error{Code: "23503", Constraint: "users_email_key"}, nil},
		{"plain error", other, other},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			got := mapUniqueViolation(tc.err)
			if tc.want == nil {
				assert.Equal(t, tc.err, got)
				return
			}
			assert.ErrorIs(t, got, tc.want)
		})
	}
}

func TestOccupantTable(t *testing.T) {
	table, err := occupantTable(OccupantUser)
	require.NoError(t, err)
	assert.Equal(t, "users", table)

	table, err = occupantTable(OccupantGuest)
	require.NoError(t, err)
	assert.Equal(t, "guests", table)

	_, err = occupantTable(OccupantKind(0))
	assert.Error(t, err)
}
