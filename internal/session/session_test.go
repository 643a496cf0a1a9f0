package session

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"github.com/npezzotti/vibehub/internal/database"
	"github.com/npezzotti/vibehub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	testKey = []byte("test-signing-key")
	testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
)

func newTestResolver(t *testing.T, repo database.VibeHubRepository) *JwtSessionResolver {
	r := NewJwtSessionResolver(testutil.TestLogger(t), repo, testKey, time.Hour)
	r.newId = func() string { return "session-1" }
	r.now = func() time.Time { return testNow }
	return r
}

func signed(t *testing.T, claims jwt.MapClaims, key []byte) string {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestCreateSessionForUser(t *testing.T) {
	repo := &database.MockVibeHubRepository{}
	defer repo.AssertExpectations(t)
	r := newTestResolver(t, repo)
	user := database.User{Id: uuid.New()}

	repo.On("SetUserSession", mock.Anything, user.Id, mock.MatchedBy(func(sid *string) bool {
		return sid != nil && *sid == "session-1"
	})).Return(nil)

	token, err := r.CreateSession(context.Background(), Caller{User: &user})
	require.NoError(t, err)

	sid, err := r.sessionId(token)
	require.NoError(t, err)
	assert.Equal(t, "session-1", sid)
}

func TestSessionExpiresOnResolverClock(t *testing.T) {
	repo := &database.MockVibeHubRepository{}
	defer repo.AssertExpectations(t)
	r := newTestResolver(t, repo)
	user := database.User{Id: uuid.New()}

	repo.On("SetUserSession", mock.Anything, user.Id, mock.Anything).Return(nil)

	token, err := r.CreateSession(context.Background(), Caller{User: &user})
	require.NoError(t, err)

	r.now = func() time.Time { return testNow.Add(time.Hour - time.Second) }
	_, err = r.sessionId(token)
	require.NoError(t, err)

	r.now = func() time.Time { return testNow.Add(time.Hour + time.Second) }
	_, err = r.sessionId(token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestCreateSessionForGuest(t *testing.T) {
	repo := &database.MockVibeHubRepository{}
	defer repo.AssertExpectations(t)
	r := newTestResolver(t, repo)
	guest := database.Guest{Id: uuid.New()}

	repo.On("CreateGuestSession", mock.Anything, guest.Id, "session-1").Return(nil)
	repo.On("TouchGuest", mock.Anything, guest.Id, r.now()).Return(nil)

	token, err := r.CreateSession(context.Background(), Caller{Guest: &guest})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestCreateSessionErrors(t *testing.T) {
	repo := &database.MockVibeHubRepository{}
	defer repo.AssertExpectations(t)
	r := newTestResolver(t, repo)

	_, err := r.CreateSession(context.Background(), Caller{})
	assert.Error(t, err)

	user := database.User{Id: uuid.New()}
	repo.On("SetUserSession", mock.Anything, user.Id, mock.Anything).Return(errors.New("db down"))
	_, err = r.CreateSession(context.Background(), Caller{User: &user})
	assert.ErrorContains(t, err, "db down")
}

func TestResolveCaller(t *testing.T) {
	user := database.User{Id: uuid.New(), Nickname: "alice"}
	guest := database.Guest{Id: uuid.New(), Name: "GuestABCDEFGHIJ"}
	valid := signed(t, jwt.MapClaims{sessionIdClaim: "sid", expClaim: testNow.Add(time.Hour).Unix()}, testKey)

	tcases := []struct {
		name       string
		credential string
		setup      func(repo *database.MockVibeHubRepository, r *JwtSessionResolver)
		wantUser   bool
		wantGuest  bool
		wantErr    error
		wantAnyErr bool
	}{
		{
			name:       "empty credential",
			credential: "",
			setup:      func(*database.MockVibeHubRepository, *JwtSessionResolver) {},
			wantErr:    ErrUnauthenticated,
		},
		{
			name:       "garbage credential",
			credential: "not-a-jwt",
			setup:      func(*database.MockVibeHubRepository, *JwtSessionResolver) {},
			wantErr:    ErrUnauthenticated,
		},
		{
			name:       "wrong key",
			credential: signed(t, jwt.MapClaims{sessionIdClaim: "sid", expClaim: testNow.Add(time.Hour).Unix()}, []byte("other")),
			setup:      func(*database.MockVibeHubRepository, *JwtSessionResolver) {},
			wantErr:    ErrUnauthenticated,
		},
		{
			name:       "expired",
			credential: signed(t, jwt.MapClaims{sessionIdClaim: "sid", expClaim: testNow.Add(-time.Hour).Unix()}, testKey),
			setup:      func(*database.MockVibeHubRepository, *JwtSessionResolver) {},
			wantErr:    ErrUnauthenticated,
		},
		{
			name:       "missing expiry",
			credential: signed(t, jwt.MapClaims{sessionIdClaim: "sid"}, testKey),
			setup:      func(*database.MockVibeHubRepository, *JwtSessionResolver) {},
			wantErr:    ErrUnauthenticated,
		},
		{
			name:       "missing session claim",
			credential: signed(t, jwt.MapClaims{expClaim: testNow.Add(time.Hour).Unix()}, testKey),
			setup:      func(*database.MockVibeHubRepository, *JwtSessionResolver) {},
			wantErr:    ErrUnauthenticated,
		},
		{
			name:       "user session",
			credential: valid,
			setup: func(repo *database.MockVibeHubRepository, _ *JwtSessionResolver) {
				repo.On("GetUserBySession", mock.Anything, "sid").Return(user, nil)
			},
			wantUser: true,
		},
		{
			name:       "guest session is touched",
			credential: valid,
			setup: func(repo *database.MockVibeHubRepository, r *JwtSessionResolver) {
				repo.On("GetUserBySession", mock.Anything, "sid").Return(database.User{}, sql.ErrNoRows)
				repo.On("GetGuestBySession", mock.Anything, "sid").Return(guest, nil)
				repo.On("TouchGuest", mock.Anything, guest.Id, r.now()).Return(nil)
			},
			wantGuest: true,
		},
		{
			name:       "unknown session",
			credential: valid,
			setup: func(repo *database.MockVibeHubRepository, _ *JwtSessionResolver) {
				repo.On("GetUserBySession", mock.Anything, "sid").Return(database.User{}, sql.ErrNoRows)
				repo.On("GetGuestBySession", mock.Anything, "sid").Return(database.Guest{}, sql.ErrNoRows)
			},
			wantErr: ErrUnauthenticated,
		},
		{
			name:       "infrastructure failure",
			credential: valid,
			setup: func(repo *database.MockVibeHubRepository, _ *JwtSessionResolver) {
				repo.On("GetUserBySession", mock.Anything, "sid").Return(database.User{}, errors.New("connection refused"))
			},
			wantAnyErr: true,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &database.MockVibeHubRepository{}
			defer repo.AssertExpectations(t)
			r := newTestResolver(t, repo)
			tc.setup(repo, r)

			caller, err := r.ResolveCaller(context.Background(), tc.credential)
			switch {
			case tc.wantErr != nil:
				assert.ErrorIs(t, err, tc.wantErr)
				return
			case tc.wantAnyErr:
				assert.Error(t, err)
				assert.NotErrorIs(t, err, ErrUnauthenticated)
				return
			}

			require.NoError(t, err)
			if tc.wantUser {
				require.NotNil(t, caller.User)
				assert.Equal(t, user.Id, caller.Id())
				assert.False(t, caller.IsGuest())
			}
			if tc.wantGuest {
				require.NotNil(t, caller.Guest)
				assert.Equal(t, guest.Id, caller.Id())
				assert.True(t, caller.IsGuest())
				assert.Equal(t, r.now(), caller.Guest.LastActive)
			}
		})
	}
}

func TestInvalidateSession(t *testing.T) {
	valid := signed(t, jwt.MapClaims{sessionIdClaim: "sid", expClaim: testNow.Add(time.Hour).Unix()}, testKey)

	t.Run("user session cleared", func(t *testing.T) {
		repo := &database.MockVibeHubRepository{}
		defer repo.AssertExpectations(t)
		r := newTestResolver(t, repo)
		user := database.User{Id: uuid.New()}

		repo.On("GetUserBySession", mock.Anything, "sid").Return(user, nil)
		repo.On("SetUserSession", mock.Anything, user.Id, (*string)(nil)).Return(nil)

		assert.NoError(t, r.InvalidateSession(context.Background(), valid))
	})

	t.Run("guest deleted", func(t *testing.T) {
		repo := &database.MockVibeHubRepository{}
		defer repo.AssertExpectations(t)
		r := newTestResolver(t, repo)
		guest := database.Guest{Id: uuid.New()}

		repo.On("GetUserBySession", mock.Anything, "sid").Return(database.User{}, sql.ErrNoRows)
		repo.On("GetGuestBySession", mock.Anything, "sid").Return(guest, nil)
		repo.On("TouchGuest", mock.Anything, guest.Id, mock.Anything).Return(nil)
		repo.On("DeleteGuest", mock.Anything, guest.Id).Return(nil)

		assert.NoError(t, r.InvalidateSession(context.Background(), valid))
	})

	t.Run("unauthenticated", func(t *testing.T) {
		r := newTestResolver(t, &database.MockVibeHubRepository{})
		assert.ErrorIs(t, r.InvalidateSession(context.Background(), ""), ErrUnauthenticated)
	})
}

func TestRejectsNonHmacTokens(t *testing.T) {
	r := newTestResolver(t, &database.MockVibeHubRepository{})
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{sessionIdClaim: "sid"})
	s, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = r.ResolveCaller(context.Background(), s)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}
