package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"github.com/npezzotti/vibehub/internal/database"
	"github.com/sirupsen/logrus"
)

const (
	sessionIdClaim = "sid"
	expClaim       = "exp"
)

// ErrUnauthenticated is returned when a credential is missing, malformed,
// expired or does not match any user or guest.
var ErrUnauthenticated = errors.New("unauthenticated")

// Caller is the identity a credential resolves to. Exactly one of User and
// Guest is set.
type Caller struct {
	User  *database.User
	Guest *database.Guest
}

func (c Caller) Id() uuid.UUID {
	if c.User != nil {
		return c.User.Id
	}
	if c.Guest != nil {
		return c.Guest.Id
	}
	return uuid.Nil
}

func (c Caller) IsGuest() bool {
	return c.User == nil && c.Guest != nil
}

func (c Caller) RoomId() uuid.NullUUID {
	if c.User != nil {
		return c.User.RoomId
	}
	if c.Guest != nil {
		return c.Guest.RoomId
	}
	return uuid.NullUUID{}
}

type CredentialResolver interface {
	CreateSession(ctx context.Context, subject Caller) (string, error)
	ResolveCaller(ctx context.Context, credential string) (Caller, error)
	InvalidateSession(ctx context.Context, credential string) error
	TTL() time.Duration
}

// JwtSessionResolver stores an opaque session id against the user row or
// the guest session table and hands it out wrapped in a signed JWT.
type JwtSessionResolver struct {
	log        *logrus.Logger
	repo       database.VibeHubRepository
	signingKey []byte
	ttl        time.Duration
	now        func() time.Time
	newId      func() string
}

func NewJwtSessionResolver(logger *logrus.Logger, repo database.VibeHubRepository, signingKey []byte, ttl time.Duration) *JwtSessionResolver {
	return &JwtSessionResolver{
		log:        logger,
		repo:       repo,
		signingKey: signingKey,
		ttl:        ttl,
		now:        time.Now,
		newId:      func() string { return uuid.NewString() },
	}
}

func (r *JwtSessionResolver) TTL() time.Duration {
	return r.ttl
}

// CreateSession issues a new session for the subject. A user's previous
// session stops resolving.
func (r *JwtSessionResolver) CreateSession(ctx context.Context, subject Caller) (string, error) {
	sid := r.newId()

	switch {
	case subject.User != nil:
		if err := r.repo.SetUserSession(ctx, subject.User.Id, &sid); err != nil {
			return "", fmt.Errorf("store user session: %w", err)
		}
	case subject.Guest != nil:
		if err := r.repo.CreateGuestSession(ctx, subject.Guest.Id, sid); err != nil {
			return "", fmt.Errorf("store guest session: %w", err)
		}
		if err := r.repo.TouchGuest(ctx, subject.Guest.Id, r.now()); err != nil {
			return "", fmt.Errorf("touch guest: %w", err)
		}
	default:
		return "", errors.New("session subject is empty")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		sessionIdClaim: sid,
		expClaim:       r.now().Add(r.ttl).Unix(),
	})

	return token.SignedString(r.signingKey)
}

func (r *JwtSessionResolver) ResolveCaller(ctx context.Context, credential string) (Caller, error) {
	sid, err := r.sessionId(credential)
	if err != nil {
		return Caller{}, err
	}

	user, err := r.repo.GetUserBySession(ctx, sid)
	if err == nil {
		return Caller{User: &user}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Caller{}, fmt.Errorf("lookup user session: %w", err)
	}

	guest, err := r.repo.GetGuestBySession(ctx, sid)
	if errors.Is(err, sql.ErrNoRows) {
		return Caller{}, ErrUnauthenticated
	} else if err != nil {
		return Caller{}, fmt.Errorf("lookup guest session: %w", err)
	}

	now := r.now()
	if err := r.repo.TouchGuest(ctx, guest.Id, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Caller{}, ErrUnauthenticated
		}
		return Caller{}, fmt.Errorf("touch guest: %w", err)
	}
	guest.LastActive = now

	return Caller{Guest: &guest}, nil
}

// InvalidateSession logs a user out or deletes a guest along with its room
// slot.
func (r *JwtSessionResolver) InvalidateSession(ctx context.Context, credential string) error {
	caller, err := r.ResolveCaller(ctx, credential)
	if err != nil {
		return err
	}

	if caller.User != nil {
		if err := r.repo.SetUserSession(ctx, caller.User.Id, nil); err != nil {
			return fmt.Errorf("clear user session: %w", err)
		}
		return nil
	}

	if err := r.repo.DeleteGuest(ctx, caller.Guest.Id); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("delete guest: %w", err)
	}
	r.log.WithField("guest_id", caller.Guest.Id).Info("guest session invalidated")

	return nil
}

func (r *JwtSessionResolver) sessionId(credential string) (string, error) {
	if credential == "" {
		return "", ErrUnauthenticated
	}

	// exp is checked below against the resolver's clock, not jwt.TimeFunc
	parser := jwt.Parser{SkipClaimsValidation: true}
	token, err := parser.Parse(credential, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return r.signingKey, nil
	})
	if err != nil || !token.Valid {
		r.log.WithError(err).Debug("rejected credential")
		return "", ErrUnauthenticated
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrUnauthenticated
	}

	if !claims.VerifyExpiresAt(r.now().Unix(), true) {
		r.log.Debug("rejected expired credential")
		return "", ErrUnauthenticated
	}

	sid, ok := claims[sessionIdClaim].(string)
	if !ok || sid == "" {
		return "", ErrUnauthenticated
	}

	return sid, nil
}
