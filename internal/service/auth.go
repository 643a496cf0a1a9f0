package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/npezzotti/vibehub/internal/database"
	"github.com/npezzotti/vibehub/internal/filter"
	"github.com/npezzotti/vibehub/internal/session"
	"github.com/npezzotti/vibehub/internal/stats"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

type RegisterInput struct {
	Nickname string `validate:"required,min=3,max=20,alphanum" filter:"min=3"`
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"required,min=5,max=72,password"`
}

type AuthService struct {
	log      *logrus.Logger
	repo     database.VibeHubRepository
	sessions session.CredentialResolver
	stats    stats.StatsProvider
}

func NewAuthService(logger *logrus.Logger, repo database.VibeHubRepository, sessions session.CredentialResolver, su stats.StatsProvider) *AuthService {
	return &AuthService{log: logger, repo: repo, sessions: sessions, stats: su}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (database.User, error) {
	if err := validate.Struct(in); err != nil {
		return database.User{}, validationError(err)
	}

	in, err := filter.Apply(in)
	if err != nil {
		return database.User{}, badInput("%s", err.Error())
	}

	if err := s.ensureEmailFree(ctx, in.Email); err != nil {
		return database.User{}, err
	}
	if err := s.ensureNicknameFree(ctx, in.Nickname); err != nil {
		return database.User{}, err
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return database.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.CreateUser(ctx, database.CreateUserParams{
		Nickname:     in.Nickname,
		EmailAddress: in.Email,
		PasswordHash: hash,
	})
	if err != nil {
		return database.User{}, mapDuplicate(err, "create user")
	}

	s.log.WithField("user_id", user.Id).Info("user registered")
	return user, nil
}

// Login verifies the credentials and opens a new session, replacing the
// user's previous one.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, database.User, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		s.stats.Incr(stats.FailedLogins)
		return "", database.User{}, ErrInvalidCredentials
	} else if err != nil {
		return "", database.User{}, fmt.Errorf("get user by email: %w", err)
	}

	if !verifyPassword(user.PasswordHash, password) {
		s.stats.Incr(stats.FailedLogins)
		s.log.WithField("user_id", user.Id).Info("failed login")
		return "", database.User{}, ErrInvalidCredentials
	}

	token, err := s.sessions.CreateSession(ctx, session.Caller{User: &user})
	if err != nil {
		return "", database.User{}, fmt.Errorf("create session: %w", err)
	}

	return token, user, nil
}

func (s *AuthService) Logout(ctx context.Context, caller session.Caller, credential string) error {
	if caller.User == nil {
		return badInput("Only registered users can log out.")
	}

	if err := s.sessions.InvalidateSession(ctx, credential); err != nil {
		if errors.Is(err, session.ErrUnauthenticated) {
			return ErrUnauthenticated
		}
		return fmt.Errorf("invalidate session: %w", err)
	}

	return nil
}

func (s *AuthService) ensureEmailFree(ctx context.Context, email string) error {
	_, err := s.repo.GetUserByEmail(ctx, email)
	if err == nil {
		return ErrEmailAlreadyExists
	} else if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("get user by email: %w", err)
	}
	return nil
}

func (s *AuthService) ensureNicknameFree(ctx context.Context, nickname string) error {
	_, err := s.repo.GetUserByNickname(ctx, nickname)
	if err == nil {
		return ErrNicknameAlreadyExists
	} else if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("get user by nickname: %w", err)
	}
	return nil
}

func mapDuplicate(err error, op string) error {
	switch {
	case errors.Is(err, database.ErrDuplicateEmail):
		return ErrEmailAlreadyExists
	case errors.Is(err, database.ErrDuplicateNickname):
		return ErrNicknameAlreadyExists
	}
	return fmt.Errorf("%s: %w", op, err)
}

func hashPassword(passwd string) (string, error) {
	passwdHash, err := bcrypt.GenerateFromPassword([]byte(passwd), bcrypt.DefaultCost)
	return string(passwdHash), err
}

func verifyPassword(passwdHash, passwd string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(passwdHash), []byte(passwd))
	return err == nil
}
