package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/andrapra-work/rag-system-api/internal/log"
	"github.com/andrapra-work/rag-system-api/internal/store"
)

// ErrWrongPassword is returned by ChangePassword when the current
// password does not match.
var ErrWrongPassword = errors.New("incorrect current password")

// UserStore is the subset of the persistence layer the auth service needs.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*store.User, error)
	CreateUser(ctx context.Context, email, passwordHash string, clientID uuid.UUID) (*store.User, error)
	UpdateUserPassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
}

// Service issues and validates access tokens and manages credentials.
type Service struct {
	users  UserStore
	secret string
	expiry time.Duration
	logger log.Logger
}

// Token is a bearer access token as returned to clients.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func NewService(users UserStore, secret string, expiry time.Duration, logger log.Logger) *Service {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Service{users: users, secret: secret, expiry: expiry, logger: logger}
}

// Login verifies the email and password and returns a signed token.
// A missing user and a wrong password both return ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (*Token, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	if !VerifyPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	signed, err := GenerateToken(user.Email, user.ClientID, s.secret, s.expiry)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", "user_id", user.ID, "client_id", user.ClientID)
	return &Token{AccessToken: signed, TokenType: "bearer"}, nil
}

// Register creates a new user under the given tenant. When clientID is
// the zero UUID a fresh tenant id is generated.
func (s *Service) Register(ctx context.Context, email, password string, clientID uuid.UUID) (*store.User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	if clientID == uuid.Nil {
		clientID = uuid.New()
	}

	user, err := s.users.CreateUser(ctx, email, hash, clientID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("registered user", "user_id", user.ID, "client_id", user.ClientID)
	return user, nil
}

// ChangePassword rotates a user's password after verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, user *store.User, currentPassword, newPassword string) error {
	if !VerifyPassword(currentPassword, user.PasswordHash) {
		return ErrWrongPassword
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdateUserPassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("storing new password: %w", err)
	}

	s.logger.Info("password changed", "user_id", user.ID)
	return nil
}

// Authenticate validates a bearer token and resolves the user it names.
// The user row is fetched fresh on every call so revoked accounts fail
// immediately.
func (s *Service) Authenticate(ctx context.Context, tokenString string) (*store.User, error) {
	claims, err := ParseToken(tokenString, s.secret)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("resolving token subject: %w", err)
	}
	return user, nil
}
