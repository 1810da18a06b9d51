// Package service implements the storefront's business operations.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/auth"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// MinPasswordLength is the shortest password Register accepts.
const MinPasswordLength = 8

// UserService implements registration, login and profile operations.
type UserService struct {
	users    repository.UserRepository
	hasher   *auth.PasswordHasher
	sessions *auth.SessionManager
	revoked  repository.SessionStore
	events   event.Publisher
	logger   *slog.Logger
}

func NewUserService(
	users repository.UserRepository,
	hasher *auth.PasswordHasher,
	sessions *auth.SessionManager,
	revoked repository.SessionStore,
	events event.Publisher,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		users:    users,
		hasher:   hasher,
		sessions: sessions,
		revoked:  revoked,
		events:   events,
		logger:   logger,
	}
}

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

type LoginInput struct {
	Email    string
	Password string
}

// UpdateProfileInput changes only the non-nil fields.
type UpdateProfileInput struct {
	FirstName *string
	LastName  *string
	Avatar    *string
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User    *domain.User `json:"user"`
	Session auth.Session `json:"session"`
}

// Register creates an account with the default role and opens a session.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := domain.NormalizeEmail(in.Email)
	if email == "" {
		return nil, apperrors.InvalidInput("email is required")
	}
	if strings.TrimSpace(in.FirstName) == "" {
		return nil, apperrors.InvalidInput("first name is required")
	}
	if len(in.Password) < MinPasswordLength {
		return nil, apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, alreadyRegistered(email)
	case !errors.Is(err, apperrors.ErrNotFound):
		return nil, fmt.Errorf("lookup user by email: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Role:         domain.RoleUser,
		DateJoined:   now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, alreadyRegistered(email)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := s.events.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	session, err := s.sessions.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}

	s.logger.InfoContext(ctx, "user registered", slog.String("user_id", user.ID))
	return &AuthResult{User: user, Session: session}, nil
}

// Login checks credentials and opens a new session.
func (s *UserService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	email := domain.NormalizeEmail(in.Email)
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			e := apperrors.Unauthorized("email is not registered")
			e.Code = "NOT_REGISTERED"
			return nil, e
		}
		return nil, fmt.Errorf("lookup user by email: %w", err)
	}

	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		e := apperrors.Unauthorized("invalid credentials")
		e.Code = "INVALID_CREDENTIALS"
		return nil, e
	}

	session, err := s.sessions.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged in", slog.String("user_id", user.ID))
	return &AuthResult{User: user, Session: session}, nil
}

// Logout revokes the session for the remainder of its lifetime.
func (s *UserService) Logout(ctx context.Context, claims *auth.Claims) error {
	if err := s.revoked.Revoke(ctx, claims.ID, s.sessions.Remaining(claims)); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	s.logger.InfoContext(ctx, "user logged out", slog.String("user_id", claims.UserID))
	return nil
}

// Authenticate validates a session token and rejects revoked sessions.
func (s *UserService) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.sessions.Validate(token)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid or expired session")
	}
	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check session revocation: %w", err)
	}
	if revoked {
		return nil, apperrors.Unauthorized("session has ended")
	}
	return claims, nil
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("user", userID)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// UpdateProfile applies the non-nil fields of in.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*domain.User, error) {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.FirstName != nil {
		name := strings.TrimSpace(*in.FirstName)
		if name == "" {
			return nil, apperrors.InvalidInput("first name cannot be empty")
		}
		user.FirstName = name
	}
	if in.LastName != nil {
		user.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Avatar != nil {
		user.Avatar = strings.TrimSpace(*in.Avatar)
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	s.logger.InfoContext(ctx, "profile updated", slog.String("user_id", user.ID))
	return user, nil
}

func alreadyRegistered(email string) error {
	e := apperrors.AlreadyExists("user", "email", email)
	e.Message = "email is already registered"
	return e
}
