package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ma-central/macsvc/internal/apperror"
	"github.com/ma-central/macsvc/internal/auth"
	"github.com/ma-central/macsvc/internal/model"
	"github.com/ma-central/macsvc/internal/repository"
)

const (
	MinPasswordLength = 8
	MaxUsernameLength = 64
	MaxFullNameLength = 128
)

// AuthService is the credential store: it owns account creation, password
// verification, identity lookups, and account deletion. Session lifetime is
// not its concern — handlers establish and revoke registry entries.
type AuthService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(users repository.UserRepository, passwords *auth.PasswordService, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:     users,
		passwords: passwords,
		logger:    logger,
	}
}

// Register creates a new account with a zero point balance and the
// ordinary role. The password is argon2id-hashed with a fresh salt before
// anything touches the database.
func (s *AuthService) Register(ctx context.Context, studentID, fullName, username, password string) (*model.User, error) {
	studentID = strings.TrimSpace(studentID)
	fullName = strings.TrimSpace(fullName)
	username = strings.TrimSpace(username)

	if studentID == "" {
		return nil, apperror.ValidationFailed("student_id", "student id is required")
	}
	if username == "" {
		return nil, apperror.ValidationFailed("username", "username is required")
	}
	if len(username) > MaxUsernameLength {
		return nil, apperror.ValidationFailed("username",
			fmt.Sprintf("username must be %d characters or less", MaxUsernameLength))
	}
	if len(fullName) > MaxFullNameLength {
		return nil, apperror.ValidationFailed("full_name",
			fmt.Sprintf("full name must be %d characters or less", MaxFullNameLength))
	}
	if len(password) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		s.logger.Error("password hashing failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &model.User{
		StudentID: studentID,
		Username:  username,
		FullName:  fullName,
		PassHash:  hash,
		Role:      model.RoleOrdinary,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		s.logger.Error("creating user failed",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Persistence("creating user", err)
	}

	s.logger.Info("account created",
		slog.Int64("id", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// Login verifies a username/password pair and returns the user record on
// success. Unknown usernames and wrong passwords produce the same
// Unauthenticated error so responses don't reveal which accounts exist.
func (s *AuthService) Login(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthenticated()
		}
		return nil, apperror.Persistence("looking up user", err)
	}

	if err := s.passwords.Verify(user.PassHash, password); err != nil {
		s.logger.Info("failed login attempt", slog.String("username", username))
		return nil, apperror.Unauthenticated()
	}

	return user, nil
}

// GetByID resolves a user by internal ID. Used by whoami, which must
// re-read the store rather than trust a session snapshot for balances.
func (s *AuthService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return s.users.GetByID(ctx, id)
}

// GetByUsername resolves a user by unique username.
func (s *AuthService) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.users.GetByUsername(ctx, username)
}

// GetByStudentID resolves a user by their school-issued identifier.
func (s *AuthService) GetByStudentID(ctx context.Context, studentID string) (*model.User, error) {
	return s.users.GetByStudentID(ctx, studentID)
}

// Delete removes an account after re-verifying its credentials. The caller
// is responsible for revoking the account's sessions afterwards.
func (s *AuthService) Delete(ctx context.Context, username, password string) error {
	user, err := s.Login(ctx, username, password)
	if err != nil {
		return err
	}

	if err := s.users.Delete(ctx, user.ID); err != nil {
		s.logger.Error("deleting user failed",
			slog.Int64("id", user.ID),
			slog.String("error", err.Error()),
		)
		return apperror.Persistence("deleting user", err)
	}

	s.logger.Info("account deleted",
		slog.Int64("id", user.ID),
		slog.String("username", user.Username),
	)
	return nil
}
