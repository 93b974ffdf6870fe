package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"budgetbook/internal/core"
	"budgetbook/internal/ledger"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTempPasswordSet means the account still holds a temporary
	// password and must complete setup before logging in.
	ErrTempPasswordSet = errors.New("temporary password must be replaced")
)

// MailPublisher decouples the user service from AMQP; a nil publisher
// disables mail delivery.
type MailPublisher interface {
	PublishTempPasswordMail(ctx context.Context, email, tempPassword string) error
}

// UserService implements the two-step local signup (temporary password
// first, permanent password after verification) and Google sign-in.
type UserService struct {
	users ledger.UserStore
	mail  MailPublisher
}

func NewUserService(users ledger.UserStore, mail MailPublisher) *UserService {
	return &UserService{users: users, mail: mail}
}

// Register creates a local user with a generated temporary password and
// enqueues the delivery mail. The temporary password is returned so the
// caller can surface it when mail is disabled.
func (s *UserService) Register(ctx context.Context, email string) (core.User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if !core.ValidEmail(email) {
		return core.User{}, "", core.ErrInvalidEmail
	}

	_, err := s.users.FindUserByEmail(ctx, email)
	if err == nil {
		return core.User{}, "", ErrEmailTaken
	}
	if !errors.Is(err, ledger.ErrNotFound) {
		return core.User{}, "", fmt.Errorf("find user: %w", err)
	}

	tempPassword := newTempPassword()
	user, err := s.users.CreateLocalUser(ctx, email, tempPassword)
	if err != nil {
		return core.User{}, "", fmt.Errorf("create user: %w", err)
	}

	// Mail delivery must never fail the signup
	if s.mail != nil {
		if err := s.mail.PublishTempPasswordMail(ctx, email, tempPassword); err != nil {
			slog.ErrorContext(ctx, "Failed to publish temp password mail",
				"email", email, "error", err)
		}
	}

	return user, tempPassword, nil
}

// VerifyTempPassword checks the temporary credential of a user still in
// the temp state.
func (s *UserService) VerifyTempPassword(ctx context.Context, email, tempPassword string) (core.User, error) {
	user, err := s.users.FindUserByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return core.User{}, ErrInvalidCredentials
		}
		return core.User{}, fmt.Errorf("find user: %w", err)
	}
	if !user.IsTemp || user.TempPassword == "" || user.TempPassword != tempPassword {
		return core.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// SetPermanentPassword completes the signup: the temporary password is
// verified one last time, then replaced with a bcrypt hash. The
// transition is one way.
func (s *UserService) SetPermanentPassword(ctx context.Context, email, tempPassword, newPassword string) error {
	if len(newPassword) < 8 {
		return errors.New("password too short (min 8 characters)")
	}

	user, err := s.VerifyTempPassword(ctx, email, tempPassword)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.SetPermanentPassword(ctx, user.Email, string(hash)); err != nil {
		return fmt.Errorf("set permanent password: %w", err)
	}
	return nil
}

// Login authenticates a local user with a permanent password. Users
// still holding a temporary password get ErrTempPasswordSet.
func (s *UserService) Login(ctx context.Context, email, password string) (core.User, error) {
	user, err := s.users.FindUserByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return core.User{}, ErrInvalidCredentials
		}
		return core.User{}, fmt.Errorf("find user: %w", err)
	}
	if user.IsTemp {
		return core.User{}, ErrTempPasswordSet
	}
	if user.PasswordHash == "" {
		return core.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return core.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// FindOrCreateGoogleUser resolves a verified Google email to a local
// user, creating one on first sign-in.
func (s *UserService) FindOrCreateGoogleUser(ctx context.Context, email string) (core.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if !core.ValidEmail(email) {
		return core.User{}, core.ErrInvalidEmail
	}

	user, err := s.users.FindUserByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ledger.ErrNotFound) {
		return core.User{}, fmt.Errorf("find user: %w", err)
	}

	user, err = s.users.CreateGoogleUser(ctx, email)
	if err != nil {
		return core.User{}, fmt.Errorf("create google user: %w", err)
	}
	return user, nil
}

func newTempPassword() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
