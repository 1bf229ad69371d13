// Package service contains the business logic layer: validation, business
// rules, and orchestration. Handlers parse HTTP and delegate here; this
// package knows nothing about HTTP and returns domain errors from
// internal/apperror.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nayeem/cloudbook/internal/apperror"
	"github.com/nayeem/cloudbook/internal/auth"
	"github.com/nayeem/cloudbook/internal/model"
	"github.com/nayeem/cloudbook/internal/repository"
)

// MinPasswordLength is the minimum accepted signup password length.
const MinPasswordLength = 8

// AuthService handles signup, password login, external-identity login, and
// session issuance.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the user and a freshly issued session token so the
// handler can set the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// Register creates a password-credentialed account.
//
// The email is case-normalized before the uniqueness check, so
// "Ann@X.com" and "ann@x.com" are the same account. The plaintext
// password never reaches storage, only its bcrypt hash.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*AuthResult, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)

	if name == "" {
		return nil, apperror.ValidationFailed("name", "name is required")
	}
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}
	if len(password) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	}
	// The UNIQUE constraint catches duplicates; no pre-check, so two
	// concurrent signups for the same email cannot both win.
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: creating user %s: %w", email, err)
	}

	s.logger.Info("user registered",
		slog.Int64("userID", user.ID),
		slog.String("email", user.Email),
	)

	return s.sessionFor(user)
}

// Login verifies a password credential.
//
// Unknown email and wrong password return the identical
// apperror.InvalidCredentials, so callers can never learn which emails are
// registered. Users created from an external identity hold a placeholder
// hash that verifies against nothing, so they fall out the same way.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperror.ValidationFailed("credentials", "email and password are required")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: looking up user %s: %w", email, err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, apperror.InvalidCredentials()
	}

	s.logger.Info("user logged in", slog.Int64("userID", user.ID))

	return s.sessionFor(user)
}

// LoginExternal completes an external-identity login: upsert the user by
// email (at most one row per email, ever) and issue a session.
func (s *AuthService) LoginExternal(ctx context.Context, ident *auth.Identity) (*AuthResult, error) {
	if ident == nil || ident.Email == "" {
		return nil, apperror.Unauthenticated("external identity has no email")
	}

	user, err := s.users.EnsureByEmail(ctx, externalName(ident), normalizeEmail(ident.Email))
	if err != nil {
		return nil, fmt.Errorf("service/auth: ensuring external user: %w", err)
	}

	s.logger.Info("user logged in via external identity",
		slog.Int64("userID", user.ID),
		slog.String("email", user.Email),
	)

	return s.sessionFor(user)
}

// CurrentUser returns the user record for a resolved user id.
func (s *AuthService) CurrentUser(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %d: %w", id, err)
	}
	return user, nil
}

func (s *AuthService) sessionFor(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing session for user %d: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

func externalName(ident *auth.Identity) string {
	if name := strings.TrimSpace(ident.Name); name != "" {
		return name
	}
	if local, _, ok := strings.Cut(ident.Email, "@"); ok && local != "" {
		return local
	}
	return "User"
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
