package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/nayeem/cloudbook/internal/apperror"
	"github.com/nayeem/cloudbook/internal/repository"
)

// Resolver maps an inbound request's credentials to a stable internal
// user id.
//
// Resolution order:
//  1. The external identity provider, when one is configured. An identity
//     carrying an email is upserted into the local user table: an
//     idempotent operation that creates at most one row on first sight of
//     a given email and returns the existing row unchanged afterwards.
//  2. The session cookie JWT.
//
// Anything else resolves to apperror.ErrUnauthenticated.
type Resolver struct {
	provider IdentityProvider // may be nil when no external provider is configured
	tokens   *TokenService
	users    repository.UserRepository
	logger   *slog.Logger
}

func NewResolver(provider IdentityProvider, tokens *TokenService, users repository.UserRepository, logger *slog.Logger) *Resolver {
	return &Resolver{
		provider: provider,
		tokens:   tokens,
		users:    users,
		logger:   logger,
	}
}

// ResolveUser returns the user id for the request, creating a local user
// row as a side effect when an external identity's email is seen for the
// first time.
func (rs *Resolver) ResolveUser(r *http.Request) (int64, error) {
	ctx := r.Context()

	if rs.provider != nil {
		ident, err := rs.provider.Identify(ctx, r)
		if err != nil {
			// A broken external credential is not fatal; the request may
			// still carry a valid session cookie.
			rs.logger.Warn("external identity check failed", slog.String("error", err.Error()))
		}
		if ident != nil && ident.Email != "" {
			user, err := rs.users.EnsureByEmail(ctx, displayName(ident), normalizeEmail(ident.Email))
			if err != nil {
				return 0, fmt.Errorf("auth: ensuring user for external identity: %w", err)
			}
			return user.ID, nil
		}
	}

	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return 0, apperror.Unauthenticated("authentication required")
	}

	claims, err := rs.tokens.Validate(cookie.Value)
	if err != nil {
		return 0, apperror.Unauthenticated("authentication required")
	}

	return claims.UserID, nil
}

// displayName picks a name for a first-sight external user: the provider's
// display name, else the local part of the email, else "User".
func displayName(ident *Identity) string {
	if ident.Name != "" {
		return ident.Name
	}
	if local, _, ok := strings.Cut(ident.Email, "@"); ok && local != "" {
		return local
	}
	return "User"
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
