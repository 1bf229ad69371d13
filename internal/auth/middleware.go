package auth

import (
	"context"
	"net/http"
)

// contextKey is an unexported type for context keys in this package, so no
// other package can read or shadow the values we store.
type contextKey string

const userIDKey contextKey = "userID"

// RequireUser enforces authentication on protected routes. The resolved
// user id is stored in the request context; a request that cannot be
// resolved is rejected with 401 and never reaches the handler.
func RequireUser(resolver *Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := resolver.ResolveUser(r)
			if err != nil {
				http.Error(w, `{"error":"unauthenticated","message":"authentication required"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalUser resolves the user identity when credentials are present but
// never blocks the request. Handlers distinguish the anonymous case via
// UserIDFromContext. Used by GET /auth/me, which answers {"user":null}
// rather than 401.
func OptionalUser(resolver *Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID, err := resolver.ResolveUser(r); err == nil {
				ctx := context.WithValue(r.Context(), userIDKey, userID)
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserIDFromContext retrieves the authenticated user's id from the request
// context. ok is false for anonymous requests.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok && id > 0
}
