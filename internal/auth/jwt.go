// Package auth provides session tokens, password hashing, and identity
// resolution for the CloudBook API.
//
// Sessions are stateless: a signed JWT in an HttpOnly cookie carries the
// user id and email, so no server-side session table exists. The signature
// ensures nobody can tamper with the claims without the secret key, and
// there is no revocation list: logout is client-side cookie deletion, and
// a token stays valid until its natural expiry.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionCookie is the name of the cookie carrying the session token.
const SessionCookie = "session"

// SessionTTL is how long an issued session token remains valid.
const SessionTTL = 7 * 24 * time.Hour

const issuer = "cloudbook"

// Claims is the validated content of a session token.
type Claims struct {
	UserID int64
	Email  string
}

// sessionClaims is the JWT payload. The user id rides in the standard
// "sub" claim; the email is a private claim alongside it.
type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenService signs and validates session tokens.
//
// The HMAC secret is process-wide configuration loaded once at startup;
// construction fails when it is absent or too short, so a misconfigured
// deployment dies at boot rather than at first login.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
// Example: SESSION_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: session secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// Issue creates a signed session token binding the user id and email,
// valid for SessionTTL (7 days).
func (s *TokenService) Issue(userID int64, email string) (string, error) {
	return s.IssueWithDuration(userID, email, SessionTTL)
}

// IssueWithDuration creates a token with a custom expiry. Used by tests to
// produce already-expired tokens.
func (s *TokenService) IssueWithDuration(userID int64, email string, d time.Duration) (string, error) {
	now := time.Now()

	c := sessionClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a session token string, checking the
// signature, expiry, issuer, and signing method. jwt.WithValidMethods
// pins HS256 to block algorithm-confusion attacks.
func (s *TokenService) Validate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&sessionClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("auth: token expired")
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}

	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return nil, fmt.Errorf("auth: token has no valid subject")
	}

	return &Claims{UserID: userID, Email: c.Email}, nil
}
