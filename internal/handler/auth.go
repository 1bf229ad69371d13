package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/xid"

	"github.com/nayeem/cloudbook/internal/apperror"
	"github.com/nayeem/cloudbook/internal/auth"
	"github.com/nayeem/cloudbook/internal/service"
)

// AuthHandler manages signup, password login, the GitHub OAuth flow, and
// session cookies.
type AuthHandler struct {
	auth     *service.AuthService
	github   *auth.GitHubProvider // nil when OAuth is not configured
	validate *validator.Validate
	logger   *slog.Logger

	// secureCookies marks session cookies Secure (HTTPS only); on in
	// production, off for local development.
	secureCookies bool
}

func NewAuthHandler(authSvc *service.AuthService, github *auth.GitHubProvider, secureCookies bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:          authSvc,
		github:        github,
		validate:      validator.New(),
		logger:        logger,
		secureCookies: secureCookies,
	}
}

type signupRequest struct {
	Name     string `json:"name"     validate:"required"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

// HandleSignup registers a new account and signs it in.
//
// HTTP: POST /auth/signup {name, email, password}
// → 201 {user} + session cookie | 400 missing/malformed fields | 409 email in use
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.validateRequest(req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.auth.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if !errors.Is(err, apperror.ErrConflict) && !errors.Is(err, apperror.ErrValidation) {
			h.logger.Error("signup failed", slog.String("error", err.Error()))
		}
		writeError(w, err)
		return
	}

	h.setSessionCookie(w, result.Token)
	writeJSON(w, http.StatusCreated, map[string]any{"user": result.User})
}

// HandleLogin verifies a password credential and starts a session.
//
// HTTP: POST /auth/login {email, password}
// → 200 {user} + session cookie | 400 | 401 invalid credentials
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.validateRequest(req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if !errors.Is(err, apperror.ErrUnauthenticated) && !errors.Is(err, apperror.ErrValidation) {
			h.logger.Error("login failed", slog.String("error", err.Error()))
		}
		writeError(w, err)
		return
	}

	h.setSessionCookie(w, result.Token)
	writeJSON(w, http.StatusOK, map[string]any{"user": result.User})
}

// HandleLogout clears the session cookie. Sessions are stateless, so the
// token itself stays valid until natural expiry; without the cookie the
// browser just stops sending it.
//
// HTTP: POST /auth/logout → 200
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// HandleMe reports who is signed in. Anonymous requests get
// {"user": null} with 200, not 401, because the frontend calls this on load to
// decide which screen to show.
//
// HTTP: GET /auth/me → 200 {user | null}
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"user": nil})
		return
	}

	user, err := h.auth.CurrentUser(r.Context(), userID)
	if err != nil {
		// A dangling session for a vanished user is anonymous, not a 500.
		if errors.Is(err, apperror.ErrNotFound) {
			writeJSON(w, http.StatusOK, map[string]any{"user": nil})
			return
		}
		h.logger.Error("me lookup failed", slog.Int64("userID", userID), slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

// HandleGitHubLogin starts the OAuth flow: store a CSRF state nonce in a
// short-lived cookie and redirect the browser to GitHub.
//
// HTTP: GET /auth/github/login
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		MaxAge:   600, // long enough to approve, short enough to limit replay
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.secureCookies,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth flow: verify the CSRF state,
// exchange the code for an identity, upsert the user by email, and set the
// same session cookie password login uses.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("oauth callback: state mismatch or missing")
		writeError(w, apperror.ValidationFailed("state", "invalid OAuth state"))
		return
	}

	// The state is single-use.
	http.SetCookie(w, &http.Cookie{Name: "oauth_state", Value: "", Path: "/", MaxAge: -1})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("oauth callback: authorization denied", slog.String("error", errParam))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, apperror.ValidationFailed("code", "missing OAuth code"))
		return
	}

	ident, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("oauth callback: exchange failed", slog.String("error", err.Error()))
		writeError(w, apperror.Unauthenticated("authentication failed"))
		return
	}

	result, err := h.auth.LoginExternal(r.Context(), ident)
	if err != nil {
		h.logger.Error("oauth callback: external login failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	h.setSessionCookie(w, result.Token)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// validateRequest runs validator tags and converts the first failure into
// a 400-mapped validation error.
func (h *AuthHandler) validateRequest(req any) error {
	err := h.validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return apperror.ValidationFailed(verrs[0].Field(), "missing or invalid "+verrs[0].Field())
	}
	return apperror.ValidationFailed("body", "invalid request body")
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(auth.SessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.secureCookies,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.secureCookies,
	})
}
