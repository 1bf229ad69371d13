// Package server wires the application together: configuration, database,
// services, handlers, middleware, and routes, plus graceful startup and
// shutdown. It is the composition root; nothing else constructs
// cross-layer dependencies.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/nayeem/cloudbook/internal/auth"
	"github.com/nayeem/cloudbook/internal/handler"
	"github.com/nayeem/cloudbook/internal/middleware"
	sqliteRepo "github.com/nayeem/cloudbook/internal/repository/sqlite"
	"github.com/nayeem/cloudbook/internal/service"
)

// Config holds everything the server needs from the environment.
type Config struct {
	Port          int
	DBPath        string
	SessionSecret string

	// GitHub OAuth app credentials; all three empty disables the OAuth
	// routes and external-identity resolution.
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string

	// Production turns on Secure session cookies.
	Production bool
}

// Server owns the router and the database connection. The connection is
// closed during graceful shutdown so the WAL is flushed and the file lock
// released.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the full dependency chain. It fails fast on a missing or
// weak session secret rather than booting a server that would mint
// forgeable sessions.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.SessionSecret)
	if err != nil {
		return nil, fmt.Errorf("configuring session tokens: %w", err)
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	s.setupRoutes(tokens)

	return s, nil
}

// Handler exposes the router, mainly for tests that drive the server with
// httptest instead of a real listener.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database connection. Start does this itself; Close is
// for callers that never reach Start, such as tests.
func (s *Server) Close() error {
	return s.db.Close()
}

func (s *Server) setupRoutes(tokens *auth.TokenService) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	var github *auth.GitHubProvider
	if s.config.GitHubClientID != "" && s.config.GitHubClientSecret != "" {
		github = auth.NewGitHubProvider(
			s.config.GitHubClientID,
			s.config.GitHubClientSecret,
			s.config.GitHubCallbackURL,
		)
	}

	// A nil *GitHubProvider must stay a nil interface, or the resolver
	// would call through it.
	var provider auth.IdentityProvider
	if github != nil {
		provider = github
	}
	resolver := auth.NewResolver(provider, tokens, s.db, s.logger)

	passwords := auth.NewPasswordService()
	authService := service.NewAuthService(s.db, tokens, passwords, s.logger)
	noteService := service.NewNoteService(s.db, s.logger)

	authHandler := handler.NewAuthHandler(authService, github, s.config.Production, s.logger)
	noteHandler := handler.NewNoteHandler(noteService, s.logger)

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.HandleSignup)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)

		r.With(auth.OptionalUser(resolver)).Get("/me", authHandler.HandleMe)

		if github != nil {
			r.Get("/github/login", authHandler.HandleGitHubLogin)
			r.Get("/github/callback", authHandler.HandleGitHubCallback)
		}
	})

	s.router.Route("/notes", func(r chi.Router) {
		r.Use(auth.RequireUser(resolver))

		r.Get("/", noteHandler.HandleList)
		r.Post("/", noteHandler.HandleCreate)
		r.Get("/{id}", noteHandler.HandleGet)
		r.Put("/{id}", noteHandler.HandleUpdate)
		r.Patch("/{id}", noteHandler.HandleUpdate)
		r.Delete("/{id}", noteHandler.HandleDelete)
	})
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, drain in-flight requests for up
// to 30 seconds, close the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
			slog.Bool("production", s.config.Production),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
