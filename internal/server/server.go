package server

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/rolodex/internal/avatar"
	"github.com/dukerupert/rolodex/internal/handler"
	"github.com/dukerupert/rolodex/internal/middleware"
	"github.com/dukerupert/rolodex/internal/store"
	"github.com/dukerupert/rolodex/internal/token"
)

// Config carries the server-level settings not owned by sub-packages.
type Config struct {
	AvatarsDir string
	UploadsDir string
}

type Server struct {
	db          *sql.DB
	authH       *handler.AuthHandler
	contactH    *handler.ContactHandler
	userStore   *store.UserStore
	tokens      *token.Service
	rateLimiter *middleware.RateLimiter
	avatarsDir  string
	logger      *slog.Logger
}

func New(db *sql.DB, tokens *token.Service, mailer handler.VerificationMailer, cfg Config, logger *slog.Logger) (*Server, error) {
	userStore := store.NewUserStore(db)
	contactStore := store.NewContactStore(db)

	avatars, err := avatar.NewProcessor(cfg.AvatarsDir)
	if err != nil {
		return nil, fmt.Errorf("avatar processor: %w", err)
	}

	return &Server{
		db:          db,
		authH:       handler.NewAuthHandler(userStore, tokens, mailer, avatars, cfg.UploadsDir, logger.With("component", "auth")),
		contactH:    handler.NewContactHandler(contactStore, logger.With("component", "contacts")),
		userStore:   userStore,
		tokens:      tokens,
		rateLimiter: middleware.NewRateLimiter(),
		avatarsDir:  cfg.AvatarsDir,
		logger:      logger,
	}, nil
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /users/register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("POST /users/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /users/verify/{token}", s.authH.VerifyEmail)
	outerMux.HandleFunc("POST /users/verify", s.rateLimitedHandler(s.authH.ResendVerification))
	outerMux.Handle("GET /avatars/", http.StripPrefix("/avatars/", http.FileServer(http.Dir(s.avatarsDir))))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes — wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.tokens, s.userStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /users/logout", s.authH.Logout)
	mux.HandleFunc("GET /users/current", s.authH.Current)
	mux.HandleFunc("PATCH /users", s.authH.UpdateSubscription)
	mux.HandleFunc("PATCH /users/avatars", s.authH.UpdateAvatar)

	mux.HandleFunc("GET /api/contacts", s.contactH.List)
	mux.HandleFunc("POST /api/contacts", s.contactH.Create)
	mux.HandleFunc("GET /api/contacts/{id}", s.contactH.Get)
	mux.HandleFunc("PUT /api/contacts/{id}", s.contactH.Update)
	mux.HandleFunc("DELETE /api/contacts/{id}", s.contactH.Delete)
	mux.HandleFunc("PATCH /api/contacts/{id}/favorite", s.contactH.UpdateFavorite)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"message": "Route not found"})
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}
