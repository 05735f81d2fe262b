// Package server wires the stores, lifecycle engine, and handlers into
// an http.Handler.
package server

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"movecar/internal/auth"
	"movecar/internal/handler"
	"movecar/internal/lifecycle"
	"movecar/internal/middleware"
	"movecar/internal/notify"
	"movecar/internal/store"
	"movecar/internal/websocket"
)

// Config holds the handful of runtime settings the server needs.
type Config struct {
	// BaseURL is the public origin used in push notification links.
	BaseURL string
}

type Server struct {
	kv       *store.KV
	limiter  *middleware.RateLimiter
	owners   *handler.OwnerHandler
	requests *handler.RequestHandler
	users    *handler.UserHandler
	sessions *store.SessionStore
	hub      *websocket.Hub
	logger   *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	kv := store.NewKV(db)
	owners := store.NewOwnerStore(kv)
	requests := store.NewRequestStore(kv)
	users := store.NewUserStore(kv)
	sessions := store.NewSessionStore(kv)

	hub := websocket.NewHub(logger.With("component", "websocket"))
	dispatcher := notify.NewDispatcher(logger.With("component", "notify"))
	engine := lifecycle.NewEngine(owners, requests, users, dispatcher, hub, cfg.BaseURL, logger.With("component", "lifecycle"))
	manager := auth.NewManager(users, sessions)

	return &Server{
		kv:       kv,
		limiter:  middleware.NewRateLimiter(),
		owners:   handler.NewOwnerHandler(owners, sessions, engine, logger.With("component", "owner")),
		requests: handler.NewRequestHandler(engine, logger.With("component", "request")),
		users:    handler.NewUserHandler(manager, users, owners, logger.With("component", "user")),
		sessions: sessions,
		hub:      hub,
		logger:   logger,
	}
}

// Router builds the full route table with logging, auth, and rate
// limiting applied.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle("GET /ws", websocket.HandleWebSocket(s.hub))

	// Owner endpoints. Creation is rate limited since anyone can call it.
	mux.Handle("POST /api/owner", s.rateLimited(s.owners.Create))
	mux.HandleFunc("GET /api/owner/{id}", s.owners.Get)
	mux.HandleFunc("GET /api/owner/{id}/full", s.owners.GetFull)
	mux.HandleFunc("PUT /api/owner/{id}", s.owners.Update)
	mux.HandleFunc("DELETE /api/owner/{id}", s.owners.Delete)
	mux.HandleFunc("POST /api/owner/{id}/test-push", s.owners.TestPush)

	// Move request lifecycle.
	mux.Handle("POST /api/request", s.rateLimited(s.requests.Create))
	mux.HandleFunc("GET /api/request/{id}", s.requests.Get)
	mux.HandleFunc("POST /api/request/{id}/notify", s.requests.Notify)
	mux.HandleFunc("PUT /api/request/{id}/confirm", s.requests.Confirm)
	mux.HandleFunc("PUT /api/request/{id}/complete", s.requests.Complete)
	mux.HandleFunc("POST /api/request/{id}/request-phone", s.requests.RequestPhone)
	mux.HandleFunc("PUT /api/request/{id}/authorize-phone", s.requests.AuthorizePhone)
	mux.HandleFunc("GET /api/request/{id}/phone-status", s.requests.PhoneStatus)

	// Accounts.
	mux.Handle("POST /api/user/register", s.rateLimited(s.users.Register))
	mux.Handle("POST /api/user/login", s.rateLimited(s.users.Login))

	requireUser := middleware.RequireUser(s.sessions)
	mux.Handle("POST /api/user/logout", requireUser(http.HandlerFunc(s.users.Logout)))
	mux.Handle("GET /api/user/me", requireUser(http.HandlerFunc(s.users.Me)))
	mux.Handle("GET /api/user/owners", requireUser(http.HandlerFunc(s.users.Owners)))

	return middleware.RequestLogger(s.logger)(mux)
}

// rateLimited caps unauthenticated write endpoints at 10 requests per
// minute, keyed by path and client IP.
func (s *Server) rateLimited(h http.HandlerFunc) http.Handler {
	keyFunc := func(r *http.Request) string {
		return r.URL.Path + "|" + middleware.RealIP(r)
	}
	return middleware.RateLimit(s.limiter, keyFunc, 10, time.Minute)(h)
}

// Cleanup drops expired keys and stale rate limiter entries. Run it
// periodically from main.
func (s *Server) Cleanup() {
	deleted, err := s.kv.DeleteExpired()
	if err != nil {
		s.logger.Error("delete expired keys", "error", err)
	} else if deleted > 0 {
		s.logger.Info("deleted expired keys", "count", deleted)
	}
	s.limiter.Cleanup()
}
