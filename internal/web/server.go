// Package web provides the quill HTTP server: routing, middleware, and
// the browser entry point.
package web

import (
	"errors"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/quillchat/quill/internal/auth"
	"github.com/quillchat/quill/internal/chat"
	"github.com/quillchat/quill/internal/log"
	"github.com/quillchat/quill/internal/tools"
	"github.com/quillchat/quill/internal/web/handlers"
	"github.com/quillchat/quill/internal/web/static"
)

// Server is the quill HTTP server.
type Server struct {
	mux      *http.ServeMux
	logger   log.Logger
	sessions *auth.Sessions
}

// ServerConfig contains everything the server needs wired in.
type ServerConfig struct {
	Logger   log.Logger
	Store    handlers.Store
	Runner   *chat.Assembler
	Registry *tools.Registry
	Provider handlers.IdentityProvider
	Sessions *auth.Sessions
	DB       handlers.Pinger
	Models   []string
	Version  string
	// SecureCookies marks session cookies Secure; disable for local HTTP.
	SecureCookies bool
	// TurnRate limits chat turns per second across all users; TurnBurst
	// bounds short spikes.
	TurnRate  float64
	TurnBurst int
}

func (c ServerConfig) validate() error {
	if c.Store == nil {
		return errors.New("store is required")
	}
	if c.Runner == nil {
		return errors.New("turn runner is required")
	}
	if c.Registry == nil {
		return errors.New("tool registry is required")
	}
	if c.Provider == nil {
		return errors.New("identity provider is required")
	}
	if c.Sessions == nil {
		return errors.New("sessions are required")
	}
	if len(c.Models) == 0 {
		return errors.New("at least one model is required")
	}
	return nil
}

// NewServer creates the server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()

	authHandler := handlers.NewAuth(handlers.AuthConfig{
		Provider:      cfg.Provider,
		Sessions:      cfg.Sessions,
		Store:         cfg.Store,
		SecureCookies: cfg.SecureCookies,
		Logger:        cfg.Logger,
	})
	chatHandler := handlers.NewChat(handlers.ChatConfig{
		Runner:    cfg.Runner,
		Store:     cfg.Store,
		ToolNames: cfg.Registry.Names(),
		Models:    cfg.Models,
		Logger:    cfg.Logger,
	})
	convHandler := handlers.NewConversations(cfg.Store, cfg.Logger)
	toolsHandler := handlers.NewTools(cfg.Registry, cfg.Store, cfg.Logger)
	healthHandler := handlers.NewHealth(cfg.DB, cfg.Version, cfg.Logger)

	requireSession := RequireSession(cfg.Sessions, cfg.Logger)

	turnRate := cfg.TurnRate
	if turnRate <= 0 {
		turnRate = 1
	}
	turnBurst := cfg.TurnBurst
	if turnBurst <= 0 {
		turnBurst = 5
	}
	limitTurns := RateLimitMiddleware(rate.NewLimiter(rate.Limit(turnRate), turnBurst), cfg.Logger)

	// Probes carry no session.
	mux.HandleFunc("GET /healthz", healthHandler.Check)

	mux.HandleFunc("GET /auth/login", authHandler.Login)
	mux.HandleFunc("GET /auth/callback", authHandler.Callback)
	mux.HandleFunc("POST /auth/logout", authHandler.Logout)

	mux.Handle("GET /api/me", requireSession(http.HandlerFunc(authHandler.Me)))
	mux.Handle("GET /api/models", requireSession(http.HandlerFunc(chatHandler.Models)))
	mux.Handle("POST /api/chat", requireSession(limitTurns(http.HandlerFunc(chatHandler.Turn))))
	mux.Handle("GET /api/conversations", requireSession(http.HandlerFunc(convHandler.List)))
	mux.Handle("POST /api/conversations", requireSession(http.HandlerFunc(convHandler.Create)))
	mux.Handle("GET /api/conversations/{id}/messages", requireSession(http.HandlerFunc(convHandler.Messages)))
	mux.Handle("GET /api/tools", requireSession(http.HandlerFunc(toolsHandler.List)))
	mux.Handle("PUT /api/tools/{name}", requireSession(http.HandlerFunc(toolsHandler.Toggle)))

	mux.Handle("GET /", static.Handler())

	return &Server{mux: mux, logger: cfg.Logger, sessions: cfg.Sessions}, nil
}

// ServeHTTP implements http.Handler with the middleware stack:
// Recovery catches panics from every layer below, Logging tracks all
// requests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.setSecurityHeaders(w)

	var handler http.Handler = s.mux
	handler = LoggingMiddleware(s.logger)(handler)
	handler = RecoveryMiddleware(s.logger)(handler)
	handler.ServeHTTP(w, r)
}

func (s *Server) setSecurityHeaders(w http.ResponseWriter) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
}
