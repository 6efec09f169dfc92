// Package server exposes the admin HTTP and WebSocket API: health, status,
// persisted history, runtime parameter tuning, and the live event stream.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"streamarb/internal/server/handler"
	"streamarb/internal/server/middleware"
	"streamarb/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // empty disables authentication
	RateLimit   int    // requests per second per client; 0 disables
}

// Handlers aggregates the HTTP handlers the server registers.
type Handlers struct {
	Health  *handler.HealthHandler
	Status  *handler.StatusHandler
	History *handler.HistoryHandler
	Params  *handler.ParamsHandler
}

// Server is the admin HTTP + WebSocket server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer registers all routes and builds the middleware chain. wsHub and
// limiter may be nil.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter middleware.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check, outside authentication.
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	mux.HandleFunc("GET /api/status", handlers.Status.GetStatus)
	mux.HandleFunc("GET /api/opportunities", handlers.History.ListOpportunities)
	mux.HandleFunc("GET /api/trades", handlers.History.ListTrades)
	mux.HandleFunc("GET /api/params", handlers.Params.GetParams)
	mux.HandleFunc("PUT /api/params", handlers.Params.UpdateParams)

	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	if limiter != nil && cfg.RateLimit > 0 {
		h = middleware.RateLimit(limiter, cfg.RateLimit, time.Second)(h)
	}
	h = middleware.Logging(logger)(h)
	h = corsMiddleware(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger.With(slog.String("component", "server")),
	}
}

// Start listens until the server errors or is shut down.
func (s *Server) Start() error {
	s.logger.Info("starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// corsMiddleware sets CORS headers for the allowed origins. An empty list
// allows all origins.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" {
				allowed := len(allowedOrigins) == 0
				for _, o := range allowedOrigins {
					if strings.EqualFold(o, "*") || strings.EqualFold(o, origin) {
						allowed = true
						break
					}
				}

				if allowed {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Methods", "GET, PUT, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")
					w.Header().Set("Access-Control-Max-Age", "86400")
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
