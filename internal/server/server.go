package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/majorbet/internal/domain"
	"github.com/alanyoungcy/majorbet/internal/server/handler"
	"github.com/alanyoungcy/majorbet/internal/server/middleware"
	"github.com/alanyoungcy/majorbet/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // guards /api/sync and /api/audit; empty disables the check
	// RecordBetLimit requests per RecordBetWindow are allowed per client IP
	// on /api/record_bet. Zero disables the limit.
	RecordBetLimit  int
	RecordBetWindow time.Duration
}

// Handlers aggregates the HTTP handlers the server registers.
type Handlers struct {
	Health  *handler.HealthHandler
	Contest *handler.ContestHandler
	Stats   *handler.StatsHandler
	Price   *handler.PriceHandler
	Audit   *handler.AuditHandler
}

// Server is the contest aggregation API: read endpoints for dashboards, the
// bet report endpoint and the operator sync trigger.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer registers every route on a ServeMux and wraps it in logging and
// CORS. limiter and wsHub may be nil.
func NewServer(cfg Config, handlers Handlers, limiter domain.RateLimiter, wsHub *ws.Hub, logger *slog.Logger) *Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      NewHandler(cfg, handlers, limiter, wsHub, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return &Server{httpServer: srv, logger: logger}
}

// routeTable registers routes on a mux and remembers the methods per path
// for CORS preflights.
type routeTable struct {
	mux     *http.ServeMux
	methods map[string][]string
}

func (rt *routeTable) handle(method, path string, h http.Handler) {
	rt.mux.Handle(method+" "+path, h)
	rt.methods[path] = append(rt.methods[path], method)
}

func (rt *routeTable) handleFunc(method, path string, h http.HandlerFunc) {
	rt.handle(method, path, h)
}

// NewHandler builds the routed, middleware-wrapped handler.
func NewHandler(cfg Config, handlers Handlers, limiter domain.RateLimiter, wsHub *ws.Hub, logger *slog.Logger) http.Handler {
	rt := &routeTable{mux: http.NewServeMux(), methods: make(map[string][]string)}

	rt.handleFunc(http.MethodGet, "/api/health", handlers.Health.HealthCheck)

	rt.handleFunc(http.MethodGet, "/api/status", handlers.Contest.GetStatus)
	rt.handleFunc(http.MethodGet, "/api/teams", handlers.Contest.GetTeams)

	rt.handleFunc(http.MethodGet, "/api/stats", handlers.Stats.GetStats)
	rt.handleFunc(http.MethodGet, "/api/leaderboard", handlers.Stats.GetLeaderboard)
	rt.handleFunc(http.MethodGet, "/api/bets", handlers.Stats.ListBets)

	if handlers.Price != nil {
		rt.handleFunc(http.MethodGet, "/api/price", handlers.Price.GetPrice)
	}

	var recordBet http.Handler = http.HandlerFunc(handlers.Stats.RecordBet)
	if limiter != nil && cfg.RecordBetLimit > 0 {
		recordBet = middleware.RateLimit(limiter, "record_bet", cfg.RecordBetLimit, cfg.RecordBetWindow)(recordBet)
	}
	rt.handle(http.MethodPost, "/api/record_bet", recordBet)

	sync := middleware.Auth(cfg.APIKey)(http.HandlerFunc(handlers.Contest.Sync))
	rt.handle(http.MethodGet, "/api/sync", sync)
	rt.handle(http.MethodPost, "/api/sync", sync)

	if handlers.Audit != nil {
		rt.handle(http.MethodGet, "/api/audit", middleware.Auth(cfg.APIKey)(http.HandlerFunc(handlers.Audit.ListAudit)))
	}

	if wsHub != nil {
		rt.handleFunc(http.MethodGet, "/ws", wsHub.HandleWS)
	}

	var h http.Handler = rt.mux
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(middleware.CORSConfig{Origins: cfg.CORSOrigins, Methods: rt.methods})(h)
	return h
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
