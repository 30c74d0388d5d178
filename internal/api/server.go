// Package api implements the out-of-core HTTP/WS collaborator (spec §6):
// GET /health, GET /signal/current, GET /signal/history, POST /backtest,
// GET /backtest/{id}, GET /orders, and WS /ws/signals. It is a thin veneer
// over internal/store, internal/backtest and internal/bus, grounded on the
// teacher's internal/api/server.go gin+cors+graceful-shutdown scaffolding —
// trimmed to the seven routes this surface actually names, since the
// teacher's futures/billing/admin/ginie surface has no SPEC_FULL.md
// component to veneer.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/kosheduteam/signalengine/config"
	"github.com/kosheduteam/signalengine/internal/backtest"
	"github.com/kosheduteam/signalengine/internal/bus"
	"github.com/kosheduteam/signalengine/internal/logging"
	"github.com/kosheduteam/signalengine/internal/resilience"
	"github.com/kosheduteam/signalengine/internal/store"
)

// Server wraps the gin engine and the stdlib HTTP server around it,
// mirroring the teacher's Server{router, httpServer} split so Start/Shutdown
// follow the same graceful-shutdown shape.
type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	store       store.Store
	bus         bus.Bus
	runner      *backtest.Runner
	hub         *wsHub
	log         *logging.Logger
	startedAt   time.Time
	degradation *resilience.DegradationRegistry
}

// New builds a Server bound to st for persistence, b for the signals feed,
// and runner for POST /backtest. cfg carries the listen address, CORS
// origin list, and shared auth token.
func New(cfg config.ServerConfig, st store.Store, b bus.Bus, runner *backtest.Runner) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	if cfg.AllowedOrigins == "" || cfg.AllowedOrigins == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = []string{cfg.AllowedOrigins}
	}
	corsCfg.AllowMethods = []string{"GET", "POST"}
	corsCfg.AllowHeaders = []string{"Authorization", "Content-Type"}
	router.Use(cors.New(corsCfg))

	s := &Server{
		router:    router,
		store:     st,
		bus:       b,
		runner:    runner,
		hub:       newWSHub(),
		log:       logging.Default().WithComponent("api"),
		startedAt: time.Now(),
	}

	limiter := newRateLimiter(120, time.Minute)
	router.Use(requestIDMiddleware())
	router.Use(limiter.middleware())

	s.setupRoutes(cfg.AuthToken)

	s.httpServer = &http.Server{
		Addr:         cfg.Host + ":" + strconv.Itoa(cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// SetDegradationRegistry attaches the shared collaborator-reachability
// registry so GET /health can report each tracked collaborator's tagged
// availability (§4.H/§9) alongside the store's own synchronous health
// check. Optional: a nil registry (the default) leaves /health reporting
// only the store check, as before.
func (s *Server) SetDegradationRegistry(r *resilience.DegradationRegistry) {
	s.degradation = r
}

func (s *Server) setupRoutes(authToken string) {
	s.router.GET("/health", s.handleHealth)

	protected := s.router.Group("/")
	protected.Use(AuthMiddleware(authToken))
	protected.GET("/signal/current", s.handleCurrentSignal)
	protected.GET("/signal/history", s.handleSignalHistory)
	protected.POST("/backtest", s.handleCreateBacktest)
	protected.GET("/backtest/:id", s.handleGetBacktest)
	protected.GET("/orders", s.handleOrders)
	protected.GET("/ws/signals", s.handleWebSocket)
}

// Start begins serving and a background loop that forwards bus signal
// messages into the WebSocket hub. It returns once the listener fails to
// bind; Shutdown is the normal exit path.
func (s *Server) Start(ctx context.Context) error {
	go s.hub.run()
	go s.pumpSignals(ctx)
	s.log.Info("api server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully drains in-flight requests within ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// pumpSignals subscribes to the signals channel for the lifetime of ctx and
// rebroadcasts every message to connected WebSocket clients.
func (s *Server) pumpSignals(ctx context.Context) {
	msgs, unsubscribe, err := s.bus.Subscribe(ctx, bus.ChannelSignals)
	if err != nil {
		s.log.Error("failed subscribing to signals channel", "error", err)
		return
	}
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			s.hub.broadcast(msg.Payload)
		}
	}
}
