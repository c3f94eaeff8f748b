// Package server wires the HTTP surface: REST routes, the SSE and
// WebSocket streams, and the global middleware stack.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/cors"

	"github.com/gosuda/litrev/internal/api/sse"
	v1 "github.com/gosuda/litrev/internal/api/v1"
	"github.com/gosuda/litrev/internal/api/ws"
	"github.com/gosuda/litrev/internal/config"
	"github.com/gosuda/litrev/internal/review"
	"github.com/gosuda/litrev/internal/server/middleware"
	"github.com/gosuda/litrev/internal/store/memory"
	redisstore "github.com/gosuda/litrev/internal/store/redis"
)

// Server is the HTTP server that wires all application routes and middleware.
type Server struct {
	router      chi.Router
	httpServer  *http.Server
	store       *memory.Store
	pubsub      *redisstore.PubSub
	wsHub       *ws.Hub
	coordinator *review.Coordinator
	cfg         *config.Config
}

// reviewLauncher starts coordinator runs in the background, bound to
// the application lifetime context so shutdown cancels running reviews.
type reviewLauncher struct {
	ctx         context.Context //nolint:containedctx // application lifetime, set once at startup
	coordinator *review.Coordinator
}

func (l *reviewLauncher) Launch(sessionID uuid.UUID) {
	go l.coordinator.Run(l.ctx, sessionID)
}

// New creates a Server with all routes wired. ctx is the application
// lifetime context: it bounds background review runs and the rate
// limiter cleanup goroutine.
func New(ctx context.Context, cfg *config.Config, store *memory.Store, pubsub *redisstore.PubSub, coordinator *review.Coordinator) *Server {
	router := chi.NewRouter()

	// Global middleware stack.
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Logger)
	router.Use(chimw.Recoverer)
	router.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)

	hub := ws.NewHub(pubsub)

	s := &Server{
		router:      router,
		store:       store,
		pubsub:      pubsub,
		wsHub:       hub,
		coordinator: coordinator,
		cfg:         cfg,
		httpServer: &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}

	launcher := &reviewLauncher{ctx: ctx, coordinator: coordinator}
	defaults := v1.ReviewDefaults{
		NumPapers: cfg.Review.PapersPerReview,
		Model:     cfg.OpenAI.Model,
	}
	sseHandler := sse.NewHandler(pubsub, store, redisstore.ReviewChannel)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(ctx, 10, 30))

		apiConfig := huma.DefaultConfig("LitRev API", "1.0.0")
		apiConfig.Servers = []*huma.Server{
			{URL: "/api/v1"},
		}
		api := humachi.New(r, apiConfig)
		registerAPIRoutes(api, store, launcher, defaults)

		// The SSE stream lives outside huma: it needs a raw flushing
		// ResponseWriter.
		registerStreamRoutes(r, sseHandler)
	})

	// WebSocket routes.
	router.Route("/ws", func(r chi.Router) {
		registerWSRoutes(r, hub)
	})

	// Health check.
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	return s
}

// Start begins listening for HTTP requests.
func (s *Server) Start(_ context.Context) error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.Start: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}
