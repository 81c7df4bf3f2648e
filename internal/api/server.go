package api

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
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/seantiz/proofmarket/internal/engine"
	"github.com/seantiz/proofmarket/internal/ledger"
	"github.com/seantiz/proofmarket/internal/marketplace"
	"github.com/seantiz/proofmarket/internal/matchmaker"
	"github.com/seantiz/proofmarket/internal/model"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
	writeTimeout      = 30 * time.Second
)

// HeaderAccountID carries the authenticated caller's account id. An upstream
// gateway is expected to set it after authenticating the request.
const HeaderAccountID = "X-Account-Id"

// Server wraps the chi router and application dependencies.
type Server struct {
	router     *chi.Mux
	market     *marketplace.Marketplace
	engine     *engine.Engine
	strategies *matchmaker.Registry
	logger     *slog.Logger
	addr       string
}

// NewServer creates and configures a new HTTP server.
func NewServer(addr string, m *marketplace.Marketplace, eng *engine.Engine, strategies *matchmaker.Registry, logger *slog.Logger) *Server {
	srv := &Server{
		router:     chi.NewRouter(),
		market:     m,
		engine:     eng,
		strategies: strategies,
		logger:     logger,
		addr:       addr,
	}

	srv.router.Use(middleware.RequestID)
	srv.router.Use(middleware.Recoverer)
	srv.router.Use(srv.loggingMiddleware)
	srv.router.Use(metricsMiddleware)
	srv.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id", HeaderAccountID},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	srv.router.Use(callerMiddleware)

	srv.routes()

	return srv
}

// routes registers all HTTP routes on the router.
func (s *Server) routes() {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Handle("/metrics", metricsHandler())

	s.router.Get("/v1/strategies", s.handleListStrategies)
	s.router.Get("/v1/stats", s.handleGetStats)
	s.router.Get("/v1/escrow", s.handleGetEscrow)

	s.router.Route("/v1/jobs", func(r chi.Router) {
		r.Post("/", s.handleSubmitJob)
		r.Post("/async", s.handleAsyncSubmitJob)
		r.Post("/sweep", s.handleSweepJobs)
		r.Get("/", s.handleListJobs)
		r.Get("/{id}", s.handleGetJob)
		r.Post("/{id}/match", s.handleMatchJob)
		r.Post("/{id}/complete", s.handleCompleteJob)
		r.Post("/{id}/cancel", s.handleCancelJob)
		r.Get("/{id}/settlement", s.handleGetSettlement)
		r.Get("/{id}/events", s.handleStreamEvents)
	})

	s.router.Route("/v1/provers", func(r chi.Router) {
		r.Post("/", s.handleRegisterProver)
		r.Get("/", s.handleListProvers)
		r.Get("/{id}", s.handleGetProver)
		r.Put("/{id}/reputation", s.handleUpdateReputation)
	})
}

// Router returns the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Run starts the HTTP server and blocks until a shutdown signal is received.
func (s *Server) Run() error {
	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", s.addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.engine.Wait()

	s.logger.Info("server stopped")
	return nil
}

// loggingMiddleware logs each request using the structured logger.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
			"caller", r.Header.Get(HeaderAccountID),
		)
	})
}

// callerMiddleware attaches the caller identity from HeaderAccountID to the
// request context.
func callerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get(HeaderAccountID); id != "" {
			r = r.WithContext(ledger.WithCaller(r.Context(), model.AccountID(id)))
		}
		next.ServeHTTP(w, r)
	})
}
