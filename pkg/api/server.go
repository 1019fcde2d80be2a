package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ttr_router/internal/config"
)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxConcurrent   int
	CORSOrigin      string
}

// ConfigFrom maps the environment configuration onto a ServerConfig.
func ConfigFrom(c config.HTTPConfig) ServerConfig {
	return ServerConfig{
		Addr:            c.Addr(),
		ReadTimeout:     c.ReadTimeout,
		WriteTimeout:    c.WriteTimeout,
		ShutdownTimeout: c.ShutdownTimeout,
		MaxConcurrent:   c.MaxConcurrent,
		CORSOrigin:      c.CORSOrigin,
	}
}

// NewServer creates an HTTP server with all routes and middleware.
func NewServer(cfg ServerConfig, handlers *Handlers) *http.Server {
	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      NewMux(cfg, handlers),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

// NewMux registers every route on a new ServeMux.
func NewMux(cfg ServerConfig, handlers *Handlers) *http.ServeMux {
	mux := http.NewServeMux()

	// Concurrency limiter.
	sem := make(chan struct{}, max(cfg.MaxConcurrent, 1))
	wrap := func(h http.HandlerFunc) http.HandlerFunc {
		return withMiddleware(h, sem, cfg, handlers.Logger)
	}

	// Routes.
	mux.HandleFunc("POST /api/v1/route", wrap(handlers.HandleRoute))
	mux.HandleFunc("GET /api/v1/places", wrap(handlers.HandlePlaces))
	mux.HandleFunc("GET /api/v1/places/nearest", wrap(handlers.HandleNearest))
	mux.HandleFunc("GET /api/v1/plans", wrap(handlers.HandleListPlans))
	mux.HandleFunc("GET /api/v1/plans/{id}", wrap(handlers.HandleGetPlan))
	mux.HandleFunc("DELETE /api/v1/plans/{id}", wrap(handlers.HandleDeletePlan))
	mux.HandleFunc("GET /api/v1/health", wrap(handlers.HandleHealth))
	mux.HandleFunc("GET /api/v1/stats", wrap(handlers.HandleStats))

	return mux
}

// ListenAndServe starts the server and blocks until shutdown signal.
func ListenAndServe(srv *http.Server, shutdownTimeout time.Duration, logger *slog.Logger) error {
	// Graceful shutdown on SIGTERM/SIGINT.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(stop)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}

// withMiddleware wraps a handler with logging, recovery, security headers,
// and concurrency limiting.
func withMiddleware(handler http.HandlerFunc, sem chan struct{}, cfg ServerConfig, logger *slog.Logger) http.HandlerFunc {
	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return func(w http.ResponseWriter, r *http.Request) {
		// Security headers.
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Cache-Control", "no-store")

		// CORS.
		if cfg.CORSOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", cfg.CORSOrigin)
		}

		// Concurrency limiter.
		select {
		case sem <- struct{}{}:
			defer func() { <-sem }()
		default:
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusServiceUnavailable, ErrorResponse{Error: "service_unavailable"})
			return
		}

		// Recovery.
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("panic in handler", "path", r.URL.Path, "panic", rec)
				writeError(w, http.StatusInternalServerError, ErrorResponse{Error: "internal_error"})
			}
		}()

		// Request timeout.
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		start := time.Now()
		handler(w, r.WithContext(ctx))
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start).Round(time.Microsecond))
	}
}
