// Package api serves the rule configuration store and classification over HTTP.
package api

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Veraticus/rd-classifier/internal/engine"
	"github.com/Veraticus/rd-classifier/internal/model"
	"github.com/Veraticus/rd-classifier/internal/profile"
	"github.com/Veraticus/rd-classifier/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// BasePath prefixes every API route.
const BasePath = "/api/app1"

// Options configures a Server.
type Options struct {
	// TLS, when set, makes the server speak HTTPS only.
	TLS            *tls.Config
	AllowedOrigins []string
	DefaultMode    model.Mode
	MaxUploadBytes int64
}

// DefaultOptions returns the default server options.
func DefaultOptions() Options {
	return Options{
		AllowedOrigins: []string{"http://localhost:3000"},
		DefaultMode:    model.ModeRD03,
		MaxUploadBytes: 32 << 20,
	}
}

// Server exposes a ConfigStore and the classification engine.
type Server struct {
	store    service.ConfigStore
	profiles *profile.Manager
	engine   *engine.ClassificationEngine
	router   chi.Router
	opts     Options
}

// NewServer creates a server over store.
func NewServer(store service.ConfigStore, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultOptions().MaxUploadBytes
	}
	if opts.DefaultMode == "" {
		opts.DefaultMode = model.ModeRD03
	}

	s := &Server{
		store:    store,
		profiles: profile.NewManager(store),
		engine:   engine.New(),
		opts:     opts,
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route(BasePath, func(r chi.Router) {
		r.Get("/configs", s.handleGetConfigs)
		r.Post("/configs", s.handleSaveConfig)
		r.Get("/profiles", s.handleListProfiles)
		r.Post("/classify", s.handleClassify)
		r.Post("/explain", s.handleExplain)
	})

	return r
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		TLSConfig:         s.opts.TLS,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server listening", "addr", addr, "base_path", BasePath, "tls", srv.TLSConfig != nil)
		if srv.TLSConfig != nil {
			errCh <- srv.ListenAndServeTLS("", "")
			return
		}
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		slog.Info("Shutting down API server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("api server shutdown failed: %w", err)
		}
		return nil
	}
}
