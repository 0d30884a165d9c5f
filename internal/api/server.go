package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/amaumene/resolvarr/internal/api/handlers"
	"github.com/amaumene/resolvarr/internal/api/middleware"
	"github.com/amaumene/resolvarr/internal/config"
	"github.com/amaumene/resolvarr/internal/controllers"
	"github.com/amaumene/resolvarr/internal/models"
	"github.com/sirupsen/logrus"
)

// Server represents the HTTP server
type Server struct {
	server        *http.Server
	db            *models.Database
	resolveCtrl   *controllers.ResolveController
	sessionCtrl   *controllers.SessionController
	resolveBudget time.Duration
	logger        *logrus.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, db *models.Database, resolveCtrl *controllers.ResolveController, sessionCtrl *controllers.SessionController, logger *logrus.Logger) *Server {
	s := &Server{
		db:            db,
		resolveCtrl:   resolveCtrl,
		sessionCtrl:   sessionCtrl,
		resolveBudget: cfg.ResolveBudget(),
		logger:        logger,
	}

	mux := http.NewServeMux()
	s.setupRoutes(mux)

	s.server = &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: middleware.Logging(mux, logger),
		// The write timeout must outlast a worst-case resolution, which
		// the play handler bounds by the resolve budget
		ReadTimeout:  30 * time.Second,
		WriteTimeout: s.resolveBudget + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(mux *http.ServeMux) {
	healthHandler := handlers.NewHealthHandler(s.logger)
	mux.Handle("GET /health", healthHandler)

	statusHandler := handlers.NewStatusHandler(s.db, s.logger)
	mux.Handle("GET /status", statusHandler)

	playHandler := handlers.NewPlayHandler(s.resolveCtrl, s.resolveBudget, s.logger)
	mux.Handle("POST /api/play", playHandler)

	sessionHandler := handlers.NewSessionHandler(s.sessionCtrl, s.logger)
	mux.HandleFunc("GET /api/session/{id}", sessionHandler.Get)
	mux.HandleFunc("POST /api/session/{id}/refresh", sessionHandler.Refresh)
	mux.HandleFunc("DELETE /api/session/{id}", sessionHandler.Delete)
	mux.HandleFunc("GET /stream/{id}/master.m3u8", sessionHandler.Playlist)
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithField("addr", s.server.Addr).Info("Starting HTTP server")

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}
