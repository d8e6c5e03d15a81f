// Package api serves the daemon's local HTTP surface: read-model
// snapshots, consent actions, and operational endpoints.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/org/consentd/internal/mirror"
	"github.com/org/consentd/internal/notify"
	"github.com/org/consentd/internal/session"
	"github.com/org/consentd/internal/store"
	syncer "github.com/org/consentd/internal/sync"
	"github.com/rs/zerolog/log"
)

// Config holds server configuration.
type Config struct {
	ListenAddr string
}

// Server is the local API server.
type Server struct {
	model      *store.ReadModel
	engine     *syncer.Engine
	dispatcher *syncer.Dispatcher
	sessions   *session.Store
	notifier   *notify.Service
	mirror     mirror.Mirror
	cfg        Config
	httpSrv    *http.Server
}

// NewServer creates a fully wired Server. mirror may be nil when the
// local audit mirror is disabled.
func NewServer(model *store.ReadModel, engine *syncer.Engine, dispatcher *syncer.Dispatcher,
	sessions *session.Store, notifier *notify.Service, m mirror.Mirror, cfg Config) *Server {
	return &Server{
		model:      model,
		engine:     engine,
		dispatcher: dispatcher,
		sessions:   sessions,
		notifier:   notifier,
		mirror:     m,
		cfg:        cfg,
	}
}

// BuildRouter wires up all routes and returns a chi router.
func (s *Server) BuildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(logMiddleware)
	r.Use(metricsMiddleware)
	r.Use(newRateLimiter(100, 200).middleware)

	r.Handle("/metrics", MetricsHandler())

	r.Get("/v1/sys/health", s.HealthHandler)
	r.Post("/v1/sys/refresh", s.RefreshHandler)

	r.Get("/v1/consents/pending", s.PendingHandler)
	r.Get("/v1/consents/active", s.ActiveHandler)
	r.Get("/v1/consents/audit", s.AuditHandler)
	r.Get("/v1/consents/trails", s.TrailsHandler)
	r.Get("/v1/consents/mirror", s.MirrorHandler)

	r.Post("/v1/consents/{id}/approve", s.ApproveHandler)
	r.Post("/v1/consents/{id}/deny", s.DenyHandler)
	r.Post("/v1/consents/revoke", s.RevokeHandler)

	r.Get("/v1/session", s.SessionHandler)
	r.Get("/v1/notifications", s.NotificationsHandler)

	return r
}

// Start begins listening on the configured address.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s.BuildRouter(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	log.Info().Str("addr", s.cfg.ListenAddr).Msg("starting local API server")
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
