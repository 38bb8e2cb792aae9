// Package server exposes the assistant over HTTP: an SSE chat stream for
// patients, a doctor-facing appointment listing, public frontend config and
// operational endpoints.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/zentist/clinicdesk/auth"
	"github.com/zentist/clinicdesk/config"
	"github.com/zentist/clinicdesk/engine"
	"github.com/zentist/clinicdesk/logging"
	"github.com/zentist/clinicdesk/metrics"
	"github.com/zentist/clinicdesk/session"
	"github.com/zentist/clinicdesk/store"
)

// Server wires the HTTP surface over the conversation engine and stores.
type Server struct {
	cfg          *config.Config
	engine       *engine.Engine
	sessions     session.Store
	appointments *store.AppointmentStore
	verifier     *auth.Verifier
	metrics      *metrics.Metrics
	logger       logging.Logger
	router       *gin.Engine
}

// New assembles the server and its routes.
func New(
	cfg *config.Config,
	eng *engine.Engine,
	sessions session.Store,
	appointments *store.AppointmentStore,
	verifier *auth.Verifier,
	m *metrics.Metrics,
	logger logging.Logger,
) *Server {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	s := &Server{
		cfg:          cfg,
		engine:       eng,
		sessions:     sessions,
		appointments: appointments,
		verifier:     verifier,
		metrics:      m,
		logger:       logger,
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	v1 := r.Group("/api/v1")
	v1.GET("/config", s.handleConfig)

	authed := v1.Group("", s.requireAuth())
	authed.POST("/chat/stream", s.handleChatStream)
	authed.GET("/appointments", s.handleListAppointments)

	return r
}

// Handler returns the routed HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is canceled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Info("server.listening", "addr", s.cfg.Addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("server.shutting_down")
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// handleConfig serves the public configuration the frontend needs to boot.
// The Supabase anon key is publishable.
func (s *Server) handleConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"supabase_url":      s.cfg.SupabaseURL,
		"supabase_anon_key": s.cfg.SupabaseAnonKey,
	})
}
