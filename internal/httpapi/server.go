// Package httpapi is the admin HTTP surface: a thin layer over the
// Controller and State Store with no state-machine logic of its own.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

// Server wraps the HTTP listener.
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	recovered  atomic.Bool
}

// New builds a Server bound to listenAddr. MarkRecovered must be called once
// startup recovery completes; until then /healthz reports 503.
func New(deps Deps, auth0 Auth0Config, listenAddr string) *Server {
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	s := &Server{router: router}

	setupRoutes(router, deps, auth0, func() bool { return s.recovered.Load() })

	s.httpServer = &http.Server{
		Addr:         listenAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// MarkRecovered flips /healthz from starting to ok.
func (s *Server) MarkRecovered() {
	s.recovered.Store(true)
}

// Start blocks serving until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	slog.Info("starting admin HTTP server", "address", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down admin HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
