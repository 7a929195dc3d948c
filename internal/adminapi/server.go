package adminapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ravensperch/internal/logging"
)

// Server wraps the admin HTTP surface's gin.Engine and the http.Server that
// serves it.
type Server struct {
	httpServer *http.Server
}

// NewServer builds a gin.Engine wired with handler's routes and binds it to
// addr, with the given read/write timeouts.
func NewServer(addr string, readTimeout, writeTimeout time.Duration, handler *Handler) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	handler.Register(engine)

	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      engine,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
		},
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully within a 5s
// deadline.
func (s *Server) Run(ctx context.Context) error {
	log := logging.Component("adminapi")
	errCh := make(chan error, 1)

	go func() {
		log.Info().Str("addr", s.httpServer.Addr).Msg("admin api listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("admin api listen failed: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("admin api shutting down")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}
