package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"habit-stacker-backend/db"
	"habit-stacker-backend/internal/config"
)

type Server struct {
	cfg   config.Config
	store *db.Store
	log   *log.Logger
	now   func() time.Time
}

func NewServer(cfg config.Config, store *db.Store, logger *log.Logger) *Server {
	return &Server{
		cfg:   cfg,
		store: store,
		log:   logger,
		now:   time.Now,
	}
}

// ListenAndServe blocks until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", s.cfg.Port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.log.Info("Shutting down")
	return srv.Shutdown(shutdownCtx)
}
