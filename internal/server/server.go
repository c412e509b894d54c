package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/opsdesk/fncall/internal/config"
	"github.com/rs/zerolog/log"
)

type Server struct {
	cfg  *config.Config
	deps *Deps
	http *http.Server
}

func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	deps, err := Build(ctx, cfg, nil)
	if err != nil {
		return nil, err
	}
	s := &Server{cfg: cfg, deps: deps}

	writeTimeout := 60 * time.Second
	// A conversation may run several model calls; keep the connection open
	// for the whole of it.
	if conv := time.Duration(cfg.ConversationTimeout) * time.Second; conv+10*time.Second > writeTimeout {
		writeTimeout = conv + 10*time.Second
	}

	s.http = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.setupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  120 * time.Second,
	}
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.http.Handler }

func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.http.Addr).Msg("listening")
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("graceful shutdown initiated")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := s.http.Shutdown(shutdownCtx)
		s.deps.Close()
		return err
	case err := <-errCh:
		s.deps.Close()
		return err
	}
}
