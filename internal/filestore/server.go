package filestore

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jwulff/tubemarker/internal/logger"
)

// Server is the HTTP front of a File.
type Server struct {
	srv *http.Server
}

// NewServer creates a Server listening on addr.
func NewServer(addr string, file *File) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           Handler(file),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start serves until Shutdown. It returns http.ErrServerClosed after a clean stop.
func (s *Server) Start() error {
	logger.Infof("API server running on http://%s", s.srv.Addr)
	err := s.srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Errorf("http server error: %v", err)
	}
	return err
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
