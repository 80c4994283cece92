package profiling

import (
	"context"
	"errors"
	"net"
	"net/http"
	_ "net/http/pprof" // nolint:gosec // served on the endpoint given by the operator, localhost by default.
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultEndpoint   = "localhost:9091"
	ReadHeaderTimeout = 2 * time.Second
)

// Server serves the pprof handlers while a command runs.
type Server struct {
	server   *http.Server
	listener net.Listener
	logger   *logrus.Entry
}

// Start listens on endpoint and serves /debug/pprof in the background.
func Start(endpoint string, logger *logrus.Entry) (*Server, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	listener, err := net.Listen("tcp", endpoint)
	if err != nil {
		return nil, err
	}

	s := &Server{
		server: &http.Server{
			Handler:           http.DefaultServeMux,
			ReadHeaderTimeout: ReadHeaderTimeout,
		},
		listener: listener,
		logger:   logger.WithField("endpoint", listener.Addr().String()),
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("profiling server failed")
		}
	}()

	s.logger.Info("profiling enabled at /debug/pprof")

	return s, nil
}

// Addr is the address the server listens on.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Stop shuts the server down, a nil server is a no-op.
func (s *Server) Stop(ctx context.Context) {
	if s == nil {
		return
	}

	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.WithError(err).Warn("profiling server shutdown failed")
	}
}
