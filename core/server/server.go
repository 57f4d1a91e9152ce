package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrymomot/tailqueue/core/logger"
)

// Server wraps http.Server with graceful shutdown. Safe for concurrent use.
type Server struct {
	addr   string
	logger *slog.Logger

	shutdown          time.Duration
	readHeaderTimeout time.Duration
	readTimeout       time.Duration
	writeTimeout      time.Duration
	idleTimeout       time.Duration

	mu  sync.Mutex
	srv *http.Server
	ln  net.Listener
}

// New creates a Server for addr. Defaults to a 5-second shutdown timeout and
// a no-op logger.
func New(addr string, opts ...Option) *Server {
	s := &Server{
		addr:              addr,
		logger:            slog.New(slog.NewTextHandler(io.Discard, nil)),
		shutdown:          DefaultShutdownTimeout,
		readHeaderTimeout: DefaultReadHeaderTimeout,
		readTimeout:       DefaultReadTimeout,
		writeTimeout:      DefaultWriteTimeout,
		idleTimeout:       DefaultIdleTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logger.Component("http"))
	return s
}

// Start listens on the configured address and serves handler until ctx is
// canceled, then shuts down gracefully. Cancellation is not an error.
func (s *Server) Start(ctx context.Context, handler http.Handler) error {
	if s.addr == "" {
		return ErrMissingAddress
	}

	s.mu.Lock()
	if s.srv != nil {
		s.mu.Unlock()
		return ErrServerAlreadyRunning
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.mu.Unlock()
		return errors.Join(ErrListen, err)
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: s.readHeaderTimeout,
		ReadTimeout:       s.readTimeout,
		WriteTimeout:      s.writeTimeout,
		IdleTimeout:       s.idleTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	s.srv, s.ln = srv, ln
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "starting server", slog.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.release(srv)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		stopErr := s.Stop()
		<-errCh
		return stopErr
	}
}

// Run adapts Start for errgroup.Group.Go.
func (s *Server) Run(ctx context.Context, handler http.Handler) func() error {
	return func() error {
		return s.Start(ctx, handler)
	}
}

// Addr returns the bound address while the server is running, or "".
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Stop gracefully shuts down the server using the configured timeout.
// Returns immediately if the server is not running.
func (s *Server) Stop() error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	s.logger.Info("shutting down server", logger.Duration(s.shutdown))

	ctx, cancel := context.WithTimeout(context.Background(), s.shutdown)
	defer cancel()

	err := srv.Shutdown(ctx)
	s.release(srv)
	if err != nil {
		s.logger.Error("server shutdown error", logger.Error(err))
		return err
	}
	return nil
}

func (s *Server) release(srv *http.Server) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv == srv {
		s.srv, s.ln = nil, nil
	}
}

// Run creates a server with default settings and serves handler until ctx is canceled.
func Run(ctx context.Context, addr string, handler http.Handler) error {
	return New(addr).Start(ctx, handler)
}
