package node

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/eugenenazirov/chainbuild/internal/config"
)

// Server is the development JSON-RPC node.
type Server struct {
	httpServer  *http.Server
	logger      *zap.Logger
	gracePeriod time.Duration
}

// New wires metrics, handler, router and HTTP server for c.
func New(cfg config.Node, c Chain, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	registry := prometheus.NewRegistry()
	metrics, err := NewMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	handler := NewHandler(c, logger, WithMetrics(metrics))
	router := NewRouter(handler, logger,
		WithLogging(cfg.EnableRequestLogging),
		WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		WithAllowedOrigins(cfg.AllowedOrigins),
		WithGatherer(registry),
	)

	return &Server{
		httpServer:  NewHTTPServer(cfg, router),
		logger:      logger,
		gracePeriod: cfg.ShutdownGracePeriod,
	}, nil
}

// NewHTTPServer creates an HTTP server from the node configuration.
func NewHTTPServer(cfg config.Node, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Listen binds the configured address. Port 0 picks a free port.
func (s *Server) Listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", s.httpServer.Addr, err)
	}
	return ln, nil
}

// Serve handles requests on ln until ctx is cancelled, then shuts down
// gracefully, forcing the close once the grace period expires.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("node listening", zap.String("addr", ln.Addr().String()))
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down node")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.gracePeriod)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("graceful shutdown failed", zap.Error(err))
			if closeErr := s.httpServer.Close(); closeErr != nil {
				s.logger.Error("forced close failed", zap.Error(closeErr))
			}
		}
		return nil
	})

	return g.Wait()
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}
