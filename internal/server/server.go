package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/aiox-platform/contextflow/internal/config"
)

// ReadyFunc reports whether the service can take traffic.
type ReadyFunc func(ctx context.Context) error

// Server runs the HTTP API and a gRPC health endpoint side by side.
type Server struct {
	httpServer *http.Server
	grpcServer *grpc.Server
	grpcAddr   string
	health     *health.Server
	ready      ReadyFunc
}

func New(cfg config.ServerConfig, grpcCfg config.GRPCConfig, handler http.Handler, ready ReadyFunc) *Server {
	hs := health.NewServer()
	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)

	return &Server{
		httpServer: &http.Server{
			Addr:        fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:     handler,
			ReadTimeout: 15 * time.Second,
			// workflow runs hold the connection for several model calls
			WriteTimeout: 10 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
		grpcServer: gs,
		grpcAddr:   grpcCfg.Addr(),
		health:     hs,
		ready:      ready,
	}
}

// Run serves until ctx is cancelled, then shuts both servers down gracefully.
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.grpcAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.grpcAddr, err)
	}

	errCh := make(chan error, 2)

	go func() {
		slog.Info("starting server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	go func() {
		slog.Info("starting grpc health server", "addr", s.grpcAddr)
		if err := s.grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	go s.watchReadiness(ctx, 5*time.Second)

	select {
	case err := <-errCh:
		s.grpcServer.Stop()
		_ = s.httpServer.Close()
		return err
	case <-ctx.Done():
		slog.Info("shutting down server")
	}

	s.health.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.grpcServer.GracefulStop()

	slog.Info("server stopped gracefully")
	return nil
}

func (s *Server) watchReadiness(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		s.updateHealth(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// updateHealth mirrors readiness onto the gRPC health service.
func (s *Server) updateHealth(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if s.ready != nil {
		checkCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := s.ready(checkCtx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("readiness check failed", "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", status)
}
