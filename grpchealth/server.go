// Package grpchealth serves the standard gRPC health service, reporting
// SERVING while the store answers pings.
package grpchealth

import (
	"context"
	"net"
	"time"

	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpc_zap "github.com/grpc-ecosystem/go-grpc-middleware/logging/zap"
	grpc_recovery "github.com/grpc-ecosystem/go-grpc-middleware/recovery"
	grpc_ctxtags "github.com/grpc-ecosystem/go-grpc-middleware/tags"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"sporty-backend/log"
)

// Service is the name clients can pass to Check besides the empty
// overall name.
const Service = "sporty"

const checkTimeout = 3 * time.Second

type Server struct {
	grpc     *grpc.Server
	health   *health.Server
	check    func(ctx context.Context) error
	interval time.Duration
}

func New(check func(ctx context.Context) error, interval time.Duration) *Server {
	s := &Server{
		grpc: grpc.NewServer(
			grpc.UnaryInterceptor(grpc_middleware.ChainUnaryServer(
				grpc_ctxtags.UnaryServerInterceptor(),
				grpc_zap.UnaryServerInterceptor(log.Logger),
				grpc_recovery.UnaryServerInterceptor(),
			)),
			grpc.StreamInterceptor(grpc_middleware.ChainStreamServer(
				grpc_ctxtags.StreamServerInterceptor(),
				grpc_zap.StreamServerInterceptor(log.Logger),
				grpc_recovery.StreamServerInterceptor(),
			)),
		),
		health:   health.NewServer(),
		check:    check,
		interval: interval,
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.set(healthpb.HealthCheckResponse_NOT_SERVING)

	return s
}

// Watch probes the store immediately and then every interval until ctx is
// done.
func (s *Server) Watch(ctx context.Context) {
	s.probe(ctx)

	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.probe(ctx)
		}
	}
}

func (s *Server) probe(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	if err := s.check(ctx); err != nil {
		log.Logger.Warn("health check failed", zap.Error(err))
		s.set(healthpb.HealthCheckResponse_NOT_SERVING)
		return
	}
	s.set(healthpb.HealthCheckResponse_SERVING)
}

func (s *Server) set(status healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(Service, status)
}

func (s *Server) Serve(lis net.Listener) error {
	log.Logger.Info("grpc health listening", zap.String("addr", lis.Addr().String()))
	return s.grpc.Serve(lis)
}

// GracefulStop marks the service NOT_SERVING for watchers, then drains.
func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
