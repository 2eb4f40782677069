package grpc

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/donaldmo/pandopot-api/internal/app/config"
	"github.com/donaldmo/pandopot-api/internal/platform/logger"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
)

// Probe checks one backing dependency. Its name is also the health service name.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

// Server exposes grpc.health.v1 for orchestrators. The overall status ("") is SERVING only
// while every probe passes; each probe is also reported under its own name.
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	log        logger.Logger
	cfg        config.GRPCServerConfig
	probes     []Probe

	stopOnce sync.Once
	stop     chan struct{}
}

func NewServer(log logger.Logger, cfg config.GRPCServerConfig, probes ...Probe) *Server {
	if cfg.ProbeInterval <= 0 {
		cfg.ProbeInterval = 15 * time.Second
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 3 * time.Second
	}

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(loggingInterceptor(log)),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionIdle:     cfg.MaxConnectionIdle,
			MaxConnectionAge:      cfg.MaxConnectionIdle,
			MaxConnectionAgeGrace: 5 * time.Second,
			Time:                  cfg.MaxConnectionIdle,
			Timeout:               20 * time.Second,
		}),
	)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	return &Server{
		grpcServer: grpcServer,
		health:     healthServer,
		log:        log,
		cfg:        cfg,
		probes:     probes,
		stop:       make(chan struct{}),
	}
}

// CheckNow runs every probe once and publishes the result.
func (s *Server) CheckNow(ctx context.Context) bool {
	healthy := true
	for _, p := range s.probes {
		probeCtx, cancel := context.WithTimeout(ctx, s.cfg.ProbeTimeout)
		err := p.Check(probeCtx)
		cancel()

		st := healthpb.HealthCheckResponse_SERVING
		if err != nil {
			healthy = false
			st = healthpb.HealthCheckResponse_NOT_SERVING
			s.log.Warnf("Health probe %s failed: %v", p.Name, err)
		}
		s.health.SetServingStatus(p.Name, st)
	}

	overall := healthpb.HealthCheckResponse_NOT_SERVING
	if healthy {
		overall = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", overall)
	return healthy
}

func (s *Server) watch() {
	ticker := time.NewTicker(s.cfg.ProbeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.CheckNow(context.Background())
		}
	}
}

func (s *Server) Start() error {
	lis, err := net.Listen("tcp", ":"+s.cfg.Port)
	if err != nil {
		return fmt.Errorf("failed to listen on port %s: %w", s.cfg.Port, err)
	}
	return s.Serve(lis)
}

func (s *Server) Serve(lis net.Listener) error {
	s.log.Infof("gRPC health server is listening on %s (%d probes)", lis.Addr(), len(s.probes))
	s.CheckNow(context.Background())
	go s.watch()

	if err := s.grpcServer.Serve(lis); err != nil {
		return fmt.Errorf("gRPC server failed to serve: %w", err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stop) })
	s.health.Shutdown()

	stopped := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-ctx.Done():
		s.log.Warn("gRPC graceful stop timed out, forcing stop")
		s.grpcServer.Stop()
		return ctx.Err()
	case <-stopped:
		s.log.Info("gRPC server stopped")
		return nil
	}
}

func loggingInterceptor(log logger.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if err != nil {
			log.Warnf("gRPC %s failed with %s in %s: %v", info.FullMethod, status.Code(err), time.Since(start), err)
		} else {
			log.Debugf("gRPC %s ok in %s", info.FullMethod, time.Since(start))
		}
		return resp, err
	}
}
