package grpcx

import (
	"context"
	"log/slog"
	"net"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthConfig drives the gRPC health endpoint used by orchestrators.
type HealthConfig struct {
	Addr     string
	Service  string
	Interval time.Duration
	Check    func(context.Context) error
}

// ServeHealth starts a gRPC server exposing grpc.health.v1. The serving status of cfg.Service
// (and the empty overall service) follows cfg.Check, polled every Interval. It returns once
// the listener is bound; the server stops gracefully when ctx is done.
func ServeHealth(ctx context.Context, logger *slog.Logger, cfg HealthConfig) error {
	lis, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return err
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}

	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(UnaryServerRequestIDInterceptor()),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	update := func() {
		status := healthpb.HealthCheckResponse_SERVING
		if cfg.Check != nil {
			checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			err := cfg.Check(checkCtx)
			cancel()
			if err != nil {
				status = healthpb.HealthCheckResponse_NOT_SERVING
				logger.Warn("grpc health check failing", "err", err)
			}
		}
		hs.SetServingStatus("", status)
		hs.SetServingStatus(cfg.Service, status)
	}
	update()

	go func() {
		logger.Info("grpc health server starting", "addr", lis.Addr().String())
		if err := srv.Serve(lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()

	go func() {
		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				hs.Shutdown()
				srv.GracefulStop()
				return
			case <-ticker.C:
				update()
			}
		}
	}()
	return nil
}
