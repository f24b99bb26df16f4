package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name reported to health checks for the relay.
const ServiceName = "chat-relay"

// HealthWorker serves grpc.health.v1.Health. Both the overall status and the
// relay service flip to NOT_SERVING when the worker stops.
type HealthWorker struct {
	log    *slog.Logger
	addr   string
	health *health.Server
}

func NewHealthWorker(log *slog.Logger, addr string) *HealthWorker {
	return &HealthWorker{log: log, addr: addr, health: health.NewServer()}
}

func (w *HealthWorker) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", w.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", w.addr, err)
	}
	return w.Serve(ctx, listener)
}

// Serve runs on an existing listener until ctx is done.
func (w *HealthWorker) Serve(ctx context.Context, listener net.Listener) error {
	s := grpc.NewServer()
	healthpb.RegisterHealthServer(s, w.health)
	w.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	w.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	errChan := make(chan error, 1)
	go func() {
		w.log.Info("Starting gRPC health server", "address", listener.Addr().String(), "at", time.Now().UTC())
		if err := s.Serve(listener); err != nil && !stderrors.Is(err, grpc.ErrServerStopped) {
			errChan <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		w.health.Shutdown()
		s.GracefulStop()
		return nil
	case err := <-errChan:
		return err
	}
}
