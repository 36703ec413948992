// Package grpchealth exposes ingestd's liveness over the standard gRPC
// health checking protocol, for orchestrators that probe gRPC rather than
// HTTP.
package grpchealth

import (
	"context"
	"fmt"
	"net"

	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"google.golang.org/grpc/health"
)

// ServiceName is the health-checked service name reported by Check/Watch.
// The empty string "" reports overall server health, which is what most
// orchestrator probes query by default.
const ServiceName = ""

// Server wraps grpc/health's reference implementation behind a plain
// gRPC server listening on its own port.
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
}

// NewServer builds a Server, initially reporting NOT_SERVING until
// SetServing is called.
func NewServer() *Server {
	h := health.NewServer()
	h.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, h)

	return &Server{grpcServer: gs, health: h}
}

// SetServing flips the overall health status. Call with true once startup
// (config, Coordinator dial, bus dial) has completed.
func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(ServiceName, status)
}

// Serve listens on addr and blocks until ctx is canceled or the listener
// errors.
func (s *Server) Serve(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("grpchealth: listen %s: %w", addr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.grpcServer.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		s.grpcServer.GracefulStop()
		return nil
	case err := <-errCh:
		return err
	}
}

// Stop shuts down the gRPC server immediately.
func (s *Server) Stop() {
	s.grpcServer.Stop()
}
