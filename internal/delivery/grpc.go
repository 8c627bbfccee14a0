package delivery

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"bookfinder/internal/logger"
)

// HealthService is the service name reported by the gRPC health server.
const HealthService = "bookfinder.WebAdapter"

// NewHealthServer returns a gRPC server exposing grpc.health.v1 with the web
// adapter marked as serving.
func NewHealthServer() (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(grpc.UnaryInterceptor(trackUnary))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus(HealthService, healthpb.HealthCheckResponse_SERVING)
	return srv, hs
}

func trackUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	defer logger.Track(ctx, info.FullMethod)()
	return handler(ctx, req)
}
