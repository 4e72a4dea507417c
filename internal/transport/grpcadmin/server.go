package grpcadmin

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/nsridhar76/go-orderevents/internal/auth"
)

type tokenValidator interface {
	ValidateAccessToken(token string) (auth.Identity, error)
}

// Server wraps a grpc.Server with the health and EventAdmin services.
type Server struct {
	*grpc.Server
	health *health.Server
}

// NewServer creates a Server. EventAdmin calls must carry an admin bearer
// token in the "authorization" metadata; health checks are open.
func NewServer(log *slog.Logger, validator tokenValidator, adminRole string, events eventDeleter) *Server {
	log = log.With("component", "grpc")

	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		loggingInterceptor(log),
		adminInterceptor(validator, adminRole),
	))

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	RegisterEventAdminServer(srv, &eventAdmin{events: events})

	return &Server{Server: srv, health: hs}
}

// Shutdown marks every service as not serving and stops the server
// gracefully.
func (s *Server) Shutdown() {
	s.health.Shutdown()
	s.GracefulStop()
}

func adminInterceptor(validator tokenValidator, adminRole string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !strings.HasPrefix(info.FullMethod, "/"+ServiceName+"/") {
			return handler(ctx, req)
		}

		md, _ := metadata.FromIncomingContext(ctx)
		var token string
		if vals := md.Get("authorization"); len(vals) > 0 {
			token = strings.TrimSpace(strings.TrimPrefix(vals[0], "Bearer "))
		}
		if token == "" {
			return nil, status.Error(codes.Unauthenticated, "missing bearer token")
		}

		id, err := validator.ValidateAccessToken(token)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "unauthenticated")
		}
		if !id.HasRole(adminRole) {
			return nil, status.Error(codes.PermissionDenied, "admin access required")
		}
		return handler(auth.WithIdentity(ctx, id), req)
	}
}

func loggingInterceptor(log *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		code := status.Code(err)
		level := slog.LevelInfo
		if code == codes.Internal || code == codes.Unknown {
			level = slog.LevelError
		}
		log.LogAttrs(ctx, level, "grpc.request",
			slog.String("method", info.FullMethod),
			slog.String("code", code.String()),
			slog.Duration("duration", time.Since(start)),
		)
		return resp, err
	}
}
