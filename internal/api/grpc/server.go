package grpc

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthv1 "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"tourledger-backend/internal/api/grpc/interceptor"
	"tourledger-backend/internal/security"
	"tourledger-backend/internal/service"
)

// NewServer builds the gRPC listener that carries reconciliation for ops and
// cron callers, the health protocol and reflection. The returned health server
// is driven by a HealthMonitor.
func NewServer(tm security.TokenManager, reconciler service.ReconciliationService) (*grpc.Server, *health.Server) {
	authInterceptor := interceptor.NewAuthInterceptor(tm)
	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			interceptor.RecoveryUnary(),
			authInterceptor.Unary(),
		),
	)

	hs := health.NewServer()
	hs.SetServingStatus("", healthv1.HealthCheckResponse_NOT_SERVING)
	healthv1.RegisterHealthServer(s, hs)

	RegisterReconciliationServer(s, NewReconciliationServer(reconciler))
	reflection.Register(s)
	return s, hs
}
