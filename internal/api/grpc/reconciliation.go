package grpc

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"tourledger-backend/internal/domain"
	"tourledger-backend/internal/logger"
	"tourledger-backend/internal/service"
)

// ReconciliationServiceName is the fully qualified gRPC service name. Messages
// are protobuf well-known types, so clients need no generated stubs.
const ReconciliationServiceName = "tourledger.v1.ReconciliationService"

// ReconciliationHandler is the server side of ReconciliationService.
type ReconciliationHandler interface {
	ReconcileWallet(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
	ReconcileAll(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
}

type ReconciliationServer struct {
	reconciler service.ReconciliationService
}

func NewReconciliationServer(reconciler service.ReconciliationService) *ReconciliationServer {
	return &ReconciliationServer{reconciler: reconciler}
}

func RegisterReconciliationServer(s grpc.ServiceRegistrar, h ReconciliationHandler) {
	s.RegisterService(&reconciliationServiceDesc, h)
}

// ReconcileWallet takes the wallet ID as a StringValue.
func (s *ReconciliationServer) ReconcileWallet(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	logger.InfoContext(ctx, "Reconcile wallet requested", "wallet_id", req.GetValue(), "actor_id", actorID(ctx))
	res, err := s.reconciler.ReconcileWallet(ctx, req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(resultFields(*res))
}

func (s *ReconciliationServer) ReconcileAll(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	logger.InfoContext(ctx, "Reconcile all requested", "actor_id", actorID(ctx))
	sum, err := s.reconciler.ReconcileAll(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	mismatches := make([]any, 0, len(sum.Mismatches))
	for _, m := range sum.Mismatches {
		mismatches = append(mismatches, resultFields(m))
	}
	return structpb.NewStruct(map[string]any{
		"checked":     sum.Checked,
		"mismatched":  sum.Mismatched,
		"failed":      sum.Failed,
		"mismatches":  mismatches,
		"started_at":  sum.StartedAt.Format(time.RFC3339),
		"finished_at": sum.FinishedAt.Format(time.RFC3339),
	})
}

func resultFields(r domain.ReconciliationResult) map[string]any {
	return map[string]any{
		"wallet_id":         r.WalletID,
		"matches":           r.Matches,
		"stored_balance":    r.StoredBalance,
		"computed_balance":  r.ComputedBalance,
		"drift":             r.Drift,
		"transaction_count": r.TransactionCount,
		"checked_at":        r.CheckedAt.Format(time.RFC3339),
	}
}

func actorID(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if v := md.Get("actor-id"); len(v) > 0 {
		return v[0]
	}
	return ""
}

// toStatus maps domain errors onto gRPC codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	}
	logger.Error("Reconciliation RPC failed", "error", err)
	return status.Error(codes.Internal, "internal error")
}

func reconcileWalletHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReconciliationHandler).ReconcileWallet(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + ReconciliationServiceName + "/ReconcileWallet",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ReconciliationHandler).ReconcileWallet(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func reconcileAllHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReconciliationHandler).ReconcileAll(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + ReconciliationServiceName + "/ReconcileAll",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ReconciliationHandler).ReconcileAll(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

var reconciliationServiceDesc = grpc.ServiceDesc{
	ServiceName: ReconciliationServiceName,
	HandlerType: (*ReconciliationHandler)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ReconcileWallet", Handler: reconcileWalletHandler},
		{MethodName: "ReconcileAll", Handler: reconcileAllHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tourledger/v1/reconciliation.proto",
}
