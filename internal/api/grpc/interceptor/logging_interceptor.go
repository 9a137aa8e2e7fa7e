package interceptor

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"tourledger-backend/internal/logger"
)

// RecoveryUnary turns handler panics into codes.Internal and logs every call
// at debug level.
func RecoveryUnary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		started := time.Now()
		defer func() {
			if r := recover(); r != nil {
				logger.ErrorContext(ctx, "Panic in gRPC handler", "method", info.FullMethod, "panic", fmt.Sprint(r))
				resp, err = nil, status.Error(codes.Internal, "internal error")
			}
			logger.Debug("gRPC call", "method", info.FullMethod, "code", status.Code(err).String(), "duration", time.Since(started))
		}()
		return handler(ctx, req)
	}
}
