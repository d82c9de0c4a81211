package grpcx

import (
	"context"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/shortlet/libs/httpx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// RequestIDMetadataKey is the gRPC metadata key carrying the request id (lowercase per gRPC conventions).
const RequestIDMetadataKey = "x-request-id"

// UnaryServerRequestIDInterceptor adopts an inbound request id (or mints one), stores it where
// httpx.RequestIDFromContext finds it, and echoes it in response headers.
func UnaryServerRequestIDInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		id := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if vals := md.Get(RequestIDMetadataKey); len(vals) > 0 {
				id = vals[0]
			}
		}
		if id == "" {
			id = uuid.NewString()
		}
		_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDMetadataKey, id))
		return handler(httpx.ContextWithRequestID(ctx, id), req)
	}
}
