package grpc

import (
	"context"
	"time"

	"code.cloudfoundry.org/lager/v3"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// AuthInterceptor returns a gRPC unary server interceptor that validates
// the authorization token from request metadata.
// If the token is missing or invalid, it returns status.Unauthenticated.
func AuthInterceptor(validToken string) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}

		authHeaders := md.Get("authorization")
		if len(authHeaders) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing authorization header")
		}

		if authHeaders[0] != validToken {
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}

		return handler(ctx, req)
	}
}

// LoggingInterceptor logs every call with its outcome on a per-call session.
// Client-side failures are logged at info, server-side ones at error.
func LoggingInterceptor(logger lager.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		callLogger := logger.Session("call", lager.Data{"method": info.FullMethod})
		callLogger.Debug("handling")
		started := time.Now()

		resp, err := handler(ctx, req)

		code := status.Code(err)
		data := lager.Data{"code": code.String(), "duration": time.Since(started).String()}
		switch code {
		case codes.OK:
			callLogger.Info("success", data)
		case codes.Internal, codes.Unavailable, codes.Unknown, codes.DataLoss:
			callLogger.Error("failed", err, data)
		default:
			data["error"] = err.Error()
			callLogger.Info("rejected", data)
		}
		return resp, err
	}
}
