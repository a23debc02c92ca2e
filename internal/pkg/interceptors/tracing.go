package interceptors

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"

	"github.com/jcmexdev/disqueria/internal/pkg/interceptors/constants"
)

// TraceStreamServerInterceptor logs the lifetime of every command stream a
// peer opens against this service.
func TraceStreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(
		srv interface{},
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		ctx := ss.Context()
		remote := ""
		if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
			remote = p.Addr.String()
		}

		start := time.Now()
		slog.InfoContext(ctx, "command stream opened", "method", info.FullMethod, "peer", remote)

		err := handler(srv, ss)

		slog.InfoContext(ctx, "command stream closed",
			"method", info.FullMethod,
			"peer", remote,
			"duration", time.Since(start),
			"error", err,
		)
		return err
	}
}

// RequestIDStreamClientInterceptor stamps the stream with the request id of
// the call that opened it, which makes the first call of a connection
// traceable from the server's stream logs.
func RequestIDStreamClientInterceptor() grpc.StreamClientInterceptor {
	return func(
		ctx context.Context,
		desc *grpc.StreamDesc,
		cc *grpc.ClientConn,
		method string,
		streamer grpc.Streamer,
		opts ...grpc.CallOption,
	) (grpc.ClientStream, error) {
		if id := RequestID(ctx); id != "" {
			ctx = metadata.AppendToOutgoingContext(ctx, constants.HeaderXRequestId, id)
		}
		return streamer(ctx, desc, cc, method, opts...)
	}
}
