package interceptors

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"google.golang.org/grpc/metadata"

	"github.com/jcmexdev/disqueria/internal/pkg/interceptors/constants"
)

// Every command shares one long-lived stream, so per-call metadata cannot
// ride on gRPC headers. It travels in the envelope's meta map instead.

// InjectMetadata builds the per-call metadata for an outgoing command: the
// request id, the W3C trace context of the active span and the time left
// before ctx expires.
func InjectMetadata(ctx context.Context) map[string]string {
	meta := map[string]string{}
	if id := RequestID(ctx); id != "" {
		meta[constants.HeaderXRequestId] = id
	}
	if deadline, ok := ctx.Deadline(); ok {
		meta[constants.HeaderCallTimeout] = max(time.Until(deadline), 0).String()
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.MapCarrier(meta))
	if len(meta) == 0 {
		return nil
	}
	return meta
}

// ExtractMetadata is the callee-side counterpart of InjectMetadata. The
// returned context expires when the caller stops waiting; cancel must be
// called once the command is handled.
func ExtractMetadata(ctx context.Context, meta map[string]string) (context.Context, context.CancelFunc) {
	if len(meta) == 0 {
		return ctx, func() {}
	}
	ctx = otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(meta))
	if id := meta[constants.HeaderXRequestId]; id != "" {
		ctx = WithRequestID(ctx, id)
	}
	if raw := meta[constants.HeaderCallTimeout]; raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			return context.WithTimeout(ctx, d)
		}
	}
	return ctx, func() {}
}

// WithRequestID stores the request id in ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, constants.ContextKeyRequestID, id)
}

// RequestID returns the request id carried by ctx, looking at the typed
// context key first and incoming gRPC metadata second.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(constants.ContextKeyRequestID).(string); ok {
		return id
	}
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if ids := md.Get(constants.HeaderXRequestId); len(ids) > 0 {
			return ids[0]
		}
	}
	return ""
}
