package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jcmexdev/disqueria/internal/pkg/apperr"
	"github.com/jcmexdev/disqueria/internal/pkg/telemetry"
)

// HandlerFunc handles one command payload. It may do local I/O and call
// other services. Returning an error carrying a status (see apperr) replies
// with that status and message; any other error replies 500.
type HandlerFunc func(ctx context.Context, payload json.RawMessage) (any, error)

// Route binds a command name to its handler.
type Route struct {
	Command string
	Handler HandlerFunc
}

// Registry is the immutable command → handler mapping of one service.
type Registry struct {
	handlers map[string]HandlerFunc
}

// NewRegistry builds a Registry from routes. Empty or duplicate command
// names are rejected.
func NewRegistry(routes ...Route) (*Registry, error) {
	handlers := make(map[string]HandlerFunc, len(routes))
	for _, r := range routes {
		if r.Command == "" {
			return nil, errors.New("transport: route with empty command name")
		}
		if r.Handler == nil {
			return nil, fmt.Errorf("transport: route %q has no handler", r.Command)
		}
		if _, dup := handlers[r.Command]; dup {
			return nil, fmt.Errorf("transport: duplicate route for command %q", r.Command)
		}
		handlers[r.Command] = r.Handler
	}
	return &Registry{handlers: handlers}, nil
}

// Commands lists the registered command names, sorted.
func (r *Registry) Commands() []string {
	out := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Dispatch runs the handler for req and translates its outcome into a reply.
// It never fails: every outcome, including a panic, becomes a Reply.
func (r *Registry) Dispatch(ctx context.Context, req Request) (reply Reply) {
	command := req.Pattern.Cmd
	start := time.Now()

	ctx, span := otel.Tracer("disqueria/transport").Start(ctx, "command "+command,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("command.name", command),
			attribute.String("command.correlation_id", req.ID),
		),
	)
	defer func() {
		status := http.StatusOK
		if reply.Err != nil {
			status = reply.Err.Status
			span.SetStatus(codes.Error, reply.Err.Message)
		}
		span.SetAttributes(attribute.Int("command.status", status))
		span.End()
		telemetry.RecordCommand(command, status, time.Since(start))
	}()

	handler, ok := r.handlers[command]
	if !ok {
		slog.WarnContext(ctx, "unknown command", "command", command)
		return faultReply(req.ID, Fault{Status: http.StatusNotFound, Message: "unknown command", Kind: string(apperr.KindNotFound)})
	}

	defer func() {
		if rec := recover(); rec != nil {
			slog.ErrorContext(ctx, "command handler panicked", "command", command, "panic", rec)
			reply = faultReply(req.ID, Fault{
				Status:  http.StatusInternalServerError,
				Message: "internal error",
				Kind:    string(apperr.KindInternal),
			})
		}
	}()

	result, err := handler(ctx, req.Data)
	if err != nil {
		f := faultFor(err)
		if f.Status >= http.StatusInternalServerError {
			slog.ErrorContext(ctx, "command failed", "command", command, "status", f.Status, "error", err)
		} else {
			slog.InfoContext(ctx, "command rejected", "command", command, "status", f.Status, "error", f.Message)
		}
		return faultReply(req.ID, f)
	}

	body, err := json.Marshal(result)
	if err != nil {
		slog.ErrorContext(ctx, "could not encode command result", "command", command, "error", err)
		return faultReply(req.ID, Fault{
			Status:  http.StatusInternalServerError,
			Message: fmt.Sprintf("encode result: %v", err),
			Kind:    string(apperr.KindInternal),
		})
	}
	return okReply(req.ID, body)
}

func faultFor(err error) Fault {
	if status, msg, ok := apperr.StatusOf(err); ok {
		return Fault{Status: status, Message: msg, Kind: string(apperr.KindOf(err))}
	}
	return Fault{Status: http.StatusInternalServerError, Message: err.Error(), Kind: string(apperr.KindInternal)}
}
