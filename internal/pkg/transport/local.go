package transport

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jcmexdev/disqueria/internal/pkg/apperr"
)

// Local sends commands to a Registry in the same process. Replies go
// through the same envelope translation as a Channel, so callers observe
// identical results and errors.
type Local struct {
	registry *Registry
}

// NewLocal returns a sender bound to registry.
func NewLocal(registry *Registry) *Local {
	return &Local{registry: registry}
}

func (l *Local) Send(ctx context.Context, command string, payload any) (json.RawMessage, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("transport: encode %s payload: %w", command, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, &TransportError{Target: "local", Command: command, Err: err}
	}

	req := Request{ID: "local", Pattern: Pattern{Cmd: command}, Data: data}
	return unwrap(command, l.registry.Dispatch(ctx, req))
}

// unwrap turns a reply envelope into the caller-facing result.
func unwrap(command string, reply Reply) (json.RawMessage, error) {
	if f := reply.Err; f != nil {
		return nil, &RemoteError{Command: command, Status: f.Status, Message: f.Message, Kind: apperr.Kind(f.Kind)}
	}
	if len(reply.Response) == 0 {
		return json.RawMessage("null"), nil
	}
	return reply.Response, nil
}
