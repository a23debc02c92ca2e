package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jcmexdev/disqueria/internal/pkg/apperr"
)

var (
	// ErrClosed is returned by Send after Close.
	ErrClosed = errors.New("transport: channel closed")

	// ErrStreamClosed reports that the peer ended the command stream.
	ErrStreamClosed = errors.New("transport: stream closed by peer")
)

// RemoteError means the remote service received the command and rejected it.
type RemoteError struct {
	Command string
	Status  int
	Message string
	Kind    apperr.Kind
}

func (e *RemoteError) Error() string { return e.Message }

// StatusCode returns the status the remote handler replied with.
func (e *RemoteError) StatusCode() int { return e.Status }

// ErrorKind returns the kind reported by the remote side, or one derived
// from the status when the peer sent none.
func (e *RemoteError) ErrorKind() apperr.Kind {
	if e.Kind != "" {
		return e.Kind
	}
	switch e.Status {
	case http.StatusBadRequest:
		return apperr.KindValidation
	case http.StatusUnauthorized:
		return apperr.KindUnauthorized
	case http.StatusNotFound:
		return apperr.KindNotFound
	default:
		return apperr.KindInternal
	}
}

// TransportError means no reply was obtained: the connection could not be
// established, broke while the call was outstanding, or the call timed out.
// Whether the command was applied remotely is unknown.
type TransportError struct {
	Target  string
	Command string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %s: %v", e.Target, e.Command, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ErrorKind classifies every transport failure as apperr.KindTransport.
func (e *TransportError) ErrorKind() apperr.Kind { return apperr.KindTransport }

// StatusCode lets a handler that hit a transport failure reply with a
// gateway-style status instead of a bare 500.
func (e *TransportError) StatusCode() int {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusServiceUnavailable
}
