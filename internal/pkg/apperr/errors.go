// Package apperr defines the error taxonomy shared by every service.
//
// Handlers return *Error values; the command registry turns them into reply
// faults carrying the same status and message, and the transport turns those
// faults back into errors on the calling side, so a rejection raised deep in
// the catalog service reaches the gateway unchanged.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error independently of the hop that produced it.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindNotFound          Kind = "not_found"
	KindInsufficientStock Kind = "insufficient_stock"
	KindUnauthorized      Kind = "unauthorized"
	KindTransport         Kind = "transport"
	KindInternal          Kind = "internal"
)

// Error is a domain error with an explicit status and message.
type Error struct {
	Kind    Kind
	Status  int
	Message string

	// Available is set for KindInsufficientStock.
	Available *int
}

func (e *Error) Error() string { return e.Message }

// StatusCode is the status a reply fault carries for this error.
func (e *Error) StatusCode() int { return e.Status }

// ErrorKind reports the error's classification.
func (e *Error) ErrorKind() Kind { return e.Kind }

// Validation reports a malformed request rejected before any side effect.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing entity.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Status: http.StatusNotFound, Message: fmt.Sprintf(format, args...)}
}

// InsufficientStock reports a definite stock rejection for an album.
func InsufficientStock(albumID string, available int) *Error {
	return &Error{
		Kind:      KindInsufficientStock,
		Status:    http.StatusBadRequest,
		Message:   fmt.Sprintf("Insufficient stock for album %s. Available: %d", albumID, available),
		Available: &available,
	}
}

// Unauthorized reports a missing or invalid caller credential.
func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Status: http.StatusUnauthorized, Message: msg}
}

// Internal wraps an unexpected failure.
func Internal(msg string) *Error {
	return &Error{Kind: KindInternal, Status: http.StatusInternalServerError, Message: msg}
}

type kinded interface {
	ErrorKind() Kind
}

type statused interface {
	StatusCode() int
}

// KindOf classifies err by walking its chain. Errors that carry no kind are
// KindInternal.
func KindOf(err error) Kind {
	var k kinded
	if errors.As(err, &k) {
		return k.ErrorKind()
	}
	return KindInternal
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// StatusOf returns the status carried by err and the message that should be
// shown for it. ok is false for errors that carry no status.
func StatusOf(err error) (status int, message string, ok bool) {
	var s statused
	if !errors.As(err, &s) {
		return 0, "", false
	}
	// The carrier's own message, not the wrapped chain, travels to the caller.
	if e, isErr := s.(error); isErr {
		return s.StatusCode(), e.Error(), true
	}
	return s.StatusCode(), err.Error(), true
}
