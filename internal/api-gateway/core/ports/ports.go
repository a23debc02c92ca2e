package ports

import (
	"context"
	"encoding/json"

	"github.com/jcmexdev/disqueria/internal/api-gateway/core/domain/entity"
)

// Sender issues one command to a backend service and returns its raw reply.
type Sender interface {
	Send(ctx context.Context, command string, payload any) (json.RawMessage, error)
}

// CredentialValidator accepts a presented credential and yields the subject
// it was issued to, or rejects it.
type CredentialValidator interface {
	Validate(ctx context.Context, credential string) (entity.Subject, error)
}

type TokenIssuer interface {
	Issue(subject entity.Subject) (string, error)
}
