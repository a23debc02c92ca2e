// Package rpc exposes the user use cases as commands.
package rpc

import (
	"context"

	"github.com/jcmexdev/disqueria/internal/pkg/commands"
	"github.com/jcmexdev/disqueria/internal/pkg/transport"
	"github.com/jcmexdev/disqueria/internal/users-service/app"
	"github.com/jcmexdev/disqueria/internal/users-service/domain"
)

type Handlers struct {
	svc *app.Service
}

func NewHandlers(svc *app.Service) *Handlers {
	return &Handlers{svc: svc}
}

func (h *Handlers) Registry() (*transport.Registry, error) {
	return transport.NewRegistry(
		commands.CreateUser.Route(h.createUser),
		commands.FindUser.Route(h.findUser),
		commands.ValidateUser.Route(h.validateUser),
	)
}

// toContract drops the password hash.
func toContract(u domain.User) commands.User {
	return commands.User{ID: u.ID, Email: u.Email, Name: u.Name}
}

func optional(u *domain.User) *commands.User {
	if u == nil {
		return nil
	}
	out := toContract(*u)
	return &out
}

func (h *Handlers) createUser(ctx context.Context, p commands.CreateUserPayload) (commands.User, error) {
	user, err := h.svc.Create(ctx, p.Email, p.Password, p.Name)
	if err != nil {
		return commands.User{}, err
	}
	return toContract(user), nil
}

func (h *Handlers) findUser(ctx context.Context, email string) (*commands.User, error) {
	user, err := h.svc.Find(ctx, email)
	return optional(user), err
}

func (h *Handlers) validateUser(ctx context.Context, p commands.Credentials) (*commands.User, error) {
	user, err := h.svc.Validate(ctx, p.Email, p.Password)
	return optional(user), err
}
