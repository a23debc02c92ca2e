// Package commands is the closed catalogue of commands the services accept.
//
// Each command is a Command value fixing its name, payload type and result
// type. Callers use Send and services register Route, so both ends of a
// command are checked against the same types at build time.
package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jcmexdev/disqueria/internal/pkg/apperr"
	"github.com/jcmexdev/disqueria/internal/pkg/transport"
)

// Sender delivers a named command and returns its raw reply.
// *transport.Channel and *transport.Local implement it.
type Sender interface {
	Send(ctx context.Context, command string, payload any) (json.RawMessage, error)
}

// Command describes one command with payload P and result R.
type Command[P, R any] struct {
	Name string
}

// Send issues the command through s and decodes its result.
func (c Command[P, R]) Send(ctx context.Context, s Sender, payload P) (R, error) {
	var out R
	raw, err := s.Send(ctx, c.Name, payload)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode %s result: %w", c.Name, err)
	}
	return out, nil
}

// Route binds handle to the command. A payload that does not decode into P
// is rejected with a validation error before handle runs.
func (c Command[P, R]) Route(handle func(ctx context.Context, payload P) (R, error)) transport.Route {
	return transport.Route{
		Command: c.Name,
		Handler: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var payload P
			if len(raw) > 0 {
				if err := json.Unmarshal(raw, &payload); err != nil {
					return nil, apperr.Validation("invalid %s payload: %v", c.Name, err)
				}
			}
			return handle(ctx, payload)
		},
	}
}

// Catalog service.
var (
	GetArtists    = Command[Empty, []Artist]{Name: "get_artists"}
	CreateArtist  = Command[CreateArtistPayload, Artist]{Name: "create_artist"}
	GetAlbums     = Command[Empty, []Album]{Name: "get_albums"}
	CreateAlbum   = Command[CreateAlbumPayload, Album]{Name: "create_album"}
	UpdateArtist  = Command[UpdateArtistPayload, *Artist]{Name: "update_artist"}
	DeleteArtist  = Command[string, DeleteResult]{Name: "delete_artist"}
	UpdateAlbum   = Command[UpdateAlbumPayload, Album]{Name: "update_album"}
	DeleteAlbum   = Command[string, DeleteResult]{Name: "delete_album"}
	DecreaseStock = Command[StockPayload, Album]{Name: "decrease_stock"}
	// IncreaseStock undoes a decrease_stock; it is only sent as a compensation.
	IncreaseStock = Command[StockPayload, Album]{Name: "increase_stock"}
)

// Users service.
var (
	CreateUser   = Command[CreateUserPayload, User]{Name: "create_user"}
	FindUser     = Command[string, *User]{Name: "find_user"}
	ValidateUser = Command[Credentials, *User]{Name: "validate_user"}
)

// Orders service.
var (
	CreateOrder   = Command[CreateOrderPayload, Order]{Name: "create_order"}
	GetUserOrders = Command[string, []Order]{Name: "get_user_orders"}
)
