// Package rpc exposes the order use cases as commands.
package rpc

import (
	"context"

	"github.com/jcmexdev/disqueria/internal/orders-service/app"
	"github.com/jcmexdev/disqueria/internal/pkg/commands"
	"github.com/jcmexdev/disqueria/internal/pkg/transport"
)

type Handlers struct {
	workflow *app.Workflow
}

func NewHandlers(workflow *app.Workflow) *Handlers {
	return &Handlers{workflow: workflow}
}

func (h *Handlers) Registry() (*transport.Registry, error) {
	return transport.NewRegistry(
		commands.CreateOrder.Route(h.createOrder),
		commands.GetUserOrders.Route(h.getUserOrders),
	)
}

func (h *Handlers) createOrder(ctx context.Context, p commands.CreateOrderPayload) (commands.Order, error) {
	order, err := h.workflow.CreateOrder(ctx, p.UserID, itemsFromPayload(p.Items))
	if err != nil {
		return commands.Order{}, err
	}
	return orderToContract(order), nil
}

func (h *Handlers) getUserOrders(ctx context.Context, userID string) ([]commands.Order, error) {
	orders, err := h.workflow.UserOrders(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]commands.Order, len(orders))
	for i, o := range orders {
		out[i] = orderToContract(o)
	}
	return out, nil
}
