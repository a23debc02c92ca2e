package rpc

import (
	"github.com/jcmexdev/disqueria/internal/orders-service/domain"
	"github.com/jcmexdev/disqueria/internal/pkg/commands"
)

func itemsFromPayload(lines []commands.OrderLine) []domain.OrderItem {
	items := make([]domain.OrderItem, len(lines))
	for i, line := range lines {
		items[i] = domain.OrderItem{
			AlbumID:  line.AlbumID,
			Quantity: line.Quantity,
			Price:    line.Price,
		}
	}
	return items
}

func orderToContract(o domain.Order) commands.Order {
	return commands.Order{
		ID:        o.ID,
		UserID:    o.UserID,
		Items:     itemsToContract(o.Items),
		Total:     o.Total,
		Status:    string(o.Status),
		CreatedAt: o.CreatedAt,
	}
}

func itemsToContract(items []domain.OrderItem) []commands.OrderItem {
	out := make([]commands.OrderItem, len(items))
	for i, item := range items {
		out[i] = commands.OrderItem{
			ID:       item.ID,
			AlbumID:  item.AlbumID,
			Quantity: item.Quantity,
			Price:    item.Price,
		}
	}
	return out
}
