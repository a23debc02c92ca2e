package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Order struct {
	ID        string
	UserID    string
	Items     []OrderItem
	Total     float64
	Status    OrderStatus
	CreatedAt time.Time
}

// OrderItem is one line of an order. AlbumID references the catalog
// service; Price is the unit price supplied by the caller.
type OrderItem struct {
	ID       string
	AlbumID  string
	Quantity int
	Price    float64
}

func (i OrderItem) Subtotal() float64 {
	return float64(i.Quantity) * i.Price
}

type OrderStatus string

const StatusPending OrderStatus = "PENDING"

// NewOrder builds a pending order with fresh ids and total = Σ quantity × price.
func NewOrder(userID string, items []OrderItem, now time.Time) Order {
	order := Order{
		ID:        uuid.NewString(),
		UserID:    userID,
		Items:     make([]OrderItem, len(items)),
		Status:    StatusPending,
		CreatedAt: now.UTC(),
	}
	for i, item := range items {
		item.ID = uuid.NewString()
		order.Items[i] = item
		order.Total += item.Subtotal()
	}
	return order
}

type Store interface {
	// Create writes the order and its items atomically.
	Create(ctx context.Context, o Order) error
	ListByUser(ctx context.Context, userID string) ([]Order, error)
}
