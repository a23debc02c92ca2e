// Package sqlstore is the SQL implementation of the orders Store.
package sqlstore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jcmexdev/disqueria/internal/orders-service/domain"
	"github.com/jcmexdev/disqueria/internal/pkg/database"
)

var Schema = []string{
	`CREATE TABLE IF NOT EXISTS orders (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL,
		total       DOUBLE PRECISION NOT NULL,
		status      TEXT NOT NULL DEFAULT 'PENDING',
		created_at  TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id          TEXT PRIMARY KEY,
		order_id    TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		position    INTEGER NOT NULL,
		album_id    TEXT NOT NULL,
		quantity    INTEGER NOT NULL CHECK (quantity > 0),
		price       DOUBLE PRECISION NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders(user_id)`,
}

type Store struct {
	db *sqlx.DB
}

func New(ctx context.Context, db *sqlx.DB) (*Store, error) {
	if err := database.Migrate(ctx, db, Schema...); err != nil {
		return nil, fmt.Errorf("orders store: %w", err)
	}
	return &Store{db: db}, nil
}

type orderRow struct {
	ID        string  `db:"id"`
	UserID    string  `db:"user_id"`
	Total     float64 `db:"total"`
	Status    string  `db:"status"`
	CreatedAt string  `db:"created_at"`
}

type itemRow struct {
	ID       string  `db:"id"`
	OrderID  string  `db:"order_id"`
	Position int     `db:"position"`
	AlbumID  string  `db:"album_id"`
	Quantity int     `db:"quantity"`
	Price    float64 `db:"price"`
}

func (s *Store) Create(ctx context.Context, o domain.Order) error {
	return database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx,
			s.db.Rebind(`INSERT INTO orders (id, user_id, total, status, created_at) VALUES (?, ?, ?, ?, ?)`),
			o.ID, o.UserID, o.Total, string(o.Status), database.FormatTime(o.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert order %s: %w", o.ID, err)
		}

		insertItem := s.db.Rebind(`INSERT INTO order_items (id, order_id, position, album_id, quantity, price) VALUES (?, ?, ?, ?, ?, ?)`)
		for i, item := range o.Items {
			if _, err := tx.ExecContext(ctx, insertItem, item.ID, o.ID, i, item.AlbumID, item.Quantity, item.Price); err != nil {
				return fmt.Errorf("insert item %d of order %s: %w", i, o.ID, err)
			}
		}
		return nil
	})
}

func (s *Store) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	var orders []orderRow
	err := s.db.SelectContext(ctx, &orders,
		s.db.Rebind(`SELECT id, user_id, total, status, created_at FROM orders WHERE user_id = ? ORDER BY created_at, id`), userID)
	if err != nil {
		return nil, fmt.Errorf("list orders of %s: %w", userID, err)
	}
	if len(orders) == 0 {
		return []domain.Order{}, nil
	}

	ids := make([]string, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	q, args, err := sqlx.In(`SELECT id, order_id, position, album_id, quantity, price FROM order_items WHERE order_id IN (?) ORDER BY order_id, position`, ids)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	var items []itemRow
	if err := s.db.SelectContext(ctx, &items, s.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}

	byOrder := make(map[string][]domain.OrderItem, len(orders))
	for _, it := range items {
		byOrder[it.OrderID] = append(byOrder[it.OrderID], domain.OrderItem{
			ID:       it.ID,
			AlbumID:  it.AlbumID,
			Quantity: it.Quantity,
			Price:    it.Price,
		})
	}

	out := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		createdAt, err := database.ParseTime(o.CreatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.Order{
			ID:        o.ID,
			UserID:    o.UserID,
			Items:     byOrder[o.ID],
			Total:     o.Total,
			Status:    domain.OrderStatus(o.Status),
			CreatedAt: createdAt,
		})
	}
	return out, nil
}
