package sqlstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/disqueria/internal/orders-service/domain"
	"github.com/jcmexdev/disqueria/internal/pkg/database"
)

func TestCreateAndList(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{DSN: filepath.Join(t.TempDir(), "orders.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store, err := New(ctx, db)
	require.NoError(t, err)

	order := domain.NewOrder("u1", []domain.OrderItem{
		{AlbumID: "a1", Quantity: 2, Price: 19.99},
		{AlbumID: "a2", Quantity: 1, Price: 5},
	}, time.Now())
	require.NoError(t, store.Create(ctx, order))
	require.NoError(t, store.Create(ctx, domain.NewOrder("u2", []domain.OrderItem{{AlbumID: "a1", Quantity: 1, Price: 1}}, time.Now())))

	orders, err := store.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	got := orders[0]
	assert.Equal(t, order.ID, got.ID)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.InDelta(t, 44.98, got.Total, 1e-9)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "a1", got.Items[0].AlbumID)
	assert.Equal(t, "a2", got.Items[1].AlbumID)

	none, err := store.ListByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCreateRollsBackWhenAnItemFails(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := sqlx.NewDb(mockDB, "sqlmock")
	t.Cleanup(func() { _ = db.Close() })

	for range Schema {
		mock.ExpectExec("CREATE").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	store, err := New(context.Background(), db)
	require.NoError(t, err)

	order := domain.NewOrder("u1", []domain.OrderItem{{AlbumID: "a1", Quantity: 1, Price: 1}}, time.Now())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders ").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO order_items ").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err = store.Create(context.Background(), order)
	assert.ErrorContains(t, err, "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}
