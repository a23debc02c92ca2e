package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalogrpc "github.com/jcmexdev/disqueria/internal/catalog-service/adapters/rpc"
	catalogstore "github.com/jcmexdev/disqueria/internal/catalog-service/adapters/sqlstore"
	catalogapp "github.com/jcmexdev/disqueria/internal/catalog-service/app"
	"github.com/jcmexdev/disqueria/internal/coordinator"
	"github.com/jcmexdev/disqueria/internal/coordinator/sagalog"
	"github.com/jcmexdev/disqueria/internal/orders-service/adapters/sqlstore"
	"github.com/jcmexdev/disqueria/internal/orders-service/domain"
	"github.com/jcmexdev/disqueria/internal/pkg/apperr"
	"github.com/jcmexdev/disqueria/internal/pkg/commands"
	"github.com/jcmexdev/disqueria/internal/pkg/database"
	"github.com/jcmexdev/disqueria/internal/pkg/transport"
)

// countingSender counts the commands it forwards.
type countingSender struct {
	next  commands.Sender
	calls atomic.Int32
}

func (c *countingSender) Send(ctx context.Context, command string, payload any) (json.RawMessage, error) {
	c.calls.Add(1)
	return c.next.Send(ctx, command, payload)
}

type failingStore struct{ domain.Store }

func (failingStore) Create(context.Context, domain.Order) error { return errors.New("disk full") }

type fixture struct {
	catalog *countingSender
	orders  *sqlstore.Store
	log     *sagalog.Memory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, database.Config{DSN: filepath.Join(t.TempDir(), "svc.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cs, err := catalogstore.New(ctx, db)
	require.NoError(t, err)
	reg, err := catalogrpc.NewHandlers(catalogapp.NewService(cs)).Registry()
	require.NoError(t, err)

	orders, err := sqlstore.New(ctx, db)
	require.NoError(t, err)

	return &fixture{
		catalog: &countingSender{next: transport.NewLocal(reg)},
		orders:  orders,
		log:     sagalog.NewMemory(),
	}
}

func (f *fixture) album(t *testing.T, stock int) string {
	t.Helper()
	ctx := context.Background()
	artist, err := commands.CreateArtist.Send(ctx, f.catalog.next, commands.CreateArtistPayload{Name: "Charly García"})
	require.NoError(t, err)
	album, err := commands.CreateAlbum.Send(ctx, f.catalog.next, commands.CreateAlbumPayload{
		Title: "Clics Modernos", Price: 19.99, Stock: stock, ArtistID: artist.ID,
	})
	require.NoError(t, err)
	return album.ID
}

func (f *fixture) stock(t *testing.T, albumID string) int {
	t.Helper()
	albums, err := commands.GetAlbums.Send(context.Background(), f.catalog.next, commands.Empty{})
	require.NoError(t, err)
	for _, a := range albums {
		if a.ID == albumID {
			return a.Stock
		}
	}
	t.Fatalf("album %s not found", albumID)
	return 0
}

func TestCreateOrderReservesAndPersists(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	albumID := f.album(t, 5)
	wf := NewWorkflow(f.catalog, f.orders, f.log, Config{})

	order, err := wf.CreateOrder(ctx, "u1", []domain.OrderItem{{AlbumID: albumID, Quantity: 2, Price: 19.99}})
	require.NoError(t, err)

	assert.InDelta(t, 39.98, order.Total, 1e-9)
	assert.Equal(t, domain.StatusPending, order.Status)
	assert.NotEmpty(t, order.ID)
	assert.False(t, order.CreatedAt.IsZero())
	assert.Equal(t, 3, f.stock(t, albumID))

	stored, err := wf.UserOrders(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, order.ID, stored[0].ID)
	require.Len(t, stored[0].Items, 1)

	assert.Equal(t, []sagalog.Status{
		StateReceived,
		StateReservingStock,
		sagalog.StatusStepDone,
		StateStockReserved,
		StatePersisting,
		StateCommitted,
	}, f.log.Statuses(order.ID))
}

func TestRejectedSecondItemLeavesFirstDecrementApplied(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	first := f.album(t, 5)
	second := f.album(t, 1)
	wf := NewWorkflow(f.catalog, f.orders, f.log, Config{})

	_, err := wf.CreateOrder(ctx, "u1", []domain.OrderItem{
		{AlbumID: first, Quantity: 2, Price: 10},
		{AlbumID: second, Quantity: 3, Price: 10},
	})

	var remote *transport.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, 400, remote.Status)
	assert.Equal(t, fmt.Sprintf("Insufficient stock for album %s. Available: 1", second), remote.Message)

	assert.Equal(t, 3, f.stock(t, first), "first decrement is not reverted without compensation")
	assert.Equal(t, 1, f.stock(t, second))

	orders, err := wf.UserOrders(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, orders, "no order is stored after a rejection")
}

func TestSagaPolicyRestoresStockOnRejection(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	first := f.album(t, 5)
	second := f.album(t, 1)
	wf := NewWorkflow(f.catalog, f.orders, f.log, Config{Policy: coordinator.CompensationSaga})

	_, err := wf.CreateOrder(ctx, "u1", []domain.OrderItem{
		{AlbumID: first, Quantity: 2, Price: 10},
		{AlbumID: second, Quantity: 3, Price: 10},
	})

	assert.True(t, apperr.Is(err, apperr.KindInsufficientStock))
	assert.Equal(t, 5, f.stock(t, first))
	assert.Equal(t, 1, f.stock(t, second))

	orders, err := wf.UserOrders(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestPersistenceFailureKeepsReservationByDefault(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	albumID := f.album(t, 5)
	wf := NewWorkflow(f.catalog, failingStore{f.orders}, f.log, Config{})

	_, err := wf.CreateOrder(ctx, "u1", []domain.OrderItem{{AlbumID: albumID, Quantity: 2, Price: 19.99}})

	assert.ErrorContains(t, err, "disk full")
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.Equal(t, 3, f.stock(t, albumID))
}

func TestSagaPolicyRestoresStockOnPersistenceFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.album(t, 5)
	b := f.album(t, 4)
	wf := NewWorkflow(f.catalog, failingStore{f.orders}, f.log, Config{Policy: coordinator.CompensationSaga})

	order, err := wf.CreateOrder(ctx, "u1", []domain.OrderItem{
		{AlbumID: a, Quantity: 2, Price: 1},
		{AlbumID: b, Quantity: 4, Price: 1},
	})

	require.Error(t, err)
	assert.Empty(t, order.ID)
	assert.Equal(t, 5, f.stock(t, a))
	assert.Equal(t, 4, f.stock(t, b))
}

func TestInvalidRequestsMakeNoRemoteCalls(t *testing.T) {
	f := newFixture(t)
	wf := NewWorkflow(f.catalog, f.orders, f.log, Config{})

	tests := []struct {
		name   string
		userID string
		items  []domain.OrderItem
	}{
		{name: "missing user", userID: "", items: []domain.OrderItem{{AlbumID: "a", Quantity: 1}}},
		{name: "no items", userID: "u1"},
		{name: "missing album", userID: "u1", items: []domain.OrderItem{{Quantity: 1}}},
		{name: "zero quantity", userID: "u1", items: []domain.OrderItem{{AlbumID: "a", Quantity: 0}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := wf.CreateOrder(context.Background(), tt.userID, tt.items)

			var appErr *apperr.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, 400, appErr.Status)
			assert.Equal(t, apperr.KindValidation, appErr.Kind)
		})
	}
	assert.Zero(t, f.catalog.calls.Load())
}

func TestCancelledContextStopsBeforeReserving(t *testing.T) {
	f := newFixture(t)
	albumID := f.album(t, 5)
	wf := NewWorkflow(f.catalog, f.orders, f.log, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := wf.CreateOrder(ctx, "u1", []domain.OrderItem{{AlbumID: albumID, Quantity: 1, Price: 1}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 5, f.stock(t, albumID))
}

// restockFailing rejects every increase_stock command.
type restockFailing struct{ next commands.Sender }

func (r restockFailing) Send(ctx context.Context, command string, payload any) (json.RawMessage, error) {
	if command == commands.IncreaseStock.Name {
		return nil, &transport.TransportError{Target: "catalog", Command: command, Err: context.DeadlineExceeded}
	}
	return r.next.Send(ctx, command, payload)
}

// sagaIDs remembers the saga ids written to the log, in order of first use.
type sagaIDs struct {
	*sagalog.Memory
	ids []string
}

func (s *sagaIDs) Save(ctx context.Context, entry *sagalog.SagaLog) error {
	if len(s.ids) == 0 || s.ids[len(s.ids)-1] != entry.SagaID {
		s.ids = append(s.ids, entry.SagaID)
	}
	return s.Memory.Save(ctx, entry)
}

func TestFailedCompensationIsNotRecordedAsCompensated(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	first := f.album(t, 5)
	second := f.album(t, 1)
	log := &sagaIDs{Memory: f.log}
	wf := NewWorkflow(restockFailing{next: f.catalog}, f.orders, log, Config{Policy: coordinator.CompensationSaga})

	_, err := wf.CreateOrder(ctx, "u1", []domain.OrderItem{
		{AlbumID: first, Quantity: 2, Price: 10},
		{AlbumID: second, Quantity: 3, Price: 10},
	})
	assert.True(t, apperr.Is(err, apperr.KindInsufficientStock))
	assert.Equal(t, 3, f.stock(t, first), "restore failed so the decrement remains")

	require.Len(t, log.ids, 1)
	statuses := f.log.Statuses(log.ids[0])
	require.NotEmpty(t, statuses)
	assert.Equal(t, StateFailed, statuses[len(statuses)-1])
	assert.NotContains(t, statuses[len(statuses)-2:], StateCompensated)
}

func TestCompensatedRejectionEndsCompensated(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	first := f.album(t, 5)
	second := f.album(t, 1)
	log := &sagaIDs{Memory: f.log}
	wf := NewWorkflow(f.catalog, f.orders, log, Config{Policy: coordinator.CompensationSaga})

	_, err := wf.CreateOrder(ctx, "u1", []domain.OrderItem{
		{AlbumID: first, Quantity: 2, Price: 10},
		{AlbumID: second, Quantity: 3, Price: 10},
	})
	require.Error(t, err)

	require.Len(t, log.ids, 1)
	statuses := f.log.Statuses(log.ids[0])
	assert.Equal(t, StateCompensated, statuses[len(statuses)-1])
}

func TestReceivedEntryKeepsTheWireFieldNames(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	albumID := f.album(t, 5)
	wf := NewWorkflow(f.catalog, f.orders, f.log, Config{})

	order, err := wf.CreateOrder(ctx, "u1", []domain.OrderItem{{AlbumID: albumID, Quantity: 1, Price: 19.99}})
	require.NoError(t, err)

	history, err := f.log.History(ctx, order.ID)
	require.NoError(t, err)
	require.NotEmpty(t, history)
	assert.Equal(t, StateReceived, history[0].Status)
	assert.JSONEq(t,
		fmt.Sprintf(`{"userId":"u1","items":[{"albumId":%q,"quantity":1,"price":19.99}]}`, albumID),
		history[0].Payload)
}
