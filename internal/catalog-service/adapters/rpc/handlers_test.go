package rpc

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/disqueria/internal/catalog-service/adapters/sqlstore"
	"github.com/jcmexdev/disqueria/internal/catalog-service/app"
	"github.com/jcmexdev/disqueria/internal/pkg/apperr"
	"github.com/jcmexdev/disqueria/internal/pkg/commands"
	"github.com/jcmexdev/disqueria/internal/pkg/database"
	"github.com/jcmexdev/disqueria/internal/pkg/transport"
)

func newCatalog(t *testing.T) commands.Sender {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, database.Config{DSN: filepath.Join(t.TempDir(), "catalog.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store, err := sqlstore.New(ctx, db)
	require.NoError(t, err)

	reg, err := NewHandlers(app.NewService(store)).Registry()
	require.NoError(t, err)
	return transport.NewLocal(reg)
}

func seedAlbum(t *testing.T, catalog commands.Sender, stock int) commands.Album {
	t.Helper()
	ctx := context.Background()

	artist, err := commands.CreateArtist.Send(ctx, catalog, commands.CreateArtistPayload{Name: "Soda Stereo", Country: "AR"})
	require.NoError(t, err)

	album, err := commands.CreateAlbum.Send(ctx, catalog, commands.CreateAlbumPayload{
		Title:    "Canción Animal",
		Year:     1990,
		Genre:    "Rock",
		Price:    19.99,
		Stock:    stock,
		ArtistID: artist.ID,
	})
	require.NoError(t, err)
	return album
}

func TestDecreaseStock(t *testing.T) {
	ctx := context.Background()
	catalog := newCatalog(t)
	album := seedAlbum(t, catalog, 5)

	updated, err := commands.DecreaseStock.Send(ctx, catalog, commands.StockPayload{ID: album.ID, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Stock)
	require.NotNil(t, updated.Artist)
	assert.Equal(t, "Soda Stereo", updated.Artist.Name)

	_, err = commands.DecreaseStock.Send(ctx, catalog, commands.StockPayload{ID: album.ID, Quantity: 4})
	var remote *transport.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, 400, remote.Status)
	assert.Equal(t, fmt.Sprintf("Insufficient stock for album %s. Available: 3", album.ID), remote.Message)
	assert.True(t, apperr.Is(err, apperr.KindInsufficientStock))

	albums, err := commands.GetAlbums.Send(ctx, catalog, commands.Empty{})
	require.NoError(t, err)
	require.Len(t, albums, 1)
	assert.Equal(t, 3, albums[0].Stock, "a rejected decrement leaves stock unchanged")
}

func TestDecreaseStockUnknownAlbum(t *testing.T) {
	_, err := commands.DecreaseStock.Send(context.Background(), newCatalog(t), commands.StockPayload{ID: "nope", Quantity: 1})

	var remote *transport.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, 404, remote.Status)
	assert.Equal(t, "Album with ID nope not found", remote.Message)
}

func TestDecreaseStockRejectsNonPositiveQuantity(t *testing.T) {
	catalog := newCatalog(t)
	album := seedAlbum(t, catalog, 5)

	_, err := commands.DecreaseStock.Send(context.Background(), catalog, commands.StockPayload{ID: album.ID, Quantity: 0})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestConcurrentDecrementsNeverOversell(t *testing.T) {
	ctx := context.Background()
	catalog := newCatalog(t)
	album := seedAlbum(t, catalog, 20)

	quantities := []int{1, 2, 3, 4, 5, 5}
	var wg sync.WaitGroup
	errs := make(chan error, len(quantities))
	for _, q := range quantities {
		wg.Add(1)
		go func(q int) {
			defer wg.Done()
			_, err := commands.DecreaseStock.Send(ctx, catalog, commands.StockPayload{ID: album.ID, Quantity: q})
			errs <- err
		}(q)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	albums, err := commands.GetAlbums.Send(ctx, catalog, commands.Empty{})
	require.NoError(t, err)
	assert.Equal(t, 0, albums[0].Stock)

	_, err = commands.DecreaseStock.Send(ctx, catalog, commands.StockPayload{ID: album.ID, Quantity: 1})
	assert.True(t, apperr.Is(err, apperr.KindInsufficientStock))
}

func TestIncreaseStockRestores(t *testing.T) {
	ctx := context.Background()
	catalog := newCatalog(t)
	album := seedAlbum(t, catalog, 5)

	_, err := commands.DecreaseStock.Send(ctx, catalog, commands.StockPayload{ID: album.ID, Quantity: 5})
	require.NoError(t, err)
	restored, err := commands.IncreaseStock.Send(ctx, catalog, commands.StockPayload{ID: album.ID, Quantity: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, restored.Stock)
}

func TestCreateAlbumRequiresArtist(t *testing.T) {
	_, err := commands.CreateAlbum.Send(context.Background(), newCatalog(t), commands.CreateAlbumPayload{
		Title:    "Orphan",
		ArtistID: "missing",
	})

	var remote *transport.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, 404, remote.Status)
	assert.Equal(t, "Artist with ID missing not found", remote.Message)
}

func TestListingsIncludeRelations(t *testing.T) {
	ctx := context.Background()
	catalog := newCatalog(t)
	album := seedAlbum(t, catalog, 5)

	artists, err := commands.GetArtists.Send(ctx, catalog, commands.Empty{})
	require.NoError(t, err)
	require.Len(t, artists, 1)
	require.Len(t, artists[0].Albums, 1)
	assert.Equal(t, album.ID, artists[0].Albums[0].ID)

	albums, err := commands.GetAlbums.Send(ctx, catalog, commands.Empty{})
	require.NoError(t, err)
	require.NotNil(t, albums[0].Artist)
	assert.Equal(t, artists[0].ID, albums[0].Artist.ID)
}

func TestUpdates(t *testing.T) {
	ctx := context.Background()
	catalog := newCatalog(t)
	album := seedAlbum(t, catalog, 5)

	name := "Gustavo Cerati"
	artist, err := commands.UpdateArtist.Send(ctx, catalog, commands.UpdateArtistPayload{ID: album.ArtistID, Data: commands.ArtistPatch{Name: &name}})
	require.NoError(t, err)
	require.NotNil(t, artist)
	assert.Equal(t, name, artist.Name)
	assert.Equal(t, "AR", artist.Country)

	missing, err := commands.UpdateArtist.Send(ctx, catalog, commands.UpdateArtistPayload{ID: "nope", Data: commands.ArtistPatch{Name: &name}})
	require.NoError(t, err)
	assert.Nil(t, missing)

	price := 24.5
	updated, err := commands.UpdateAlbum.Send(ctx, catalog, commands.UpdateAlbumPayload{ID: album.ID, Data: commands.AlbumPatch{Price: &price}})
	require.NoError(t, err)
	assert.InDelta(t, 24.5, updated.Price, 1e-9)
	assert.Equal(t, album.Title, updated.Title)

	_, err = commands.UpdateAlbum.Send(ctx, catalog, commands.UpdateAlbumPayload{ID: "nope", Data: commands.AlbumPatch{Price: &price}})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	ghost := "ghost"
	_, err = commands.UpdateAlbum.Send(ctx, catalog, commands.UpdateAlbumPayload{ID: album.ID, Data: commands.AlbumPatch{ArtistID: &ghost}})
	var remote *transport.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "Artist with ID ghost not found", remote.Message)
}

func TestDeleteArtistCascades(t *testing.T) {
	ctx := context.Background()
	catalog := newCatalog(t)
	album := seedAlbum(t, catalog, 5)

	res, err := commands.DeleteArtist.Send(ctx, catalog, album.ArtistID)
	require.NoError(t, err)
	assert.True(t, res.Success)

	albums, err := commands.GetAlbums.Send(ctx, catalog, commands.Empty{})
	require.NoError(t, err)
	assert.Empty(t, albums)

	_, err = commands.DeleteArtist.Send(ctx, catalog, album.ArtistID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = commands.DeleteAlbum.Send(ctx, catalog, album.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
