package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/disqueria/internal/pkg/apperr"
	"github.com/jcmexdev/disqueria/internal/pkg/transport"
)

func TestTypedRoundTrip(t *testing.T) {
	var got StockPayload
	reg, err := transport.NewRegistry(
		DecreaseStock.Route(func(_ context.Context, p StockPayload) (Album, error) {
			got = p
			return Album{ID: p.ID, Stock: 3}, nil
		}),
		FindUser.Route(func(context.Context, string) (*User, error) {
			return nil, nil
		}),
	)
	require.NoError(t, err)
	local := transport.NewLocal(reg)
	ctx := context.Background()

	album, err := DecreaseStock.Send(ctx, local, StockPayload{ID: "a1", Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, StockPayload{ID: "a1", Quantity: 2}, got)
	assert.Equal(t, 3, album.Stock)

	user, err := FindUser.Send(ctx, local, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestMalformedPayloadIsValidationError(t *testing.T) {
	called := false
	reg, err := transport.NewRegistry(DecreaseStock.Route(func(context.Context, StockPayload) (Album, error) {
		called = true
		return Album{}, nil
	}))
	require.NoError(t, err)

	// quantity as a string does not decode into StockPayload.
	_, err = transport.NewLocal(reg).Send(context.Background(), DecreaseStock.Name, map[string]string{"id": "a1", "quantity": "two"})

	assert.False(t, called)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	var remote *transport.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, 400, remote.Status)
}

func TestCommandNamesAreUnique(t *testing.T) {
	names := []string{
		GetArtists.Name, CreateArtist.Name, GetAlbums.Name, CreateAlbum.Name,
		UpdateArtist.Name, DeleteArtist.Name, UpdateAlbum.Name, DeleteAlbum.Name,
		DecreaseStock.Name, IncreaseStock.Name,
		CreateUser.Name, FindUser.Name, ValidateUser.Name,
		CreateOrder.Name, GetUserOrders.Name,
	}
	seen := map[string]bool{}
	for _, n := range names {
		assert.False(t, seen[n], "duplicate command %q", n)
		seen[n] = true
	}
}
