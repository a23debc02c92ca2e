// Package rpc exposes the catalog use cases as commands.
package rpc

import (
	"context"

	"github.com/jcmexdev/disqueria/internal/catalog-service/app"
	"github.com/jcmexdev/disqueria/internal/catalog-service/domain"
	"github.com/jcmexdev/disqueria/internal/pkg/commands"
	"github.com/jcmexdev/disqueria/internal/pkg/transport"
)

type Handlers struct {
	svc *app.Service
}

func NewHandlers(svc *app.Service) *Handlers {
	return &Handlers{svc: svc}
}

// Registry builds the catalog service's command registry.
func (h *Handlers) Registry() (*transport.Registry, error) {
	return transport.NewRegistry(
		commands.GetArtists.Route(h.getArtists),
		commands.CreateArtist.Route(h.createArtist),
		commands.GetAlbums.Route(h.getAlbums),
		commands.CreateAlbum.Route(h.createAlbum),
		commands.UpdateArtist.Route(h.updateArtist),
		commands.DeleteArtist.Route(h.deleteArtist),
		commands.UpdateAlbum.Route(h.updateAlbum),
		commands.DeleteAlbum.Route(h.deleteAlbum),
		commands.DecreaseStock.Route(h.decreaseStock),
		commands.IncreaseStock.Route(h.increaseStock),
	)
}

func (h *Handlers) getArtists(ctx context.Context, _ commands.Empty) ([]commands.Artist, error) {
	artists, err := h.svc.ListArtists(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]commands.Artist, len(artists))
	for i, a := range artists {
		out[i] = artistWithAlbumsToContract(a)
	}
	return out, nil
}

func (h *Handlers) createArtist(ctx context.Context, p commands.CreateArtistPayload) (commands.Artist, error) {
	artist, err := h.svc.CreateArtist(ctx, p.Name, p.Country)
	if err != nil {
		return commands.Artist{}, err
	}
	return artistToContract(artist), nil
}

func (h *Handlers) getAlbums(ctx context.Context, _ commands.Empty) ([]commands.Album, error) {
	albums, err := h.svc.ListAlbums(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]commands.Album, len(albums))
	for i, a := range albums {
		out[i] = albumWithArtistToContract(a)
	}
	return out, nil
}

func (h *Handlers) createAlbum(ctx context.Context, p commands.CreateAlbumPayload) (commands.Album, error) {
	album, err := h.svc.CreateAlbum(ctx, albumFromPayload(p))
	if err != nil {
		return commands.Album{}, err
	}
	return albumWithArtistToContract(album), nil
}

func (h *Handlers) updateArtist(ctx context.Context, p commands.UpdateArtistPayload) (*commands.Artist, error) {
	artist, err := h.svc.UpdateArtist(ctx, p.ID, domain.ArtistChanges{Name: p.Data.Name, Country: p.Data.Country})
	if err != nil || artist == nil {
		return nil, err
	}
	out := artistToContract(*artist)
	return &out, nil
}

func (h *Handlers) deleteArtist(ctx context.Context, id string) (commands.DeleteResult, error) {
	msg, err := h.svc.DeleteArtist(ctx, id)
	if err != nil {
		return commands.DeleteResult{}, err
	}
	return commands.DeleteResult{Success: true, Message: msg}, nil
}

func (h *Handlers) updateAlbum(ctx context.Context, p commands.UpdateAlbumPayload) (commands.Album, error) {
	album, err := h.svc.UpdateAlbum(ctx, p.ID, albumChangesFromPatch(p.Data))
	if err != nil {
		return commands.Album{}, err
	}
	return albumWithArtistToContract(album), nil
}

func (h *Handlers) deleteAlbum(ctx context.Context, id string) (commands.DeleteResult, error) {
	msg, err := h.svc.DeleteAlbum(ctx, id)
	if err != nil {
		return commands.DeleteResult{}, err
	}
	return commands.DeleteResult{Success: true, Message: msg}, nil
}

func (h *Handlers) decreaseStock(ctx context.Context, p commands.StockPayload) (commands.Album, error) {
	album, err := h.svc.DecreaseStock(ctx, p.ID, p.Quantity)
	if err != nil {
		return commands.Album{}, err
	}
	return albumWithArtistToContract(album), nil
}

func (h *Handlers) increaseStock(ctx context.Context, p commands.StockPayload) (commands.Album, error) {
	album, err := h.svc.IncreaseStock(ctx, p.ID, p.Quantity)
	if err != nil {
		return commands.Album{}, err
	}
	return albumWithArtistToContract(album), nil
}
