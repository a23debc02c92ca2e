package rpc

import (
	"github.com/jcmexdev/disqueria/internal/catalog-service/app"
	"github.com/jcmexdev/disqueria/internal/catalog-service/domain"
	"github.com/jcmexdev/disqueria/internal/pkg/commands"
)

func artistToContract(a domain.Artist) commands.Artist {
	return commands.Artist{ID: a.ID, Name: a.Name, Country: a.Country}
}

func albumToContract(a domain.Album) commands.Album {
	return commands.Album{
		ID:       a.ID,
		Title:    a.Title,
		Year:     a.Year,
		Genre:    a.Genre,
		Price:    a.Price,
		Stock:    a.Stock,
		ArtistID: a.ArtistID,
	}
}

func albumWithArtistToContract(a app.AlbumWithArtist) commands.Album {
	out := albumToContract(a.Album)
	if a.Artist != nil {
		artist := artistToContract(*a.Artist)
		out.Artist = &artist
	}
	return out
}

func artistWithAlbumsToContract(a app.ArtistWithAlbums) commands.Artist {
	out := artistToContract(a.Artist)
	if len(a.Albums) > 0 {
		out.Albums = make([]commands.Album, len(a.Albums))
		for i, al := range a.Albums {
			out.Albums[i] = albumToContract(al)
		}
	}
	return out
}

func albumFromPayload(p commands.CreateAlbumPayload) domain.Album {
	return domain.Album{
		Title:    p.Title,
		Year:     p.Year,
		Genre:    p.Genre,
		Price:    p.Price,
		Stock:    p.Stock,
		ArtistID: p.ArtistID,
	}
}

func albumChangesFromPatch(p commands.AlbumPatch) domain.AlbumChanges {
	return domain.AlbumChanges{
		Title:    p.Title,
		Year:     p.Year,
		Genre:    p.Genre,
		Price:    p.Price,
		Stock:    p.Stock,
		ArtistID: p.ArtistID,
	}
}
