// Package app holds the catalog use cases: artist and album management and
// the stock counter that order placement decrements.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jcmexdev/disqueria/internal/catalog-service/domain"
	"github.com/jcmexdev/disqueria/internal/pkg/apperr"
)

// ArtistWithAlbums is an artist plus every album that references it.
type ArtistWithAlbums struct {
	domain.Artist
	Albums []domain.Album
}

// AlbumWithArtist is an album plus its artist, when the artist still exists.
type AlbumWithArtist struct {
	domain.Album
	Artist *domain.Artist
}

type Service struct {
	store domain.Store
	now   func() time.Time
}

func NewService(store domain.Store) *Service {
	return &Service{store: store, now: time.Now}
}

func (s *Service) ListArtists(ctx context.Context) ([]ArtistWithAlbums, error) {
	artists, err := s.store.ListArtists(ctx)
	if err != nil {
		return nil, err
	}
	albums, err := s.store.ListAlbums(ctx)
	if err != nil {
		return nil, err
	}

	byArtist := make(map[string][]domain.Album, len(artists))
	for _, al := range albums {
		byArtist[al.ArtistID] = append(byArtist[al.ArtistID], al)
	}

	out := make([]ArtistWithAlbums, len(artists))
	for i, a := range artists {
		out[i] = ArtistWithAlbums{Artist: a, Albums: byArtist[a.ID]}
	}
	return out, nil
}

func (s *Service) ListAlbums(ctx context.Context) ([]AlbumWithArtist, error) {
	artists, err := s.store.ListArtists(ctx)
	if err != nil {
		return nil, err
	}
	albums, err := s.store.ListAlbums(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*domain.Artist, len(artists))
	for i := range artists {
		byID[artists[i].ID] = &artists[i]
	}

	out := make([]AlbumWithArtist, len(albums))
	for i, al := range albums {
		out[i] = AlbumWithArtist{Album: al, Artist: byID[al.ArtistID]}
	}
	return out, nil
}

func (s *Service) CreateArtist(ctx context.Context, name, country string) (domain.Artist, error) {
	if strings.TrimSpace(name) == "" {
		return domain.Artist{}, apperr.Validation("name is required")
	}

	artist := domain.Artist{
		ID:        uuid.NewString(),
		Name:      name,
		Country:   country,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreateArtist(ctx, artist); err != nil {
		return domain.Artist{}, err
	}
	slog.InfoContext(ctx, "artist created", "artist_id", artist.ID)
	return artist, nil
}

// CreateAlbum requires the referenced artist to exist.
func (s *Service) CreateAlbum(ctx context.Context, album domain.Album) (AlbumWithArtist, error) {
	if strings.TrimSpace(album.Title) == "" {
		return AlbumWithArtist{}, apperr.Validation("title is required")
	}
	if album.ArtistID == "" {
		return AlbumWithArtist{}, apperr.Validation("artistId is required")
	}
	if album.Price < 0 || album.Stock < 0 {
		return AlbumWithArtist{}, apperr.Validation("price and stock must not be negative")
	}

	artist, err := s.store.GetArtist(ctx, album.ArtistID)
	if err != nil {
		return AlbumWithArtist{}, s.translate(err, album.ArtistID)
	}

	album.ID = uuid.NewString()
	album.CreatedAt = s.now().UTC()
	if err := s.store.CreateAlbum(ctx, album); err != nil {
		return AlbumWithArtist{}, err
	}
	slog.InfoContext(ctx, "album created", "album_id", album.ID, "artist_id", artist.ID, "stock", album.Stock)
	return AlbumWithArtist{Album: album, Artist: &artist}, nil
}

// UpdateArtist returns the refreshed artist, or nil when it does not exist.
func (s *Service) UpdateArtist(ctx context.Context, id string, changes domain.ArtistChanges) (*domain.Artist, error) {
	if changes.Name != nil && strings.TrimSpace(*changes.Name) == "" {
		return nil, apperr.Validation("name must not be empty")
	}
	err := s.store.UpdateArtist(ctx, id, changes)
	if errors.Is(err, domain.ErrArtistNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	artist, err := s.store.GetArtist(ctx, id)
	if errors.Is(err, domain.ErrArtistNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &artist, nil
}

// UpdateAlbum fails with NotFound for a missing album or a missing new artist.
func (s *Service) UpdateAlbum(ctx context.Context, id string, changes domain.AlbumChanges) (AlbumWithArtist, error) {
	if (changes.Price != nil && *changes.Price < 0) || (changes.Stock != nil && *changes.Stock < 0) {
		return AlbumWithArtist{}, apperr.Validation("price and stock must not be negative")
	}
	if changes.ArtistID != nil {
		if _, err := s.store.GetArtist(ctx, *changes.ArtistID); err != nil {
			return AlbumWithArtist{}, s.translate(err, *changes.ArtistID)
		}
	}
	if err := s.store.UpdateAlbum(ctx, id, changes); err != nil {
		return AlbumWithArtist{}, s.translate(err, id)
	}
	return s.albumWithArtist(ctx, id)
}

func (s *Service) DeleteArtist(ctx context.Context, id string) (string, error) {
	if err := s.store.DeleteArtist(ctx, id); err != nil {
		return "", s.translate(err, id)
	}
	slog.InfoContext(ctx, "artist deleted", "artist_id", id)
	return fmt.Sprintf("Artist with ID %s deleted", id), nil
}

func (s *Service) DeleteAlbum(ctx context.Context, id string) (string, error) {
	if err := s.store.DeleteAlbum(ctx, id); err != nil {
		return "", s.translate(err, id)
	}
	slog.InfoContext(ctx, "album deleted", "album_id", id)
	return fmt.Sprintf("Album with ID %s deleted", id), nil
}

// DecreaseStock takes quantity units of an album. It is the only path that
// lowers stock, and it never lets stock go negative.
func (s *Service) DecreaseStock(ctx context.Context, id string, quantity int) (AlbumWithArtist, error) {
	if id == "" {
		return AlbumWithArtist{}, apperr.Validation("id is required")
	}
	if quantity < 1 {
		return AlbumWithArtist{}, apperr.Validation("quantity must be at least 1")
	}

	album, err := s.store.DecreaseStock(ctx, id, quantity)
	if err != nil {
		return AlbumWithArtist{}, s.translate(err, id)
	}
	slog.InfoContext(ctx, "stock decreased", "album_id", id, "quantity", quantity, "stock", album.Stock)
	return s.attachArtist(ctx, album)
}

// IncreaseStock returns units taken by DecreaseStock.
func (s *Service) IncreaseStock(ctx context.Context, id string, quantity int) (AlbumWithArtist, error) {
	if id == "" {
		return AlbumWithArtist{}, apperr.Validation("id is required")
	}
	if quantity < 1 {
		return AlbumWithArtist{}, apperr.Validation("quantity must be at least 1")
	}

	album, err := s.store.IncreaseStock(ctx, id, quantity)
	if err != nil {
		return AlbumWithArtist{}, s.translate(err, id)
	}
	slog.InfoContext(ctx, "stock restored", "album_id", id, "quantity", quantity, "stock", album.Stock)
	return s.attachArtist(ctx, album)
}

func (s *Service) albumWithArtist(ctx context.Context, id string) (AlbumWithArtist, error) {
	album, err := s.store.GetAlbum(ctx, id)
	if err != nil {
		return AlbumWithArtist{}, s.translate(err, id)
	}
	return s.attachArtist(ctx, album)
}

func (s *Service) attachArtist(ctx context.Context, album domain.Album) (AlbumWithArtist, error) {
	artist, err := s.store.GetArtist(ctx, album.ArtistID)
	if errors.Is(err, domain.ErrArtistNotFound) {
		return AlbumWithArtist{Album: album}, nil
	}
	if err != nil {
		return AlbumWithArtist{}, err
	}
	return AlbumWithArtist{Album: album, Artist: &artist}, nil
}

// translate maps store errors onto the shared taxonomy. id names the record
// the failing lookup was for.
func (s *Service) translate(err error, id string) error {
	var short *domain.InsufficientStockError
	switch {
	case errors.As(err, &short):
		return apperr.InsufficientStock(short.AlbumID, short.Available)
	case errors.Is(err, domain.ErrArtistNotFound):
		return apperr.NotFound("Artist with ID %s not found", id)
	case errors.Is(err, domain.ErrAlbumNotFound):
		return apperr.NotFound("Album with ID %s not found", id)
	default:
		return err
	}
}
