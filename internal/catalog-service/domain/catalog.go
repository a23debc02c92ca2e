package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrArtistNotFound = errors.New("artist not found")
	ErrAlbumNotFound  = errors.New("album not found")
)

// InsufficientStockError is returned when a decrement would take an
// album's stock below zero. The stock is left unchanged.
type InsufficientStockError struct {
	AlbumID   string
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("album %s has %d in stock", e.AlbumID, e.Available)
}

type Artist struct {
	ID        string
	Name      string
	Country   string
	CreatedAt time.Time
}

type Album struct {
	ID        string
	Title     string
	Year      int
	Genre     string
	Price     float64
	Stock     int
	ArtistID  string
	CreatedAt time.Time
}

// ArtistChanges and AlbumChanges carry the fields to update; nil fields are
// left alone.
type ArtistChanges struct {
	Name    *string
	Country *string
}

func (c ArtistChanges) Empty() bool { return c.Name == nil && c.Country == nil }

type AlbumChanges struct {
	Title    *string
	Year     *int
	Genre    *string
	Price    *float64
	Stock    *int
	ArtistID *string
}

func (c AlbumChanges) Empty() bool {
	return c.Title == nil && c.Year == nil && c.Genre == nil && c.Price == nil && c.Stock == nil && c.ArtistID == nil
}

// Store persists the catalog. Lookups of missing records return
// ErrArtistNotFound or ErrAlbumNotFound.
type Store interface {
	ListArtists(ctx context.Context) ([]Artist, error)
	ListAlbums(ctx context.Context) ([]Album, error)
	GetArtist(ctx context.Context, id string) (Artist, error)
	GetAlbum(ctx context.Context, id string) (Album, error)

	CreateArtist(ctx context.Context, a Artist) error
	CreateAlbum(ctx context.Context, a Album) error
	UpdateArtist(ctx context.Context, id string, c ArtistChanges) error
	UpdateAlbum(ctx context.Context, id string, c AlbumChanges) error

	// DeleteArtist removes the artist together with its albums.
	DeleteArtist(ctx context.Context, id string) error
	DeleteAlbum(ctx context.Context, id string) error

	// DecreaseStock subtracts quantity as one conditional update, so
	// concurrent decrements on the same album can never oversell. It
	// returns *InsufficientStockError when stock < quantity.
	DecreaseStock(ctx context.Context, id string, quantity int) (Album, error)
	IncreaseStock(ctx context.Context, id string, quantity int) (Album, error)
}
