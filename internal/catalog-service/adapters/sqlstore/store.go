// Package sqlstore is the SQL implementation of the catalog Store.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/jcmexdev/disqueria/internal/catalog-service/domain"
	"github.com/jcmexdev/disqueria/internal/pkg/database"
)

var Schema = []string{
	`CREATE TABLE IF NOT EXISTS artists (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		country     TEXT NOT NULL DEFAULT '',
		created_at  TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS albums (
		id          TEXT PRIMARY KEY,
		title       TEXT NOT NULL,
		year        INTEGER NOT NULL DEFAULT 0,
		genre       TEXT NOT NULL DEFAULT '',
		price       DOUBLE PRECISION NOT NULL DEFAULT 0,
		stock       INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
		artist_id   TEXT NOT NULL REFERENCES artists(id) ON DELETE CASCADE,
		created_at  TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_albums_artist_id ON albums(artist_id)`,
}

type Store struct {
	db *sqlx.DB
}

// New applies Schema and returns a Store on db.
func New(ctx context.Context, db *sqlx.DB) (*Store, error) {
	if err := database.Migrate(ctx, db, Schema...); err != nil {
		return nil, fmt.Errorf("catalog store: %w", err)
	}
	return &Store{db: db}, nil
}

type artistRow struct {
	ID        string `db:"id"`
	Name      string `db:"name"`
	Country   string `db:"country"`
	CreatedAt string `db:"created_at"`
}

func (r artistRow) toDomain() (domain.Artist, error) {
	createdAt, err := database.ParseTime(r.CreatedAt)
	if err != nil {
		return domain.Artist{}, err
	}
	return domain.Artist{ID: r.ID, Name: r.Name, Country: r.Country, CreatedAt: createdAt}, nil
}

type albumRow struct {
	ID        string  `db:"id"`
	Title     string  `db:"title"`
	Year      int     `db:"year"`
	Genre     string  `db:"genre"`
	Price     float64 `db:"price"`
	Stock     int     `db:"stock"`
	ArtistID  string  `db:"artist_id"`
	CreatedAt string  `db:"created_at"`
}

func (r albumRow) toDomain() (domain.Album, error) {
	createdAt, err := database.ParseTime(r.CreatedAt)
	if err != nil {
		return domain.Album{}, err
	}
	return domain.Album{
		ID:        r.ID,
		Title:     r.Title,
		Year:      r.Year,
		Genre:     r.Genre,
		Price:     r.Price,
		Stock:     r.Stock,
		ArtistID:  r.ArtistID,
		CreatedAt: createdAt,
	}, nil
}

const (
	artistColumns = `id, name, country, created_at`
	albumColumns  = `id, title, year, genre, price, stock, artist_id, created_at`
)

func (s *Store) ListArtists(ctx context.Context) ([]domain.Artist, error) {
	var rows []artistRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+artistColumns+` FROM artists ORDER BY created_at, id`); err != nil {
		return nil, fmt.Errorf("list artists: %w", err)
	}
	out := make([]domain.Artist, 0, len(rows))
	for _, r := range rows {
		a, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *Store) ListAlbums(ctx context.Context) ([]domain.Album, error) {
	var rows []albumRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+albumColumns+` FROM albums ORDER BY created_at, id`); err != nil {
		return nil, fmt.Errorf("list albums: %w", err)
	}
	out := make([]domain.Album, 0, len(rows))
	for _, r := range rows {
		a, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *Store) GetArtist(ctx context.Context, id string) (domain.Artist, error) {
	var row artistRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT `+artistColumns+` FROM artists WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Artist{}, domain.ErrArtistNotFound
	}
	if err != nil {
		return domain.Artist{}, fmt.Errorf("get artist %s: %w", id, err)
	}
	return row.toDomain()
}

func (s *Store) GetAlbum(ctx context.Context, id string) (domain.Album, error) {
	return s.getAlbum(ctx, s.db, id)
}

func (s *Store) getAlbum(ctx context.Context, q sqlx.QueryerContext, id string) (domain.Album, error) {
	var row albumRow
	err := sqlx.GetContext(ctx, q, &row, s.db.Rebind(`SELECT `+albumColumns+` FROM albums WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Album{}, domain.ErrAlbumNotFound
	}
	if err != nil {
		return domain.Album{}, fmt.Errorf("get album %s: %w", id, err)
	}
	return row.toDomain()
}

func (s *Store) CreateArtist(ctx context.Context, a domain.Artist) error {
	_, err := s.db.ExecContext(ctx,
		s.db.Rebind(`INSERT INTO artists (`+artistColumns+`) VALUES (?, ?, ?, ?)`),
		a.ID, a.Name, a.Country, database.FormatTime(a.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("create artist: %w", err)
	}
	return nil
}

func (s *Store) CreateAlbum(ctx context.Context, a domain.Album) error {
	_, err := s.db.ExecContext(ctx,
		s.db.Rebind(`INSERT INTO albums (`+albumColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		a.ID, a.Title, a.Year, a.Genre, a.Price, a.Stock, a.ArtistID, database.FormatTime(a.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("create album: %w", err)
	}
	return nil
}

// setClause collects "column = ?" assignments for a partial update.
type setClause struct {
	cols []string
	args []any
}

func (c *setClause) add(col string, v any) {
	c.cols = append(c.cols, col+" = ?")
	c.args = append(c.args, v)
}

func (s *Store) update(ctx context.Context, table, id string, set setClause, notFound error) error {
	if len(set.cols) == 0 {
		var n int
		if err := s.db.GetContext(ctx, &n, s.db.Rebind(`SELECT COUNT(*) FROM `+table+` WHERE id = ?`), id); err != nil {
			return fmt.Errorf("update %s %s: %w", table, id, err)
		}
		if n == 0 {
			return notFound
		}
		return nil
	}

	q := s.db.Rebind(`UPDATE ` + table + ` SET ` + strings.Join(set.cols, ", ") + ` WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, q, append(set.args, id)...)
	if err != nil {
		return fmt.Errorf("update %s %s: %w", table, id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound
	}
	return nil
}

func (s *Store) UpdateArtist(ctx context.Context, id string, c domain.ArtistChanges) error {
	var set setClause
	if c.Name != nil {
		set.add("name", *c.Name)
	}
	if c.Country != nil {
		set.add("country", *c.Country)
	}
	return s.update(ctx, "artists", id, set, domain.ErrArtistNotFound)
}

func (s *Store) UpdateAlbum(ctx context.Context, id string, c domain.AlbumChanges) error {
	var set setClause
	if c.Title != nil {
		set.add("title", *c.Title)
	}
	if c.Year != nil {
		set.add("year", *c.Year)
	}
	if c.Genre != nil {
		set.add("genre", *c.Genre)
	}
	if c.Price != nil {
		set.add("price", *c.Price)
	}
	if c.Stock != nil {
		set.add("stock", *c.Stock)
	}
	if c.ArtistID != nil {
		set.add("artist_id", *c.ArtistID)
	}
	return s.update(ctx, "albums", id, set, domain.ErrAlbumNotFound)
}

// DeleteArtist removes the artist's albums explicitly in the same
// transaction, so the cascade holds even where foreign keys are off.
func (s *Store) DeleteArtist(ctx context.Context, id string) error {
	return database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, s.db.Rebind(`DELETE FROM albums WHERE artist_id = ?`), id); err != nil {
			return fmt.Errorf("delete albums of artist %s: %w", id, err)
		}
		res, err := tx.ExecContext(ctx, s.db.Rebind(`DELETE FROM artists WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("delete artist %s: %w", id, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return domain.ErrArtistNotFound
		}
		return nil
	})
}

func (s *Store) DeleteAlbum(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM albums WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete album %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrAlbumNotFound
	}
	return nil
}

func (s *Store) DecreaseStock(ctx context.Context, id string, quantity int) (domain.Album, error) {
	var album domain.Album
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			s.db.Rebind(`UPDATE albums SET stock = stock - ? WHERE id = ? AND stock >= ?`),
			quantity, id, quantity,
		)
		if err != nil {
			return fmt.Errorf("decrease stock of %s: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("decrease stock of %s: %w", id, err)
		}

		current, err := s.getAlbum(ctx, tx, id)
		if err != nil {
			return err
		}
		if n == 0 {
			return &domain.InsufficientStockError{AlbumID: id, Available: current.Stock}
		}
		album = current
		return nil
	})
	return album, err
}

func (s *Store) IncreaseStock(ctx context.Context, id string, quantity int) (domain.Album, error) {
	var album domain.Album
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, s.db.Rebind(`UPDATE albums SET stock = stock + ? WHERE id = ?`), quantity, id)
		if err != nil {
			return fmt.Errorf("increase stock of %s: %w", id, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return domain.ErrAlbumNotFound
		}
		album, err = s.getAlbum(ctx, tx, id)
		return err
	})
	return album, err
}
