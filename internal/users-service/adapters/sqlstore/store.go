// Package sqlstore is the SQL implementation of the users Store.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/jcmexdev/disqueria/internal/pkg/database"
	"github.com/jcmexdev/disqueria/internal/users-service/domain"
)

var Schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id             TEXT PRIMARY KEY,
		email          TEXT NOT NULL UNIQUE,
		name           TEXT NOT NULL DEFAULT '',
		password_hash  TEXT NOT NULL,
		created_at     TEXT NOT NULL
	)`,
}

type Store struct {
	db *sqlx.DB
}

func New(ctx context.Context, db *sqlx.DB) (*Store, error) {
	if err := database.Migrate(ctx, db, Schema...); err != nil {
		return nil, fmt.Errorf("users store: %w", err)
	}
	return &Store{db: db}, nil
}

type userRow struct {
	ID           string `db:"id"`
	Email        string `db:"email"`
	Name         string `db:"name"`
	PasswordHash string `db:"password_hash"`
	CreatedAt    string `db:"created_at"`
}

func (s *Store) Create(ctx context.Context, u domain.User) error {
	_, err := s.db.ExecContext(ctx,
		s.db.Rebind(`INSERT INTO users (id, email, name, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`),
		u.ID, u.Email, u.Name, u.PasswordHash, database.FormatTime(u.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *Store) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row,
		s.db.Rebind(`SELECT id, email, name, password_hash, created_at FROM users WHERE email = ?`), email)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}

	createdAt, err := database.ParseTime(row.CreatedAt)
	if err != nil {
		return domain.User{}, err
	}
	return domain.User{
		ID:           row.ID,
		Email:        row.Email,
		Name:         row.Name,
		PasswordHash: row.PasswordHash,
		CreatedAt:    createdAt,
	}, nil
}

// isUniqueViolation matches the messages of both supported drivers.
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "SQLSTATE 23505")
}
