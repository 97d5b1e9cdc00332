// Package library persists the device's content library and favorites.
// The session core never touches this storage; the HTTP API reads it to
// drive the content picker and feeds selections into the reconciler.
package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/bholsinger09/layover/internal/domain"
)

var ErrContentNotFound = errors.New("content not found")

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS content (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			kind TEXT NOT NULL,
			url TEXT NOT NULL DEFAULT '',
			favorite INTEGER NOT NULL DEFAULT 0,
			added_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`)
	if err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Add inserts content; re-adding an existing id refreshes its metadata
// but keeps the favorite flag.
func (s *Store) Add(ctx context.Context, c domain.MediaContent) error {
	if err := c.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO content (id, title, kind, url) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET title = excluded.title, kind = excluded.kind, url = excluded.url`,
		string(c.ID), c.Title, string(c.Kind), c.URL)
	return err
}

func (s *Store) Get(ctx context.Context, id domain.ContentID) (domain.MediaContent, error) {
	var c domain.MediaContent
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, kind, url FROM content WHERE id = ?`, string(id)).
		Scan(&c.ID, &c.Title, &c.Kind, &c.URL)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.MediaContent{}, ErrContentNotFound
	}
	if err != nil {
		return domain.MediaContent{}, err
	}
	return c, nil
}

func (s *Store) List(ctx context.Context) ([]domain.MediaContent, error) {
	return s.query(ctx, `SELECT id, title, kind, url FROM content ORDER BY added_at, id`)
}

func (s *Store) Favorites(ctx context.Context) ([]domain.MediaContent, error) {
	return s.query(ctx, `SELECT id, title, kind, url FROM content WHERE favorite = 1 ORDER BY added_at, id`)
}

func (s *Store) SetFavorite(ctx context.Context, id domain.ContentID, favorite bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE content SET favorite = ? WHERE id = ?`, boolToInt(favorite), string(id))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrContentNotFound
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, id domain.ContentID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM content WHERE id = ?`, string(id))
	return err
}

func (s *Store) query(ctx context.Context, q string) ([]domain.MediaContent, error) {
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.MediaContent
	for rows.Next() {
		var c domain.MediaContent
		if err := rows.Scan(&c.ID, &c.Title, &c.Kind, &c.URL); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
