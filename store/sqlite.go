/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLite keeps documents as JSON bodies keyed by (collection, key).
type SQLite struct {
	db *sql.DB
}

func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	p := filepath.Clean(strings.TrimSpace(path))
	if p == "" || p == "." {
		return nil, errors.New("missing db path")
	}

	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		_ = db.Close()

		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &SQLite{db: db}, nil
}

func initSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode=WAL;`); err != nil {
		return fmt.Errorf("pragma journal_mode: %w", err)
	}

	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout=3000;`); err != nil {
		return fmt.Errorf("pragma busy_timeout: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			collection TEXT NOT NULL,
			key TEXT NOT NULL,
			body TEXT NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (collection, key)
		)
	`); err != nil {
		return fmt.Errorf("create documents: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			attrs TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("create events: %w", err)
	}

	return nil
}

func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}

	return s.db.Close()
}

func (s *SQLite) LogEvent(ctx context.Context, name string, attrs Fields) error {
	raw, err := json.Marshal(attrs)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO events (name, attrs, created_at) VALUES (?, ?, ?)`,
		name, string(raw), time.Now().UnixMilli(),
	)

	return err
}

// CountEvents returns how many events with the given name were logged.
func (s *SQLite) CountEvents(ctx context.Context, name string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE name = ?`, name).Scan(&n)

	return n, err
}

func (s *SQLite) put(ctx context.Context, q interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}, collection, key string, doc Fields) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO documents (collection, key, body, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (collection, key) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at
	`, collection, key, string(raw), time.Now().UnixMilli())

	return err
}

func (s *SQLite) AddRecord(ctx context.Context, collection string, fields Fields) (string, error) {
	id := uuid.NewString()

	doc := fields.clone()
	doc["timestamp"] = time.Now().UnixMilli()

	if err := s.put(ctx, s.db, collection, id, doc); err != nil {
		return "", err
	}

	return id, nil
}

func (s *SQLite) GetByKey(ctx context.Context, collection, key string) (Fields, bool, error) {
	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE collection = ? AND key = ?`,
		collection, key,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	doc := Fields{}
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, false, err
	}

	return doc, true, nil
}

func (s *SQLite) IncrementCounter(ctx context.Context, collection, key, field string, delta int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	doc := Fields{}

	var body string
	err = tx.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE collection = ? AND key = ?`,
		collection, key,
	).Scan(&body)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return err
	default:
		if err := json.Unmarshal([]byte(body), &doc); err != nil {
			return err
		}
	}

	doc[field] = doc.Int(field) + delta

	if err := s.put(ctx, tx, collection, key, doc); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLite) QueryAll(ctx context.Context, collection string, filter Filter) ([]Fields, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, body FROM documents WHERE collection = ? ORDER BY key`,
		collection,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Fields
	for rows.Next() {
		var key, body string
		if err := rows.Scan(&key, &body); err != nil {
			return nil, err
		}

		doc := Fields{}
		if err := json.Unmarshal([]byte(body), &doc); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", collection, key, err)
		}

		if !filter.match(key, doc) {
			continue
		}

		doc["id"] = key
		out = append(out, doc)
	}

	return out, rows.Err()
}
