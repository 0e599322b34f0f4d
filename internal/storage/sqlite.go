package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/guilhermegouw/voxchat/internal/db"
)

// opTimeout bounds a single key/value operation against SQLite.
const opTimeout = 5 * time.Second

// SQLite implements Storage on the kv table of a migrated database.
type SQLite struct {
	db *db.DB
}

// NewSQLite wraps an open database.
func NewSQLite(database *db.DB) *SQLite {
	return &SQLite{db: database}
}

// Get implements Storage.
func (s *SQLite) Get(key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("reading key %q: %w", key, err)
	}
	return value, true, nil
}

// Set implements Storage.
func (s *SQLite) Set(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("writing key %q: %w", key, err)
	}
	return nil
}

// Remove implements Storage.
func (s *SQLite) Remove(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("removing key %q: %w", key, err)
	}
	return nil
}

// RemoveAll implements Sweeper. Either every key is removed or none is.
func (s *SQLite) RemoveAll(keys []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `DELETE FROM kv WHERE key = ?`)
		if err != nil {
			return fmt.Errorf("preparing sweep: %w", err)
		}
		defer stmt.Close()
		for _, k := range keys {
			if _, err := stmt.ExecContext(ctx, k); err != nil {
				return fmt.Errorf("removing key %q: %w", k, err)
			}
		}
		return nil
	})
}

// keysInRange is a prefix scan as a range over the primary key, so it is
// served by the key index and stays case-sensitive.
const keysInRange = `SELECT key FROM kv WHERE key >= ? AND key < ? ORDER BY key`

// Keys implements Lister.
func (s *SQLite) Keys(prefix string) ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	query, args := `SELECT key FROM kv ORDER BY key`, []any(nil)
	if end := prefixEnd(prefix); end != "" {
		query, args = keysInRange, []any{prefix, end}
	} else if prefix != "" {
		query, args = `SELECT key FROM kv WHERE key >= ? ORDER BY key`, []any{prefix}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scanning key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing keys: %w", err)
	}
	return keys, nil
}

// prefixEnd returns the smallest string greater than every string starting
// with prefix, or "" when there is none.
func prefixEnd(prefix string) string {
	b := []byte(prefix)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 0xff {
			b[i]++
			return string(b[:i+1])
		}
	}
	return ""
}
