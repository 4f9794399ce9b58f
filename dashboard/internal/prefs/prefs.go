// Package prefs persists the dashboard user's preferences across restarts.
package prefs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/farmdash/currency"
	"github.com/hazyhaar/farmdash/dbopen"
)

// Schema is the preferences table. Values are stored as text.
const Schema = `
CREATE TABLE IF NOT EXISTS preferences (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);`

const (
	keyCurrency   = "preferred_currency"
	keyLastFilter = "last_filter"
)

// Store reads and writes preferences.
type Store struct {
	DB *sql.DB
}

// Open opens the preferences database at path, creating it if needed.
func Open(path string) (*Store, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(Schema))
	if err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}

// Get returns the value for key, or "" with ok false when unset.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.DB.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("prefs: get %s: %w", key, err)
	}
	return v, true, nil
}

// Set stores value under key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	err := dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			key, value, time.Now().UnixMilli())
		return err
	})
	if err != nil {
		return fmt.Errorf("prefs: set %s: %w", key, err)
	}
	return nil
}

// PreferredCurrency returns the saved display currency. An unset or
// unrecognised value yields currency.Default.
func (s *Store) PreferredCurrency(ctx context.Context) (currency.Currency, error) {
	v, ok, err := s.Get(ctx, keyCurrency)
	if err != nil || !ok {
		return currency.Default, err
	}
	c, err := currency.Parse(v)
	if err != nil {
		return currency.Default, nil
	}
	return c, nil
}

// SetPreferredCurrency saves the display currency.
func (s *Store) SetPreferredCurrency(ctx context.Context, c currency.Currency) error {
	parsed, err := currency.Parse(string(c))
	if err != nil {
		return err
	}
	return s.Set(ctx, keyCurrency, string(parsed))
}

// LastFilter returns the filter that was active when the dashboard last
// changed it, or "".
func (s *Store) LastFilter(ctx context.Context) (string, error) {
	v, _, err := s.Get(ctx, keyLastFilter)
	return v, err
}

// SetLastFilter records the active filter; "" records that none is active.
func (s *Store) SetLastFilter(ctx context.Context, filterID string) error {
	return s.Set(ctx, keyLastFilter, filterID)
}
