// Copyright 2020 Daniel Erat <dan@erat.org>.
// All rights reserved.

// Package cache persists per-location estimates in an SQLite database so that
// restarts and reloads of an unchanged dataset don't redo the convolutions.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang/snappy"
	_ "modernc.org/sqlite"

	"github.com/derat/covidtraj/infect"
)

// ErrMiss is returned by Get when no entry exists for a key.
var ErrMiss = errors.New("cache miss")

// Cache stores infect.Results keyed by Key.
// It is safe for concurrent use.
type Cache struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Cache, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cache: open %v: %w", path, err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS estimates (
			key TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			created_at INTEGER NOT NULL
		)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: create schema: %w", err)
	}
	return &Cache{db: db, now: time.Now}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error { return c.db.Close() }

// Key returns the cache key for the estimate of location's series in the
// dataset identified by digest, computed with the supplied model.
func Key(digest, location string, p infect.Params, horizon int) string {
	h := sha256.New()
	for _, s := range []string{
		digest,
		location,
		strconv.FormatFloat(p.KR, 'g', -1, 64),
		strconv.FormatFloat(p.ThetaR, 'g', -1, 64),
		strconv.FormatFloat(p.KD, 'g', -1, 64),
		strconv.FormatFloat(p.ThetaD, 'g', -1, 64),
		strconv.FormatFloat(p.Delta, 'g', -1, 64),
		strconv.Itoa(horizon),
	} {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the result stored under key, or ErrMiss.
func (c *Cache) Get(ctx context.Context, key string) (infect.Result, error) {
	var res infect.Result
	var blob []byte
	err := c.db.QueryRowContext(ctx, `SELECT data FROM estimates WHERE key = ?`, key).Scan(&blob)
	if err == sql.ErrNoRows {
		return res, ErrMiss
	} else if err != nil {
		return res, fmt.Errorf("cache: get: %w", err)
	}
	raw, err := snappy.Decode(nil, blob)
	if err != nil {
		return res, fmt.Errorf("cache: decode %v: %w", key, err)
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return res, fmt.Errorf("cache: unmarshal %v: %w", key, err)
	}
	return res, nil
}

// Put stores res under key, replacing any existing entry.
func (c *Cache) Put(ctx context.Context, key string, res infect.Result) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("cache: marshal: %w", err)
	}
	if _, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO estimates (key, data, created_at) VALUES (?, ?, ?)`,
		key, snappy.Encode(nil, raw), c.now().Unix()); err != nil {
		return fmt.Errorf("cache: put: %w", err)
	}
	return nil
}

// Prune deletes all entries whose keys aren't in keep.
// It returns the number of deleted entries.
func (c *Cache) Prune(ctx context.Context, keep map[string]struct{}) (int, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT key FROM estimates`)
	if err != nil {
		return 0, fmt.Errorf("cache: prune: %w", err)
	}
	var stale []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			rows.Close()
			return 0, fmt.Errorf("cache: prune: %w", err)
		}
		if _, ok := keep[k]; !ok {
			stale = append(stale, k)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("cache: prune: %w", err)
	}

	for _, k := range stale {
		if _, err := c.db.ExecContext(ctx, `DELETE FROM estimates WHERE key = ?`, k); err != nil {
			return 0, fmt.Errorf("cache: prune: %w", err)
		}
	}
	return len(stale), nil
}

// Len returns the number of stored entries.
func (c *Cache) Len(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM estimates`).Scan(&n); err != nil {
		return 0, fmt.Errorf("cache: count: %w", err)
	}
	return n, nil
}
