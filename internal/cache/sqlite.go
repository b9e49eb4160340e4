package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/matsen/refmatch/internal/orcid"
	"github.com/matsen/refmatch/internal/reference"
)

// SQLite stores profiles with a TTL and entity bags without one.
type SQLite struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// OpenSQLite opens or creates a cache database at path. A zero ttl keeps
// profiles forever.
func OpenSQLite(path string, ttl time.Duration) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLite{db: db, ttl: ttl, now: time.Now}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS profiles (
			orcid TEXT PRIMARY KEY,
			data TEXT NOT NULL,
			fetched_at INTEGER NOT NULL
		);

		-- Keyed by extract.CacheKey(backend, text)
		CREATE TABLE IF NOT EXISTS entities (
			key TEXT PRIMARY KEY,
			data TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);
	`
	_, err := db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// GetProfile returns the stored profile, or ErrMiss when absent or older
// than the TTL.
func (s *SQLite) GetProfile(ctx context.Context, id string) (*orcid.Profile, error) {
	var (
		data      string
		fetchedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT data, fetched_at FROM profiles WHERE orcid = ?`, id).Scan(&data, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("querying profile: %w", err)
	}

	if s.ttl > 0 && s.now().Sub(time.Unix(fetchedAt, 0)) > s.ttl {
		return nil, ErrMiss
	}

	var p orcid.Profile
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("decoding cached profile: %w", err)
	}
	return &p, nil
}

// PutProfile stores p, replacing any previous copy.
func (s *SQLite) PutProfile(ctx context.Context, p *orcid.Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO profiles (orcid, data, fetched_at) VALUES (?, ?, ?)`,
		p.ORCID, string(data), s.now().Unix())
	if err != nil {
		return fmt.Errorf("storing profile: %w", err)
	}
	return nil
}

// GetEntities returns the stored bag for key.
func (s *SQLite) GetEntities(ctx context.Context, key string) (reference.EntityBag, bool, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM entities WHERE key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return reference.EntityBag{}, false, nil
	}
	if err != nil {
		return reference.EntityBag{}, false, fmt.Errorf("querying entities: %w", err)
	}

	var bag reference.EntityBag
	if err := json.Unmarshal([]byte(data), &bag); err != nil {
		return reference.EntityBag{}, false, fmt.Errorf("decoding cached entities: %w", err)
	}
	return bag, true, nil
}

// PutEntities stores bag under key.
func (s *SQLite) PutEntities(ctx context.Context, key string, bag reference.EntityBag) error {
	data, err := json.Marshal(bag)
	if err != nil {
		return fmt.Errorf("encoding entities: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO entities (key, data, created_at) VALUES (?, ?, ?)`,
		key, string(data), s.now().Unix())
	if err != nil {
		return fmt.Errorf("storing entities: %w", err)
	}
	return nil
}

// Clear deletes every cached profile and entity bag.
func (s *SQLite) Clear(ctx context.Context) error {
	for _, table := range []string{"profiles", "entities"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	return nil
}
