// Package sqlite stores collections and points in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"ragingest/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS collections (
    name       TEXT PRIMARY KEY,
    dimension  INTEGER NOT NULL,
    distance   TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS points (
    collection TEXT NOT NULL REFERENCES collections(name) ON DELETE CASCADE,
    id         INTEGER NOT NULL,
    vector     BLOB NOT NULL,
    payload    TEXT NOT NULL,
    PRIMARY KEY (collection, id)
);
`

// Store is a SQLite-backed vector store. Writes are synchronous, so every
// upsert reports a completed status.
type Store struct {
	db   *sql.DB
	path string
}

var _ domain.VectorStore = (*Store)(nil)

// Open opens (or creates) the database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: sqlite path is empty", domain.ErrConnection)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("%w: creating data directory: %w", domain.ErrConnection, err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %w", domain.ErrConnection, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: creating schema: %w", domain.ErrConnection, err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// ListCollections returns collection names in lexical order.
func (s *Store) ListCollections(ctx context.Context) (domain.ListResult, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM collections ORDER BY name`)
	if err != nil {
		return domain.ListResult{}, fmt.Errorf("listing collections: %w", err)
	}
	defer rows.Close()

	var out domain.ListResult
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return domain.ListResult{}, fmt.Errorf("scanning collection: %w", err)
		}
		out.Collections = append(out.Collections, domain.CollectionInfo{Name: name})
	}
	if err := rows.Err(); err != nil {
		return domain.ListResult{}, err
	}
	out.Duration = time.Since(start)
	return out, nil
}

// CollectionExists reports whether name exists.
func (s *Store) CollectionExists(ctx context.Context, name string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM collections WHERE name = ?`, name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking collection %q: %w", name, err)
	}
	return true, nil
}

// CreateCollection inserts the collection row unless it exists.
func (s *Store) CreateCollection(ctx context.Context, desc domain.CollectionDescriptor) (domain.CreateResult, error) {
	if desc.Dimension == 0 {
		return domain.CreateResult{}, fmt.Errorf("collection %q: invalid dimension 0", desc.Name)
	}
	start := time.Now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO collections(name, dimension, distance) VALUES(?, ?, ?) ON CONFLICT(name) DO NOTHING`,
		desc.Name, int64(desc.Dimension), desc.Distance.String())
	if err != nil {
		return domain.CreateResult{}, fmt.Errorf("creating collection %q: %w", desc.Name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.CreateResult{}, err
	}
	return domain.CreateResult{Created: n == 1, Duration: time.Since(start)}, nil
}

// Upsert writes all points in one transaction.
func (s *Store) Upsert(ctx context.Context, collection string, points []domain.Point, _ bool) (domain.UpsertResult, error) {
	start := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.UpsertResult{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var dim int64
	err = tx.QueryRowContext(ctx, `SELECT dimension FROM collections WHERE name = ?`, collection).Scan(&dim)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.UpsertResult{}, fmt.Errorf("collection %q not found", collection)
	}
	if err != nil {
		return domain.UpsertResult{}, err
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO points(collection, id, vector, payload) VALUES(?, ?, ?, ?)
ON CONFLICT(collection, id) DO UPDATE SET vector = excluded.vector, payload = excluded.payload`)
	if err != nil {
		return domain.UpsertResult{}, err
	}
	defer stmt.Close()

	for _, p := range points {
		if int64(len(p.Vector)) != dim {
			return domain.UpsertResult{}, fmt.Errorf("point %d: vector dimension %d, collection expects %d", p.ID, len(p.Vector), dim)
		}
		if p.ID > math.MaxInt64 {
			return domain.UpsertResult{}, fmt.Errorf("point id %d out of range", p.ID)
		}
		payload, err := json.Marshal(p.Payload)
		if err != nil {
			return domain.UpsertResult{}, fmt.Errorf("point %d: encoding payload: %w", p.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, collection, int64(p.ID), encodeVector(p.Vector), string(payload)); err != nil {
			return domain.UpsertResult{}, fmt.Errorf("point %d: %w", p.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.UpsertResult{}, err
	}
	return domain.UpsertResult{Status: domain.StatusCompleted, Duration: time.Since(start)}, nil
}

// Count returns the number of points in collection.
func (s *Store) Count(ctx context.Context, collection string) (uint64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM points WHERE collection = ?`, collection).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting points in %q: %w", collection, err)
	}
	return uint64(n), nil
}

// Point loads a stored point by ID.
func (s *Store) Point(ctx context.Context, collection string, id uint64) (domain.Point, error) {
	var (
		blob    []byte
		payload string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT vector, payload FROM points WHERE collection = ? AND id = ?`, collection, int64(id)).Scan(&blob, &payload)
	if err != nil {
		return domain.Point{}, fmt.Errorf("loading point %d: %w", id, err)
	}
	vec, err := decodeVector(blob)
	if err != nil {
		return domain.Point{}, err
	}
	p := domain.Point{ID: id, Vector: vec}
	if err := json.Unmarshal([]byte(payload), &p.Payload); err != nil {
		return domain.Point{}, fmt.Errorf("decoding payload of point %d: %w", id, err)
	}
	return p, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// encodeVector stores float32 values as little-endian IEEE 754 words.
func encodeVector(vec domain.Embedding) []byte {
	b := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

func decodeVector(b []byte) (domain.Embedding, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid vector blob length %d (not multiple of 4)", len(b))
	}
	vec := make(domain.Embedding, len(b)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return vec, nil
}
