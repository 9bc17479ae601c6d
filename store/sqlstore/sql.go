// Package sqlstore keeps protocol records in a single key/value table, on
// SQLite (mattn/go-sqlite3) or PostgreSQL (lib/pq).
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Setheum-Foundation/SignalMetadataKit/store"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

var ErrUnknownDriver = errors.New("unknown sql driver")

var postgresMigrations = []string{
	`
CREATE TABLE IF NOT EXISTS protocol_kv (
  k TEXT PRIMARY KEY,
  v BYTEA NOT NULL
);
`,
}

var sqliteMigrations = []string{
	`
CREATE TABLE IF NOT EXISTS protocol_kv (
  k TEXT PRIMARY KEY,
  v BLOB NOT NULL
);
`,
}

// Backend runs the same statements on both drivers; only the placeholder style differs.
type Backend struct {
	db       *sql.DB
	getQuery string
	putQuery string
	delQuery string
}

var _ store.Backend = (*Backend)(nil)

// Open opens the database and runs migrations.
func Open(driver, dataSource string) (*Backend, error) {
	var migs []string
	switch driver {
	case DriverSQLite:
		migs = sqliteMigrations
	case DriverPostgres:
		migs = postgresMigrations
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	db, err := sql.Open(driver, dataSource)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if driver == DriverSQLite {
		// SQLite allows one writer
		db.SetMaxOpenConns(1)
	}
	for i, m := range migs {
		if _, err := db.Exec(m); err != nil {
			db.Close()
			return nil, fmt.Errorf("run migration %d: %w", i, err)
		}
	}
	return newBackend(db, driver), nil
}

func newBackend(db *sql.DB, driver string) *Backend {
	b := &Backend{
		db:       db,
		getQuery: `SELECT v FROM protocol_kv WHERE k = ?`,
		putQuery: `INSERT INTO protocol_kv (k, v) VALUES (?, ?) ON CONFLICT (k) DO UPDATE SET v = excluded.v`,
		delQuery: `DELETE FROM protocol_kv WHERE k = ?`,
	}
	if driver == DriverPostgres {
		b.getQuery = `SELECT v FROM protocol_kv WHERE k = $1`
		b.putQuery = `INSERT INTO protocol_kv (k, v) VALUES ($1, $2) ON CONFLICT (k) DO UPDATE SET v = excluded.v`
		b.delQuery = `DELETE FROM protocol_kv WHERE k = $1`
	}
	return b
}

func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	err := b.db.QueryRowContext(ctx, b.getQuery, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return v, nil
}

func (b *Backend) Put(ctx context.Context, key string, value []byte) error {
	if _, err := b.db.ExecContext(ctx, b.putQuery, key, value); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	if _, err := b.db.ExecContext(ctx, b.delQuery, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (b *Backend) Close() error {
	return b.db.Close()
}
