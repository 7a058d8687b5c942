// Package postgres keeps the creature registry in Postgres. Transactions run
// against the embedded in-memory store and each commit upserts the counter
// and listings as JSONB rows of the registry_state table.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"hatchery/internal/infra/persistence/memory"
	"hatchery/pkg/domain"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
)

var _ domain.PersistentStore = (*Store)(nil)

const (
	driverName = "pgx"
	defaultDSN = "postgres://localhost/hatchery?sslmode=disable"
)

const (
	bucketCounter  = "counter"
	bucketListings = "listings"
)

const (
	createStateTable = `CREATE TABLE IF NOT EXISTS registry_state (
	bucket TEXT PRIMARY KEY,
	payload JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`
	selectState = `SELECT bucket, payload FROM registry_state`
	upsertState = `INSERT INTO registry_state (bucket, payload) VALUES ($1, $2)
ON CONFLICT (bucket) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store is a memory.Store whose committed state is mirrored to Postgres.
// mu serializes a commit with its write so a rollback cannot clobber a later
// transaction.
type Store struct {
	*memory.Store
	db *sql.DB
	mu sync.Mutex
}

// NewStore connects to dsn (defaultDSN when empty), creates the state table
// if needed and loads any registry previously written there.
func NewStore(dsn string, engine *domain.RulesEngine) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(driverName, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx := context.Background()
	mem := memory.NewStore(engine)
	if err := load(ctx, db, mem); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{Store: mem, db: db}, nil
}

func load(ctx context.Context, db *sql.DB, into *memory.Store) error {
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, createStateTable); err != nil {
		return fmt.Errorf("create registry_state: %w", err)
	}
	rows, err := db.QueryContext(ctx, selectState)
	if err != nil {
		return fmt.Errorf("select registry_state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var snapshot memory.Snapshot
	found := false
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return fmt.Errorf("scan registry_state: %w", err)
		}
		var target any
		switch bucket {
		case bucketCounter:
			target = &snapshot.Counter
		case bucketListings:
			target = &snapshot.Listings
		default:
			continue
		}
		if len(payload) == 0 {
			continue
		}
		if err := json.Unmarshal(payload, target); err != nil {
			return fmt.Errorf("decode bucket %s: %w", bucket, err)
		}
		found = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read registry_state: %w", err)
	}
	if found {
		into.ImportState(snapshot)
	}
	return nil
}

// RunInTransaction commits fn in memory and then writes the new state. When
// the write fails the in-memory state is put back as it was before fn ran,
// so a failed call leaves no trace in either place.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := s.ExportState()
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if err := s.write(ctx, s.ExportState()); err != nil {
		s.ImportState(before)
		return res, err
	}
	return res, nil
}

// Flush writes the current in-memory state to the database. Call it after
// ImportState, which does not persist.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(ctx, s.ExportState())
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

type encodedBucket struct {
	name    string
	payload []byte
}

func encodeBuckets(snapshot memory.Snapshot) ([]encodedBucket, error) {
	counter, err := json.Marshal(snapshot.Counter)
	if err != nil {
		return nil, fmt.Errorf("encode counter: %w", err)
	}
	listings, err := json.Marshal(snapshot.Listings)
	if err != nil {
		return nil, fmt.Errorf("encode listings: %w", err)
	}
	return []encodedBucket{{bucketCounter, counter}, {bucketListings, listings}}, nil
}

func (s *Store) write(ctx context.Context, snapshot memory.Snapshot) (err error) {
	buckets, err := encodeBuckets(snapshot)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for _, b := range buckets {
		if _, err = tx.ExecContext(ctx, upsertState, b.name, b.payload); err != nil {
			return fmt.Errorf("upsert %s: %w", b.name, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// OverrideSQLOpen replaces the connection constructor for tests and returns
// a function restoring the previous one.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
