package reputation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/Kbediako/Ambient-Email-Agent/internal/db"
)

// Namespace is a fixed two-part namespace for key/value entries.
type Namespace [2]string

// Entry is a stored key/value entry.
type Entry struct {
	Value     string
	UpdatedAt time.Time
}

// KVStore is the key/value abstraction the reputation gate persists
// through. Values are JSON-encoded blobs written back whole; there are no
// partial-field updates.
type KVStore interface {
	// Get returns the entry stored under the namespace and key, if any.
	Get(ctx context.Context, ns Namespace,
		key string) (fn.Option[Entry], error)

	// Put stores the value under the namespace and key, replacing any
	// previous entry.
	Put(ctx context.Context, ns Namespace, key, value string) error
}

// SQLKVStore implements KVStore over the kv_entries table.
type SQLKVStore struct {
	store *db.Store
}

// NewSQLKVStore creates a key/value store backed by the given database.
func NewSQLKVStore(store *db.Store) *SQLKVStore {
	return &SQLKVStore{store: store}
}

// nsKey flattens a namespace for storage.
func nsKey(ns Namespace) string {
	return ns[0] + "/" + ns[1]
}

// Get implements KVStore.
func (s *SQLKVStore) Get(ctx context.Context, ns Namespace,
	key string) (fn.Option[Entry], error) {

	none := fn.None[Entry]()

	var result fn.Option[Entry]
	err := s.store.WithReadTx(ctx, func(ctx context.Context,
		tx *sql.Tx) error {

		var (
			value     string
			updatedAt int64
		)
		err := tx.QueryRowContext(ctx, `
			SELECT value, updated_at FROM kv_entries
			WHERE namespace = ? AND key = ?
		`, nsKey(ns), key).Scan(&value, &updatedAt)

		switch {
		case errors.Is(err, sql.ErrNoRows):
			result = none
			return nil
		case err != nil:
			return err
		}

		result = fn.Some(Entry{
			Value:     value,
			UpdatedAt: time.Unix(updatedAt, 0).UTC(),
		})
		return nil
	})
	if err != nil {
		return none, fmt.Errorf("failed to get kv entry: %w", err)
	}

	return result, nil
}

// Put implements KVStore.
func (s *SQLKVStore) Put(ctx context.Context, ns Namespace, key,
	value string) error {

	err := s.store.WithTx(ctx, func(ctx context.Context,
		tx *sql.Tx) error {

		_, err := tx.ExecContext(ctx, `
			INSERT INTO kv_entries (namespace, key, value,
				updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(namespace, key)
			DO UPDATE SET value = excluded.value,
				updated_at = excluded.updated_at
		`, nsKey(ns), key, value, time.Now().Unix())
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to put kv entry: %w", err)
	}

	return nil
}

// MemoryKVStore is an in-memory KVStore for tests.
type MemoryKVStore struct {
	mu      sync.Mutex
	entries map[string]Entry
}

// NewMemoryKVStore creates an empty in-memory key/value store.
func NewMemoryKVStore() *MemoryKVStore {
	return &MemoryKVStore{
		entries: make(map[string]Entry),
	}
}

// Get implements KVStore.
func (s *MemoryKVStore) Get(_ context.Context, ns Namespace,
	key string) (fn.Option[Entry], error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[nsKey(ns)+"/"+key]
	if !ok {
		return fn.None[Entry](), nil
	}

	return fn.Some(entry), nil
}

// Put implements KVStore.
func (s *MemoryKVStore) Put(_ context.Context, ns Namespace, key,
	value string) error {

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[nsKey(ns)+"/"+key] = Entry{
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	}

	return nil
}

// Ensure both implementations satisfy KVStore at compile time.
var (
	_ KVStore = (*SQLKVStore)(nil)
	_ KVStore = (*MemoryKVStore)(nil)
)
