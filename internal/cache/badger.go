package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// BadgerStore keeps entries in an embedded Badger database using native TTLs
type BadgerStore struct {
	db     *badger.DB
	prefix string
}

// NewBadgerStore opens (or creates) a Badger database at path.
// An empty path opens an in-memory database.
func NewBadgerStore(path, prefix string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store: %w", err)
	}
	return &BadgerStore{db: db, prefix: prefix}, nil
}

// Name returns the backend name
func (b *BadgerStore) Name() string {
	return BackendBadger
}

// Close closes the underlying database
func (b *BadgerStore) Close() error {
	return b.db.Close()
}

func (b *BadgerStore) fullKey(k string) []byte {
	if b.prefix != "" {
		return []byte(b.prefix + "/" + k)
	}
	return []byte(k)
}

// Get returns a copy of the value; missing and expired keys are misses
func (b *BadgerStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	if err := checkKey(key); err != nil {
		return nil, false, err
	}

	var valCopy []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(b.fullKey(key))
		if err != nil {
			return err
		}
		valCopy, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("badger get %s: %w", key, err)
	}
	return valCopy, true, nil
}

// Set stores value with an optional TTL
func (b *BadgerStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if err := checkKey(key); err != nil {
		return err
	}

	return b.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(b.fullKey(key), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
}

// Delete removes key
func (b *BadgerStore) Delete(_ context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(b.fullKey(key))
	})
}
