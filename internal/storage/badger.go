package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/pathwatch/pathwatch/internal/logging"
)

const sessionKeyPrefix = "session:"

// BadgerStore implements Store using BadgerDB for durable storage across
// process restarts.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens a BadgerDB at the given path and returns a store backed
// by it. Badger's own logger is silenced in favor of our structured logs.
func OpenBadger(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", path, err)
	}
	logging.Info().Str("path", path).Msg("badger store opened")
	return &BadgerStore{db: db}, nil
}

// NewBadgerStore wraps an already-open BadgerDB.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// Get retrieves the record for a tourist.
func (s *BadgerStore) Get(ctx context.Context, touristID string) (*SessionRecord, error) {
	var record SessionRecord

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(sessionKeyPrefix + touristID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get session record: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})
	if err != nil {
		return nil, err
	}

	return &record, nil
}

// Put persists the record for a tourist.
func (s *BadgerStore) Put(ctx context.Context, touristID string, record *SessionRecord) error {
	record.TouristID = touristID
	record.SavedAt = time.Now().UTC()

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal session record: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(sessionKeyPrefix+touristID), data)
	})
}

// Delete removes the record for a tourist.
func (s *BadgerStore) Delete(ctx context.Context, touristID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(sessionKeyPrefix + touristID))
	})
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
