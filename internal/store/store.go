// Package store persists session credentials in an embedded Badger database.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/listenupapp/bookcatalog/internal/credentials"
)

const keyPrefix = "cred:"

// Store wraps a Badger database instance and implements credentials.Store.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// New opens (or creates) the Badger database at path.
func New(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Ensure writes are synced to disk
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	if logger != nil {
		logger.Info("Badger credential store opened", "path", path)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close gracefully closes the database. Later calls are no-ops.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		if s.logger != nil {
			s.logger.Info("Closing credential store")
		}
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}

// Get implements credentials.Store.
func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(storeKey(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return "", false, nil
	case err != nil:
		return "", false, mapErr(err)
	}
	return string(value), len(value) > 0, nil
}

// Set implements credentials.Store.
func (s *Store) Set(_ context.Context, key, value string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(storeKey(key), []byte(value))
	})
	return mapErr(err)
}

// Delete implements credentials.Store.
func (s *Store) Delete(_ context.Context, key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(storeKey(key))
	})
	return mapErr(err)
}

// keys lists the stored credential keys.
func (s *Store) keys(_ context.Context) ([]string, error) {
	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().Key()[len(keyPrefix):]))
		}
		return nil
	})
	return keys, mapErr(err)
}

func storeKey(key string) []byte {
	return []byte(keyPrefix + key)
}

func mapErr(err error) error {
	if errors.Is(err, badger.ErrDBClosed) {
		return credentials.ErrClosed
	}
	return err
}

var _ credentials.Store = (*Store)(nil)
