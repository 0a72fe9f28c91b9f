package kv

import (
	"encoding/json"

	"github.com/dgraph-io/badger"
	fe "verdant.io/feed/errors"
)

// BadgerStore is a Store backed by an embedded badger database, the local
// stand-in for the browser storage the application state originally lived in.
// A single process owns the store directory at a time.
type BadgerStore struct {
	DB *badger.DB
}

// OpenBadger opens (creating if needed) the store directory. Callers retry
// around this: a terminating sibling process may still hold the directory
// lock.
func OpenBadger(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	// badger's default logger is too chatty for a local demo store
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerStore{DB: db}, nil
}

// OpenBadgerReadOnly opens an existing store directory for reading only. The
// open still takes a shared flock that conflicts with a live writer's
// exclusive lock, so read-path processes run while the writer is down and
// retry around this call during handover.
func OpenBadgerReadOnly(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	opts.ReadOnly = true
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerStore{DB: db}, nil
}

func (s *BadgerStore) Get(key string, out interface{}) (bool, *fe.FeedErr) {
	var raw []byte
	err := s.DB.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			raw = append([]byte(nil), val...)
			return nil
		})
	})
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, fe.ErrServiceFailure("error reading value from store").WithCause(err)
	}
	return decode(key, raw, out), nil
}

func (s *BadgerStore) Set(key string, v interface{}) *fe.FeedErr {
	raw, err := json.Marshal(v)
	if err != nil {
		return fe.ErrServiceFailure("error marshalling value to JSON").WithCause(err)
	}
	if err := s.DB.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), raw)
	}); err != nil {
		return fe.ErrServiceFailure("error writing value to store").WithCause(err)
	}
	return nil
}

func (s *BadgerStore) Delete(key string) *fe.FeedErr {
	// badger treats deleting a missing key as a no-op, which keeps Delete idempotent
	if err := s.DB.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	}); err != nil {
		return fe.ErrServiceFailure("error removing value from store").WithCause(err)
	}
	return nil
}

func (s *BadgerStore) Close() *fe.FeedErr {
	if err := s.DB.Close(); err != nil {
		return fe.ErrServiceFailure("failed to close store").WithCause(err)
	}
	return nil
}
