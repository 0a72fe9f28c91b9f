// Package kv vends the storage accessor every data module reads and writes
// through. Values are JSON documents persisted under named keys; collections
// are read whole and written whole by the callers, so the accessor itself
// only moves opaque blobs.
package kv

import (
	"encoding/json"
	"reflect"
	"sync"

	log "github.com/sirupsen/logrus"
	fe "verdant.io/feed/errors"
)

// Store is the interface to the persistent key-value storage layer.
type Store interface {
	// Get unmarshals the value stored under key into out and reports whether a
	// usable value was found. A missing key is not an error: out is left at
	// the caller-supplied default and found is false. A value which no longer
	// parses is a logged event, then treated the same as missing, so corrupted
	// state surfaces in logs instead of silently crashing readers.
	Get(key string, out interface{}) (found bool, err *fe.FeedErr)
	// Set serializes v to JSON and persists it under key, replacing any
	// previous value.
	Set(key string, v interface{}) *fe.FeedErr
	// Delete removes key. Delete must be idempotent.
	Delete(key string) *fe.FeedErr
	Close() *fe.FeedErr
}

func decode(key string, raw []byte, out interface{}) bool {
	// Unmarshal half-populates out before reporting a shape mismatch, so try
	// a scratch value of the same type first; out must stay at the caller's
	// default whenever the blob is unusable. The second unmarshal merges into
	// out as usual, preserving caller-supplied defaults for absent fields.
	scratch := reflect.New(reflect.TypeOf(out).Elem()).Interface()
	if err := json.Unmarshal(raw, scratch); err != nil {
		log.WithError(err).WithField("key", key).Warn("stored value is corrupt, falling back to default")
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		log.WithError(err).WithField("key", key).Warn("stored value is corrupt, falling back to default")
		return false
	}
	return true
}

// MemStore is an in-memory Store used by tests and ephemeral runs.
type MemStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string][]byte)}
}

func (s *MemStore) Get(key string, out interface{}) (bool, *fe.FeedErr) {
	s.mu.Lock()
	raw, ok := s.data[key]
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	return decode(key, raw, out), nil
}

func (s *MemStore) Set(key string, v interface{}) *fe.FeedErr {
	raw, err := json.Marshal(v)
	if err != nil {
		return fe.ErrServiceFailure("error marshalling value to JSON").WithCause(err)
	}
	s.mu.Lock()
	s.data[key] = raw
	s.mu.Unlock()
	return nil
}

func (s *MemStore) Delete(key string) *fe.FeedErr {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}

func (s *MemStore) Close() *fe.FeedErr {
	return nil
}

// SetRaw stores a pre-encoded blob verbatim. Tests use it to plant corrupt
// values that Set would refuse to produce.
func (s *MemStore) SetRaw(key string, raw []byte) {
	s.mu.Lock()
	s.data[key] = append([]byte(nil), raw...)
	s.mu.Unlock()
}
