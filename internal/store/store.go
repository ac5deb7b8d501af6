// Package store implements a durable, order-preserving record collection
// backed by a delimited text file. One line per record, fields joined by '|'.
// Every mutation rewrites the whole backing file; the in-memory mirror and
// the file are only ever touched inside the store's own lock.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Delimiter separates fields within a record line. Field values must never
// contain it; the services validate that before anything reaches the store.
const Delimiter = "|"

// Codec translates between a record and its delimited field list.
type Codec[T any] interface {
	// Key returns the unique id the record is stored under.
	Key(record T) string
	// Encode returns the record's fields in file order.
	Encode(record T) []string
	// Decode builds a record from a split line. Returning ok=false skips the
	// line; decoders are expected to tolerate short legacy lines by
	// defaulting missing fields rather than failing.
	Decode(fields []string) (record T, ok bool)
}

// Store is a flat-file record collection keyed by a unique string id.
// Records are held by value so nothing a caller receives aliases the mirror.
type Store[T any] struct {
	mu    sync.RWMutex
	path  string
	codec Codec[T]
	order []string
	byID  map[string]T
}

// Open loads the backing file at path. A missing file is an empty store, not
// an error.
func Open[T any](path string, codec Codec[T]) (*Store[T], error) {
	s := &Store[T]{
		path:  path,
		codec: codec,
		byID:  make(map[string]T),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the location of the backing file.
func (s *Store[T]) Path() string {
	return s.path
}

func (s *Store[T]) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.byID = make(map[string]T)
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		record, ok := s.codec.Decode(strings.Split(line, Delimiter))
		if !ok {
			continue
		}
		s.upsertLocked(record)
	}
	return nil
}

// Reload re-reads the backing file, replacing the in-memory mirror. Used when
// the file was modified outside this process.
func (s *Store[T]) Reload() error {
	return s.load()
}

// upsertLocked inserts or replaces a record, keeping the position of an
// existing id (insertion order is what the file order was).
func (s *Store[T]) upsertLocked(record T) {
	id := s.codec.Key(record)
	if _, exists := s.byID[id]; !exists {
		s.order = append(s.order, id)
	}
	s.byID[id] = record
}

// All returns every record in insertion order.
func (s *Store[T]) All() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]T, 0, len(s.order))
	for _, id := range s.order {
		records = append(records, s.byID[id])
	}
	return records
}

// Find returns the record stored under id.
func (s *Store[T]) Find(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, exists := s.byID[id]
	return record, exists
}

// Len returns the number of records.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Save upserts the record and rewrites the backing file before returning.
func (s *Store[T]) Save(record T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.upsertLocked(record)
	return s.persistLocked()
}

// Delete removes the record stored under id, if present, and rewrites the
// backing file. Deleting an unknown id is not an error.
func (s *Store[T]) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[id]; exists {
		delete(s.byID, id)
		for i, existing := range s.order {
			if existing == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
	return s.persistLocked()
}

// persistLocked serializes the full collection and swaps it into place with a
// temp-file rename so a crash mid-write cannot truncate the backing file.
func (s *Store[T]) persistLocked() error {
	var b strings.Builder
	for _, id := range s.order {
		b.WriteString(strings.Join(s.codec.Encode(s.byID[id]), Delimiter))
		b.WriteByte('\n')
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}
	return nil
}
