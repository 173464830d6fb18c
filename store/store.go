// Package store owns the in-memory collection of reference face records and
// its durable snapshot.
//
// The store follows a single-writer/many-readers discipline: appends happen
// only at ingestion batch-commit boundaries and are serialized by a write
// mutex, while readers get the current record slice through an atomic pointer
// swap. A published slice is never mutated again, so readers can iterate it
// without locks and never observe a record whose embedding write is
// incomplete.
package store

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// FaceRecord is one indexed reference face. Immutable once created.
type FaceRecord struct {
	// ReferenceURL is the URL the image bytes were actually fetched from.
	// Unique within the store; callers dedup before appending.
	ReferenceURL string `json:"url"`

	// Embedding is the fixed-length face vector produced by the model.
	Embedding []float32 `json:"embedding"`
}

// ErrDimensionMismatch indicates an embedding whose length does not match the
// store's dimension.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("store: dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Options contains configuration options for the store.
type Options struct {
	// Dimension is the fixed vector dimensionality. If 0, the first appended
	// record pins it.
	Dimension int
}

// DefaultOptions contains the default configuration options for the store.
var DefaultOptions = Options{
	Dimension: 0,
}

// Store is an ordered, append-only sequence of face records with lock-free
// reads. Insertion order is preserved for deterministic snapshot output.
type Store struct {
	writeMu sync.Mutex // Serializes writes only
	records atomic.Pointer[[]FaceRecord]
	dim     atomic.Int32
}

// New creates an empty store.
func New(opts Options) *Store {
	s := &Store{}
	s.dim.Store(int32(opts.Dimension))
	empty := make([]FaceRecord, 0)
	s.records.Store(&empty)
	return s
}

// Len returns the number of records.
func (s *Store) Len() int {
	return len(*s.records.Load())
}

// Dimension returns the pinned embedding dimension, or 0 if the store is
// empty and no dimension was configured.
func (s *Store) Dimension() int {
	return int(s.dim.Load())
}

// All returns the current record sequence as an immutable snapshot.
// Callers must not modify the returned slice or its records.
func (s *Store) All() []FaceRecord {
	return *s.records.Load()
}

// URLSet returns the set of indexed reference URLs, used by ingestion to skip
// candidates that are already present.
func (s *Store) URLSet() map[string]struct{} {
	records := s.All()
	set := make(map[string]struct{}, len(records))
	for _, rec := range records {
		set[rec.ReferenceURL] = struct{}{}
	}
	return set
}

// Append adds records to the store. The caller guarantees ReferenceURL
// uniqueness has already been checked against a current dedup set.
//
// Each embedding must match the store dimension; if no dimension is pinned
// yet, the first record pins it. On a dimension mismatch nothing is appended.
func (s *Store) Append(records ...FaceRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	dim := int(s.dim.Load())
	for _, rec := range records {
		if dim == 0 {
			dim = len(rec.Embedding)
			continue
		}
		if len(rec.Embedding) != dim {
			return &ErrDimensionMismatch{Expected: dim, Actual: len(rec.Embedding)}
		}
	}

	old := *s.records.Load()
	next := make([]FaceRecord, len(old), len(old)+len(records))
	copy(next, old)
	next = append(next, records...)

	s.dim.Store(int32(dim))
	s.records.Store(&next)
	return nil
}

// replace swaps in a freshly loaded record sequence, re-pinning the dimension
// from the data. Used by snapshot load only.
func (s *Store) replace(records []FaceRecord) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	dim := 0
	if len(records) > 0 {
		dim = len(records[0].Embedding)
	}
	s.dim.Store(int32(dim))
	s.records.Store(&records)
}
