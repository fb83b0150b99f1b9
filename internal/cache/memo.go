// Package cache provides the bounded, process-lifetime memo caches shared by
// the translation, metadata, and mention-count operations.
//
// Each cached operation owns exactly one Memo. Entries leave a Memo only by
// least-recently-used eviction. A Memo is safe for concurrent use; two
// goroutines that miss on the same key at the same time will both compute the
// value, and the later Add wins.
package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSize is the entry bound used when a Memo is created with size <= 0.
const DefaultSize = 128

// Recorder receives hit and miss notifications. observability.Metrics
// satisfies it.
type Recorder interface {
	RecordCacheHit(cache string)
	RecordCacheMiss(cache string)
}

type nopRecorder struct{}

func (nopRecorder) RecordCacheHit(string)  {}
func (nopRecorder) RecordCacheMiss(string) {}

// Memo is a named LRU cache from request fingerprints to computed results.
type Memo[K comparable, V any] struct {
	name     string
	entries  *lru.Cache[K, V]
	recorder Recorder
}

// New creates a Memo holding at most size entries.
func New[K comparable, V any](name string, size int, recorder Recorder) (*Memo[K, V], error) {
	if size <= 0 {
		size = DefaultSize
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}

	entries, err := lru.New[K, V](size)
	if err != nil {
		return nil, fmt.Errorf("creating %s cache: %w", name, err)
	}

	return &Memo[K, V]{
		name:     name,
		entries:  entries,
		recorder: recorder,
	}, nil
}

// Name returns the cache name used for metrics and logs.
func (m *Memo[K, V]) Name() string {
	return m.name
}

// Get returns the cached value for key and marks it as recently used.
func (m *Memo[K, V]) Get(key K) (V, bool) {
	v, ok := m.entries.Get(key)
	if ok {
		m.recorder.RecordCacheHit(m.name)
	} else {
		m.recorder.RecordCacheMiss(m.name)
	}
	return v, ok
}

// Add stores value under key, evicting the least recently used entry when full.
func (m *Memo[K, V]) Add(key K, value V) {
	m.entries.Add(key, value)
}

// Len returns the number of resident entries.
func (m *Memo[K, V]) Len() int {
	return m.entries.Len()
}

// Load returns the cached value for key, or calls compute on a miss. The
// computed value is stored only when compute reports it as cacheable.
func (m *Memo[K, V]) Load(key K, compute func() (V, bool)) V {
	if v, ok := m.Get(key); ok {
		return v
	}
	v, cacheable := compute()
	if cacheable {
		m.Add(key, v)
	}
	return v
}
