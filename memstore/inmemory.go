package memstore

import (
	"container/list"
	"context"
	"path"
	"sync"
	"time"

	"github.com/kairei-project/kairei/value"
)

type entry struct {
	key      string
	value    value.Value
	meta     Metadata
	expires  time.Time // zero means no TTL
	lruElem  *list.Element
}

// InMemory is a capacity-bounded, TTL-aware Store with LRU eviction
// (§9 Open Question decision: evict the least-recently-used key once at
// capacity, rather than rejecting the write).
type InMemory struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*entry
	lru      *list.List // front = most recently used
	now      func() time.Time
}

// NewInMemory constructs an InMemory store. capacity <= 0 means unbounded.
func NewInMemory(capacity int) *InMemory {
	return &InMemory{capacity: capacity, entries: map[string]*entry{}, lru: list.New(), now: time.Now}
}

func (s *InMemory) touch(e *entry) {
	s.lru.MoveToFront(e.lruElem)
}

func (s *InMemory) expired(e *entry) bool {
	return !e.expires.IsZero() && s.now().After(e.expires)
}

func (s *InMemory) Get(_ context.Context, key string) (value.Value, Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || s.expired(e) {
		if ok {
			s.removeLocked(key)
		}
		return value.Value{}, Metadata{}, ErrNotFound
	}
	s.touch(e)
	return e.value, e.meta, nil
}

func (s *InMemory) GetMetadata(_ context.Context, key string) (Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || s.expired(e) {
		if ok {
			s.removeLocked(key)
		}
		return Metadata{}, ErrNotFound
	}
	return e.meta, nil
}

func (s *InMemory) Set(_ context.Context, key string, v value.Value, ttl time.Duration, contentType string, tags map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if existing, ok := s.entries[key]; ok {
		existing.value = v
		existing.meta.LastModified = now
		existing.meta.ContentType = contentType
		existing.meta.Tags = tags
		existing.meta.Size = estimateSize(v.Display())
		if ttl > 0 {
			existing.expires = now.Add(ttl)
		}
		s.touch(existing)
		return nil
	}

	if s.capacity > 0 && len(s.entries) >= s.capacity {
		if !s.evictOldestLocked() {
			return ErrCapacityFull
		}
	}

	meta := DefaultMetadata(now)
	meta.ContentType = contentType
	meta.Tags = tags
	meta.Size = estimateSize(v.Display())
	e := &entry{key: key, value: v, meta: meta}
	if ttl > 0 {
		e.expires = now.Add(ttl)
	}
	e.lruElem = s.lru.PushFront(key)
	s.entries[key] = e
	return nil
}

func (s *InMemory) evictOldestLocked() bool {
	back := s.lru.Back()
	if back == nil {
		return false
	}
	key := back.Value.(string)
	s.removeLocked(key)
	return true
}

func (s *InMemory) removeLocked(key string) {
	if e, ok := s.entries[key]; ok {
		s.lru.Remove(e.lruElem)
		delete(s.entries, key)
	}
}

func (s *InMemory) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; !ok {
		return ErrNotFound
	}
	s.removeLocked(key)
	return nil
}

func (s *InMemory) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return false, nil
	}
	if s.expired(e) {
		s.removeLocked(key)
		return false, nil
	}
	return true, nil
}

// Keys matches pattern (glob syntax, `*` and `?`) against every live key via
// path.Match.
func (s *InMemory) Keys(_ context.Context, pattern string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for k, e := range s.entries {
		if s.expired(e) {
			continue
		}
		matched, err := path.Match(pattern, k)
		if err != nil {
			return nil, err
		}
		if matched {
			out = append(out, k)
		}
	}
	return out, nil
}

var _ Store = (*InMemory)(nil)
