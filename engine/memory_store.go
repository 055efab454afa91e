package engine

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process LRU store with optional TTL expiry.
type MemoryStore struct {
	mu         sync.Mutex
	maxEntries int
	ttl        time.Duration
	ll         *list.List
	items      map[string]*list.Element
	closed     bool
	now        func() time.Time
}

type memoryItem struct {
	key   string
	entry *CacheEntry
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a store holding at most maxEntries entries, each
// valid for ttl. A ttl of zero disables expiry.
func NewMemoryStore(maxEntries int, ttl time.Duration) *MemoryStore {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &MemoryStore{
		maxEntries: maxEntries,
		ttl:        ttl,
		ll:         list.New(),
		items:      make(map[string]*list.Element),
		now:        time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (*CacheEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false, ErrStoreClosed
	}

	el, ok := s.items[key]
	if !ok {
		return nil, false, nil
	}
	item := el.Value.(*memoryItem)
	if s.expired(item.entry) {
		s.remove(el)
		return nil, false, nil
	}
	s.ll.MoveToFront(el)
	return item.entry, true, nil
}

func (s *MemoryStore) Put(_ context.Context, key string, entry *CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	if el, ok := s.items[key]; ok {
		el.Value.(*memoryItem).entry = entry
		s.ll.MoveToFront(el)
		return nil
	}
	s.items[key] = s.ll.PushFront(&memoryItem{key: key, entry: entry})
	for s.ll.Len() > s.maxEntries {
		s.remove(s.ll.Back())
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if el, ok := s.items[key]; ok {
		s.remove(el)
	}
	return nil
}

func (s *MemoryStore) Purge(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ll.Init()
	clear(s.items)
	return nil
}

// Len counts entries, including expired ones not yet evicted.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ll.Len()
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.ll.Init()
	clear(s.items)
	return nil
}

func (s *MemoryStore) expired(e *CacheEntry) bool {
	return s.ttl > 0 && s.now().Sub(e.CreatedAt) >= s.ttl
}

func (s *MemoryStore) remove(el *list.Element) {
	s.ll.Remove(el)
	delete(s.items, el.Value.(*memoryItem).key)
}
