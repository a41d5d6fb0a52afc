package cache

import (
	"context"
	"sync"
	"time"
)

// DefaultMaxEntries bounds a Memory cache created with a non-positive limit.
const DefaultMaxEntries = 1024

type memoryItem struct {
	entry   Entry
	expires time.Time
}

// Memory is an in-process cache. When full, expired entries are evicted
// first, then the entry closest to expiry.
type Memory struct {
	mu         sync.RWMutex
	items      map[string]memoryItem
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// NewMemory creates an in-process cache.
func NewMemory(ttl time.Duration, maxEntries int) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Memory{
		items:      make(map[string]memoryItem),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) (Entry, bool, error) {
	m.mu.RLock()
	it, ok := m.items[key]
	m.mu.RUnlock()
	if !ok || !m.now().Before(it.expires) {
		return Entry{}, false, nil
	}
	return it.entry, true, nil
}

func (m *Memory) Set(_ context.Context, key string, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if _, exists := m.items[key]; !exists && len(m.items) >= m.maxEntries {
		m.evictLocked(now)
	}
	m.items[key] = memoryItem{entry: e, expires: now.Add(m.ttl)}
	return nil
}

func (m *Memory) evictLocked(now time.Time) {
	var (
		oldestKey string
		oldest    time.Time
	)
	for k, it := range m.items {
		if !now.Before(it.expires) {
			delete(m.items, k)
			continue
		}
		if oldestKey == "" || it.expires.Before(oldest) {
			oldestKey, oldest = k, it.expires
		}
	}
	if len(m.items) >= m.maxEntries && oldestKey != "" {
		delete(m.items, oldestKey)
	}
}

func (m *Memory) Purge(context.Context) error {
	m.mu.Lock()
	m.items = make(map[string]memoryItem)
	m.mu.Unlock()
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

func (m *Memory) Close() error { return nil }
