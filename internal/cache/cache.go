// Package cache is the caching intermediary between the HTTP API and the
// upstream trade source. Entries expire after a TTL and can be invalidated
// early by tag.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrMiss = errors.New("cache miss")

// Entry is one cached upstream response.
type Entry struct {
	Body      []byte    `json:"body"`
	FetchedAt time.Time `json:"fetchedAt"`
}

type Cache interface {
	// Get returns ErrMiss when the key is absent or expired.
	Get(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, key string, entry *Entry, ttl time.Duration, tags ...string) error
	// InvalidateTag drops every entry stored with tag.
	InvalidateTag(ctx context.Context, tag string) error
}

type memoryItem struct {
	entry     *Entry
	expiresAt time.Time
	tags      []string
}

// Memory is an in-process Cache.
type Memory struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
}

func NewMemory() *Memory {
	return &Memory{items: make(map[string]memoryItem), now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[key]
	if !ok {
		return nil, ErrMiss
	}
	if !item.expiresAt.IsZero() && !m.now().Before(item.expiresAt) {
		delete(m.items, key)
		return nil, ErrMiss
	}
	return item.entry, nil
}

func (m *Memory) Set(_ context.Context, key string, entry *Entry, ttl time.Duration, tags ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item := memoryItem{entry: entry, tags: append([]string(nil), tags...)}
	if ttl > 0 {
		item.expiresAt = m.now().Add(ttl)
	}
	m.items[key] = item
	return nil
}

func (m *Memory) InvalidateTag(_ context.Context, tag string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, item := range m.items {
		for _, t := range item.tags {
			if t == tag {
				delete(m.items, key)
				break
			}
		}
	}
	return nil
}
