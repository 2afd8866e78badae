package viewstate

import (
	"context"
	"sync"
)

// Change announces that a storage key was written by some instance.
// NewValue is nil when the key was removed.
type Change struct {
	Key      string  `json:"key"`
	NewValue *string `json:"newValue"`
	Origin   string  `json:"origin"`
}

// Notifier carries Change events between instances.
type Notifier interface {
	Publish(ctx context.Context, change Change) error
	// Subscribe registers fn; the returned func removes it.
	Subscribe(fn func(Change)) (cancel func())
}

// MemoryBus delivers changes synchronously to every subscriber in the
// process, in subscription order.
type MemoryBus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(Change)
	order  []int
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[int]func(Change))}
}

func (b *MemoryBus) Publish(_ context.Context, change Change) error {
	b.mu.RLock()
	fns := make([]func(Change), 0, len(b.order))
	for _, id := range b.order {
		if fn, ok := b.subs[id]; ok {
			fns = append(fns, fn)
		}
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(change)
	}
	return nil
}

func (b *MemoryBus) Subscribe(fn func(Change)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.order = append(b.order, id)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			for i, v := range b.order {
				if v == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
		})
	}
}
