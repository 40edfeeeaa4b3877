package backend

import (
	"context"
	"sync"
	"time"
)

// MemoryBackend stores one bin in a process-local map.
type MemoryBackend struct {
	mem map[string]Item
	mu  sync.Mutex
	// overridable for tests
	nowFunc func() time.Time
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		mem:     make(map[string]Item),
		nowFunc: time.Now,
	}
}

func (b *MemoryBackend) Get(ctx context.Context, key string, allowInvalid bool) (*Item, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.getLocked(key, allowInvalid), nil
}

func (b *MemoryBackend) getLocked(key string, allowInvalid bool) *Item {
	item, ok := b.mem[key]
	if !ok {
		return nil
	}
	if expired(item.Expire, b.nowFunc().Unix()) {
		item.Valid = false
	}
	if !item.Valid && !allowInvalid {
		return nil
	}
	return &item
}

func (b *MemoryBackend) GetMultiple(ctx context.Context, keys []string, allowInvalid bool) (map[string]*Item, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	found := make(map[string]*Item)
	for _, k := range keys {
		if item := b.getLocked(k, allowInvalid); item != nil {
			found[k] = item
		}
	}
	return found, nil
}

func (b *MemoryBackend) Set(ctx context.Context, key string, data []byte, expire int64, tags []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mem[key] = Item{Data: data, Expire: expire, Tags: tags, Valid: true}
	return nil
}

func (b *MemoryBackend) SetMultiple(ctx context.Context, items map[string]Item) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for k, item := range items {
		b.mem[k] = Item{Data: item.Data, Expire: item.Expire, Tags: item.Tags, Valid: true}
	}
	return nil
}

func (b *MemoryBackend) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.mem, key)
	return nil
}

func (b *MemoryBackend) DeleteMultiple(ctx context.Context, keys []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, k := range keys {
		delete(b.mem, k)
	}
	return nil
}

func (b *MemoryBackend) Invalidate(ctx context.Context, key string) error {
	return b.InvalidateMultiple(ctx, []string{key})
}

func (b *MemoryBackend) InvalidateMultiple(ctx context.Context, keys []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, k := range keys {
		if item, ok := b.mem[k]; ok {
			item.Valid = false
			b.mem[k] = item
		}
	}
	return nil
}

func (b *MemoryBackend) InvalidateAll(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for k, item := range b.mem {
		item.Valid = false
		b.mem[k] = item
	}
	return nil
}

func (b *MemoryBackend) GarbageCollection(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.nowFunc().Unix()
	for k, item := range b.mem {
		if expired(item.Expire, now) {
			delete(b.mem, k)
		}
	}
	return nil
}

func (b *MemoryBackend) RemoveBin(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mem = make(map[string]Item)
	return nil
}
