package backend

import (
	"context"
)

// PermanentExpire marks an item that never expires.
const PermanentExpire int64 = -1

// An Item is one cached entry. Expire is a unix timestamp in seconds or
// PermanentExpire. Invalid items (expired or explicitly invalidated) are
// only returned when the caller asks for them.
type Item struct {
	Data   []byte   `json:"data"`
	Expire int64    `json:"expire"`
	Tags   []string `json:"tags,omitempty"`
	Valid  bool     `json:"valid"`
}

// A Backend provides storage for one cache bin. This is intended so we can
// write unit tests without connecting to redis, and so the admission gate
// can wrap any bin storage uniformly.
type Backend interface {
	// Get returns the item for key, or (nil, nil) when absent. Invalid
	// items are returned only when allowInvalid is set.
	Get(ctx context.Context, key string, allowInvalid bool) (*Item, error)
	// GetMultiple returns the retrievable subset of keys.
	GetMultiple(ctx context.Context, keys []string, allowInvalid bool) (map[string]*Item, error)
	Set(ctx context.Context, key string, data []byte, expire int64, tags []string) error
	SetMultiple(ctx context.Context, items map[string]Item) error
	Delete(ctx context.Context, key string) error
	DeleteMultiple(ctx context.Context, keys []string) error
	// Invalidate marks an item stale without removing it.
	Invalidate(ctx context.Context, key string) error
	InvalidateMultiple(ctx context.Context, keys []string) error
	InvalidateAll(ctx context.Context) error
	// GarbageCollection removes items the backend no longer needs to keep.
	GarbageCollection(ctx context.Context) error
	// RemoveBin deletes the bin and everything in it.
	RemoveBin(ctx context.Context) error
}

// expired reports whether an expire timestamp has passed.
func expired(expire, now int64) bool {
	return expire != PermanentExpire && expire <= now
}
