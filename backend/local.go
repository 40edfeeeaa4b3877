package backend

import (
	"context"
	"strings"
	"time"

	st "github.com/cachegate/cachegate/settings"

	"github.com/allegro/bigcache/v3"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/metrics"
	bigcache_store "github.com/eko/gocache/store/bigcache/v4"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
)

/* !! Bigcache Set function limitation !!
Bigcache buffers up to one full item per shard, so the effective RAM cost is
size_mb plus max_item_size * shards. Keep filter state blobs well under the
shard size or sets will be rejected. */

// LocalBackend stores one bin in an in-process bigcache. Suitable for the
// filter store and untagged bins in single-process deployments; state is
// lost on restart, which for filter state only costs admission accuracy.
type LocalBackend struct {
	manager cache.CacheInterface[[]byte]
	nowFunc func() time.Time
}

func NewLocalBackend(bin string) (*LocalBackend, error) {
	ttlSeconds := st.Settings.Local.TTLSeconds
	if ttlSeconds <= 0 {
		// bigcache cleanup treats a zero life window as "evict everything"
		ttlSeconds = 900
	}
	config := bigcache.DefaultConfig(time.Second * time.Duration(ttlSeconds))
	config.HardMaxCacheSize = st.Settings.Local.SizeMB
	config.Verbose = false
	config.Shards = st.Settings.Local.Shards
	client, err := bigcache.New(context.Background(), config)
	if err != nil {
		return nil, err
	}
	cacheClient := bigcache_store.NewBigcache(client)
	customRegistry := prometheus.NewRegistry()
	promMetrics := metrics.NewPrometheus("cachegate_"+bin, metrics.WithRegisterer(customRegistry))
	manager := cache.NewMetric[[]byte](promMetrics, cache.New[[]byte](cacheClient))
	return &LocalBackend{
		manager: manager,
		nowFunc: time.Now,
	}, nil
}

func (b *LocalBackend) Get(ctx context.Context, key string, allowInvalid bool) (*Item, error) {
	raw, err := b.manager.Get(ctx, key)
	if err != nil {
		// cache miss
		if strings.Contains(err.Error(), "not found") {
			return nil, nil
		}
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	var item Item
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, err
	}
	if expired(item.Expire, b.nowFunc().Unix()) {
		item.Valid = false
	}
	if !item.Valid && !allowInvalid {
		return nil, nil
	}
	return &item, nil
}

func (b *LocalBackend) GetMultiple(ctx context.Context, keys []string, allowInvalid bool) (map[string]*Item, error) {
	found := make(map[string]*Item)
	for _, k := range keys {
		item, err := b.Get(ctx, k, allowInvalid)
		if err != nil {
			return nil, err
		}
		if item != nil {
			found[k] = item
		}
	}
	return found, nil
}

func (b *LocalBackend) setOne(ctx context.Context, key string, item Item) error {
	raw, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return b.manager.Set(ctx, key, raw)
}

func (b *LocalBackend) Set(ctx context.Context, key string, data []byte, expire int64, tags []string) error {
	return b.setOne(ctx, key, Item{Data: data, Expire: expire, Tags: tags, Valid: true})
}

func (b *LocalBackend) SetMultiple(ctx context.Context, items map[string]Item) error {
	for k, item := range items {
		item.Valid = true
		if err := b.setOne(ctx, k, item); err != nil {
			return err
		}
	}
	return nil
}

func (b *LocalBackend) Delete(ctx context.Context, key string) error {
	err := b.manager.Delete(ctx, key)
	if err != nil && strings.Contains(err.Error(), "not found") {
		return nil
	}
	return err
}

func (b *LocalBackend) DeleteMultiple(ctx context.Context, keys []string) error {
	for _, k := range keys {
		if err := b.Delete(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

func (b *LocalBackend) Invalidate(ctx context.Context, key string) error {
	return b.InvalidateMultiple(ctx, []string{key})
}

func (b *LocalBackend) InvalidateMultiple(ctx context.Context, keys []string) error {
	for _, key := range keys {
		item, err := b.Get(ctx, key, true)
		if err != nil {
			return err
		}
		if item == nil {
			continue
		}
		item.Valid = false
		if err := b.setOne(ctx, key, *item); err != nil {
			return err
		}
	}
	return nil
}

// InvalidateAll clears the cache outright: bigcache keys are not
// enumerable, so stale entries cannot be kept around for allowInvalid
// readers the way the map and redis backends do.
func (b *LocalBackend) InvalidateAll(ctx context.Context) error {
	return b.manager.Clear(ctx)
}

// GarbageCollection is a no-op, bigcache evicts on its own.
func (b *LocalBackend) GarbageCollection(ctx context.Context) error {
	return nil
}

func (b *LocalBackend) RemoveBin(ctx context.Context) error {
	return b.manager.Clear(ctx)
}
