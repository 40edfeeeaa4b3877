package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	st "github.com/cachegate/cachegate/settings"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// keyspace layout: cachegate:<bin>:<key>
const redisNamespace = "cachegate"

// RedisBackend stores one bin in redis. Items are stored as a JSON envelope
// so invalidation state and tags survive the round trip; positive expiry is
// additionally applied as a redis TTL.
type RedisBackend struct {
	Redis   *redis.Client
	bin     string
	nowFunc func() time.Time
}

func NewRedisBackend(bin string) (*RedisBackend, error) {
	if len(st.Redis.Endpoint) == 0 {
		return nil, errors.New("no endpoint for redis")
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         st.Redis.Endpoint,
		Username:     st.Redis.Username,
		Password:     st.Redis.Password,
		MaxRetries:   st.Redis.MaxRetries,
		DialTimeout:  time.Second * time.Duration(st.Redis.ConnectionTimeoutSeconds),
		ReadTimeout:  time.Second * time.Duration(st.Redis.ConnectionTimeoutSeconds),
		WriteTimeout: time.Second * time.Duration(st.Redis.ConnectionTimeoutSeconds),
		DB:           st.Redis.DB,
	})
	return &RedisBackend{
		Redis:   rdb,
		bin:     bin,
		nowFunc: time.Now,
	}, nil
}

func retry[T any](genericCall func() (T, error)) (T, error) {
	var val T
	var err error
	for i := 0; i < st.Redis.MaxRetries; i++ {
		val, err = genericCall()
		if err == nil || err == redis.Nil {
			return val, err
		}
		time.Sleep(time.Second * time.Duration(st.Redis.ConnectionTimeoutSeconds))
	}
	return val, err
}

func (b *RedisBackend) storageKey(key string) string {
	return fmt.Sprintf("%s:%s:%s", redisNamespace, b.bin, key)
}

// decode unpacks an envelope and applies expiry/validity rules.
func (b *RedisBackend) decode(raw []byte, allowInvalid bool) (*Item, error) {
	var item Item
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("corrupt cache envelope: %w", err)
	}
	if expired(item.Expire, b.nowFunc().Unix()) {
		item.Valid = false
	}
	if !item.Valid && !allowInvalid {
		return nil, nil
	}
	return &item, nil
}

func (b *RedisBackend) Get(ctx context.Context, key string, allowInvalid bool) (*Item, error) {
	raw, err := retry(func() ([]byte, error) { return b.Redis.Get(ctx, b.storageKey(key)).Bytes() })
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b.decode(raw, allowInvalid)
}

func (b *RedisBackend) GetMultiple(ctx context.Context, keys []string, allowInvalid bool) (map[string]*Item, error) {
	if len(keys) == 0 {
		return map[string]*Item{}, nil
	}
	storageKeys := make([]string, len(keys))
	for i, k := range keys {
		storageKeys[i] = b.storageKey(k)
	}
	vals, err := retry(func() ([]interface{}, error) { return b.Redis.MGet(ctx, storageKeys...).Result() })
	if err != nil {
		return nil, err
	}
	found := make(map[string]*Item)
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		item, err := b.decode([]byte(raw), allowInvalid)
		if err != nil {
			return nil, err
		}
		if item != nil {
			found[keys[i]] = item
		}
	}
	return found, nil
}

func (b *RedisBackend) setOne(ctx context.Context, key string, item Item) error {
	raw, err := json.Marshal(item)
	if err != nil {
		return err
	}
	var ttl time.Duration
	if item.Expire != PermanentExpire {
		ttl = time.Until(time.Unix(item.Expire, 0))
		if ttl <= 0 {
			// already expired, nothing worth storing
			return nil
		}
	}
	_, err = retry(func() (int64, error) { return -1, b.Redis.Set(ctx, b.storageKey(key), raw, ttl).Err() })
	return err
}

func (b *RedisBackend) Set(ctx context.Context, key string, data []byte, expire int64, tags []string) error {
	return b.setOne(ctx, key, Item{Data: data, Expire: expire, Tags: tags, Valid: true})
}

func (b *RedisBackend) SetMultiple(ctx context.Context, items map[string]Item) error {
	for k, item := range items {
		item.Valid = true
		if err := b.setOne(ctx, k, item); err != nil {
			return err
		}
	}
	return nil
}

func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	return b.DeleteMultiple(ctx, []string{key})
}

func (b *RedisBackend) DeleteMultiple(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	storageKeys := make([]string, len(keys))
	for i, k := range keys {
		storageKeys[i] = b.storageKey(k)
	}
	_, err := retry(func() (int64, error) { return b.Redis.Del(ctx, storageKeys...).Result() })
	return err
}

func (b *RedisBackend) Invalidate(ctx context.Context, key string) error {
	return b.InvalidateMultiple(ctx, []string{key})
}

func (b *RedisBackend) InvalidateMultiple(ctx context.Context, keys []string) error {
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

func (b *RedisBackend) InvalidateAll(ctx context.Context) error {
	keys, err := b.scanBin(ctx)
	if err != nil {
		return err
	}
	prefixLen := len(b.storageKey(""))
	shortKeys := make([]string, 0, len(keys))
	for _, k := range keys {
		shortKeys = append(shortKeys, k[prefixLen:])
	}
	return b.InvalidateMultiple(ctx, shortKeys)
}

// GarbageCollection is a no-op for redis as TTLs age items off.
func (b *RedisBackend) GarbageCollection(ctx context.Context) error {
	return nil
}

func (b *RedisBackend) RemoveBin(ctx context.Context) error {
	keys, err := b.scanBin(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	_, err = retry(func() (int64, error) { return b.Redis.Del(ctx, keys...).Result() })
	return err
}

// scanBin returns every storage key in this bin's namespace.
func (b *RedisBackend) scanBin(ctx context.Context) ([]string, error) {
	match := b.storageKey("*")
	var keys []string
	var cursor uint64
	for {
		batch, next, err := retry2(func() ([]string, uint64, error) {
			return b.Redis.Scan(ctx, cursor, match, 1000).Result()
		})
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}

func retry2[T any, Z any](genericCall func() (T, Z, error)) (T, Z, error) {
	var val T
	var val2 Z
	var err error
	for i := 0; i < st.Redis.MaxRetries; i++ {
		val, val2, err = genericCall()
		if err == nil {
			return val, val2, err
		}
		time.Sleep(time.Second * time.Duration(st.Redis.ConnectionTimeoutSeconds))
	}
	return val, val2, err
}
