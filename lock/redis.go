package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	st "github.com/cachegate/cachegate/settings"

	"github.com/redis/go-redis/v9"
)

const redisLockNamespace = "cachegate:lock"

// RedisLock implements Locker over redis SET NX. Locks carry a TTL so a
// crashed holder cannot wedge every future flush, and a per-instance token
// so Release will not delete a lock that expired and was re-acquired by
// someone else. Release is check-then-delete, best effort.
type RedisLock struct {
	Redis *redis.Client
	token string
	ttl   time.Duration
	poll  time.Duration
}

func NewRedisLock() (*RedisLock, error) {
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
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	return &RedisLock{
		Redis: rdb,
		token: hex.EncodeToString(buf),
		ttl:   time.Second * time.Duration(st.Settings.Lock.TTLSeconds),
		poll:  time.Millisecond * time.Duration(st.Settings.Lock.PollMillis),
	}, nil
}

func (l *RedisLock) storageKey(name string) string {
	return fmt.Sprintf("%s:%s", redisLockNamespace, name)
}

func (l *RedisLock) ProbeAvailable(ctx context.Context, name string) bool {
	n, err := l.Redis.Exists(ctx, l.storageKey(name)).Result()
	if err != nil {
		// can't tell, let the caller proceed to Acquire and find out
		return true
	}
	return n == 0
}

func (l *RedisLock) WaitUntilAvailable(ctx context.Context, name string) error {
	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()
	for {
		if l.ProbeAvailable(ctx, name) {
			return nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (l *RedisLock) Acquire(ctx context.Context, name string) bool {
	ok, err := l.Redis.SetNX(ctx, l.storageKey(name), l.token, l.ttl).Result()
	if err != nil {
		st.Logger.Warn().Err(err).Str("lock", name).Msg("lock acquisition errored, treating as contended")
		return false
	}
	return ok
}

func (l *RedisLock) Release(ctx context.Context, name string) {
	key := l.storageKey(name)
	holder, err := l.Redis.Get(ctx, key).Result()
	if err != nil || holder != l.token {
		return
	}
	if err := l.Redis.Del(ctx, key).Err(); err != nil {
		st.Logger.Warn().Err(err).Str("lock", name).Msg("failed to release lock, TTL will reap it")
	}
}
