package matrix

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Locker serializes placement under a sponsor subtree.
type Locker interface {
	// Acquire blocks until the key lock is held or ctx is done, and
	// returns the release function.
	Acquire(ctx context.Context, key string) (func(), error)
}

// RedisLocker implements Locker with SET NX leases so placement is
// serialized across processes, not just goroutines.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
}

// NewRedisLocker creates a Redis-backed locker. The TTL caps how long a
// crashed holder can block other placements.
func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client, ttl: 10 * time.Second, retry: 25 * time.Millisecond}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	lockKey := "lock:" + key
	for {
		ok, err := l.client.SetNX(ctx, lockKey, 1, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				_ = l.client.Del(context.Background(), lockKey).Err()
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}
}

// LocalLocker implements Locker with in-process mutexes, enough for a
// single engine instance and for tests.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLocalLocker creates an in-process locker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *LocalLocker) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock, nil
}
