// Package lock serializes reconciliation runs across processes.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bsm/redislock"
	redis "github.com/redis/go-redis/v9"
)

var ErrNotObtained = errors.New("lock not obtained")

type Lease interface {
	Release(ctx context.Context) error
}

// Locker hands out exclusive, expiring leases. Obtain never waits: if the key
// is held it returns ErrNotObtained.
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}

type RedisLocker struct {
	client *redislock.Client
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: redislock.New(client)}
}

func (l *RedisLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (Lease, error) {
	lock, err := l.client.Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrNotObtained
	}
	if err != nil {
		return nil, err
	}
	return lock, nil
}

// LocalLocker is the single-process fallback used when Redis is not
// configured.
type LocalLocker struct {
	mu    sync.Mutex
	held  map[string]localLease
	now   func() time.Time
	token uint64
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]localLease), now: time.Now}
}

type localLease struct {
	locker  *LocalLocker
	key     string
	token   uint64
	expires time.Time
}

func (l *LocalLocker) Obtain(_ context.Context, key string, ttl time.Duration) (Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if current, ok := l.held[key]; ok && now.Before(current.expires) {
		return nil, ErrNotObtained
	}
	l.token++
	lease := localLease{locker: l, key: key, token: l.token, expires: now.Add(ttl)}
	l.held[key] = lease
	return lease, nil
}

// Release is a no-op once the lease has expired and been taken by someone else.
func (lease localLease) Release(_ context.Context) error {
	l := lease.locker
	l.mu.Lock()
	defer l.mu.Unlock()

	if current, ok := l.held[lease.key]; ok && current.token == lease.token {
		delete(l.held, lease.key)
	}
	return nil
}
