package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

var (
	ErrLockerNotConfigured = errors.New("lock client not configured")
	ErrEmptyLockKey        = errors.New("lock key is empty")
	ErrInvalidLockTTL      = errors.New("lock ttl must be positive")
)

// Only the holder's token may delete the key.
var releaseLease = redis.NewScript(`
if redis.call("GET", KEYS[1]) ~= ARGV[1] then
  return 0
end
return redis.call("DEL", KEYS[1])
`)

// Locker hands out short leases on redis keys.
type Locker struct {
	client redis.UniversalClient
}

func NewLocker(client redis.UniversalClient) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{client: client}
}

// Lease is a held lock. A nil Lease is valid and releases nothing.
type Lease struct {
	client redis.UniversalClient
	Key    string
	token  string
}

// TryAcquire returns a nil lease without error when someone else holds key.
func (l *Locker) TryAcquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error) {
	switch {
	case l == nil || l.client == nil:
		return nil, ErrLockerNotConfigured
	case key == "":
		return nil, ErrEmptyLockKey
	case ttl <= 0:
		return nil, ErrInvalidLockTTL
	}

	lease := &Lease{client: l.client, Key: key, token: uuid.NewString()}
	taken, err := l.client.SetNX(ctx, key, lease.token, ttl).Result()
	if err != nil || !taken {
		return nil, err
	}
	return lease, nil
}

// Release drops the lease if it is still ours. It reports whether the key
// was deleted.
func (l *Lease) Release(ctx context.Context) (bool, error) {
	if l == nil || l.client == nil {
		return false, nil
	}
	deleted, err := releaseLease.Run(ctx, l.client, []string{l.Key}, l.token).Int()
	if err != nil {
		return false, err
	}
	return deleted == 1, nil
}
