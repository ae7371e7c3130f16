package locks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/socialzwater/backend/internal/logger"
)

// Common errors
var (
	ErrLockNotAcquired = errors.New("could not acquire lock")
	ErrLockNotOwned    = errors.New("lock not owned by this client")
	ErrLockUnavailable = errors.New("lock backend unavailable")
)

// ResourceType represents different types of lockable resources
type ResourceType string

const (
	ResourceSubmission ResourceType = "submission" // Lock per campaign+phone while a form is accepted
	ResourceJob        ResourceType = "job"        // Lock per scheduled job run
)

// Only the holder of the token may delete a lock.
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	end
	return 0
`)

// DistributedLock represents a distributed lock backed by Redis
type DistributedLock struct {
	client *redis.Client
	key    string
	token  string
}

// LockManager manages distributed locks
type LockManager struct {
	redis     *redis.Client
	keyPrefix string
}

// NewLockManager creates a new lock manager
func NewLockManager(redisClient *redis.Client) *LockManager {
	return &LockManager{
		redis:     redisClient,
		keyPrefix: "socialz:lock:",
	}
}

// lockKey generates a Redis key for a lock
func (m *LockManager) lockKey(resourceType ResourceType, resourceID string) string {
	return fmt.Sprintf("%s%s:%s", m.keyPrefix, resourceType, resourceID)
}

// Acquire tries to acquire a lock
func (m *LockManager) Acquire(ctx context.Context, resourceType ResourceType, resourceID string, ttl time.Duration) (*DistributedLock, error) {
	key := m.lockKey(resourceType, resourceID)
	token := uuid.New().String()

	// Use SET NX EX for atomic lock acquisition
	ok, err := m.redis.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLockUnavailable, err)
	}

	if !ok {
		return nil, ErrLockNotAcquired
	}

	return &DistributedLock{
		client: m.redis,
		key:    key,
		token:  token,
	}, nil
}

// AcquireWithRetry tries to acquire a lock with retries and exponential backoff
func (m *LockManager) AcquireWithRetry(ctx context.Context, resourceType ResourceType, resourceID string, ttl time.Duration, maxWait time.Duration) (*DistributedLock, error) {
	deadline := time.Now().Add(maxWait)
	retryInterval := 50 * time.Millisecond
	maxRetryInterval := 500 * time.Millisecond

	for {
		lock, err := m.Acquire(ctx, resourceType, resourceID, ttl)
		if err == nil {
			return lock, nil
		}
		if !errors.Is(err, ErrLockNotAcquired) {
			return nil, err
		}

		if time.Now().After(deadline) {
			return nil, ErrLockNotAcquired
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
			retryInterval = retryInterval * 2
			if retryInterval > maxRetryInterval {
				retryInterval = maxRetryInterval
			}
		}
	}
}

// Release releases the lock (only if we own it)
func (l *DistributedLock) Release(ctx context.Context) error {
	result, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Result()
	if err != nil {
		return err
	}
	if result.(int64) == 0 {
		return ErrLockNotOwned
	}
	return nil
}

// SubmissionKey identifies the (campaign, phone) pair a submission lock guards
func SubmissionKey(campaignID uint, phone string) string {
	return fmt.Sprintf("%d:%s", campaignID, phone)
}

// WithLock executes fn while holding the lock on a resource.
// The lock is released with a detached context so a cancelled request
// never leaves it behind for the full TTL.
func WithLock(ctx context.Context, manager *LockManager, resourceType ResourceType, resourceID string, ttl time.Duration, fn func() error) error {
	lock, err := manager.Acquire(ctx, resourceType, resourceID, ttl)
	if err != nil {
		return err
	}
	defer release(lock)

	return fn()
}

// WithLockRetry is WithLock with retries for up to maxWait.
func WithLockRetry(ctx context.Context, manager *LockManager, resourceType ResourceType, resourceID string, ttl, maxWait time.Duration, fn func() error) error {
	lock, err := manager.AcquireWithRetry(ctx, resourceType, resourceID, ttl, maxWait)
	if err != nil {
		return err
	}
	defer release(lock)

	return fn()
}

func release(lock *DistributedLock) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := lock.Release(ctx); err != nil {
		logger.Warn().Err(err).Str("key", lock.key).Msg("Failed to release lock")
	}
}
