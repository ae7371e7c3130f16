// Package binding keeps the visitor-side session: which scan a browser is
// currently attached to for each campaign, and which scans it has submitted.
//
// The browser only holds an opaque token (a cookie). Everything the token
// points at lives in redis, one hash per visitor, expiring after the
// configured TTL of inactivity.
package binding

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// Store maps a visitor token to its per-campaign scan bindings.
type Store interface {
	// Current returns the scan bound to campaignUID, or 0 when there is none.
	Current(ctx context.Context, token, campaignUID string) (uint, error)
	Bind(ctx context.Context, token, campaignUID string, scanID uint) error
	MarkSubmitted(ctx context.Context, token string, scanID uint) error
	IsSubmitted(ctx context.Context, token string, scanID uint) (bool, error)
	ClearSubmitted(ctx context.Context, token string, scanID uint) error
}

// NewToken issues a fresh opaque visitor token.
func NewToken() string {
	return uuid.New().String()
}

type RedisStore struct {
	redis     *redis.Client
	keyPrefix string
	ttl       time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		redis:     client,
		keyPrefix: "socialz:visitor:",
		ttl:       ttl,
	}
}

func (s *RedisStore) key(token string) string {
	return s.keyPrefix + token
}

func campaignField(campaignUID string) string {
	return "campaign:" + campaignUID
}

func submittedField(scanID uint) string {
	return fmt.Sprintf("submitted:%d", scanID)
}

func (s *RedisStore) Current(ctx context.Context, token, campaignUID string) (uint, error) {
	if token == "" {
		return 0, nil
	}
	val, err := s.redis.HGet(ctx, s.key(token), campaignField(campaignUID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read binding: %w", err)
	}
	id, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		// A corrupt value is treated like no binding at all
		return 0, nil
	}
	return uint(id), nil
}

// write sets one field and refreshes the visitor's expiry in a single round trip.
func (s *RedisStore) write(ctx context.Context, token, field string, value interface{}) error {
	key := s.key(token)
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, field, value)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	return err
}

func (s *RedisStore) Bind(ctx context.Context, token, campaignUID string, scanID uint) error {
	if err := s.write(ctx, token, campaignField(campaignUID), scanID); err != nil {
		return fmt.Errorf("failed to bind scan: %w", err)
	}
	return nil
}

func (s *RedisStore) MarkSubmitted(ctx context.Context, token string, scanID uint) error {
	if token == "" {
		return nil
	}
	if err := s.write(ctx, token, submittedField(scanID), 1); err != nil {
		return fmt.Errorf("failed to mark submission: %w", err)
	}
	return nil
}

func (s *RedisStore) IsSubmitted(ctx context.Context, token string, scanID uint) (bool, error) {
	if token == "" {
		return false, nil
	}
	ok, err := s.redis.HExists(ctx, s.key(token), submittedField(scanID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to read submission marker: %w", err)
	}
	return ok, nil
}

func (s *RedisStore) ClearSubmitted(ctx context.Context, token string, scanID uint) error {
	if token == "" {
		return nil
	}
	return s.redis.HDel(ctx, s.key(token), submittedField(scanID)).Err()
}
