package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/crosswalk-games/pointbridge/ports"
)

// RedisStore is a Redis implementation of the ApprovalStore interface
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis approval store
func NewRedisStore(client *redis.Client) ports.ApprovalStore {
	return &RedisStore{
		client: client,
		prefix: "pointbridge:issued:",
	}
}

// RecordIssued marks a (wallet, nonce) pair as issued in Redis. SETNX keeps
// the first write's expiry; a false result means the pair was already there.
func (s *RedisStore) RecordIssued(ctx context.Context, walletAddress string, nextNonce int64, retention time.Duration) (bool, error) {
	key := s.prefix + issuedKey(walletAddress, nextNonce)

	created, err := s.client.SetNX(ctx, key, "1", retention).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record issued approval: %w", err)
	}

	return !created, nil
}
