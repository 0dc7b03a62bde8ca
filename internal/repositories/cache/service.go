package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

type CacheService struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCacheService(client *redis.Client, defaultTTL time.Duration) *CacheService {
	return &CacheService{
		client: client,
		ttl:    defaultTTL,
	}
}

// Base operations
func (s *CacheService) Set(ctx context.Context, key string, value interface{}) error {
	return s.SetWithTTL(ctx, key, value, s.ttl)
}

func (s *CacheService) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get cache value: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return true, nil
}

func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

// Key generation
func (s *CacheService) GenerateKey(entityType, keyType string, value interface{}) string {
	return fmt.Sprintf("%s:%s:%v", entityType, keyType, value)
}

// Balance caching. Entries are only an index over the users table and are
// dropped after every committed balance write.
func (s *CacheService) GetBalance(ctx context.Context, userID string) (decimal.Decimal, bool, error) {
	var balance decimal.Decimal
	found, err := s.Get(ctx, s.balanceKey(userID), &balance)
	if err != nil || !found {
		return decimal.Zero, false, err
	}
	return balance, true, nil
}

// BalanceVersion returns the user's invalidation counter, zero when unset.
func (s *CacheService) BalanceVersion(ctx context.Context, userID string) (int64, error) {
	version, err := s.client.Get(ctx, s.balanceVersionKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get balance version: %w", err)
	}
	return version, nil
}

// setIfVersion stores the balance only while the version key still holds
// the version it was read under.
var setIfVersion = redis.NewScript(`
local current = redis.call('GET', KEYS[2]) or '0'
if current ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

func (s *CacheService) SetBalance(ctx context.Context, userID string, balance decimal.Decimal, version int64) error {
	data, err := json.Marshal(balance)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	keys := []string{s.balanceKey(userID), s.balanceVersionKey(userID)}
	return setIfVersion.Run(ctx, s.client, keys, version, data, s.ttl.Milliseconds()).Err()
}

// InvalidateBalance drops the cached balances and bumps their versions in
// one MULTI block. Versions expire versionTTL after the last write.
func (s *CacheService) InvalidateBalance(ctx context.Context, userIDs ...string) error {
	if len(userIDs) == 0 {
		return nil
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range userIDs {
			pipe.Del(ctx, s.balanceKey(id))
			pipe.Incr(ctx, s.balanceVersionKey(id))
			pipe.Expire(ctx, s.balanceVersionKey(id), versionTTL)
		}
		return nil
	})
	return err
}

const versionTTL = 24 * time.Hour

func (s *CacheService) balanceKey(userID string) string {
	return s.GenerateKey("wallet", "balance", userID)
}

func (s *CacheService) balanceVersionKey(userID string) string {
	return s.GenerateKey("wallet", "balance_version", userID)
}

func (s *CacheService) HealthCheck(ctx context.Context) error {
	return Ping(ctx, s.client)
}

// Close closes the Redis client connection
func (s *CacheService) Close() error {
	return s.client.Close()
}
