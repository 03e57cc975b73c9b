package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/course-market-api/pkg/errors"
)

const (
	scanBatch   = 200
	unlinkBatch = 100
)

// CatalogCacheRepository keeps JSON encoded catalog views in Redis. Every key
// is stored under the configured namespace; callers only see the logical key.
type CatalogCacheRepository struct {
	client    *redis.Client
	namespace string
	logger    *zap.Logger
}

// NewCatalogCacheRepository constructs the repository. A nil client turns every
// read into a miss and every write into a no-op.
func NewCatalogCacheRepository(client *redis.Client, namespace string, logger *zap.Logger) *CatalogCacheRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogCacheRepository{client: client, namespace: namespace, logger: logger}
}

func (r *CatalogCacheRepository) key(logical string) string {
	return r.namespace + logical
}

// Get decodes the view stored under key into dest.
func (r *CatalogCacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	if r.client == nil {
		return appErrors.ErrCacheMiss
	}

	raw, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return appErrors.ErrCacheMiss
		}
		return fmt.Errorf("redis get %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode cached %s: %w", key, err)
	}
	return nil
}

// Set stores value under key for ttl.
func (r *CatalogCacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cached %s: %w", key, err)
	}
	if err := r.client.Set(ctx, r.key(key), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete drops the given keys in one round trip.
func (r *CatalogCacheRepository) Delete(ctx context.Context, keys ...string) error {
	if r.client == nil || len(keys) == 0 {
		return nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	if err := r.client.Unlink(ctx, full...).Err(); err != nil {
		return fmt.Errorf("redis unlink %v: %w", keys, err)
	}
	return nil
}

// DeletePrefix drops every key starting with prefix, unlinking in batches.
func (r *CatalogCacheRepository) DeletePrefix(ctx context.Context, prefix string) error {
	if r.client == nil {
		return nil
	}

	pattern := r.key(prefix) + "*"
	iter := r.client.Scan(ctx, 0, pattern, scanBatch).Iterator()
	batch := make([]string, 0, unlinkBatch)
	evicted := 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := r.client.Unlink(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("redis unlink %s: %w", pattern, err)
		}
		evicted += len(batch)
		batch = batch[:0]
		return nil
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == unlinkBatch {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan %s: %w", pattern, err)
	}
	if err := flush(); err != nil {
		return err
	}

	r.logger.Debug("catalog cache prefix evicted", zap.String("prefix", prefix), zap.Int("keys", evicted))
	return nil
}
