package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/MikeMC777/tienda-ecom/internal/logging"
)

var ErrCacheMiss = errors.New("cart cache miss")

type Cache interface {
	Get(ctx context.Context, userID string) (*Cart, error)
	Set(ctx context.Context, c *Cart) error
	// Fill stores c only if no entry exists and reports whether it did.
	Fill(ctx context.Context, c *Cart) (bool, error)
	Delete(ctx context.Context, userID string) error
}

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &RedisCache{client: client, baseTTL: ttl}
}

func cacheKey(userID string) string {
	return fmt.Sprintf("cart:%s", userID)
}

func (r *RedisCache) Get(ctx context.Context, userID string) (*Cart, error) {
	data, err := r.client.Get(ctx, cacheKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshal cart: %w", err)
	}
	if c.Items == nil {
		c.Items = []Item{}
	}
	return &c, nil
}

// Set stores the cart with the base TTL plus up to four minutes of jitter.
func (r *RedisCache) Set(ctx context.Context, c *Cart) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}
	if err := r.client.Set(ctx, cacheKey(c.UserID), data, r.ttl()).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *RedisCache) Fill(ctx context.Context, c *Cart) (bool, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return false, fmt.Errorf("marshal cart: %w", err)
	}
	ok, err := r.client.SetNX(ctx, cacheKey(c.UserID), data, r.ttl()).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}

func (r *RedisCache) ttl() time.Duration {
	return r.baseTTL + time.Duration(rand.Intn(5))*time.Minute
}

func (r *RedisCache) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, cacheKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

// CachedRepository is a read-through cache in front of a Repository. Saves go
// to the store first and then overwrite the cached entry; a miss only fills an
// empty key, so a slow reader never replaces a newer save. Cache failures
// degrade to the store and are only logged.
type CachedRepository struct {
	store Repository
	cache Cache
	sfg   singleflight.Group
}

func NewCachedRepository(store Repository, cache Cache) *CachedRepository {
	return &CachedRepository{store: store, cache: cache}
}

func (r *CachedRepository) Get(ctx context.Context, userID string) (*Cart, error) {
	c, err := r.cache.Get(ctx, userID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		logging.FromContext(ctx).Warn("cart_cache_get_failed", zap.String("user_id", userID), zap.Error(err))
	}

	v, err, _ := r.sfg.Do(userID, func() (any, error) {
		c, err := r.store.Get(ctx, userID)
		if err != nil {
			return nil, err
		}
		if _, err := r.cache.Fill(ctx, c); err != nil {
			logging.FromContext(ctx).Warn("cart_cache_set_failed", zap.String("user_id", userID), zap.Error(err))
		}
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Cart).Clone(), nil
}

func (r *CachedRepository) GetForUpdate(ctx context.Context, userID string) (*Cart, error) {
	return r.store.GetForUpdate(ctx, userID)
}

func (r *CachedRepository) Save(ctx context.Context, c *Cart) error {
	if err := r.store.Save(ctx, c); err != nil {
		return err
	}
	if err := r.cache.Set(ctx, c); err != nil {
		log := logging.FromContext(ctx).With(zap.String("user_id", c.UserID))
		log.Warn("cart_cache_set_failed", zap.Error(err))
		if err := r.cache.Delete(ctx, c.UserID); err != nil {
			log.Warn("cart_cache_invalidate_failed", zap.Error(err))
		}
	}
	return nil
}

// PurgeEmpty goes straight to the store; cached empty carts stay empty.
func (r *CachedRepository) PurgeEmpty(ctx context.Context, before time.Time) (int64, error) {
	return r.store.PurgeEmpty(ctx, before)
}
