package semantic

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultCacheTTL is how long cached embeddings live in Redis.
const DefaultCacheTTL = 30 * 24 * time.Hour

// RedisCache stores embeddings in Redis keyed by model and text hash, so
// repeated runs over the same answer key skip the embedding API. Redis
// failures fall through to the wrapped embedder.
type RedisCache struct {
	client redis.Cmdable
	next   Embedder
	model  string
	ttl    time.Duration
}

// NewRedisCache wraps next. model namespaces the keys so vectors from
// different embedding models never mix.
func NewRedisCache(client redis.Cmdable, next Embedder, model string, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCache{client: client, next: next, model: model, ttl: ttl}
}

func (c *RedisCache) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("embed:%s:%s", c.model, hex.EncodeToString(sum[:]))
}

// Embed implements Embedder.
func (c *RedisCache) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.key(text)
	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var v []float32
		if err := json.Unmarshal(data, &v); err == nil && len(v) > 0 {
			return v, nil
		}
		slog.Warn("discarding corrupt cached embedding", "key", key)
	case !errors.Is(err, redis.Nil):
		slog.Warn("embedding cache read failed", "error", err)
	}

	v, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(v); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			slog.Warn("embedding cache write failed", "error", err)
		}
	}
	return v, nil
}
