package metadata

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"linkly/internal/models"
)

const cacheKeyPrefix = "linkly:meta:"

// CachedExtractor keeps successful extractions in Redis. With a nil client it
// simply delegates.
type CachedExtractor struct {
	next   Extractor
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedExtractor(next Extractor, rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedExtractor{next: next, rdb: rdb, ttl: ttl, logger: logger}
}

func cacheKey(pageURL string) string {
	sum := sha256.Sum256([]byte(pageURL))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

func (c *CachedExtractor) Extract(ctx context.Context, pageURL string) models.BookmarkMetadata {
	if c.rdb == nil {
		return c.next.Extract(ctx, pageURL)
	}

	key := cacheKey(pageURL)
	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var meta models.BookmarkMetadata
		if err := json.Unmarshal(raw, &meta); err == nil {
			return meta
		}
		c.logger.WarnContext(ctx, "metadata cache entry unreadable", "key", key)
	case !errors.Is(err, redis.Nil):
		c.logger.WarnContext(ctx, "metadata cache get failed", "error", err)
	}

	meta := c.next.Extract(ctx, pageURL)
	if meta.IsEmpty() || c.ttl <= 0 {
		return meta
	}

	payload, err := json.Marshal(meta)
	if err != nil {
		return meta
	}
	if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "metadata cache set failed", "error", err)
	}
	return meta
}
