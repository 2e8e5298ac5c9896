package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	CategoryListKey   = "categories:all"
	CategoryKeyPrefix = "category:%s"
)

const (
	// CategoryTTL applies to single categories, which are never modified once created.
	CategoryTTL = 10 * time.Minute
	// CategoryListTTL bounds how long a list cached by a reader that raced a create can stay stale.
	CategoryListTTL = time.Minute
)

func CategoryKey(categoryID string) string {
	return fmt.Sprintf(CategoryKeyPrefix, categoryID)
}

// Aside loads key into dest, or calls load and caches dest for ttl on a miss.
// Without a client, or when Redis errors, it falls through to load.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, load func() error) error {
	if client == nil {
		return load()
	}

	raw, err := client.Get(ctx, key).Bytes()
	if err == nil && json.Unmarshal(raw, dest) == nil {
		return nil
	}
	if err != nil && !errors.Is(err, redis.Nil) {
		return load()
	}

	if err := load(); err != nil {
		return err
	}
	if data, err := json.Marshal(dest); err == nil {
		client.Set(ctx, key, data, ttl)
	}
	return nil
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateCategories(ctx context.Context) {
	Invalidate(ctx, CategoryListKey)
}
