package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"scriptorium/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	PostKeyPrefix        = "post:%d"
	PostVersionKeyPrefix = "post:%d:version"
	TagListKey           = "tags:all"
)

const (
	PostTTL    = 30 * time.Minute
	TagListTTL = 10 * time.Minute
	// PostVersionTTL must outlive PostTTL, or a reset counter could point
	// readers back at an entry written for an older version.
	PostVersionTTL = 24 * time.Hour
)

func PostKey(postID int64) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

func PostVersionKey(postID int64) string {
	return fmt.Sprintf(PostVersionKeyPrefix, postID)
}

// PostDetailKey returns the key for the post's current cache version. A
// reader that loaded the row before a save committed writes under the old
// version's key, which no later reader looks up. ok is false when the
// version cannot be read; callers then skip the cache.
func PostDetailKey(ctx context.Context, postID int64) (key string, ok bool) {
	if client == nil {
		return PostKey(postID), true
	}
	version, err := client.Get(ctx, PostVersionKey(postID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		observability.CacheLookups.WithLabelValues("error").Inc()
		return "", false
	}
	return fmt.Sprintf(PostKeyPrefix+":v%d", postID, version), true
}

// BumpPostVersion retires every cached copy of the post. It runs after the
// write has committed.
func BumpPostVersion(ctx context.Context, postID int64) {
	if client == nil {
		return
	}
	key := PostVersionKey(postID)
	_, _ = client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, PostVersionTTL)
		return nil
	})
}

// Aside tries Redis first, on miss it calls fetch (which must populate dest),
// then stores the result with ttl. Cache failures never fail the read: the
// value is served from fetch and the error is only counted.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	if client == nil {
		return fetch()
	}

	raw, err := client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if jsonErr := json.Unmarshal(raw, dest); jsonErr == nil {
			observability.CacheLookups.WithLabelValues("hit").Inc()
			return nil
		}
		observability.CacheLookups.WithLabelValues("error").Inc()
	case errors.Is(err, redis.Nil):
		observability.CacheLookups.WithLabelValues("miss").Inc()
	default:
		observability.CacheLookups.WithLabelValues("error").Inc()
	}

	if err := fetch(); err != nil {
		return err
	}

	if b, err := json.Marshal(dest); err == nil {
		client.Set(ctx, key, b, ttl)
	}
	return nil
}

func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

func InvalidateTagList(ctx context.Context) {
	Invalidate(ctx, TagListKey)
}
