// Package cache provides an optional Redis read-through cache for single
// post projections. The cached body is user independent; per-user fields
// (isUpvoted) are resolved by the handler after a hit.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hackernest/backend/pkg/types"
)

const (
	postKeyPrefix = "post:"
	postCacheTTL  = 5 * time.Minute
)

// PostCache is the subset of cache behavior the handlers depend on.
type PostCache interface {
	GetPost(ctx context.Context, postID int) (*types.Post, error)
	SetPost(ctx context.Context, post *types.Post) error
	DeletePost(ctx context.Context, postID int) error
}

type redisPostCache struct {
	rdb *redis.Client
}

// NewPostCache returns a Redis-backed PostCache, or nil when addr is empty
// so callers can treat the cache as absent.
func NewPostCache(addr string) PostCache {
	if addr == "" {
		return nil
	}
	return &redisPostCache{
		rdb: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

func postKey(postID int) string {
	return fmt.Sprintf("%s%d", postKeyPrefix, postID)
}

func (c *redisPostCache) GetPost(ctx context.Context, postID int) (*types.Post, error) {
	val, err := c.rdb.Get(ctx, postKey(postID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var post types.Post
	if err := json.Unmarshal([]byte(val), &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (c *redisPostCache) SetPost(ctx context.Context, post *types.Post) error {
	// Never cache a per-user view.
	cached := *post
	cached.IsUpvoted = false

	data, err := json.Marshal(&cached)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, postKey(post.ID), data, postCacheTTL).Err()
}

func (c *redisPostCache) DeletePost(ctx context.Context, postID int) error {
	return c.rdb.Del(ctx, postKey(postID)).Err()
}
