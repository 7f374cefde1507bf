// Package rediscache serves post lookups from Redis in front of any post store.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"postsapi/internal/adapter/out/storage"
	"postsapi/internal/model"
	"postsapi/internal/service"
	"postsapi/pkg/logger"

	"github.com/avito-tech/go-transaction-manager/trm/v2"
	trmcontext "github.com/avito-tech/go-transaction-manager/trm/v2/context"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultKeyPrefix = "posts:"
	DefaultTTL       = 5 * time.Minute
)

var _ service.PostStorage = (*PostCache)(nil)

// NewClient parses url (e.g. "redis://localhost:6379/0") and checks the connection.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// PostCache decorates a PostStorage. Reads by id go through Redis; every
// write refreshes or evicts the cached copy after the store accepted it.
// Inside a transaction the cache is never filled: writes evict the key and
// evict it again once the transaction commits or rolls back.
// Cache failures are logged and never fail the request.
type PostCache struct {
	next   service.PostStorage
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewPostCache(next service.PostStorage, client redis.Cmdable, ttl time.Duration) *PostCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &PostCache{
		next:   next,
		client: client,
		prefix: DefaultKeyPrefix,
		ttl:    ttl,
	}
}

func (c *PostCache) key(postID int64) string {
	return c.prefix + strconv.FormatInt(postID, 10)
}

func (c *PostCache) GetPostByID(ctx context.Context, postID int64) (model.Post, error) {
	data, err := c.client.Get(ctx, c.key(postID)).Bytes()
	switch {
	case err == nil:
		var p model.Post
		if err := json.Unmarshal(data, &p); err == nil {
			return p, nil
		}
		logger.FromContext(ctx).Warn("dropping unreadable cached post", "post_id", postID)
		c.evict(ctx, postID)
	case !errors.Is(err, redis.Nil):
		logger.FromContext(ctx).Warn("redis get failed", "post_id", postID, "error", err)
	}

	p, err := c.next.GetPostByID(ctx, postID)
	if err != nil {
		return model.Post{}, err
	}
	if activeTx(ctx) == nil {
		c.store(ctx, p)
	}
	return p, nil
}

func (c *PostCache) CreatePost(ctx context.Context, post model.Post) (model.Post, error) {
	out, err := c.next.CreatePost(ctx, post)
	if err != nil {
		return model.Post{}, err
	}
	c.written(ctx, out)
	return out, nil
}

func (c *PostCache) UpdatePost(ctx context.Context, params storage.UpdatePostParams) (model.Post, error) {
	out, err := c.next.UpdatePost(ctx, params)
	if err != nil {
		c.evict(ctx, params.Post.ID)
		return model.Post{}, err
	}
	c.written(ctx, out)
	return out, nil
}

func (c *PostCache) DeletePost(ctx context.Context, postID int64) (bool, error) {
	deleted, err := c.next.DeletePost(ctx, postID)
	if err != nil {
		return false, err
	}
	c.evict(ctx, postID)
	c.evictAfterTx(ctx, postID)
	return deleted, nil
}

func (c *PostCache) GetPosts(ctx context.Context, params storage.GetPostsParams) ([]model.Post, error) {
	return c.next.GetPosts(ctx, params)
}

func (c *PostCache) CountPosts(ctx context.Context) (int64, error) {
	return c.next.CountPosts(ctx)
}

func activeTx(ctx context.Context) trm.Transaction {
	if tr := trmcontext.DefaultManager.Default(ctx); tr != nil && tr.IsActive() {
		return tr
	}
	return nil
}

// written caches p when it is already committed. Otherwise the key is
// dropped now and again when the transaction ends, so neither an aborted
// row nor a value read before the commit survives in Redis.
func (c *PostCache) written(ctx context.Context, p model.Post) {
	if activeTx(ctx) == nil {
		c.store(ctx, p)
		return
	}
	c.evict(ctx, p.ID)
	c.evictAfterTx(ctx, p.ID)
}

func (c *PostCache) evictAfterTx(ctx context.Context, postID int64) {
	tr := activeTx(ctx)
	if tr == nil {
		return
	}
	evictCtx := context.WithoutCancel(ctx)
	go func() {
		<-tr.Closed()
		c.evict(evictCtx, postID)
	}()
}

func (c *PostCache) store(ctx context.Context, p model.Post) {
	data, err := json.Marshal(p)
	if err != nil {
		logger.FromContext(ctx).Warn("marshal post for cache", "post_id", p.ID, "error", err)
		return
	}
	if err := c.client.Set(ctx, c.key(p.ID), data, c.ttl).Err(); err != nil {
		logger.FromContext(ctx).Warn("redis set failed", "post_id", p.ID, "error", err)
	}
}

func (c *PostCache) evict(ctx context.Context, postID int64) {
	if err := c.client.Del(ctx, c.key(postID)).Err(); err != nil {
		logger.FromContext(ctx).Warn("redis del failed", "post_id", postID, "error", err)
	}
}
