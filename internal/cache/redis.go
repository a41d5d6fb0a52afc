package cache

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/redis/go-redis/v9"

	"git.home.luguber.info/inful/pavesite/internal/foundation/errors"
)

// DefaultPrefix namespaces page keys in a shared Redis database.
const DefaultPrefix = "pavesite:page:"

// Redis stores pages in Redis as JSON with a TTL.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis connects to the Redis server at url
// (redis://[user:pass@]host:port/db) and checks it responds.
func NewRedis(ctx context.Context, url, prefix string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "invalid redis url").Build()
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.WrapError(err, errors.CategoryNetwork, "redis unreachable").
			WithContext("addr", opts.Addr).
			Build()
	}
	return NewRedisClient(client, prefix, ttl), nil
}

// NewRedisClient wraps an existing client.
func NewRedisClient(client *redis.Client, prefix string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, key string) (Entry, bool, error) {
	raw, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, errors.WrapError(err, errors.CategoryStorage, "redis get failed").
			WithContext("key", key).
			Build()
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		// unreadable entries are treated as a miss and overwritten on Set
		return Entry{}, false, nil
	}
	return e, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, e Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "failed to encode cache entry").Build()
	}
	if err := r.client.Set(ctx, r.prefix+key, raw, r.ttl).Err(); err != nil {
		return errors.WrapError(err, errors.CategoryStorage, "redis set failed").
			WithContext("key", key).
			Build()
	}
	return nil
}

// Purge unlinks every key under the prefix.
func (r *Redis) Purge(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 256).Iterator()
	var batch []string
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := r.client.Unlink(ctx, batch...).Err()
		batch = batch[:0]
		return err
	}
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 256 {
			if err := flush(); err != nil {
				return errors.WrapError(err, errors.CategoryStorage, "redis purge failed").Build()
			}
		}
	}
	if err := iter.Err(); err != nil {
		return errors.WrapError(err, errors.CategoryStorage, "redis scan failed").Build()
	}
	if err := flush(); err != nil {
		return errors.WrapError(err, errors.CategoryStorage, "redis purge failed").Build()
	}
	return nil
}

func (r *Redis) Close() error { return r.client.Close() }
