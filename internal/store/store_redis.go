package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string // Namespace prepended to every key
}

type redisStore struct {
	rdb    goredis.UniversalClient
	prefix string
}

// NewRedisStore connects to Redis and checks the connection with a ping
func NewRedisStore(options RedisOptions, logger *zap.Logger) (Store, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     options.Addr,
		Password: options.Password,
		DB:       options.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("cannot connect to redis: %w", err)
	}
	if logger != nil {
		logger.Info("connected to redis", zap.String("addr", options.Addr))
	}

	return newRedisStore(rdb, options.Prefix), nil
}

func newRedisStore(rdb goredis.UniversalClient, prefix string) Store {
	return &redisStore{rdb: rdb, prefix: prefix}
}

func (store *redisStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := store.rdb.Get(ctx, store.prefix+key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	} else if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (store *redisStore) Set(ctx context.Context, key, value string) error {
	return store.rdb.Set(ctx, store.prefix+key, value, 0).Err()
}

func (store *redisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = store.prefix + key
	}
	return store.rdb.Del(ctx, prefixed...).Err()
}

func (store *redisStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	keys := make([]string, 0)
	iterator := store.rdb.Scan(ctx, 0, globEscaper.Replace(store.prefix+prefix)+"*", 100).Iterator()
	for iterator.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iterator.Val(), store.prefix))
	}
	if err := iterator.Err(); err != nil {
		return nil, err
	}
	slices.Sort(keys)
	return keys, nil
}

// globEscaper quotes the characters SCAN MATCH treats as pattern syntax
var globEscaper = strings.NewReplacer(`\`, `\\`, "*", `\*`, "?", `\?`, "[", `\[`, "]", `\]`)

func (store *redisStore) Close() error {
	return store.rdb.Close()
}
