package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Redis shares cached upstream responses between several API processes.
type Redis struct {
	client *redis.Client
	prefix string
}

func NewRedis(cfg RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "tradecache"
	}
	return &Redis{client: client, prefix: prefix}, nil
}

func (r *Redis) entryKey(key string) string {
	return fmt.Sprintf("%s:entry:%s", r.prefix, key)
}

func (r *Redis) tagKey(tag string) string {
	return fmt.Sprintf("%s:tag:%s", r.prefix, tag)
}

func (r *Redis) Get(ctx context.Context, key string) (*Entry, error) {
	val, err := r.client.Get(ctx, r.entryKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}
	var entry Entry
	if err := json.Unmarshal(val, &entry); err != nil {
		return nil, ErrMiss
	}
	return &entry, nil
}

func (r *Redis) Set(ctx context.Context, key string, entry *Entry, ttl time.Duration, tags ...string) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.entryKey(key), data, ttl)
	for _, tag := range tags {
		pipe.SAdd(ctx, r.tagKey(tag), key)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (r *Redis) InvalidateTag(ctx context.Context, tag string) error {
	keys, err := r.client.SMembers(ctx, r.tagKey(tag)).Result()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	entryKeys := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		entryKeys = append(entryKeys, r.entryKey(k))
	}
	entryKeys = append(entryKeys, r.tagKey(tag))
	return r.client.Del(ctx, entryKeys...).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
