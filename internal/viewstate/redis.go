package viewstate

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"trade-viewer/internal/logger"
)

// RedisBus fans changes out over a redis pub/sub channel so viewer processes
// sharing one storage file stay in sync. Nothing is persisted in redis.
type RedisBus struct {
	client  *redis.Client
	channel string
	log     *logger.Entry
}

func NewRedisBus(addr, channel string, log *logger.Log) (*RedisBus, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisBus{client: client, channel: channel, log: log.WithComponent("viewstate-redis")}, nil
}

func (r *RedisBus) Publish(ctx context.Context, change Change) error {
	data, err := json.Marshal(change)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, data).Err()
}

func (r *RedisBus) Subscribe(fn func(Change)) func() {
	ctx, cancel := context.WithCancel(context.Background())
	pubsub := r.client.Subscribe(ctx, r.channel)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for msg := range pubsub.Channel() {
			var change Change
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				r.log.WithError(err).Debug("dropping malformed change message")
				continue
			}
			fn(change)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			pubsub.Close()
			wg.Wait()
		})
	}
}

func (r *RedisBus) Close() error {
	return r.client.Close()
}
