package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultRelayChannel is the Redis pub/sub channel shared by all processes.
const DefaultRelayChannel = "teamhub:realtime"

// RedisRelay publishes local deliveries on a Redis channel and feeds
// deliveries from other processes back into a Router.
type RedisRelay struct {
	client  *redis.Client
	channel string
	log     *zap.Logger
}

// NewRedisClient opens and pings a client. A blank addr returns (nil, nil):
// the relay is optional and delivery stays process-local.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func NewRedisRelay(client *redis.Client, channel string, log *zap.Logger) *RedisRelay {
	if channel == "" {
		channel = DefaultRelayChannel
	}
	return &RedisRelay{client: client, channel: channel, log: log}
}

// Publish implements Relay.
func (r *RedisRelay) Publish(ctx context.Context, d Delivery) error {
	b, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, b).Err()
}

// Run subscribes and hands every foreign delivery to router until ctx ends.
func (r *RedisRelay) Run(ctx context.Context, router *Router) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	// Wait for the subscription to be confirmed before reporting ready.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	r.log.Info("realtime relay subscribed", zap.String("channel", r.channel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var d Delivery
			if err := json.Unmarshal([]byte(msg.Payload), &d); err != nil {
				r.log.Warn("realtime relay: bad payload", zap.Error(err))
				continue
			}
			router.DeliverRemote(d)
		}
	}
}
