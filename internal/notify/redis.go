package notify

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	json "github.com/goccy/go-json"

	"github.com/yourneighborhoodchef/pokerestock/internal/errs"
	"github.com/yourneighborhoodchef/pokerestock/internal/stock"
)

// RedisPublisher publishes events on a pub/sub channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(c *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{client: c, channel: channel}
}

// DialRedis connects to addr, retrying the initial ping with backoff.
func DialRedis(ctx context.Context, addr, channel string, logf Logf) (*RedisPublisher, error) {
	c := redis.NewClient(&redis.Options{Addr: addr})
	_, err := connect(ctx, "Redis", logf, func() (string, error) {
		return c.Ping(ctx).Result()
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("could not connect to Redis: %w", err)
	}
	return NewRedisPublisher(c, channel), nil
}

func (p *RedisPublisher) Name() string { return "redis" }

func (p *RedisPublisher) Send(ctx context.Context, ev stock.Event) error {
	body, err := json.Marshal(NewMessage(ev))
	if err != nil {
		return errs.New("redis", errs.CodeNotify, errs.WithMessage("encode event"), errs.WithCause(err))
	}
	if err := p.client.Publish(ctx, p.channel, body).Err(); err != nil {
		return errs.New("redis", errs.CodeNotify, errs.WithCause(err))
	}
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
