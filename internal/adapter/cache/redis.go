package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"marketdata/internal/domain/model"

	"github.com/redis/go-redis/v9"
)

const clearBatch = 100

type RedisOptions struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	// Name prefixes every key as "<Name>::<symbol>".
	Name string
	TTL  time.Duration
}

type RedisAdapter struct {
	client *redis.Client
	name   string
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisAdapter(opts RedisOptions, logger *slog.Logger) (*RedisAdapter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     opts.PoolSize,
		MinIdleConns: opts.MinIdleConns,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisAdapter{
		client: client,
		name:   opts.Name,
		ttl:    opts.TTL,
		logger: logger,
	}, nil
}

func (a *RedisAdapter) key(symbol string) string {
	return a.name + "::" + symbol
}

func (a *RedisAdapter) Ping(ctx context.Context) error {
	return a.client.Ping(ctx).Err()
}

func (a *RedisAdapter) Get(ctx context.Context, symbol string) (*model.MarketData, error) {
	key := a.key(symbol)
	data, err := a.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get quote from redis: %w", err)
	}

	var quote model.MarketData
	if err := json.Unmarshal(data, &quote); err != nil || quote.Validate() != nil {
		a.logger.Warn("evicting unreadable cache entry", "key", key, "error", err)
		if delErr := a.client.Del(ctx, key).Err(); delErr != nil {
			return nil, fmt.Errorf("failed to evict unreadable entry %s: %w", key, delErr)
		}
		return nil, nil
	}

	return &quote, nil
}

// Put stores the quote under its symbol for the configured TTL. Null values are never cached.
func (a *RedisAdapter) Put(ctx context.Context, quote *model.MarketData) error {
	if quote == nil {
		return fmt.Errorf("%w: refusing to cache null quote", model.ErrInvalidQuote)
	}
	if err := quote.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(quote)
	if err != nil {
		return fmt.Errorf("failed to marshal quote: %w", err)
	}

	if err := a.client.Set(ctx, a.key(quote.Symbol), data, a.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set quote in redis: %w", err)
	}
	return nil
}

func (a *RedisAdapter) Evict(ctx context.Context, symbol string) error {
	if err := a.client.Del(ctx, a.key(symbol)).Err(); err != nil {
		return fmt.Errorf("failed to evict quote from redis: %w", err)
	}
	return nil
}

// Clear removes every entry of this cache and reports how many were deleted.
func (a *RedisAdapter) Clear(ctx context.Context) (int, error) {
	iter := a.client.Scan(ctx, 0, a.name+"::*", clearBatch).Iterator()

	deleted := 0
	batch := make([]string, 0, clearBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := a.client.Del(ctx, batch...).Result()
		if err != nil {
			return fmt.Errorf("failed to delete cache keys: %w", err)
		}
		deleted += int(n)
		batch = batch[:0]
		return nil
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == clearBatch {
			if err := flush(); err != nil {
				return deleted, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("failed to scan redis keys: %w", err)
	}
	if err := flush(); err != nil {
		return deleted, err
	}

	a.logger.Info("quote cache cleared", "cache", a.name, "deleted", deleted)
	return deleted, nil
}

func (a *RedisAdapter) Close() error {
	return a.client.Close()
}
