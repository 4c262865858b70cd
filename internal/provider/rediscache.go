package provider

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/vmihailenco/msgpack/v5"

	"fvgscan/internal/market"
	"fvgscan/pkg/model"
)

const redisKeyPrefix = "fvgscan:candles:"

// RedisCache keeps fetched daily series in Redis, msgpack encoded, so that
// repeated runs over the same range do not hit the upstream API. Redis
// failures are logged and the inner provider is used directly.
//
// Only settled ranges are cached. A range that reaches the current session
// date may hold a bar that is still trading, so it always goes upstream.
type RedisCache struct {
	inner  Provider
	client *goredis.Client
	ttl    time.Duration
	now    func() time.Time
}

// RedisConfig configures the Redis connection
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewRedisCache connects to Redis and pings it
func NewRedisCache(inner Provider, cfg RedisConfig) (*RedisCache, error) {
	client := goredis.NewClient(&goredis.Options{
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

	log.Printf("[CACHE] connected to redis %s (db=%d, ttl=%s)", cfg.Addr, cfg.DB, cfg.TTL)
	return NewRedisCacheWithClient(inner, client, cfg.TTL), nil
}

// NewRedisCacheWithClient wraps inner using an existing client
func NewRedisCacheWithClient(inner Provider, client *goredis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{inner: inner, client: client, ttl: ttl, now: time.Now}
}

func (c *RedisCache) Name() string      { return c.inner.Name() }
func (c *RedisCache) IsAvailable() bool { return c.inner.IsAvailable() }
func (c *RedisCache) RateLimit() int    { return c.inner.RateLimit() }

// Close closes the Redis client
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// settled reports whether every session in a range ending at end has closed
// before today's
func (c *RedisCache) settled(end time.Time) bool {
	return !end.After(market.SessionDate(c.now()))
}

func (c *RedisCache) GetDailyCandles(ctx context.Context, symbol string, start, end time.Time) ([]model.Candle, error) {
	if !c.settled(end) {
		return c.inner.GetDailyCandles(ctx, symbol, start, end)
	}

	key := redisKey(symbol, start, end)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		candles, derr := decodeCandles(raw)
		if derr == nil {
			return candles, nil
		}
		log.Printf("[CACHE] dropping undecodable entry %s: %v", key, derr)
	case !errors.Is(err, goredis.Nil):
		log.Printf("[CACHE] redis get %s: %v", key, err)
	}

	candles, err := c.inner.GetDailyCandles(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}

	if payload, err := encodeCandles(candles); err == nil {
		if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			log.Printf("[CACHE] redis set %s: %v", key, err)
		}
	}
	return candles, nil
}

func redisKey(symbol string, start, end time.Time) string {
	return redisKeyPrefix + symbol + ":" + start.UTC().Format("20060102") + ":" + end.UTC().Format("20060102")
}

func encodeCandles(candles []model.Candle) ([]byte, error) {
	return msgpack.Marshal(candles)
}

func decodeCandles(raw []byte) ([]model.Candle, error) {
	var candles []model.Candle
	if err := msgpack.Unmarshal(raw, &candles); err != nil {
		return nil, err
	}
	if candles == nil {
		candles = []model.Candle{}
	}
	for i := range candles {
		candles[i].Time = candles[i].Time.UTC()
	}
	return candles, nil
}
