package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dispatch-routing-service/internal/domain"

	"github.com/redis/go-redis/v9"
)

const geocodeKeyPrefix = "geocode:"

// RedisGeocodeCache is a Redis-backed cache mapping normalized addresses to
// coordinates. Entries expire so a corrected address eventually re-resolves.
type RedisGeocodeCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisGeocodeCache(client *redis.Client) *RedisGeocodeCache {
	return &RedisGeocodeCache{Client: client, TTL: 30 * 24 * time.Hour}
}

// Get returns the cached coordinates for an address, with ok=false on a miss.
func (c *RedisGeocodeCache) Get(ctx context.Context, address string) (domain.Coordinates, bool, error) {
	if c.Client == nil {
		return domain.Coordinates{}, false, errors.New("geocode cache: client is nil")
	}

	raw, err := c.Client.Get(ctx, geocodeKeyPrefix+address).Result()
	if errors.Is(err, redis.Nil) {
		return domain.Coordinates{}, false, nil
	}
	if err != nil {
		return domain.Coordinates{}, false, fmt.Errorf("get geocode cache %q: %w", address, err)
	}

	var coord domain.Coordinates
	if err := json.Unmarshal([]byte(raw), &coord); err != nil {
		return domain.Coordinates{}, false, fmt.Errorf("get geocode cache %q: decode: %w", address, err)
	}

	return coord, true, nil
}

// Put stores an address -> coordinate mapping.
func (c *RedisGeocodeCache) Put(ctx context.Context, address string, coord domain.Coordinates) error {
	if c.Client == nil {
		return errors.New("geocode cache: client is nil")
	}

	raw, err := json.Marshal(coord)
	if err != nil {
		return fmt.Errorf("put geocode cache %q: encode: %w", address, err)
	}

	if err := c.Client.Set(ctx, geocodeKeyPrefix+address, raw, c.TTL).Err(); err != nil {
		return fmt.Errorf("put geocode cache %q: %w", address, err)
	}

	return nil
}
