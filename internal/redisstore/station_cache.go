package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"voltshare/internal/models"
)

const directoryKey = "stations:directory"

// StationSource is the database side of the station directory.
type StationSource interface {
	List(ctx context.Context) ([]models.Station, error)
	Upsert(ctx context.Context, station *models.Station) error
	SetReachable(ctx context.Context, stationID string, reachable bool) (bool, error)
}

// StationCache is a bounded-TTL read-through cache over station metadata.
// Reads hit redis first and fall back to the database; writes go to the
// database and explicitly invalidate the cached directory when they changed
// anything. The TTL bounds how stale a read can get even without writes.
type StationCache struct {
	client *redis.Client
	source StationSource
	ttl    time.Duration
	logger *zap.Logger
}

// NewStationCache returns cache wrapper.
func NewStationCache(client *redis.Client, source StationSource, ttl time.Duration, logger *zap.Logger) *StationCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &StationCache{client: client, source: source, ttl: ttl, logger: logger}
}

// List returns the station directory, served from cache when fresh.
func (c *StationCache) List(ctx context.Context) ([]models.Station, error) {
	data, err := c.client.Get(ctx, directoryKey).Bytes()
	if err == nil {
		var stations []models.Station
		if err := json.Unmarshal(data, &stations); err == nil {
			return stations, nil
		}
		c.logger.Warn("cached station directory is corrupt, refetching")
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("station directory cache read failed", zap.Error(err))
	}

	stations, err := c.source.List(ctx)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(stations); err == nil {
		if err := c.client.Set(ctx, directoryKey, payload, c.ttl).Err(); err != nil {
			c.logger.Warn("station directory cache write failed", zap.Error(err))
		}
	}
	return stations, nil
}

// Upsert writes station metadata through to the database and drops the
// cached directory.
func (c *StationCache) Upsert(ctx context.Context, station *models.Station) error {
	if err := c.source.Upsert(ctx, station); err != nil {
		return err
	}
	return c.Invalidate(ctx)
}

// SetReachable records a telemetry outcome and drops the cached directory
// when the flag actually flipped.
func (c *StationCache) SetReachable(ctx context.Context, stationID string, reachable bool) error {
	changed, err := c.source.SetReachable(ctx, stationID, reachable)
	if err != nil {
		return err
	}
	if changed {
		return c.Invalidate(ctx)
	}
	return nil
}

// Invalidate drops the cached directory so the next read hits the database.
func (c *StationCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, directoryKey).Err()
}
