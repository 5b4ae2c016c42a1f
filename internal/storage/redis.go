package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"

	"github.com/joeyjoe808/pureohana-sub000/internal/models"
)

const (
	// CacheTTL is the time-to-live for the cached media-library listing
	CacheTTL = 5 * time.Minute

	libraryCacheKey = "media:library"
)

// RedisClient wraps Redis operations with tracing
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient initializes a new Redis client
func NewRedisClient(addr, password string, db int) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Test the connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &RedisClient{client: client}, nil
}

// Close closes the Redis connection
func (rc *RedisClient) Close() error {
	return rc.client.Close()
}

// GetLibraryListing retrieves the cached media-library listing with
// tracing. A cache miss returns (nil, nil).
func (rc *RedisClient) GetLibraryListing(ctx context.Context) ([]*models.CatalogEntry, error) {
	ctx, span := tracer.Start(ctx, "redis.get_library_listing")
	defer span.End()

	data, err := rc.client.Get(ctx, libraryCacheKey).Result()
	if err == redis.Nil {
		span.SetAttributes(attribute.Bool("cache_hit", false))
		return nil, nil // Cache miss, not an error
	} else if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get from cache: %w", err)
	}

	var entries []*models.CatalogEntry
	if err := json.Unmarshal([]byte(data), &entries); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to unmarshal cached listing: %w", err)
	}

	span.SetAttributes(
		attribute.Bool("cache_hit", true),
		attribute.Int("entry_count", len(entries)),
	)
	return entries, nil
}

// SetLibraryListing stores the media-library listing in cache with tracing
func (rc *RedisClient) SetLibraryListing(ctx context.Context, entries []*models.CatalogEntry) error {
	ctx, span := tracer.Start(ctx, "redis.set_library_listing")
	defer span.End()

	data, err := json.Marshal(entries)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to marshal listing: %w", err)
	}

	err = rc.client.Set(ctx, libraryCacheKey, data, CacheTTL).Err()
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to set cache: %w", err)
	}

	span.SetAttributes(
		attribute.Int("entry_count", len(entries)),
		attribute.Int64("ttl_seconds", int64(CacheTTL.Seconds())),
	)
	return nil
}

// InvalidateLibraryListing drops the cached listing with tracing. Called
// after every successful ingest so the admin console sees new media.
func (rc *RedisClient) InvalidateLibraryListing(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "redis.invalidate_library_listing")
	defer span.End()

	if err := rc.client.Del(ctx, libraryCacheKey).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}

	span.SetAttributes(attribute.Bool("cache_invalidate_success", true))
	return nil
}
