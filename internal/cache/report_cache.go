package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dataset-service/internal/utils"
	"dataset-service/internal/validator"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "dataset:report:"
	latestKey = keyPrefix + "latest"
)

// ReportCache keeps validation reports in Redis, one key per run plus a
// copy of the most recent report.
type ReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewReportCache connects to Redis and checks the connection.
func NewReportCache(ctx context.Context, addr, password string, db int, ttl time.Duration) (*ReportCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	utils.Log.Component("cache", "").WithField("addr", addr).Info("Connected to Redis report cache")
	return NewReportCacheFromClient(client, ttl), nil
}

// NewReportCacheFromClient wraps an existing client. A zero ttl keeps
// reports until they are overwritten.
func NewReportCacheFromClient(client *redis.Client, ttl time.Duration) *ReportCache {
	return &ReportCache{client: client, ttl: ttl}
}

func runKey(runID string) string {
	return keyPrefix + runID
}

// Store saves report under its run id and as the latest report.
func (c *ReportCache) Store(ctx context.Context, report *validator.Report) error {
	if report.RunID == "" {
		return fmt.Errorf("cannot cache a report without a run id")
	}
	val, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, runKey(report.RunID), val, c.ttl)
	pipe.Set(ctx, latestKey, val, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store report: %w", err)
	}
	return nil
}

// Get returns the report of a run, or nil on a cache miss.
func (c *ReportCache) Get(ctx context.Context, runID string) (*validator.Report, error) {
	return c.get(ctx, runKey(runID))
}

// Latest returns the most recently stored report, or nil when none is cached.
func (c *ReportCache) Latest(ctx context.Context) (*validator.Report, error) {
	return c.get(ctx, latestKey)
}

func (c *ReportCache) get(ctx context.Context, key string) (*validator.Report, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}

	var report validator.Report
	if err := json.Unmarshal(val, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached report: %w", err)
	}
	return &report, nil
}

// Ping checks the Redis connection.
func (c *ReportCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *ReportCache) Close() error {
	return c.client.Close()
}
