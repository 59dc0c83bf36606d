package cache

import (
	"context"
	"testing"
	"time"

	"dataset-service/internal/validator"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

// unreachable points at a port nothing listens on.
func unreachable() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestRunKey(t *testing.T) {
	assert.Equal(t, "dataset:report:abc", runKey("abc"))
	assert.Equal(t, "dataset:report:latest", latestKey)
}

func TestStore_RequiresRunID(t *testing.T) {
	c := NewReportCacheFromClient(unreachable(), time.Hour)
	defer c.Close()

	err := c.Store(context.Background(), &validator.Report{})
	assert.ErrorContains(t, err, "run id")
}

func TestUnreachableRedis(t *testing.T) {
	ctx := context.Background()

	_, err := NewReportCache(ctx, "127.0.0.1:1", "", 0, time.Hour)
	assert.Error(t, err)

	c := NewReportCacheFromClient(unreachable(), time.Hour)
	defer c.Close()

	assert.Error(t, c.Store(ctx, &validator.Report{RunID: "run-1"}))
	report, err := c.Latest(ctx)
	assert.Error(t, err)
	assert.Nil(t, report)
}
