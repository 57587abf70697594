package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_FailsOnMissingConfig(t *testing.T) {
	for _, key := range []string{"CANVAS_BASE_URL", "CANVAS_ACCESS_TOKEN"} {
		t.Setenv(key, "")
	}

	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func TestRun_FailsOnBadRedisURL(t *testing.T) {
	t.Setenv("CANVAS_BASE_URL", "https://ourdomain.instructure.com/api/v1")
	t.Setenv("CANVAS_ACCESS_TOKEN", "secretkey")
	t.Setenv("REDIS_URL", "not-a-redis-url")

	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis")
}

func TestShutdownTimeout(t *testing.T) {
	assert.Equal(t, 30*time.Second, shutdownTimeout)
}
