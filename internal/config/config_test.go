package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("SESSION_DEBOUNCE", "")

	cfg := FromEnv()
	assert.Equal(t, StorageSQL, cfg.StorageDriver)
	assert.Equal(t, 100*time.Millisecond, cfg.DebounceWindow)
	assert.Equal(t, 5, cfg.QueueBatchSize)
	assert.Equal(t, 60*time.Second, cfg.ProgressCacheTTL)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "redis")
	t.Setenv("SESSION_DEBOUNCE", "250ms")
	t.Setenv("STORAGE_QUEUE_BATCH", "not-a-number")
	t.Setenv("LOG_DEV", "yes")
	t.Setenv("CORS_ORIGINS", " http://a.test , ,http://b.test")

	cfg := FromEnv()
	assert.Equal(t, StorageRedis, cfg.StorageDriver)
	assert.Equal(t, 250*time.Millisecond, cfg.DebounceWindow)
	assert.Equal(t, 5, cfg.QueueBatchSize)
	assert.True(t, cfg.LogDev)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
}
