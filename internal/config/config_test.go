package config

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BRANCH_LOCK_WAIT_MS", "250")
	t.Setenv("CONCESSION_CACHE_TTL_SECONDS", "30")
	t.Setenv("WRITE_RATE_LIMIT_PER_MINUTE", "not-a-number")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")

	cfg := Load()
	assert.Equal(t, 250*time.Millisecond, cfg.BranchLockWait)
	assert.Equal(t, 30*time.Second, cfg.ConcessionCacheTTL)
	assert.Equal(t, 60, cfg.WriteRatePerMinute, "bad ints fall back to the default")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestCacheKeys(t *testing.T) {
	id := uuid.MustParse("3f1d2a4e-9b7c-4d8e-a1f2-0c3b4a5d6e7f")
	assert.Equal(t, "branch:3f1d2a4e-9b7c-4d8e-a1f2-0c3b4a5d6e7f:concessions", CacheKey.BranchConcessionsKey(id))
	assert.Equal(t, "branch:3f1d2a4e-9b7c-4d8e-a1f2-0c3b4a5d6e7f:concessions:version", CacheKey.BranchConcessionsVersionKey(id))
	assert.Equal(t, "lock:branch:3f1d2a4e-9b7c-4d8e-a1f2-0c3b4a5d6e7f:concessions", CacheKey.BranchWriteLockKey(id))
}
