package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/sekolah-backend/internal/config"
	"github.com/stemsi/sekolah-backend/internal/model"
)

// ConcessionCache holds the populated concession list of each branch.
// Cache failures are logged and never fail a request.
//
// Every Invalidate bumps a per-branch version. Get reports the version it saw
// on a miss, and Set stores the list only if that version is still current,
// so a list read before a write cannot be cached after it.
type ConcessionCache interface {
	Get(ctx context.Context, branchID uuid.UUID) (concessions []model.Concession, version int64, ok bool)
	Set(ctx context.Context, branchID uuid.UUID, version int64, concessions []model.Concession)
	Invalidate(ctx context.Context, branchID uuid.UUID)
}

// setIfVersionScript writes KEYS[1] only while KEYS[2] still holds ARGV[1].
// A missing version counts as 0.
var setIfVersionScript = redis.NewScript(`
local v = redis.call("GET", KEYS[2])
if (v or "0") == ARGV[1] then
	redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
	return 1
end
return 0
`)

// RedisConcessionCache stores the list as JSON under config.CacheKey.BranchConcessionsKey.
type RedisConcessionCache struct {
	rdb *redis.Client
	ttl time.Duration
	log zerolog.Logger
}

// NewRedisConcessionCache creates a RedisConcessionCache.
func NewRedisConcessionCache(rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *RedisConcessionCache {
	return &RedisConcessionCache{
		rdb: rdb,
		ttl: ttl,
		log: log.With().Str("component", "concession_cache").Logger(),
	}
}

// Get returns the cached list. On a miss the returned version must be passed to Set.
func (c *RedisConcessionCache) Get(ctx context.Context, branchID uuid.UUID) ([]model.Concession, int64, bool) {
	pipe := c.rdb.Pipeline()
	listCmd := pipe.Get(ctx, config.CacheKey.BranchConcessionsKey(branchID))
	versionCmd := pipe.Get(ctx, config.CacheKey.BranchConcessionsVersionKey(branchID))
	_, _ = pipe.Exec(ctx)

	version, err := versionCmd.Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		c.log.Warn().Err(err).Str("branch_id", branchID.String()).Msg("Cache version read failed")
		// -1 never matches, so the following Set is skipped.
		return nil, -1, false
	}

	raw, err := listCmd.Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Str("branch_id", branchID.String()).Msg("Cache read failed")
		}
		return nil, version, false
	}

	var concessions []model.Concession
	if err := json.Unmarshal(raw, &concessions); err != nil {
		c.log.Warn().Err(err).Str("branch_id", branchID.String()).Msg("Cache payload corrupt")
		return nil, version, false
	}
	return concessions, version, true
}

// Set caches concessions unless the branch was invalidated after version was read.
func (c *RedisConcessionCache) Set(ctx context.Context, branchID uuid.UUID, version int64, concessions []model.Concession) {
	if version < 0 {
		return
	}
	raw, err := json.Marshal(concessions)
	if err != nil {
		c.log.Warn().Err(err).Msg("Cache encode failed")
		return
	}

	keys := []string{
		config.CacheKey.BranchConcessionsKey(branchID),
		config.CacheKey.BranchConcessionsVersionKey(branchID),
	}
	stored, err := setIfVersionScript.Run(ctx, c.rdb, keys,
		strconv.FormatInt(version, 10), raw, c.ttl.Milliseconds()).Int()
	if err != nil {
		c.log.Warn().Err(err).Str("branch_id", branchID.String()).Msg("Cache write failed")
		return
	}
	if stored == 0 {
		c.log.Debug().Str("branch_id", branchID.String()).Msg("Skipped caching list read before a write")
	}
}

// Invalidate bumps the branch version and drops the cached list.
func (c *RedisConcessionCache) Invalidate(ctx context.Context, branchID uuid.UUID) {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, config.CacheKey.BranchConcessionsVersionKey(branchID))
		pipe.Del(ctx, config.CacheKey.BranchConcessionsKey(branchID))
		return nil
	})
	if err != nil {
		c.log.Warn().Err(err).Str("branch_id", branchID.String()).Msg("Cache invalidation failed")
	}
}
