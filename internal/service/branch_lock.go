package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/sekolah-backend/internal/config"
)

const lockPollInterval = 50 * time.Millisecond

// BranchLocker serializes writes that must observe a stable fee group set.
type BranchLocker interface {
	Lock(ctx context.Context, branchID uuid.UUID) (unlock func(), err error)
}

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisBranchLocker is a per-branch mutex held in Redis, shared by all server instances.
type RedisBranchLocker struct {
	rdb  *redis.Client
	ttl  time.Duration
	wait time.Duration
	log  zerolog.Logger
}

// NewRedisBranchLocker creates a RedisBranchLocker.
func NewRedisBranchLocker(rdb *redis.Client, ttl, wait time.Duration, log zerolog.Logger) *RedisBranchLocker {
	return &RedisBranchLocker{
		rdb:  rdb,
		ttl:  ttl,
		wait: wait,
		log:  log.With().Str("component", "branch_lock").Logger(),
	}
}

// Lock blocks until the branch lock is held. It returns ErrBranchBusy when the
// wait budget or ctx's deadline runs out first, and ctx.Err() when ctx is
// cancelled.
func (l *RedisBranchLocker) Lock(ctx context.Context, branchID uuid.UUID) (func(), error) {
	key := config.CacheKey.BranchWriteLockKey(branchID)
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, busyOr(ctxErr)
			}
			return nil, fmt.Errorf("acquire branch lock: %w", err)
		}
		if ok {
			return func() { l.release(key, token) }, nil
		}
		if time.Now().After(deadline) {
			l.log.Warn().Str("branch_id", branchID.String()).Dur("waited", l.wait).Msg("Branch lock busy")
			return nil, ErrBranchBusy
		}

		select {
		case <-ctx.Done():
			return nil, busyOr(ctx.Err())
		case <-time.After(lockPollInterval):
		}
	}
}

// busyOr reports a caller deadline spent waiting as ErrBranchBusy.
func busyOr(ctxErr error) error {
	if errors.Is(ctxErr, context.DeadlineExceeded) {
		return ErrBranchBusy
	}
	return ctxErr
}

func (l *RedisBranchLocker) release(key, token string) {
	// The request context may already be cancelled; release must still run.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := releaseScript.Run(ctx, l.rdb, []string{key}, token).Err(); err != nil {
		l.log.Warn().Err(err).Str("key", key).Msg("Failed to release branch lock, waiting for TTL")
	}
}
