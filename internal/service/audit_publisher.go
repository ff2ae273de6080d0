package service

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/sekolah-backend/internal/config"
	"github.com/stemsi/sekolah-backend/internal/model"
)

// AuditPublisher hands concession audit events to the audit worker.
type AuditPublisher interface {
	Publish(ctx context.Context, ev model.ConcessionAuditEvent)
}

// RedisAuditPublisher pushes events onto config.WorkerKey.ConcessionAuditQueue.
type RedisAuditPublisher struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewRedisAuditPublisher creates a RedisAuditPublisher.
func NewRedisAuditPublisher(rdb *redis.Client, log zerolog.Logger) *RedisAuditPublisher {
	return &RedisAuditPublisher{
		rdb: rdb,
		log: log.With().Str("component", "audit_publisher").Logger(),
	}
}

// Publish enqueues ev. The write it describes is already committed, so a
// failure here is logged and swallowed.
func (p *RedisAuditPublisher) Publish(ctx context.Context, ev model.ConcessionAuditEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		p.log.Error().Err(err).Msg("Audit encode failed")
		return
	}
	if err := p.rdb.RPush(ctx, config.WorkerKey.ConcessionAuditQueue, payload).Err(); err != nil {
		p.log.Error().Err(err).
			Str("branch_id", ev.BranchID.String()).
			Str("concession_id", ev.ConcessionID.String()).
			Msg("Audit enqueue failed")
	}
}
