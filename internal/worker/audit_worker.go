package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/sekolah-backend/internal/config"
	"github.com/stemsi/sekolah-backend/internal/model"
)

// AuditSink persists one audit event.
type AuditSink interface {
	Insert(ctx context.Context, ev *model.ConcessionAuditEvent) error
}

// AuditWorker consumes the concession audit queue and writes it to PostgreSQL.
type AuditWorker struct {
	sink       AuditSink
	rdb        *redis.Client
	queue      string
	retryDelay time.Duration
	log        zerolog.Logger
}

// NewAuditWorker creates a new AuditWorker.
func NewAuditWorker(sink AuditSink, rdb *redis.Client, log zerolog.Logger) *AuditWorker {
	return &AuditWorker{
		sink:       sink,
		rdb:        rdb,
		queue:      config.WorkerKey.ConcessionAuditQueue,
		retryDelay: 5 * time.Second,
		log:        log.With().Str("component", "audit_worker").Logger(),
	}
}

// Start runs until ctx is cancelled, then drains what is left. Call in a goroutine.
func (w *AuditWorker) Start(ctx context.Context) {
	w.log.Info().Str("queue", w.queue).Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *AuditWorker) processNext(ctx context.Context) {
	result, err := w.rdb.BLPop(ctx, time.Second, w.queue).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}
	if len(result) < 2 {
		return
	}

	if err := w.handle(ctx, result[1]); err != nil {
		w.log.Error().Err(err).Msg("Persist error, retrying")
		w.rdb.RPush(ctx, w.queue, result[1])

		select {
		case <-ctx.Done():
		case <-time.After(w.retryDelay):
		}
	}
}

// handle decodes and persists one payload. Undecodable payloads are dropped.
func (w *AuditWorker) handle(ctx context.Context, raw string) error {
	var ev model.ConcessionAuditEvent
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		w.log.Error().Err(err).Str("payload", raw).Msg("Dropping malformed audit event")
		return nil
	}
	return w.sink.Insert(ctx, &ev)
}

// drain persists all remaining events before shutdown.
func (w *AuditWorker) drain(ctx context.Context) {
	drained := 0
	for {
		raw, err := w.rdb.LPop(ctx, w.queue).Result()
		if err != nil {
			break
		}
		if err := w.handle(ctx, raw); err != nil {
			w.log.Error().Err(err).Msg("Drain persist error")
			w.rdb.RPush(ctx, w.queue, raw)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining audit events")
	}
}
