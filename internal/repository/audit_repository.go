package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/sekolah-backend/internal/model"
)

// AuditRepository persists concession audit events.
type AuditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// Insert appends one audit event.
func (r *AuditRepository) Insert(ctx context.Context, ev *model.ConcessionAuditEvent) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO concession_audit_logs (action, branch_id, concession_id, actor_id, category, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		ev.Action, ev.BranchID, ev.ConcessionID, ev.ActorID, ev.Category, ev.OccurredAt,
	)
	return err
}
