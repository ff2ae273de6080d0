package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/sekolah-backend/internal/model"
)

// FeeGroupRepository handles fee group data access. Every query is scoped by branch.
type FeeGroupRepository struct {
	pool *pgxpool.Pool
}

// NewFeeGroupRepository creates a new FeeGroupRepository.
func NewFeeGroupRepository(pool *pgxpool.Pool) *FeeGroupRepository {
	return &FeeGroupRepository{pool: pool}
}

// ListByBranch retrieves all fee groups of a branch in creation order.
func (r *FeeGroupRepository) ListByBranch(ctx context.Context, branchID uuid.UUID) ([]model.FeeGroup, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, branch_id, name, periodicity, status, created_at, updated_at
		 FROM fee_groups WHERE branch_id = $1
		 ORDER BY created_at, name`, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []model.FeeGroup
	for rows.Next() {
		var g model.FeeGroup
		if err := rows.Scan(&g.ID, &g.BranchID, &g.Name, &g.Periodicity, &g.Status, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// GetByIDAndBranch retrieves one fee group. Returns pgx.ErrNoRows when the
// group does not exist or belongs to another branch.
func (r *FeeGroupRepository) GetByIDAndBranch(ctx context.Context, branchID, id uuid.UUID) (*model.FeeGroup, error) {
	g := &model.FeeGroup{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, branch_id, name, periodicity, status, created_at, updated_at
		 FROM fee_groups WHERE id = $1 AND branch_id = $2`, id, branchID,
	).Scan(&g.ID, &g.BranchID, &g.Name, &g.Periodicity, &g.Status, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// Create inserts a new fee group for the branch.
func (r *FeeGroupRepository) Create(ctx context.Context, branchID uuid.UUID, g *model.FeeGroup) error {
	g.BranchID = branchID
	return r.pool.QueryRow(ctx,
		`INSERT INTO fee_groups (branch_id, name, periodicity, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		branchID, g.Name, g.Periodicity, g.Status,
	).Scan(&g.ID, &g.CreatedAt, &g.UpdatedAt)
}

// Update modifies an existing fee group of the branch.
func (r *FeeGroupRepository) Update(ctx context.Context, branchID uuid.UUID, g *model.FeeGroup) error {
	g.BranchID = branchID
	return r.pool.QueryRow(ctx,
		`UPDATE fee_groups SET name = $1, periodicity = $2, status = $3, updated_at = NOW()
		 WHERE id = $4 AND branch_id = $5
		 RETURNING created_at, updated_at`,
		g.Name, g.Periodicity, g.Status, g.ID, branchID,
	).Scan(&g.CreatedAt, &g.UpdatedAt)
}

// Delete removes a fee group of the branch. A fee group still referenced by a
// concession is protected by the foreign key (SQLSTATE 23503).
func (r *FeeGroupRepository) Delete(ctx context.Context, branchID, id uuid.UUID) error {
	cmdTag, err := r.pool.Exec(ctx, `DELETE FROM fee_groups WHERE id = $1 AND branch_id = $2`, id, branchID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
