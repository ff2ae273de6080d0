package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stemsi/sekolah-backend/internal/model"
)

// ConcessionRepository handles concession data access. Discount lines live in
// concession_discounts and are always written together with their concession.
type ConcessionRepository struct {
	pool *pgxpool.Pool
}

// NewConcessionRepository creates a new ConcessionRepository.
func NewConcessionRepository(pool *pgxpool.Pool) *ConcessionRepository {
	return &ConcessionRepository{pool: pool}
}

// ListByBranch retrieves all concessions of a branch with fee group names resolved.
func (r *ConcessionRepository) ListByBranch(ctx context.Context, branchID uuid.UUID) ([]model.Concession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, branch_id, category, created_at, updated_at
		 FROM concessions WHERE branch_id = $1
		 ORDER BY created_at`, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var concessions []model.Concession
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		var c model.Concession
		if err := rows.Scan(&c.ID, &c.BranchID, &c.Category, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		c.Discounts = []model.DiscountLine{}
		index[c.ID] = len(concessions)
		concessions = append(concessions, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(concessions) == 0 {
		return concessions, nil
	}

	lines, err := r.pool.Query(ctx,
		`SELECT cd.concession_id, fg.id, fg.name, cd.percentage::text
		 FROM concession_discounts cd
		 JOIN concessions c ON c.id = cd.concession_id
		 JOIN fee_groups fg ON fg.id = cd.fee_group_id
		 WHERE c.branch_id = $1
		 ORDER BY cd.concession_id, cd.position`, branchID)
	if err != nil {
		return nil, err
	}
	defer lines.Close()

	for lines.Next() {
		var concessionID uuid.UUID
		line, err := scanDiscountLine(lines, &concessionID)
		if err != nil {
			return nil, err
		}
		if i, ok := index[concessionID]; ok {
			concessions[i].Discounts = append(concessions[i].Discounts, line)
		}
	}
	return concessions, lines.Err()
}

// GetByIDAndBranch retrieves one populated concession. Returns pgx.ErrNoRows
// when it does not exist or belongs to another branch.
func (r *ConcessionRepository) GetByIDAndBranch(ctx context.Context, branchID, id uuid.UUID) (*model.Concession, error) {
	c := &model.Concession{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, branch_id, category, created_at, updated_at
		 FROM concessions WHERE id = $1 AND branch_id = $2`, id, branchID,
	).Scan(&c.ID, &c.BranchID, &c.Category, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT cd.concession_id, fg.id, fg.name, cd.percentage::text
		 FROM concession_discounts cd
		 JOIN fee_groups fg ON fg.id = cd.fee_group_id
		 WHERE cd.concession_id = $1
		 ORDER BY cd.position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	c.Discounts = []model.DiscountLine{}
	for rows.Next() {
		var concessionID uuid.UUID
		line, err := scanDiscountLine(rows, &concessionID)
		if err != nil {
			return nil, err
		}
		c.Discounts = append(c.Discounts, line)
	}
	return c, rows.Err()
}

// Create inserts a concession and its discount lines in one transaction.
func (r *ConcessionRepository) Create(ctx context.Context, branchID uuid.UUID, c *model.Concession) error {
	c.BranchID = branchID
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO concessions (branch_id, category)
			 VALUES ($1, $2)
			 RETURNING id, created_at, updated_at`,
			branchID, c.Category,
		).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert concession: %w", err)
		}
		return insertDiscountLines(ctx, tx, c)
	})
}

// Replace overwrites category and discount lines of an existing concession in
// one transaction. Returns pgx.ErrNoRows when it is not in the branch.
func (r *ConcessionRepository) Replace(ctx context.Context, branchID uuid.UUID, c *model.Concession) error {
	c.BranchID = branchID
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`UPDATE concessions SET category = $1, updated_at = NOW()
			 WHERE id = $2 AND branch_id = $3
			 RETURNING created_at, updated_at`,
			c.Category, c.ID, branchID,
		).Scan(&c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM concession_discounts WHERE concession_id = $1`, c.ID); err != nil {
			return fmt.Errorf("clear discounts: %w", err)
		}
		return insertDiscountLines(ctx, tx, c)
	})
}

// Delete removes a concession of the branch. Discount lines cascade.
func (r *ConcessionRepository) Delete(ctx context.Context, branchID, id uuid.UUID) error {
	cmdTag, err := r.pool.Exec(ctx, `DELETE FROM concessions WHERE id = $1 AND branch_id = $2`, id, branchID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func insertDiscountLines(ctx context.Context, tx pgx.Tx, c *model.Concession) error {
	batch := &pgx.Batch{}
	for i, d := range c.Discounts {
		batch.Queue(
			`INSERT INTO concession_discounts (concession_id, fee_group_id, position, percentage)
			 VALUES ($1, $2, $3, $4::numeric)`,
			c.ID, d.FeesGroup.ID, i, d.Percentage.String(),
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert discounts: %w", err)
	}
	return nil
}

func scanDiscountLine(rows pgx.Rows, concessionID *uuid.UUID) (model.DiscountLine, error) {
	var (
		line model.DiscountLine
		pct  string
	)
	if err := rows.Scan(concessionID, &line.FeesGroup.ID, &line.FeesGroup.Name, &pct); err != nil {
		return line, err
	}
	p, err := decimal.NewFromString(pct)
	if err != nil {
		return line, fmt.Errorf("parse percentage %q: %w", pct, err)
	}
	line.Percentage = p
	return line, nil
}
