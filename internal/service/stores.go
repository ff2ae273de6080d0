package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/stemsi/sekolah-backend/internal/model"
)

// Every store method takes the branch as its first argument after the context,
// so an unscoped query cannot be expressed. Lookups of a missing or foreign
// record return pgx.ErrNoRows.

// FeeGroupStore is the fee group persistence used by the services.
type FeeGroupStore interface {
	ListByBranch(ctx context.Context, branchID uuid.UUID) ([]model.FeeGroup, error)
	GetByIDAndBranch(ctx context.Context, branchID, id uuid.UUID) (*model.FeeGroup, error)
	Create(ctx context.Context, branchID uuid.UUID, g *model.FeeGroup) error
	Update(ctx context.Context, branchID uuid.UUID, g *model.FeeGroup) error
	Delete(ctx context.Context, branchID, id uuid.UUID) error
}

// ConcessionStore is the concession persistence used by ConcessionService.
// Reads return discount lines with fee group names resolved.
type ConcessionStore interface {
	ListByBranch(ctx context.Context, branchID uuid.UUID) ([]model.Concession, error)
	GetByIDAndBranch(ctx context.Context, branchID, id uuid.UUID) (*model.Concession, error)
	Create(ctx context.Context, branchID uuid.UUID, c *model.Concession) error
	Replace(ctx context.Context, branchID uuid.UUID, c *model.Concession) error
	Delete(ctx context.Context, branchID, id uuid.UUID) error
}
