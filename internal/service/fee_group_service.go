package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/sekolah-backend/internal/model"
)

// FeeGroupService handles fee group administration for a branch.
// Writes hold the branch lock so they never interleave with a concession
// being validated against the same fee group set.
type FeeGroupService struct {
	feeGroups FeeGroupStore
	locker    BranchLocker
	cache     ConcessionCache
	log       zerolog.Logger
}

// NewFeeGroupService creates a FeeGroupService.
func NewFeeGroupService(feeGroups FeeGroupStore, locker BranchLocker, cache ConcessionCache, log zerolog.Logger) *FeeGroupService {
	return &FeeGroupService{
		feeGroups: feeGroups,
		locker:    locker,
		cache:     cache,
		log:       log.With().Str("component", "fee_group_service").Logger(),
	}
}

// List returns the branch's fee groups, never nil.
func (s *FeeGroupService) List(ctx context.Context, branchID uuid.UUID) ([]model.FeeGroup, error) {
	if branchID == uuid.Nil {
		return nil, ErrBranchMissing
	}
	groups, err := s.feeGroups.ListByBranch(ctx, branchID)
	if err != nil {
		return nil, fmt.Errorf("list fee groups: %w", err)
	}
	if groups == nil {
		groups = []model.FeeGroup{}
	}
	return groups, nil
}

// Create adds a fee group to the branch. Status defaults to active.
// Existing concessions are left as they are and fail the coverage check
// on their next update until they cover the new group.
func (s *FeeGroupService) Create(ctx context.Context, branchID uuid.UUID, req model.CreateFeeGroupRequest) (*model.FeeGroup, error) {
	if branchID == uuid.Nil {
		return nil, ErrBranchMissing
	}

	status := req.Status
	if status == "" {
		status = model.FeeGroupStatusActive
	}
	g := &model.FeeGroup{
		Name:        req.Name,
		Periodicity: model.FeePeriodicity(req.Periodicity),
		Status:      status,
	}

	err := s.withBranchLock(ctx, branchID, func() error {
		return s.feeGroups.Create(ctx, branchID, g)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("branch_id", branchID.String()).
		Str("fee_group_id", g.ID.String()).
		Msg("Fee group created, existing concessions must be updated to cover it")
	return g, nil
}

// Update replaces the editable fields of a branch fee group.
// Returns ErrNotFound when the group belongs to another branch.
func (s *FeeGroupService) Update(ctx context.Context, branchID, id uuid.UUID, req model.UpdateFeeGroupRequest) (*model.FeeGroup, error) {
	if branchID == uuid.Nil {
		return nil, ErrBranchMissing
	}

	g := &model.FeeGroup{
		ID:          id,
		Name:        req.Name,
		Periodicity: model.FeePeriodicity(req.Periodicity),
		Status:      req.Status,
	}

	err := s.withBranchLock(ctx, branchID, func() error {
		if err := s.feeGroups.Update(ctx, branchID, g); err != nil {
			return notFoundOr(err, "update fee group")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

// Delete removes a branch fee group. A group still referenced by a
// concession discount fails with the store's foreign key error.
func (s *FeeGroupService) Delete(ctx context.Context, branchID, id uuid.UUID) error {
	if branchID == uuid.Nil {
		return ErrBranchMissing
	}
	return s.withBranchLock(ctx, branchID, func() error {
		if err := s.feeGroups.Delete(ctx, branchID, id); err != nil {
			return notFoundOr(err, "delete fee group")
		}
		return nil
	})
}

// withBranchLock runs fn under the branch lock and drops the cached
// concession list afterwards, since it embeds fee group names.
func (s *FeeGroupService) withBranchLock(ctx context.Context, branchID uuid.UUID, fn func() error) error {
	unlock, err := s.locker.Lock(ctx, branchID)
	if err != nil {
		return err
	}
	defer unlock()

	if err := fn(); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, branchID)
	return nil
}
