package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/sekolah-backend/internal/model"
)

// ConcessionService validates and persists branch concession policies.
//
// A concession is accepted only when it carries exactly one discount line for
// every fee group the branch currently defines. Writes of one branch are
// serialized with the BranchLocker so the fee group set cannot change between
// validation and persistence.
type ConcessionService struct {
	concessions ConcessionStore
	feeGroups   FeeGroupStore
	locker      BranchLocker
	cache       ConcessionCache
	audit       AuditPublisher
	log         zerolog.Logger
}

// NewConcessionService creates a new ConcessionService.
func NewConcessionService(
	concessions ConcessionStore,
	feeGroups FeeGroupStore,
	locker BranchLocker,
	cache ConcessionCache,
	audit AuditPublisher,
	log zerolog.Logger,
) *ConcessionService {
	return &ConcessionService{
		concessions: concessions,
		feeGroups:   feeGroups,
		locker:      locker,
		cache:       cache,
		audit:       audit,
		log:         log.With().Str("component", "concession_service").Logger(),
	}
}

// Categories returns the accepted concession categories.
func (s *ConcessionService) Categories() []model.ConcessionCategory {
	return model.AllConcessionCategories
}

// List returns all concessions of the branch, populated.
func (s *ConcessionService) List(ctx context.Context, branchID uuid.UUID) ([]model.Concession, error) {
	if branchID == uuid.Nil {
		return nil, ErrBranchMissing
	}

	cached, version, ok := s.cache.Get(ctx, branchID)
	if ok {
		return cached, nil
	}

	concessions, err := s.concessions.ListByBranch(ctx, branchID)
	if err != nil {
		return nil, fmt.Errorf("list concessions: %w", err)
	}
	if concessions == nil {
		concessions = []model.Concession{}
	}

	s.cache.Set(ctx, branchID, version, concessions)
	return concessions, nil
}

// Get returns one populated concession of the branch.
func (s *ConcessionService) Get(ctx context.Context, branchID, id uuid.UUID) (*model.Concession, error) {
	if branchID == uuid.Nil {
		return nil, ErrBranchMissing
	}

	c, err := s.concessions.GetByIDAndBranch(ctx, branchID, id)
	if err != nil {
		return nil, notFoundOr(err, "get concession")
	}
	return c, nil
}

// ListFeeGroupRefs returns the branch's fee groups as {id, name}, the data a
// client needs to build a form covering every group.
func (s *ConcessionService) ListFeeGroupRefs(ctx context.Context, branchID uuid.UUID) ([]model.FeeGroupRef, error) {
	if branchID == uuid.Nil {
		return nil, ErrBranchMissing
	}

	groups, err := s.feeGroups.ListByBranch(ctx, branchID)
	if err != nil {
		return nil, fmt.Errorf("list fee groups: %w", err)
	}

	refs := make([]model.FeeGroupRef, 0, len(groups))
	for _, g := range groups {
		refs = append(refs, model.FeeGroupRef{ID: g.ID, Name: g.Name})
	}
	return refs, nil
}

// Create validates req against the branch's current fee groups and stores it.
func (s *ConcessionService) Create(ctx context.Context, branchID uuid.UUID, actorID string, req model.ConcessionRequest) (*model.Concession, error) {
	if branchID == uuid.Nil {
		return nil, ErrBranchMissing
	}
	if err := checkHeader(req); err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, branchID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	lines, err := s.checkDiscounts(ctx, branchID, req.Discounts)
	if err != nil {
		return nil, err
	}

	c := &model.Concession{
		Category:  model.ConcessionCategory(req.Category),
		Discounts: lines,
	}
	if err := s.concessions.Create(ctx, branchID, c); err != nil {
		return nil, fmt.Errorf("create concession: %w", err)
	}

	s.afterWrite(ctx, model.AuditConcessionCreated, branchID, actorID, c.ID, c.Category)
	s.log.Info().
		Str("branch_id", branchID.String()).
		Str("concession_id", c.ID.String()).
		Str("category", string(c.Category)).
		Int("lines", len(c.Discounts)).
		Msg("Concession created")

	return c, nil
}

// Update replaces category and discounts of an existing concession. Coverage
// is checked against the fee groups the branch has now, so groups added since
// creation must be covered too.
func (s *ConcessionService) Update(ctx context.Context, branchID uuid.UUID, actorID string, id uuid.UUID, req model.ConcessionRequest) (*model.Concession, error) {
	if branchID == uuid.Nil {
		return nil, ErrBranchMissing
	}

	unlock, err := s.locker.Lock(ctx, branchID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	existing, err := s.concessions.GetByIDAndBranch(ctx, branchID, id)
	if err != nil {
		return nil, notFoundOr(err, "get concession")
	}

	if err := checkHeader(req); err != nil {
		return nil, err
	}
	lines, err := s.checkDiscounts(ctx, branchID, req.Discounts)
	if err != nil {
		return nil, err
	}

	c := &model.Concession{
		ID:        existing.ID,
		Category:  model.ConcessionCategory(req.Category),
		Discounts: lines,
	}
	if err := s.concessions.Replace(ctx, branchID, c); err != nil {
		return nil, notFoundOr(err, "replace concession")
	}

	s.afterWrite(ctx, model.AuditConcessionUpdated, branchID, actorID, c.ID, c.Category)
	s.log.Info().
		Str("branch_id", branchID.String()).
		Str("concession_id", c.ID.String()).
		Msg("Concession updated")

	return c, nil
}

// Delete removes a concession of the branch. Fee groups are left untouched.
func (s *ConcessionService) Delete(ctx context.Context, branchID uuid.UUID, actorID string, id uuid.UUID) error {
	if branchID == uuid.Nil {
		return ErrBranchMissing
	}

	existing, err := s.concessions.GetByIDAndBranch(ctx, branchID, id)
	if err != nil {
		return notFoundOr(err, "get concession")
	}

	if err := s.concessions.Delete(ctx, branchID, id); err != nil {
		return notFoundOr(err, "delete concession")
	}

	s.afterWrite(ctx, model.AuditConcessionDeleted, branchID, actorID, id, existing.Category)
	return nil
}

// checkHeader covers the checks that need no database access.
func checkHeader(req model.ConcessionRequest) error {
	if req.Category == "" || len(req.Discounts) == 0 {
		return invalid("discounts", "Category and discounts are required")
	}
	if !model.IsValidConcessionCategory(req.Category) {
		return invalid("category", "Invalid category")
	}
	return nil
}

// checkDiscounts validates every line in order and then the coverage of the
// branch's fee groups. It returns the lines with fee group names resolved.
func (s *ConcessionService) checkDiscounts(ctx context.Context, branchID uuid.UUID, inputs []model.DiscountInput) ([]model.DiscountLine, error) {
	groups, err := s.feeGroups.ListByBranch(ctx, branchID)
	if err != nil {
		return nil, fmt.Errorf("list fee groups: %w", err)
	}

	lines := make([]model.DiscountLine, 0, len(inputs))
	seen := make(map[uuid.UUID]struct{}, len(inputs))

	for i, in := range inputs {
		if in.FeesGroup == "" || in.Percentage == nil {
			return nil, invalid("discounts",
				fmt.Sprintf("Each discount must include fees_group and percentage (entry %d)", i+1))
		}

		groupID, err := uuid.Parse(in.FeesGroup)
		if err != nil {
			return nil, invalid("discounts", fmt.Sprintf("Invalid fees_group id: %s", in.FeesGroup))
		}

		pct := *in.Percentage
		if pct.LessThan(model.MinDiscountPercentage) || pct.GreaterThan(model.MaxDiscountPercentage) {
			return nil, invalid("discounts",
				fmt.Sprintf("Discount percentage for fee group %s must be between 0 and 100", in.FeesGroup))
		}

		group, err := s.feeGroups.GetByIDAndBranch(ctx, branchID, groupID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, invalid("discounts", fmt.Sprintf("Fee group %s not found for this branch", in.FeesGroup))
			}
			return nil, fmt.Errorf("get fee group: %w", err)
		}

		if _, dup := seen[groupID]; dup {
			return nil, invalid("discounts", fmt.Sprintf("Duplicate discount for fee group %s", in.FeesGroup))
		}
		seen[groupID] = struct{}{}

		lines = append(lines, model.DiscountLine{
			FeesGroup:  model.FeeGroupRef{ID: group.ID, Name: group.Name},
			Percentage: pct.Round(model.PercentageScale),
		})
	}

	var missing []string
	for _, g := range groups {
		if _, ok := seen[g.ID]; !ok {
			missing = append(missing, g.ID.String())
		}
	}
	if len(missing) > 0 {
		return nil, invalid("discounts",
			"Discounts must be provided for all fee groups. Missing: "+strings.Join(missing, ", "))
	}

	return lines, nil
}

func (s *ConcessionService) afterWrite(ctx context.Context, action model.AuditAction, branchID uuid.UUID, actorID string, id uuid.UUID, category model.ConcessionCategory) {
	s.cache.Invalidate(ctx, branchID)
	s.audit.Publish(ctx, model.ConcessionAuditEvent{
		Action:       action,
		BranchID:     branchID,
		ConcessionID: id,
		ActorID:      actorID,
		Category:     category,
		OccurredAt:   time.Now().UTC(),
	})
}

// notFoundOr maps pgx.ErrNoRows to ErrNotFound and wraps anything else.
func notFoundOr(err error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
