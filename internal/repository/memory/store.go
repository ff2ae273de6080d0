// Package memory holds in-process implementations of the branch-scoped stores.
// They honour the same contracts as the PostgreSQL repositories: pgx.ErrNoRows
// for missing or foreign rows, and *pgconn.PgError with SQLSTATE 23505/23503
// for unique and foreign key violations. Used by tests and local tooling.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stemsi/sekolah-backend/internal/model"
)

type storedLine struct {
	feeGroupID uuid.UUID
	percentage decimal.Decimal
}

type storedConcession struct {
	model.Concession
	lines []storedLine
}

// DB is the shared state behind FeeGroups and Concessions.
type DB struct {
	mu          sync.RWMutex
	feeGroups   map[uuid.UUID]*model.FeeGroup
	concessions map[uuid.UUID]*storedConcession
	clock       time.Time
}

// New returns an empty DB.
func New() *DB {
	return &DB{
		feeGroups:   make(map[uuid.UUID]*model.FeeGroup),
		concessions: make(map[uuid.UUID]*storedConcession),
		clock:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// tick returns a strictly increasing timestamp so creation order is stable.
func (db *DB) tick() time.Time {
	db.clock = db.clock.Add(time.Second)
	return db.clock
}

// FeeGroups is the in-memory fee group store.
type FeeGroups struct{ db *DB }

// Concessions is the in-memory concession store.
type Concessions struct{ db *DB }

func NewFeeGroups(db *DB) *FeeGroups     { return &FeeGroups{db: db} }
func NewConcessions(db *DB) *Concessions { return &Concessions{db: db} }

func (s *FeeGroups) ListByBranch(_ context.Context, branchID uuid.UUID) ([]model.FeeGroup, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var groups []model.FeeGroup
	for _, g := range s.db.feeGroups {
		if g.BranchID == branchID {
			groups = append(groups, *g)
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].CreatedAt.Before(groups[j].CreatedAt) })
	return groups, nil
}

func (s *FeeGroups) GetByIDAndBranch(_ context.Context, branchID, id uuid.UUID) (*model.FeeGroup, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	g, ok := s.db.feeGroups[id]
	if !ok || g.BranchID != branchID {
		return nil, pgx.ErrNoRows
	}
	cp := *g
	return &cp, nil
}

func (s *FeeGroups) Create(_ context.Context, branchID uuid.UUID, g *model.FeeGroup) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if s.db.nameTaken(branchID, g.Name, uuid.Nil) {
		return &pgconn.PgError{Code: "23505", Message: "duplicate fee group name"}
	}
	now := s.db.tick()
	g.ID = uuid.New()
	g.BranchID = branchID
	g.CreatedAt, g.UpdatedAt = now, now
	cp := *g
	s.db.feeGroups[g.ID] = &cp
	return nil
}

func (s *FeeGroups) Update(_ context.Context, branchID uuid.UUID, g *model.FeeGroup) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	cur, ok := s.db.feeGroups[g.ID]
	if !ok || cur.BranchID != branchID {
		return pgx.ErrNoRows
	}
	if s.db.nameTaken(branchID, g.Name, g.ID) {
		return &pgconn.PgError{Code: "23505", Message: "duplicate fee group name"}
	}
	cur.Name, cur.Periodicity, cur.Status = g.Name, g.Periodicity, g.Status
	cur.UpdatedAt = s.db.tick()
	*g = *cur
	return nil
}

func (s *FeeGroups) Delete(_ context.Context, branchID, id uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	g, ok := s.db.feeGroups[id]
	if !ok || g.BranchID != branchID {
		return pgx.ErrNoRows
	}
	for _, c := range s.db.concessions {
		for _, l := range c.lines {
			if l.feeGroupID == id {
				return &pgconn.PgError{Code: "23503", Message: "fee group referenced by concession"}
			}
		}
	}
	delete(s.db.feeGroups, id)
	return nil
}

func (db *DB) nameTaken(branchID uuid.UUID, name string, except uuid.UUID) bool {
	for _, g := range db.feeGroups {
		if g.BranchID == branchID && g.Name == name && g.ID != except {
			return true
		}
	}
	return false
}

func (s *Concessions) ListByBranch(_ context.Context, branchID uuid.UUID) ([]model.Concession, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var out []model.Concession
	for _, c := range s.db.concessions {
		if c.BranchID == branchID {
			out = append(out, s.db.populate(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Concessions) GetByIDAndBranch(_ context.Context, branchID, id uuid.UUID) (*model.Concession, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	c, ok := s.db.concessions[id]
	if !ok || c.BranchID != branchID {
		return nil, pgx.ErrNoRows
	}
	out := s.db.populate(c)
	return &out, nil
}

func (s *Concessions) Create(_ context.Context, branchID uuid.UUID, c *model.Concession) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	lines, err := s.db.toLines(c.Discounts)
	if err != nil {
		return err
	}
	now := s.db.tick()
	c.ID = uuid.New()
	c.BranchID = branchID
	c.CreatedAt, c.UpdatedAt = now, now
	s.db.concessions[c.ID] = &storedConcession{
		Concession: model.Concession{ID: c.ID, BranchID: branchID, Category: c.Category, CreatedAt: now, UpdatedAt: now},
		lines:      lines,
	}
	return nil
}

func (s *Concessions) Replace(_ context.Context, branchID uuid.UUID, c *model.Concession) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	cur, ok := s.db.concessions[c.ID]
	if !ok || cur.BranchID != branchID {
		return pgx.ErrNoRows
	}
	lines, err := s.db.toLines(c.Discounts)
	if err != nil {
		return err
	}
	cur.Category = c.Category
	cur.UpdatedAt = s.db.tick()
	cur.lines = lines

	c.BranchID = branchID
	c.CreatedAt, c.UpdatedAt = cur.CreatedAt, cur.UpdatedAt
	return nil
}

func (s *Concessions) Delete(_ context.Context, branchID, id uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	c, ok := s.db.concessions[id]
	if !ok || c.BranchID != branchID {
		return pgx.ErrNoRows
	}
	delete(s.db.concessions, id)
	return nil
}

func (db *DB) toLines(discounts []model.DiscountLine) ([]storedLine, error) {
	lines := make([]storedLine, 0, len(discounts))
	seen := make(map[uuid.UUID]struct{}, len(discounts))
	for _, d := range discounts {
		if _, ok := db.feeGroups[d.FeesGroup.ID]; !ok {
			return nil, &pgconn.PgError{Code: "23503", Message: "unknown fee group"}
		}
		if _, dup := seen[d.FeesGroup.ID]; dup {
			return nil, &pgconn.PgError{Code: "23505", Message: "duplicate discount line"}
		}
		seen[d.FeesGroup.ID] = struct{}{}
		// NUMERIC(5,2) rounds on insert.
		lines = append(lines, storedLine{feeGroupID: d.FeesGroup.ID, percentage: d.Percentage.Round(model.PercentageScale)})
	}
	return lines, nil
}

// populate resolves fee group names the way the SQL join does.
func (db *DB) populate(c *storedConcession) model.Concession {
	out := c.Concession
	out.Discounts = make([]model.DiscountLine, 0, len(c.lines))
	for _, l := range c.lines {
		ref := model.FeeGroupRef{ID: l.feeGroupID}
		if g, ok := db.feeGroups[l.feeGroupID]; ok {
			ref.Name = g.Name
		}
		out.Discounts = append(out.Discounts, model.DiscountLine{FeesGroup: ref, Percentage: l.percentage})
	}
	return out
}

// ConcessionCount returns how many concessions the branch holds.
func (db *DB) ConcessionCount(branchID uuid.UUID) int {
	db.mu.RLock()
	defer db.mu.RUnlock()

	n := 0
	for _, c := range db.concessions {
		if c.BranchID == branchID {
			n++
		}
	}
	return n
}
