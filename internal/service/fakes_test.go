package service_test

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stemsi/sekolah-backend/internal/model"
	"github.com/stemsi/sekolah-backend/internal/repository/memory"
)

// localLocker is an in-process BranchLocker.
type localLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
	calls int
	err   error
}

func newLocalLocker() *localLocker {
	return &localLocker{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (l *localLocker) Lock(_ context.Context, branchID uuid.UUID) (func(), error) {
	l.mu.Lock()
	l.calls++
	if l.err != nil {
		l.mu.Unlock()
		return nil, l.err
	}
	m, ok := l.locks[branchID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[branchID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock, nil
}

type mapCache struct {
	mu          sync.Mutex
	lists       map[uuid.UUID][]model.Concession
	versions    map[uuid.UUID]int64
	invalidated []uuid.UUID
}

func newMapCache() *mapCache {
	return &mapCache{
		lists:    make(map[uuid.UUID][]model.Concession),
		versions: make(map[uuid.UUID]int64),
	}
}

func (c *mapCache) Get(_ context.Context, branchID uuid.UUID) ([]model.Concession, int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.lists[branchID]
	return l, c.versions[branchID], ok
}

func (c *mapCache) Set(_ context.Context, branchID uuid.UUID, version int64, list []model.Concession) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.versions[branchID] != version {
		return
	}
	c.lists[branchID] = list
}

func (c *mapCache) Invalidate(_ context.Context, branchID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.versions[branchID]++
	delete(c.lists, branchID)
	c.invalidated = append(c.invalidated, branchID)
}

// hookedConcessions runs afterList once, after the first ListByBranch has
// read its rows and before they are returned.
type hookedConcessions struct {
	*memory.Concessions
	afterList func()
}

func (h *hookedConcessions) ListByBranch(ctx context.Context, branchID uuid.UUID) ([]model.Concession, error) {
	list, err := h.Concessions.ListByBranch(ctx, branchID)
	if h.afterList != nil {
		hook := h.afterList
		h.afterList = nil
		hook()
	}
	return list, err
}

type recordingAudit struct {
	mu     sync.Mutex
	events []model.ConcessionAuditEvent
}

func (a *recordingAudit) Publish(_ context.Context, ev model.ConcessionAuditEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, ev)
}
