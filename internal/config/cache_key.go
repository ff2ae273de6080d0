package config

import (
	"fmt"

	"github.com/google/uuid"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// BranchConcessionsKey returns the cache key for a branch's populated concession list
func (r *CacheKeyStruct) BranchConcessionsKey(branchID uuid.UUID) string {
	return fmt.Sprintf("branch:%s:concessions", branchID)
}

// BranchConcessionsVersionKey returns the counter bumped by every write that invalidates the list
func (r *CacheKeyStruct) BranchConcessionsVersionKey(branchID uuid.UUID) string {
	return fmt.Sprintf("branch:%s:concessions:version", branchID)
}

// BranchWriteLockKey returns the key of the lock serializing concession and fee group writes of a branch
func (r *CacheKeyStruct) BranchWriteLockKey(branchID uuid.UUID) string {
	return fmt.Sprintf("lock:branch:%s:concessions", branchID)
}

var CacheKey = NewCacheKeyStruct()
