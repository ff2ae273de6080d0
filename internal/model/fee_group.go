package model

import (
	"time"

	"github.com/google/uuid"
)

// FeePeriodicity is how often a fee group is charged.
type FeePeriodicity string

const (
	FeePeriodicityMonthly    FeePeriodicity = "monthly"
	FeePeriodicityQuarterly  FeePeriodicity = "quarterly"
	FeePeriodicityHalfYearly FeePeriodicity = "half_yearly"
	FeePeriodicityYearly     FeePeriodicity = "yearly"
	FeePeriodicityOneTime    FeePeriodicity = "one_time"
)

// AllFeePeriodicities lists the accepted periodicity values.
var AllFeePeriodicities = []FeePeriodicity{
	FeePeriodicityMonthly,
	FeePeriodicityQuarterly,
	FeePeriodicityHalfYearly,
	FeePeriodicityYearly,
	FeePeriodicityOneTime,
}

// IsValidFeePeriodicity reports whether p is one of AllFeePeriodicities.
func IsValidFeePeriodicity(p string) bool {
	for _, v := range AllFeePeriodicities {
		if string(v) == p {
			return true
		}
	}
	return false
}

// FeeGroupStatus values.
const (
	FeeGroupStatusActive   = "active"
	FeeGroupStatusInactive = "inactive"
)

// FeeGroup is a named fee bucket of a branch (e.g. Tuition, Transport).
type FeeGroup struct {
	ID          uuid.UUID      `json:"id"`
	BranchID    uuid.UUID      `json:"branch_id"`
	Name        string         `json:"name"`
	Periodicity FeePeriodicity `json:"periodicity"`
	Status      string         `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// FeeGroupRef is the {id, name} projection used wherever a fee group is referenced.
type FeeGroupRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// CreateFeeGroupRequest is the payload for creating a fee group.
type CreateFeeGroupRequest struct {
	Name        string `json:"name" binding:"required,min=2,max=100"`
	Periodicity string `json:"periodicity" binding:"required,fee_periodicity"`
	Status      string `json:"status" binding:"omitempty,oneof=active inactive"`
}

// UpdateFeeGroupRequest is the payload for updating a fee group.
type UpdateFeeGroupRequest struct {
	Name        string `json:"name" binding:"required,min=2,max=100"`
	Periodicity string `json:"periodicity" binding:"required,fee_periodicity"`
	Status      string `json:"status" binding:"required,oneof=active inactive"`
}
