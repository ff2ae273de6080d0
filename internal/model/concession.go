package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func init() {
	// Percentages go over the wire as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// ConcessionCategory is the kind of discount policy a concession represents.
type ConcessionCategory string

const (
	CategoryEWS             ConcessionCategory = "EWS"
	CategoryCorporate       ConcessionCategory = "Corporate Concession"
	CategoryFirstSibling    ConcessionCategory = "First Sibling Concession"
	CategoryStaff           ConcessionCategory = "Staff Concession"
	CategoryManagement      ConcessionCategory = "Management Concession"
	CategoryArmedForces     ConcessionCategory = "Armed Forces Concession"
	CategorySecondSibling   ConcessionCategory = "Second Sibling Concession"
	CategoryScholarship     ConcessionCategory = "Scholarship Concession"
	CategoryReadmission     ConcessionCategory = "Readmission Concession"
	CategoryGirlChild       ConcessionCategory = "Girl Child Concession"
	CategoryEarlyEnrollment ConcessionCategory = "Early Enrollment Concession"
	CategoryOther           ConcessionCategory = "Other"
)

// AllConcessionCategories is the single source of the accepted categories.
// migrations/000001 mirrors it in a CHECK constraint.
var AllConcessionCategories = []ConcessionCategory{
	CategoryEWS,
	CategoryCorporate,
	CategoryFirstSibling,
	CategoryStaff,
	CategoryManagement,
	CategoryArmedForces,
	CategorySecondSibling,
	CategoryScholarship,
	CategoryReadmission,
	CategoryGirlChild,
	CategoryEarlyEnrollment,
	CategoryOther,
}

// IsValidConcessionCategory reports whether c is an accepted category. Matching is case-sensitive.
func IsValidConcessionCategory(c string) bool {
	for _, v := range AllConcessionCategories {
		if string(v) == c {
			return true
		}
	}
	return false
}

var (
	// MinDiscountPercentage and MaxDiscountPercentage bound a discount line, inclusive.
	MinDiscountPercentage = decimal.Zero
	MaxDiscountPercentage = decimal.NewFromInt(100)
)

// PercentageScale is the number of fractional digits a percentage is stored
// with (NUMERIC(5,2)). Finer input is rounded half away from zero.
const PercentageScale = 2

// DiscountLine is one fee group's discount inside a concession.
type DiscountLine struct {
	FeesGroup  FeeGroupRef     `json:"fees_group"`
	Percentage decimal.Decimal `json:"percentage"`
}

// Concession is a branch's discount policy for one category.
type Concession struct {
	ID        uuid.UUID          `json:"id"`
	BranchID  uuid.UUID          `json:"branch_id"`
	Category  ConcessionCategory `json:"category"`
	Discounts []DiscountLine     `json:"discounts"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// DiscountInput is a discount line as sent by the client. Both fields are
// optional at the decoding stage so that missing values can be reported per entry.
type DiscountInput struct {
	FeesGroup  string           `json:"fees_group"`
	Percentage *decimal.Decimal `json:"percentage"`
}

// ConcessionRequest is the payload for creating or replacing a concession.
// Checks run in the service so that they short-circuit in a fixed order.
type ConcessionRequest struct {
	Category  string          `json:"category"`
	Discounts []DiscountInput `json:"discounts"`
}
