package core

import (
	"errors"
	"strings"
	"time"
)

type (
	// TaskRecord is one parsed line item from a builder export. Records are
	// produced by a RecordSource collaborator and are immutable once built.
	TaskRecord struct {
		LotBlock    string
		Plan        string
		Elevation   string
		DrawName    string // bucket label as printed on the source document
		TaskText    string
		AmountCents int64
		StartDate   time.Time // zero when the export has no date column
	}

	// GroupKey identifies one output row: one house.
	GroupKey struct {
		LotBlock string
		Plan     string
	}

	Money struct {
		Cents int64
	}
)

var (
	ErrMissingGroupKey = errors.New("missing lot/block or plan")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyRuleSet    = errors.New("empty rule set")
	ErrRuleNoPredicate = errors.New("rule declares no predicates")
	ErrConflictingRule = errors.New("duplicate bucket with conflicting predicates")
)

// Key returns the cleaned grouping key for the record. Lot numbers lose
// leading zeros and trailing slashes; elevation is folded into the plan.
func (r TaskRecord) Key() GroupKey {
	return GroupKey{
		LotBlock: CleanLotNumber(r.LotBlock),
		Plan:     CombinePlanElevation(r.Plan, r.Elevation),
	}
}

// Validate checks that the record can be aggregated. A record that fails
// here is skipped and counted, never fatal.
func (r TaskRecord) Validate() error {
	if strings.TrimSpace(r.LotBlock) == "" || strings.TrimSpace(r.Plan) == "" {
		return ErrMissingGroupKey
	}
	return nil
}

// CleanLotNumber strips trailing slashes/spaces and leading zeros,
// e.g. "0044/" -> "44". A lot of all zeros stays "0".
func CleanLotNumber(lot string) string {
	lot = strings.TrimRight(strings.TrimSpace(lot), "/ ")
	if lot == "" {
		return ""
	}
	trimmed := strings.TrimLeft(lot, "0")
	if trimmed == "" {
		return "0"
	}
	return trimmed
}

// CombinePlanElevation appends the elevation to the plan when it is not
// already part of it, e.g. plan "2" + elevation "B" -> "2B".
func CombinePlanElevation(plan, elevation string) string {
	plan = strings.TrimSpace(plan)
	elevation = strings.TrimSpace(elevation)
	if elevation == "" || strings.HasSuffix(plan, elevation) {
		return plan
	}
	return plan + elevation
}
