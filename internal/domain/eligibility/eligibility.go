package eligibility

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/gasanashema/Saving-and-credits-MS-sub000/internal/pkg/apperrors"
)

// Rejection reasons surfaced to callers and written to the audit log.
const (
	ReasonMembershipTooShort = "membership too short"
	ReasonOpenLoanExists     = "active or pending loan exists"
	ReasonZeroSavings        = "zero savings"
	ReasonUnpaidPenalties    = "unpaid penalties"
)

// Factors is the breakdown behind a borrowing limit, kept for traceability.
type Factors struct {
	TotalSavings      decimal.Decimal
	BaseLimit         decimal.Decimal
	ConsistencyFactor decimal.Decimal
	RepaymentFactor   decimal.Decimal
}

// LimitFactors converts the breakdown for embedding in rejection errors.
func (f Factors) LimitFactors() apperrors.LimitFactors {
	return apperrors.LimitFactors{
		TotalSavings:      f.TotalSavings,
		BaseLimit:         f.BaseLimit,
		ConsistencyFactor: f.ConsistencyFactor,
		RepaymentFactor:   f.RepaymentFactor,
	}
}

// Decision is the outcome of one eligibility evaluation. Immutable once
// written to the audit log.
type Decision struct {
	MemberID    int64
	Eligible    bool
	Limit       decimal.Decimal
	Reason      string
	Factors     Factors
	EvaluatedAt time.Time
}

// Policy holds the configurable thresholds of the evaluator.
type Policy struct {
	MinMembershipMonths     int
	SavingsMultiplier       int64
	ConsistencyWindowMonths int
}

func DefaultPolicy() Policy {
	return Policy{
		MinMembershipMonths:     3,
		SavingsMultiplier:       3,
		ConsistencyWindowMonths: 6,
	}
}

var (
	factorNoActivity      = decimal.NewFromFloat(0.5)
	factorPartialActivity = decimal.NewFromFloat(0.8)
	factorFullActivity    = decimal.NewFromInt(1)
)

// ConsistencyFactor discounts the base limit by recent savings activity:
// no deposits in the window halves it, fewer than half the window months
// discounts it to 0.8, otherwise no discount.
func (p Policy) ConsistencyFactor(monthsSaved int) decimal.Decimal {
	switch {
	case monthsSaved == 0:
		return factorNoActivity
	case monthsSaved < p.ConsistencyWindowMonths/2:
		return factorPartialActivity
	default:
		return factorFullActivity
	}
}
