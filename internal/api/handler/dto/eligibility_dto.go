package dto

import (
	"strconv"
	"time"

	"github.com/gasanashema/Saving-and-credits-MS-sub000/internal/domain/eligibility"
	"github.com/gasanashema/Saving-and-credits-MS-sub000/internal/pkg/apperrors"
)

type EligibilityFactorsResponse struct {
	TotalSavings      string `json:"totalSavings"`
	BaseLimit         string `json:"baseLimit"`
	ConsistencyFactor string `json:"consistencyFactor"`
	RepaymentFactor   string `json:"repaymentFactor"`
}

type EligibilityResponse struct {
	MemberID    string                     `json:"memberId"`
	Eligible    bool                       `json:"eligible"`
	Limit       string                     `json:"limit"`
	Reason      string                     `json:"reason,omitempty"`
	Factors     EligibilityFactorsResponse `json:"factors"`
	EvaluatedAt time.Time                  `json:"evaluatedAt"`
}

// NewLimitFactorsResponse renders the breakdown carried by rejection errors.
func NewLimitFactorsResponse(f apperrors.LimitFactors) *EligibilityFactorsResponse {
	return &EligibilityFactorsResponse{
		TotalSavings:      f.TotalSavings.StringFixed(2),
		BaseLimit:         f.BaseLimit.StringFixed(2),
		ConsistencyFactor: f.ConsistencyFactor.String(),
		RepaymentFactor:   f.RepaymentFactor.String(),
	}
}

func NewEligibilityResponse(d *eligibility.Decision) EligibilityResponse {
	return EligibilityResponse{
		MemberID: strconv.FormatInt(d.MemberID, 10),
		Eligible: d.Eligible,
		Limit:    d.Limit.StringFixed(2),
		Reason:   d.Reason,
		Factors: EligibilityFactorsResponse{
			TotalSavings:      d.Factors.TotalSavings.StringFixed(2),
			BaseLimit:         d.Factors.BaseLimit.StringFixed(2),
			ConsistencyFactor: d.Factors.ConsistencyFactor.String(),
			RepaymentFactor:   d.Factors.RepaymentFactor.String(),
		},
		EvaluatedAt: d.EvaluatedAt,
	}
}
