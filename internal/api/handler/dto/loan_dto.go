package dto

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gasanashema/Saving-and-credits-MS-sub000/internal/domain/loan"
)

type ManualLoanRequest struct {
	MemberID       int64  `json:"memberId"`
	Amount         string `json:"amount"`
	DurationMonths int    `json:"durationMonths"`
	Rate           string `json:"rate"`
	Purpose        string `json:"purpose"`
}

func (r *ManualLoanRequest) Validate() error {
	if r.MemberID <= 0 {
		return fmt.Errorf("memberId is required")
	}
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil || !amount.GreaterThan(decimal.Zero) {
		return fmt.Errorf("amount must be a positive number")
	}
	if r.DurationMonths <= 0 {
		return fmt.Errorf("durationMonths must be positive")
	}
	if rate, err := decimal.NewFromString(r.Rate); err != nil || rate.IsNegative() {
		return fmt.Errorf("rate must be a non-negative number")
	}
	if r.Purpose == "" {
		return fmt.Errorf("purpose is required")
	}
	return nil
}

type AutoLoanRequest struct {
	MemberID       int64  `json:"memberId"`
	Amount         string `json:"amount"`
	DurationMonths int    `json:"durationMonths"`
	Purpose        string `json:"purpose"`
}

func (r *AutoLoanRequest) Validate() error {
	if r.MemberID <= 0 {
		return fmt.Errorf("memberId is required")
	}
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil || !amount.GreaterThan(decimal.Zero) {
		return fmt.Errorf("amount must be a positive number")
	}
	if r.DurationMonths <= 0 {
		return fmt.Errorf("durationMonths must be positive")
	}
	if r.Purpose == "" {
		return fmt.Errorf("purpose is required")
	}
	return nil
}

type RecordPaymentRequest struct {
	Amount     string `json:"amount"`
	RecordedBy int64  `json:"recordedBy"`
}

func (r *RecordPaymentRequest) Validate() error {
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil || !amount.GreaterThan(decimal.Zero) {
		return fmt.Errorf("amount must be a positive number")
	}
	if r.RecordedBy <= 0 {
		return fmt.Errorf("recordedBy is required")
	}
	return nil
}

type LoanResponse struct {
	ID              string            `json:"id"`
	MemberID        string            `json:"memberId"`
	Principal       string            `json:"principal"`
	Rate            string            `json:"rate"`
	DurationMonths  int               `json:"durationMonths"`
	AmountOwed      string            `json:"amountOwed"`
	PaidAmount      string            `json:"paidAmount"`
	RemainingAmount string            `json:"remainingAmount"`
	Status          string            `json:"status"`
	Purpose         string            `json:"purpose"`
	RequestedAt     time.Time         `json:"requestedAt"`
	ApprovedAt      *time.Time        `json:"approvedAt,omitempty"`
	ApproverID      *string           `json:"approverId,omitempty"`
	Payments        []PaymentResponse `json:"payments,omitempty"`
}

type PaymentResponse struct {
	ID         string    `json:"id"`
	LoanID     string    `json:"loanId"`
	Amount     string    `json:"amount"`
	RecordedBy string    `json:"recordedBy"`
	RecordedAt time.Time `json:"recordedAt"`
}

type RecordPaymentResponse struct {
	Loan      LoanResponse `json:"loan"`
	TotalPaid string       `json:"totalPaid"`
}

type ErrorDetail struct {
	Code    string                      `json:"code,omitempty"`
	Message string                      `json:"message"`
	Field   string                      `json:"field,omitempty"`
	Reason  string                      `json:"reason,omitempty"`
	Limit   string                      `json:"limit,omitempty"`
	Factors *EligibilityFactorsResponse `json:"factors,omitempty"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type TokenRequest struct {
	MemberID int64  `json:"memberId"`
	Role     string `json:"role"`
}

func formatMoney(m loan.Money) string {
	return decimal.NewFromFloat(m).StringFixed(2)
}

func NewLoanResponse(l *loan.Loan, includePayments bool) LoanResponse {
	resp := LoanResponse{
		ID:              strconv.FormatInt(l.ID, 10),
		MemberID:        strconv.FormatInt(l.MemberID, 10),
		Principal:       formatMoney(l.Principal),
		Rate:            decimal.NewFromFloat(l.Rate).String(),
		DurationMonths:  l.DurationMonths,
		AmountOwed:      formatMoney(l.AmountOwed),
		PaidAmount:      formatMoney(l.PaidAmount),
		RemainingAmount: formatMoney(l.RemainingAmount()),
		Status:          string(l.Status),
		Purpose:         l.Purpose,
		RequestedAt:     l.RequestedAt,
		ApprovedAt:      l.ApprovedAt,
	}

	if l.ApproverID != nil {
		approver := strconv.FormatInt(*l.ApproverID, 10)
		resp.ApproverID = &approver
	}

	if includePayments && l.Payments != nil {
		resp.Payments = make([]PaymentResponse, len(l.Payments))
		for i, p := range l.Payments {
			resp.Payments[i] = NewPaymentResponse(p)
		}
	}

	return resp
}

func NewPaymentResponse(p loan.Payment) PaymentResponse {
	return PaymentResponse{
		ID:         strconv.FormatInt(p.ID, 10),
		LoanID:     strconv.FormatInt(p.LoanID, 10),
		Amount:     formatMoney(p.Amount),
		RecordedBy: strconv.FormatInt(p.RecordedBy, 10),
		RecordedAt: p.RecordedAt,
	}
}
