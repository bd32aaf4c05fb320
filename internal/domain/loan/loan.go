package loan

import (
	"fmt"
	"math"
	"time"

	"github.com/gasanashema/Saving-and-credits-MS-sub000/internal/pkg/apperrors"
)

const DefaultAnnualRate = 5.0

type Money = float64

type LoanStatus string

const (
	StatusPending   LoanStatus = "PENDING"
	StatusActive    LoanStatus = "ACTIVE"
	StatusRejected  LoanStatus = "REJECTED"
	StatusPaid      LoanStatus = "PAID"
	StatusCancelled LoanStatus = "CANCELLED"
)

// IsTerminal reports whether no further transitions are permitted.
func (s LoanStatus) IsTerminal() bool {
	switch s {
	case StatusRejected, StatusPaid, StatusCancelled:
		return true
	}
	return false
}

func (s LoanStatus) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusRejected, StatusPaid, StatusCancelled:
		return true
	}
	return false
}

// TransitionEvent names a requested lifecycle change on a loan.
type TransitionEvent string

const (
	EventApprove TransitionEvent = "approve"
	EventReject  TransitionEvent = "reject"
	EventCancel  TransitionEvent = "cancel"

	// EventMarkPaid is raised only by the payment ledger once the cumulative
	// paid amount covers the amount owed. It is never accepted from callers.
	EventMarkPaid TransitionEvent = "mark_paid"
)

func ParseTransitionEvent(s string) (TransitionEvent, error) {
	switch TransitionEvent(s) {
	case EventApprove, EventReject, EventCancel:
		return TransitionEvent(s), nil
	}
	return "", fmt.Errorf("%w: unknown loan action %q", apperrors.ErrInvalidArgument, s)
}

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleSystem Role = "system"
)

// Actor identifies who is requesting a transition. System-triggered
// transitions use SystemActor.
type Actor struct {
	MemberID int64
	Role     Role
}

func SystemActor() Actor {
	return Actor{Role: RoleSystem}
}

type Loan struct {
	ID             int64
	MemberID       int64
	Principal      Money
	Rate           Money
	DurationMonths int
	AmountOwed     Money
	PaidAmount     Money
	Status         LoanStatus
	Purpose        string
	RequestedAt    time.Time
	ApprovedAt     *time.Time
	ApproverID     *int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Payments       []Payment
}

// Payment is one append-only ledger entry against a loan.
type Payment struct {
	ID         int64
	LoanID     int64
	Amount     Money
	RecordedBy int64
	RecordedAt time.Time
}

// RemainingAmount is the balance still owed. Never negative: payments are
// rejected once they would push PaidAmount past AmountOwed.
func (l *Loan) RemainingAmount() Money {
	remaining := l.AmountOwed - l.PaidAmount
	if remaining < 0 {
		return 0
	}
	return roundTo(remaining, 2)
}

// ComputeAmountOwed applies the single simple-interest formula used by every
// intake path. The rate is an annual percentage prorated by the loan duration
// in months:
//
//	amountOwed = principal + principal * (rate/100) * (durationMonths/12)
func ComputeAmountOwed(principal, rate Money, durationMonths int) Money {
	interest := principal * (rate / 100) * (float64(durationMonths) / 12)
	return roundTo(principal+interest, 2)
}

// NewLoan builds an unsaved loan in the given initial status. Validation here
// is limited to the fields both intake paths require; eligibility is the
// evaluator's concern.
func NewLoan(memberID int64, principal, rate Money, durationMonths int, purpose string, initial LoanStatus) (*Loan, error) {
	if memberID <= 0 {
		return nil, apperrors.NewValidationError("memberId", "member id is required")
	}
	if principal <= 0 {
		return nil, apperrors.NewValidationError("amount", "amount must be greater than zero")
	}
	if durationMonths <= 0 {
		return nil, apperrors.NewValidationError("durationMonths", "duration must be a positive number of months")
	}
	if rate < 0 {
		return nil, apperrors.NewValidationError("rate", "rate cannot be negative")
	}
	if initial != StatusPending && initial != StatusActive {
		return nil, fmt.Errorf("%w: loans can only be created as PENDING or ACTIVE", apperrors.ErrInvalidArgument)
	}

	now := time.Now()
	l := &Loan{
		MemberID:       memberID,
		Principal:      principal,
		Rate:           rate,
		DurationMonths: durationMonths,
		AmountOwed:     ComputeAmountOwed(principal, rate, durationMonths),
		PaidAmount:     0,
		Status:         initial,
		Purpose:        purpose,
		RequestedAt:    now,
	}
	if initial == StatusActive {
		l.ApprovedAt = &now
	}
	return l, nil
}

// NextStatus validates a requested transition against the current status and
// the actor, returning the resulting status. It never mutates the loan; the
// repository applies the change inside the locking transaction.
func (l *Loan) NextStatus(event TransitionEvent, actor Actor) (LoanStatus, error) {
	switch event {
	case EventApprove:
		if actor.Role != RoleAdmin {
			return "", fmt.Errorf("%w: only an administrator may approve a loan", apperrors.ErrUnauthorized)
		}
		if l.Status != StatusPending {
			return "", fmt.Errorf("%w: cannot approve a %s loan", apperrors.ErrInvalidTransition, l.Status)
		}
		return StatusActive, nil

	case EventReject:
		if actor.Role != RoleAdmin {
			return "", fmt.Errorf("%w: only an administrator may reject a loan", apperrors.ErrUnauthorized)
		}
		if l.Status != StatusPending {
			return "", fmt.Errorf("%w: cannot reject a %s loan", apperrors.ErrInvalidTransition, l.Status)
		}
		return StatusRejected, nil

	case EventCancel:
		if actor.Role != RoleMember || actor.MemberID != l.MemberID {
			return "", fmt.Errorf("%w: only the owning member may cancel a loan", apperrors.ErrUnauthorized)
		}
		if l.Status != StatusPending {
			return "", fmt.Errorf("%w: cannot cancel a %s loan", apperrors.ErrInvalidTransition, l.Status)
		}
		return StatusCancelled, nil

	case EventMarkPaid:
		if actor.Role != RoleSystem {
			return "", fmt.Errorf("%w: only the payment ledger may mark a loan paid", apperrors.ErrUnauthorized)
		}
		if l.Status != StatusActive {
			return "", fmt.Errorf("%w: cannot mark a %s loan paid", apperrors.ErrInvalidTransition, l.Status)
		}
		return StatusPaid, nil
	}

	return "", fmt.Errorf("%w: unknown transition event %q", apperrors.ErrInvalidArgument, event)
}

func roundTo(n float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(n*pow) / pow
}
