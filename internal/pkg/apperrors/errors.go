package apperrors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound = errors.New("resource not found")

	ErrInvalidArgument = errors.New("invalid argument")

	ErrValidation = errors.New("validation failed")

	ErrUnauthorized = errors.New("unauthorized")

	ErrInvalidTransition = errors.New("transition not permitted from current state")

	ErrInvalidLoanState = errors.New("loan is not in a payable state")

	ErrOverpayment = errors.New("payment exceeds remaining balance")

	ErrOpenLoanExists = errors.New("member already has a pending or active loan")

	ErrDatabase = errors.New("database error")

	ErrInternalServer = errors.New("internal server error")
)

type ValidationError struct {
	Field   string
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

func NewValidationError(field, message string) error {
	return fmt.Errorf("%w: %w", ErrValidation, &ValidationError{Field: field, Message: message})
}

// LimitFactors carries the breakdown behind a borrowing limit so rejection
// responses can show how the limit was derived.
type LimitFactors struct {
	TotalSavings      decimal.Decimal
	BaseLimit         decimal.Decimal
	ConsistencyFactor decimal.Decimal
	RepaymentFactor   decimal.Decimal
}

// IneligibleError is returned by auto-approved intake when the eligibility
// evaluator rejects the member. Reason carries the evaluator verdict verbatim;
// Limit and Factors carry the state of the computation at the rejecting step.
type IneligibleError struct {
	MemberID int64
	Reason   string
	Limit    decimal.Decimal
	Factors  LimitFactors
}

func (e *IneligibleError) Error() string {
	return fmt.Sprintf("member %d is not eligible for a loan: %s", e.MemberID, e.Reason)
}

// AmountExceedsLimitError is returned when a requested principal is above the
// member's computed borrowing limit.
type AmountExceedsLimitError struct {
	Requested decimal.Decimal
	Limit     decimal.Decimal
	Factors   LimitFactors
}

func (e *AmountExceedsLimitError) Error() string {
	return fmt.Sprintf("requested amount %s exceeds borrowing limit %s", e.Requested.StringFixed(2), e.Limit.StringFixed(2))
}

func WrapDatabaseError(cause error, message string) error {
	return fmt.Errorf("%w: %s: %w", ErrDatabase, message, cause)
}
