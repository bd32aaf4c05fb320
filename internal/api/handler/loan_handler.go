package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/gasanashema/Saving-and-credits-MS-sub000/internal/api/handler/dto"
	"github.com/gasanashema/Saving-and-credits-MS-sub000/internal/api/middleware"
	"github.com/gasanashema/Saving-and-credits-MS-sub000/internal/domain/loan"
	"github.com/gasanashema/Saving-and-credits-MS-sub000/internal/pkg/apperrors"
)

type LoanHandler struct {
	service loan.LoanService
	logger  *slog.Logger
}

func NewLoanHandler(s loan.LoanService, l *slog.Logger) *LoanHandler {
	return &LoanHandler{
		service: s,
		logger:  l.With("component", "LoanHandler"),
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return fmt.Errorf("no request body")
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Default().Error("Failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":{"message":"Internal server error"}}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

func respondError(w http.ResponseWriter, err error) {
	status, detail := http.StatusInternalServerError, dto.ErrorDetail{Message: "An unexpected error occurred."}
	var validationError *apperrors.ValidationError
	var ineligibleErr *apperrors.IneligibleError
	var limitErr *apperrors.AmountExceedsLimitError

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		status, detail.Message = http.StatusNotFound, "Resource not found."
	case errors.As(err, &validationError):
		status, detail.Message, detail.Field = http.StatusBadRequest, validationError.Message, validationError.Field
	case errors.Is(err, apperrors.ErrInvalidArgument), errors.Is(err, apperrors.ErrValidation):
		status, detail.Message = http.StatusBadRequest, err.Error()
	case errors.Is(err, apperrors.ErrUnauthorized):
		status, detail.Message = http.StatusForbidden, err.Error()
	case errors.As(err, &ineligibleErr):
		status, detail.Message = http.StatusUnprocessableEntity, err.Error()
		detail.Code, detail.Reason, detail.Limit = "INELIGIBLE", ineligibleErr.Reason, ineligibleErr.Limit.StringFixed(2)
		detail.Factors = dto.NewLimitFactorsResponse(ineligibleErr.Factors)
	case errors.As(err, &limitErr):
		status, detail.Message = http.StatusUnprocessableEntity, err.Error()
		detail.Code, detail.Limit = "AMOUNT_EXCEEDS_LIMIT", limitErr.Limit.StringFixed(2)
		detail.Factors = dto.NewLimitFactorsResponse(limitErr.Factors)
	case errors.Is(err, apperrors.ErrInvalidTransition),
		errors.Is(err, apperrors.ErrInvalidLoanState),
		errors.Is(err, apperrors.ErrOverpayment),
		errors.Is(err, apperrors.ErrOpenLoanExists):
		status, detail.Message = http.StatusConflict, err.Error()
	case errors.Is(err, apperrors.ErrDatabase):
		status, detail.Message = http.StatusServiceUnavailable, "A transient persistence error occurred."
		detail.Code = "PERSISTENCE_ERROR"
	default:
		slog.Default().Error("Unhandled internal error", "error", err)
	}

	respondJSON(w, status, dto.ErrorResponse{Error: detail})
}

func getLoanIDFromURL(r *http.Request) (int64, error) {
	idStr := chi.URLParam(r, "loanID")
	if idStr == "" {
		return 0, fmt.Errorf("loanID not found in URL path")
	}
	return strconv.ParseInt(idStr, 10, 64)
}

func moneyFromString(s string) (loan.Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	f, _ := d.Float64()
	return f, nil
}

// ManualIntake handles loan applications that go to administrator review.
//
// @Summary Apply for a loan (manual review)
// @Description Creates a loan in PENDING status for an administrator to approve or reject.
// @Tags Loans
// @Accept json
// @Produce json
// @Param request body dto.ManualLoanRequest true "Loan application payload"
// @Success 201 {object} dto.LoanResponse "Loan created in PENDING status"
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload"
// @Failure 409 {object} dto.ErrorResponse "Member already has an open loan"
// @Router /loans [post]
// @Security BearerAuth
func (h *LoanHandler) ManualIntake(w http.ResponseWriter, r *http.Request) {
	var req dto.ManualLoanRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	amount, _ := moneyFromString(req.Amount)
	rate, _ := moneyFromString(req.Rate)

	created, err := h.service.ManualIntake(r.Context(), req.MemberID, amount, rate, req.DurationMonths, req.Purpose)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, dto.NewLoanResponse(created, false))
}

// AutoApprovedIntake handles loan applications that are approved on the spot
// when the member's eligibility permits.
//
// @Summary Apply for an auto-approved loan
// @Description Evaluates the member's eligibility and creates the loan directly in ACTIVE status when the requested amount is within the computed limit.
// @Tags Loans
// @Accept json
// @Produce json
// @Param request body dto.AutoLoanRequest true "Loan application payload"
// @Success 201 {object} dto.LoanResponse "Loan created in ACTIVE status"
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload"
// @Failure 422 {object} dto.ErrorResponse "Member ineligible or amount exceeds limit"
// @Router /loans/auto [post]
// @Security BearerAuth
func (h *LoanHandler) AutoApprovedIntake(w http.ResponseWriter, r *http.Request) {
	var req dto.AutoLoanRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	amount, _ := moneyFromString(req.Amount)

	created, err := h.service.AutoApprovedIntake(r.Context(), req.MemberID, amount, req.DurationMonths, req.Purpose)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, dto.NewLoanResponse(created, false))
}

// ApplyAction transitions a loan through its lifecycle.
//
// @Summary Approve, reject or cancel a loan
// @Description Applies a lifecycle action to a PENDING loan. Approve and reject require an administrator; cancel requires the owning member.
// @Tags Loans
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param action path string true "Action" Enums(approve, reject, cancel)
// @Success 200 {object} dto.LoanResponse "Loan after the transition"
// @Failure 403 {object} dto.ErrorResponse "Actor not permitted to perform the action"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 409 {object} dto.ErrorResponse "Transition not permitted from the current status"
// @Router /loans/{loanID}/actions/{action} [post]
// @Security BearerAuth
func (h *LoanHandler) ApplyAction(w http.ResponseWriter, r *http.Request) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	ev, err := loan.ParseTransitionEvent(chi.URLParam(r, "action"))
	if err != nil {
		respondError(w, err)
		return
	}

	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		respondError(w, fmt.Errorf("%w: no authenticated actor", apperrors.ErrUnauthorized))
		return
	}

	updated, err := h.service.Apply(r.Context(), loanID, ev, actor)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewLoanResponse(updated, false))
}

// RecordPayment appends a payment to a loan's ledger.
//
// @Summary Record a loan payment
// @Description Appends a payment, recomputes the cumulative paid amount and marks the loan PAID once the balance is settled.
// @Tags Loans
// @Accept json
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param request body dto.RecordPaymentRequest true "Payment payload"
// @Success 200 {object} dto.RecordPaymentResponse "Loan and recomputed total paid"
// @Failure 400 {object} dto.ErrorResponse "Invalid payload"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 409 {object} dto.ErrorResponse "Loan not active or payment exceeds remaining balance"
// @Router /loans/{loanID}/payments [post]
// @Security BearerAuth
func (h *LoanHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	var req dto.RecordPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	amount, _ := moneyFromString(req.Amount)

	result, err := h.service.RecordPayment(r.Context(), loanID, amount, req.RecordedBy)
	if err != nil {
		respondError(w, err)
		return
	}

	resp := dto.RecordPaymentResponse{
		Loan:      dto.NewLoanResponse(result.Loan, false),
		TotalPaid: decimal.NewFromFloat(result.TotalPaid).StringFixed(2),
	}
	respondJSON(w, http.StatusOK, resp)
}

// GetLoan returns a loan with its payment history.
//
// @Summary Retrieve loan details
// @Description Returns the loan, its payment history ordered by recording time, and the derived remaining amount.
// @Tags Loans
// @Produce json
// @Param loanID path int true "Loan ID"
// @Success 200 {object} dto.LoanResponse "Loan details"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Router /loans/{loanID} [get]
// @Security BearerAuth
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	domainLoan, err := h.service.GetLoan(r.Context(), loanID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewLoanResponse(domainLoan, true))
}
