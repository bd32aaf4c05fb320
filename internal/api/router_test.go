package api

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gasanashema/Saving-and-credits-MS-sub000/internal/config"
	"github.com/gasanashema/Saving-and-credits-MS-sub000/internal/domain/eligibility"
	"github.com/gasanashema/Saving-and-credits-MS-sub000/internal/domain/loan"
	"github.com/gasanashema/Saving-and-credits-MS-sub000/internal/pkg/apperrors"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stdout, nil))

type stubLoanService struct{}

func (stubLoanService) ManualIntake(ctx context.Context, memberID int64, amount, rate loan.Money, durationMonths int, purpose string) (*loan.Loan, error) {
	return nil, apperrors.ErrNotFound
}

func (stubLoanService) AutoApprovedIntake(ctx context.Context, memberID int64, amount loan.Money, durationMonths int, purpose string) (*loan.Loan, error) {
	return nil, apperrors.ErrNotFound
}

func (stubLoanService) Apply(ctx context.Context, loanID int64, ev loan.TransitionEvent, actor loan.Actor) (*loan.Loan, error) {
	return nil, apperrors.ErrNotFound
}

func (stubLoanService) RecordPayment(ctx context.Context, loanID int64, amount loan.Money, recordedBy int64) (*loan.PaymentResult, error) {
	return nil, apperrors.ErrNotFound
}

func (stubLoanService) GetLoan(ctx context.Context, loanID int64) (*loan.Loan, error) {
	return &loan.Loan{ID: loanID, MemberID: 1, Status: loan.StatusActive}, nil
}

type stubEligibilityService struct{}

func (stubEligibilityService) Evaluate(ctx context.Context, memberID int64) (*eligibility.Decision, error) {
	return &eligibility.Decision{MemberID: memberID, Eligible: true}, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{}
	return SetupRouter(stubLoanService{}, stubEligibilityService{}, nil, cfg, testLogger)
}

func TestRouterVersionedLayout(t *testing.T) {
	router := newTestRouter(t)

	t.Run("business routes live under /api/v1", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/loans/7", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)

		req = httptest.NewRequest(http.MethodGet, "/api/v1/members/1/eligibility", nil)
		rr = httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("unversioned business paths are not mounted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/loans/7", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("health stays at the root", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	})

	t.Run("metrics stay at the root", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	})
}
