package loan

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRepository struct {
	mock.Mock
}

type TxMock struct {
	pgx.Tx
}

var tx pgx.Tx = &TxMock{}

func (m *MockRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	return args.Get(0).(pgx.Tx), args.Error(1)
}

func (m *MockRepository) CommitTx(ctx context.Context, tx pgx.Tx) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockRepository) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockRepository) AcquireMemberLock(ctx context.Context, tx pgx.Tx, memberID int64) error {
	args := m.Called(ctx, tx, memberID)
	return args.Error(0)
}

func (m *MockRepository) HasOpenLoanInTx(ctx context.Context, tx pgx.Tx, memberID int64) (bool, error) {
	args := m.Called(ctx, tx, memberID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) HasOpenLoan(ctx context.Context, memberID int64) (bool, error) {
	args := m.Called(ctx, memberID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) InsertLoanInTx(ctx context.Context, tx pgx.Tx, l *Loan) (*Loan, error) {
	args := m.Called(ctx, tx, l)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Loan), args.Error(1)
}

func (m *MockRepository) GetLoanByID(ctx context.Context, loanID int64) (*Loan, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Loan), args.Error(1)
}

func (m *MockRepository) GetLoanForUpdate(ctx context.Context, tx pgx.Tx, loanID int64) (*Loan, error) {
	args := m.Called(ctx, tx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Loan), args.Error(1)
}

func (m *MockRepository) GetPaymentsByLoanID(ctx context.Context, loanID int64) ([]Payment, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Payment), args.Error(1)
}

func (m *MockRepository) InsertPaymentInTx(ctx context.Context, tx pgx.Tx, p *Payment) (*Payment, error) {
	args := m.Called(ctx, tx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Payment), args.Error(1)
}

func (m *MockRepository) SumPaymentsInTx(ctx context.Context, tx pgx.Tx, loanID int64) (Money, error) {
	args := m.Called(ctx, tx, loanID)
	return args.Get(0).(Money), args.Error(1)
}

func (m *MockRepository) UpdatePaidAmountInTx(ctx context.Context, tx pgx.Tx, loanID int64, paid Money) error {
	args := m.Called(ctx, tx, loanID, paid)
	return args.Error(0)
}

func (m *MockRepository) UpdateLoanStatusInTx(ctx context.Context, tx pgx.Tx, loanID int64, status LoanStatus) error {
	args := m.Called(ctx, tx, loanID, status)
	return args.Error(0)
}

func (m *MockRepository) SetApprovalInTx(ctx context.Context, tx pgx.Tx, loanID int64, approverID int64, approvedAt time.Time) error {
	args := m.Called(ctx, tx, loanID, approverID, approvedAt)
	return args.Error(0)
}

func (m *MockRepository) GetOpenLoanIDs(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

var _ Repository = (*MockRepository)(nil)

func TestRepository_GetLoanByID(t *testing.T) {
	mockRepo := new(MockRepository)
	ctx := context.Background()
	loanID := int64(1)
	expectedLoan := &Loan{ID: loanID, Status: StatusActive}

	mockRepo.On("GetLoanByID", ctx, loanID).Return(expectedLoan, nil)

	result, err := mockRepo.GetLoanByID(ctx, loanID)
	require.NoError(t, err)
	require.Equal(t, expectedLoan, result)

	mockRepo.AssertExpectations(t)
}

func TestRepository_SumPaymentsInTx(t *testing.T) {
	mockRepo := new(MockRepository)
	ctx := context.Background()
	loanID := int64(1)

	mockRepo.On("SumPaymentsInTx", ctx, tx, loanID).Return(Money(500), nil)

	total, err := mockRepo.SumPaymentsInTx(ctx, tx, loanID)
	require.NoError(t, err)
	require.Equal(t, Money(500), total)

	mockRepo.AssertExpectations(t)
}
