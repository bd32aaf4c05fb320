package loan

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gasanashema/Saving-and-credits-MS-sub000/internal/pkg/apperrors"
)

// ledgerFakeRepo is a stateful in-memory Repository that emulates the
// database's row lock: GetLoanForUpdate blocks until the transaction that
// holds the loan commits or rolls back, so interleaved payments observe each
// other's committed state exactly as they would under FOR UPDATE.
type ledgerFakeRepo struct {
	rowLock  sync.Mutex
	loan     Loan
	payments []Payment
	nextID   int64
}

var _ Repository = (*ledgerFakeRepo)(nil)

func newLedgerFakeRepo(l Loan) *ledgerFakeRepo {
	return &ledgerFakeRepo{loan: l, nextID: 1}
}

func (f *ledgerFakeRepo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return &TxMock{}, nil
}

func (f *ledgerFakeRepo) CommitTx(ctx context.Context, tx pgx.Tx) error {
	f.rowLock.Unlock()
	return nil
}

func (f *ledgerFakeRepo) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	f.rowLock.Unlock()
	return nil
}

func (f *ledgerFakeRepo) GetLoanForUpdate(ctx context.Context, tx pgx.Tx, loanID int64) (*Loan, error) {
	f.rowLock.Lock()
	if loanID != f.loan.ID {
		f.rowLock.Unlock()
		return nil, apperrors.ErrNotFound
	}
	snapshot := f.loan
	return &snapshot, nil
}

func (f *ledgerFakeRepo) InsertPaymentInTx(ctx context.Context, tx pgx.Tx, p *Payment) (*Payment, error) {
	inserted := *p
	inserted.ID = f.nextID
	f.nextID++
	f.payments = append(f.payments, inserted)
	return &inserted, nil
}

func (f *ledgerFakeRepo) SumPaymentsInTx(ctx context.Context, tx pgx.Tx, loanID int64) (Money, error) {
	var total Money
	for _, p := range f.payments {
		if p.LoanID == loanID {
			total += p.Amount
		}
	}
	return total, nil
}

func (f *ledgerFakeRepo) UpdatePaidAmountInTx(ctx context.Context, tx pgx.Tx, loanID int64, paid Money) error {
	f.loan.PaidAmount = paid
	return nil
}

func (f *ledgerFakeRepo) UpdateLoanStatusInTx(ctx context.Context, tx pgx.Tx, loanID int64, status LoanStatus) error {
	f.loan.Status = status
	return nil
}

func (f *ledgerFakeRepo) AcquireMemberLock(ctx context.Context, tx pgx.Tx, memberID int64) error {
	return nil
}

func (f *ledgerFakeRepo) HasOpenLoanInTx(ctx context.Context, tx pgx.Tx, memberID int64) (bool, error) {
	return false, nil
}

func (f *ledgerFakeRepo) HasOpenLoan(ctx context.Context, memberID int64) (bool, error) {
	return false, nil
}

func (f *ledgerFakeRepo) InsertLoanInTx(ctx context.Context, tx pgx.Tx, l *Loan) (*Loan, error) {
	return l, nil
}

func (f *ledgerFakeRepo) GetLoanByID(ctx context.Context, loanID int64) (*Loan, error) {
	snapshot := f.loan
	return &snapshot, nil
}

func (f *ledgerFakeRepo) GetPaymentsByLoanID(ctx context.Context, loanID int64) ([]Payment, error) {
	return append([]Payment(nil), f.payments...), nil
}

func (f *ledgerFakeRepo) SetApprovalInTx(ctx context.Context, tx pgx.Tx, loanID int64, approverID int64, approvedAt time.Time) error {
	return nil
}

func (f *ledgerFakeRepo) GetOpenLoanIDs(ctx context.Context) ([]int64, error) {
	return []int64{f.loan.ID}, nil
}

func TestRecordPaymentConcurrent(t *testing.T) {
	ctx := context.Background()

	t.Run("two simultaneous payments are both durably recorded", func(t *testing.T) {
		repo := newLedgerFakeRepo(Loan{ID: 1, MemberID: 1, AmountOwed: 105000, Status: StatusActive})
		service := newTestService(repo, new(MockEvaluator))

		var wg sync.WaitGroup
		errs := make([]error, 2)
		amounts := []Money{30000, 40000}
		for i, amount := range amounts {
			wg.Add(1)
			go func(i int, amount Money) {
				defer wg.Done()
				_, errs[i] = service.RecordPayment(ctx, 1, amount, int64(10+i))
			}(i, amount)
		}
		wg.Wait()

		require.NoError(t, errs[0])
		require.NoError(t, errs[1])
		assert.Len(t, repo.payments, 2)
		assert.Equal(t, Money(70000), repo.loan.PaidAmount)
		assert.Equal(t, StatusActive, repo.loan.Status)
	})

	t.Run("concurrent payments that settle the balance mark the loan paid", func(t *testing.T) {
		repo := newLedgerFakeRepo(Loan{ID: 1, MemberID: 1, AmountOwed: 105000, Status: StatusActive})
		service := newTestService(repo, new(MockEvaluator))

		var wg sync.WaitGroup
		errs := make([]error, 2)
		amounts := []Money{60000, 45000}
		for i, amount := range amounts {
			wg.Add(1)
			go func(i int, amount Money) {
				defer wg.Done()
				_, errs[i] = service.RecordPayment(ctx, 1, amount, 10)
			}(i, amount)
		}
		wg.Wait()

		require.NoError(t, errs[0])
		require.NoError(t, errs[1])
		assert.Len(t, repo.payments, 2)
		assert.Equal(t, Money(105000), repo.loan.PaidAmount)
		assert.Equal(t, StatusPaid, repo.loan.Status)
	})

	t.Run("second payment sees the settled state and is rejected", func(t *testing.T) {
		repo := newLedgerFakeRepo(Loan{ID: 1, MemberID: 1, AmountOwed: 105000, Status: StatusActive})
		service := newTestService(repo, new(MockEvaluator))

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = service.RecordPayment(ctx, 1, 105000, 10)
			}(i)
		}
		wg.Wait()

		var failures int
		for _, err := range errs {
			if err != nil {
				assert.ErrorIs(t, err, apperrors.ErrInvalidLoanState)
				failures++
			}
		}
		assert.Equal(t, 1, failures, "exactly one of the duplicate settlements must be rejected")
		assert.Len(t, repo.payments, 1)
		assert.Equal(t, Money(105000), repo.loan.PaidAmount)
		assert.Equal(t, StatusPaid, repo.loan.Status)
	})
}
