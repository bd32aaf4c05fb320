package loan

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// Repository persists loans and their payment ledger. All read-modify-write
// sequences run through *InTx methods so the service controls transaction
// boundaries and lock scope.
type Repository interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)

	CommitTx(ctx context.Context, tx pgx.Tx) error

	RollbackTx(ctx context.Context, tx pgx.Tx) error

	// AcquireMemberLock takes a per-member advisory lock held until the
	// transaction ends. Serializes the open-loan check against the insert.
	AcquireMemberLock(ctx context.Context, tx pgx.Tx, memberID int64) error

	HasOpenLoanInTx(ctx context.Context, tx pgx.Tx, memberID int64) (bool, error)

	HasOpenLoan(ctx context.Context, memberID int64) (bool, error)

	InsertLoanInTx(ctx context.Context, tx pgx.Tx, l *Loan) (*Loan, error)

	GetLoanByID(ctx context.Context, loanID int64) (*Loan, error)

	// GetLoanForUpdate loads the loan row under FOR UPDATE, serializing
	// concurrent transitions and payments against the same loan.
	GetLoanForUpdate(ctx context.Context, tx pgx.Tx, loanID int64) (*Loan, error)

	GetPaymentsByLoanID(ctx context.Context, loanID int64) ([]Payment, error)

	InsertPaymentInTx(ctx context.Context, tx pgx.Tx, p *Payment) (*Payment, error)

	// SumPaymentsInTx recomputes the cumulative paid amount from the full
	// payment set, never from an incremental counter.
	SumPaymentsInTx(ctx context.Context, tx pgx.Tx, loanID int64) (Money, error)

	UpdatePaidAmountInTx(ctx context.Context, tx pgx.Tx, loanID int64, paid Money) error

	UpdateLoanStatusInTx(ctx context.Context, tx pgx.Tx, loanID int64, status LoanStatus) error

	SetApprovalInTx(ctx context.Context, tx pgx.Tx, loanID int64, approverID int64, approvedAt time.Time) error

	// GetOpenLoanIDs lists loans in PENDING or ACTIVE, for the ledger
	// reconciliation job.
	GetOpenLoanIDs(ctx context.Context) ([]int64, error)
}
