package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/gasanashema/Saving-and-credits-MS-sub000/internal/domain/loan"
	"github.com/gasanashema/Saving-and-credits-MS-sub000/internal/infrastructure/monitoring"
	"github.com/gasanashema/Saving-and-credits-MS-sub000/internal/pkg/apperrors"
)

type DBPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Acquire(ctx context.Context) (*pgxpool.Conn, error)
	Close()
}

var _ DBPool = (*pgxpool.Pool)(nil)

var _ DBPool = (pgxmock.PgxPoolIface)(nil)

var errMsgFormat = "%w: %w"

const loanColumns = `id, member_id, principal, rate, duration_months, amount_owed, paid_amount, status, purpose, requested_at, approved_at, approver_id, created_at, updated_at`

type LoanRepository struct {
	db     DBPool
	logger *slog.Logger
}

func NewLoanRepository(db DBPool, logger *slog.Logger) *LoanRepository {
	return &LoanRepository{db: db, logger: logger.With("component", "LoanRepository")}
}

func (r *LoanRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to begin transaction", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return tx, nil
}

func (r *LoanRepository) CommitTx(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Commit(ctx); err != nil {
		r.logger.ErrorContext(ctx, "Failed to commit transaction", "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}

func (r *LoanRepository) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	err := tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		r.logger.ErrorContext(ctx, "Failed to rollback transaction", "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}

// AcquireMemberLock takes a transaction-scoped advisory lock keyed by member.
// Released automatically at commit or rollback.
func (r *LoanRepository) AcquireMemberLock(ctx context.Context, tx pgx.Tx, memberID int64) error {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, memberID); err != nil {
		r.logger.ErrorContext(ctx, "Failed to acquire member advisory lock", "member_id", memberID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}

const hasOpenLoanSQL = `SELECT EXISTS(SELECT 1 FROM loans WHERE member_id = $1 AND status IN ('PENDING', 'ACTIVE'))`

func (r *LoanRepository) HasOpenLoanInTx(ctx context.Context, tx pgx.Tx, memberID int64) (bool, error) {
	var exists bool
	if err := tx.QueryRow(ctx, hasOpenLoanSQL, memberID).Scan(&exists); err != nil {
		r.logger.ErrorContext(ctx, "Failed to check for open loans", "member_id", memberID, "error", err)
		return false, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return exists, nil
}

func (r *LoanRepository) HasOpenLoan(ctx context.Context, memberID int64) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, hasOpenLoanSQL, memberID).Scan(&exists); err != nil {
		r.logger.ErrorContext(ctx, "Failed to check for open loans", "member_id", memberID, "error", err)
		return false, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return exists, nil
}

func (r *LoanRepository) InsertLoanInTx(ctx context.Context, tx pgx.Tx, l *loan.Loan) (*loan.Loan, error) {
	sql := `
        INSERT INTO loans (member_id, principal, rate, duration_months, amount_owed, paid_amount, status, purpose, requested_at, approved_at, approver_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
        RETURNING ` + loanColumns

	var created loan.Loan
	err := tx.QueryRow(ctx, sql,
		l.MemberID, l.Principal, l.Rate, l.DurationMonths, l.AmountOwed, l.PaidAmount,
		l.Status, l.Purpose, l.RequestedAt, l.ApprovedAt, l.ApproverID,
	).Scan(
		&created.ID, &created.MemberID, &created.Principal, &created.Rate, &created.DurationMonths,
		&created.AmountOwed, &created.PaidAmount, &created.Status, &created.Purpose,
		&created.RequestedAt, &created.ApprovedAt, &created.ApproverID, &created.CreatedAt, &created.UpdatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert loan", "member_id", l.MemberID, "error", err)
		return nil, fmt.Errorf("%w: failed to insert loan: %w", apperrors.ErrDatabase, err)
	}
	r.logger.InfoContext(ctx, "Loan created in DB", "loan_id", created.ID)
	return &created, nil
}

func (r *LoanRepository) GetLoanByID(ctx context.Context, loanID int64) (*loan.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`
	status := "success"
	startTime := time.Now()

	var l loan.Loan
	err := r.db.QueryRow(ctx, query, loanID).Scan(
		&l.ID, &l.MemberID, &l.Principal, &l.Rate, &l.DurationMonths,
		&l.AmountOwed, &l.PaidAmount, &l.Status, &l.Purpose,
		&l.RequestedAt, &l.ApprovedAt, &l.ApproverID, &l.CreatedAt, &l.UpdatedAt,
	)

	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("GetLoanByID", status, time.Since(startTime))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Loan not found", "loan_id", loanID)
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get loan by ID", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return &l, nil
}

func (r *LoanRepository) GetLoanForUpdate(ctx context.Context, tx pgx.Tx, loanID int64) (*loan.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1 FOR UPDATE`

	var l loan.Loan
	err := tx.QueryRow(ctx, query, loanID).Scan(
		&l.ID, &l.MemberID, &l.Principal, &l.Rate, &l.DurationMonths,
		&l.AmountOwed, &l.PaidAmount, &l.Status, &l.Purpose,
		&l.RequestedAt, &l.ApprovedAt, &l.ApproverID, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Loan not found for update", "loan_id", loanID)
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to lock loan row", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return &l, nil
}

func (r *LoanRepository) GetPaymentsByLoanID(ctx context.Context, loanID int64) ([]loan.Payment, error) {
	query := `
        SELECT id, loan_id, amount, recorded_by, recorded_at
        FROM payments
        WHERE loan_id = $1
        ORDER BY recorded_at ASC`

	rows, err := r.db.Query(ctx, query, loanID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query payments", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	payments := make([]loan.Payment, 0)
	for rows.Next() {
		var p loan.Payment
		if err := rows.Scan(&p.ID, &p.LoanID, &p.Amount, &p.RecordedBy, &p.RecordedAt); err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan payment row", "loan_id", loanID, "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		payments = append(payments, p)
	}

	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating payment rows", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	return payments, nil
}

func (r *LoanRepository) InsertPaymentInTx(ctx context.Context, tx pgx.Tx, p *loan.Payment) (*loan.Payment, error) {
	sql := `
        INSERT INTO payments (loan_id, amount, recorded_by, recorded_at)
        VALUES ($1, $2, $3, $4)
        RETURNING id, loan_id, amount, recorded_by, recorded_at`

	var created loan.Payment
	err := tx.QueryRow(ctx, sql, p.LoanID, p.Amount, p.RecordedBy, p.RecordedAt).Scan(
		&created.ID, &created.LoanID, &created.Amount, &created.RecordedBy, &created.RecordedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert payment", "loan_id", p.LoanID, "error", err)
		return nil, fmt.Errorf("%w: failed to insert payment: %w", apperrors.ErrDatabase, err)
	}
	return &created, nil
}

func (r *LoanRepository) SumPaymentsInTx(ctx context.Context, tx pgx.Tx, loanID int64) (loan.Money, error) {
	var total loan.Money
	query := `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE loan_id = $1`
	if err := tx.QueryRow(ctx, query, loanID).Scan(&total); err != nil {
		r.logger.ErrorContext(ctx, "Failed to sum payments", "loan_id", loanID, "error", err)
		return 0, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return total, nil
}

func (r *LoanRepository) UpdatePaidAmountInTx(ctx context.Context, tx pgx.Tx, loanID int64, paid loan.Money) error {
	sql := `UPDATE loans SET paid_amount = $1, updated_at = NOW() WHERE id = $2`
	cmdTag, err := tx.Exec(ctx, sql, paid, loanID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update paid amount", "loan_id", loanID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() != 1 {
		r.logger.ErrorContext(ctx, "Paid amount update affected zero rows", "loan_id", loanID)
		return fmt.Errorf("%w: paid amount update affected zero rows", apperrors.ErrDatabase)
	}
	return nil
}

func (r *LoanRepository) UpdateLoanStatusInTx(ctx context.Context, tx pgx.Tx, loanID int64, status loan.LoanStatus) error {
	sql := `UPDATE loans SET status = $1, updated_at = NOW() WHERE id = $2`
	cmdTag, err := tx.Exec(ctx, sql, status, loanID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update loan status", "loan_id", loanID, "status", status, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() != 1 {
		r.logger.ErrorContext(ctx, "Loan status update affected zero rows", "loan_id", loanID, "status", status)
		return fmt.Errorf("%w: loan status update affected zero rows", apperrors.ErrDatabase)
	}
	r.logger.InfoContext(ctx, "Loan status updated in DB", "loan_id", loanID, "new_status", status)
	return nil
}

func (r *LoanRepository) SetApprovalInTx(ctx context.Context, tx pgx.Tx, loanID int64, approverID int64, approvedAt time.Time) error {
	sql := `UPDATE loans SET approver_id = $1, approved_at = $2, updated_at = NOW() WHERE id = $3`
	cmdTag, err := tx.Exec(ctx, sql, approverID, approvedAt, loanID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to set approval fields", "loan_id", loanID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() != 1 {
		return fmt.Errorf("%w: approval update affected zero rows", apperrors.ErrDatabase)
	}
	return nil
}

func (r *LoanRepository) GetOpenLoanIDs(ctx context.Context) ([]int64, error) {
	logCtx := r.logger.With(slog.String("operation", "GetOpenLoanIDs"))

	query := `SELECT id FROM loans WHERE status IN ('PENDING', 'ACTIVE') ORDER BY id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to query open loan IDs", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to query open loans: %w", apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	loanIDs := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			logCtx.ErrorContext(ctx, "Failed to scan open loan ID row", slog.Any("error", err))
			return nil, fmt.Errorf("%w: failed scanning open loan ID: %w", apperrors.ErrDatabase, err)
		}
		loanIDs = append(loanIDs, id)
	}

	if err = rows.Err(); err != nil {
		logCtx.ErrorContext(ctx, "Error iterating open loan ID rows", slog.Any("error", err))
		return nil, fmt.Errorf("%w: error iterating open loan IDs: %w", apperrors.ErrDatabase, err)
	}

	return loanIDs, nil
}
