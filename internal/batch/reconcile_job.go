package batch

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gasanashema/Saving-and-credits-MS-sub000/internal/domain/loan"
	"github.com/gasanashema/Saving-and-credits-MS-sub000/internal/infrastructure/monitoring"
)

// ReconcileLedgerJob re-derives every open loan's cached paid amount from its
// payment rows and repairs any drift, enforcing the ledger-faithfulness
// invariant even if a past bug or manual intervention broke it. A repaired
// ACTIVE loan whose payments already cover the amount owed is moved to PAID.
type ReconcileLedgerJob struct {
	repo   loan.Repository
	logger *slog.Logger
}

func NewReconcileLedgerJob(repo loan.Repository, logger *slog.Logger) *ReconcileLedgerJob {
	if repo == nil || logger == nil {
		panic("ReconcileLedgerJob dependencies cannot be nil")
	}
	return &ReconcileLedgerJob{
		repo:   repo,
		logger: logger.With("job", "ReconcileLedger"),
	}
}

func (j *ReconcileLedgerJob) Run(ctx context.Context) error {
	startTime := time.Now()
	j.logger.InfoContext(ctx, "Starting ledger reconciliation job.")

	openLoanIDs, err := j.repo.GetOpenLoanIDs(ctx)
	if err != nil {
		j.logger.ErrorContext(ctx, "Failed to get open loan IDs, aborting job.", slog.Any("error", err))
		return fmt.Errorf("cannot run job, failed to get open loans: %w", err)
	}
	j.logger.InfoContext(ctx, "Fetched open loan IDs.", slog.Int("count", len(openLoanIDs)))

	if len(openLoanIDs) == 0 {
		j.logger.InfoContext(ctx, "No open loans to reconcile.", slog.Duration("duration", time.Since(startTime)))
		return nil
	}

	var wg sync.WaitGroup
	var checkedCount, repairedCount, errorCount int32

	for _, loanID := range openLoanIDs {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()

			repaired, err := j.reconcileLoan(ctx, id)
			if err != nil {
				atomic.AddInt32(&errorCount, 1)
				j.logger.ErrorContext(ctx, "Failed to reconcile loan", "loan_id", id, slog.Any("error", err))
				return
			}
			atomic.AddInt32(&checkedCount, 1)
			if repaired {
				atomic.AddInt32(&repairedCount, 1)
				monitoring.RecordLedgerDriftRepaired()
			}
		}(loanID)
	}

	wg.Wait()

	j.logger.InfoContext(ctx, "Ledger reconciliation job finished.",
		slog.Int("checked", int(atomic.LoadInt32(&checkedCount))),
		slog.Int("repaired", int(atomic.LoadInt32(&repairedCount))),
		slog.Int("errors", int(atomic.LoadInt32(&errorCount))),
		slog.Duration("duration", time.Since(startTime)),
	)

	if errorCount > 0 {
		return fmt.Errorf("reconciliation finished with %d errors", errorCount)
	}
	return nil
}

// reconcileLoan locks one loan, recomputes the payment sum and writes it back
// when the cached projection drifted. Returns whether a repair happened.
func (j *ReconcileLedgerJob) reconcileLoan(ctx context.Context, loanID int64) (repaired bool, err error) {
	tx, err := j.repo.BeginTx(ctx)
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			_ = j.repo.RollbackTx(ctx, tx)
		}
	}()

	current, err := j.repo.GetLoanForUpdate(ctx, tx, loanID)
	if err != nil {
		return false, err
	}

	total, err := j.repo.SumPaymentsInTx(ctx, tx, loanID)
	if err != nil {
		return false, err
	}

	if math.Abs(total-current.PaidAmount) < 0.005 {
		return false, j.repo.RollbackTx(ctx, tx)
	}

	j.logger.WarnContext(ctx, "Ledger drift detected",
		"loan_id", loanID, "cached_paid", current.PaidAmount, "ledger_sum", total)

	if err = j.repo.UpdatePaidAmountInTx(ctx, tx, loanID, total); err != nil {
		return false, err
	}

	if current.Status == loan.StatusActive && total >= current.AmountOwed {
		if err = j.repo.UpdateLoanStatusInTx(ctx, tx, loanID, loan.StatusPaid); err != nil {
			return false, err
		}
	}

	if err = j.repo.CommitTx(ctx, tx); err != nil {
		return false, err
	}
	return true, nil
}
