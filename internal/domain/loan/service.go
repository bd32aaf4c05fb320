package loan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gasanashema/Saving-and-credits-MS-sub000/internal/domain/eligibility"
	"github.com/gasanashema/Saving-and-credits-MS-sub000/internal/event"
	"github.com/gasanashema/Saving-and-credits-MS-sub000/internal/infrastructure/monitoring"
	"github.com/gasanashema/Saving-and-credits-MS-sub000/internal/pkg/apperrors"
)

// PaymentResult is returned by RecordPayment: the loan after the payment was
// applied and the recomputed cumulative paid amount.
type PaymentResult struct {
	Loan      *Loan
	TotalPaid Money
}

type LoanService interface {
	// ManualIntake creates a loan in PENDING for administrator review. No
	// eligibility check is made; that is what the pending state is for.
	ManualIntake(ctx context.Context, memberID int64, amount, rate Money, durationMonths int, purpose string) (*Loan, error)

	// AutoApprovedIntake evaluates eligibility first and, when the requested
	// amount is within the limit, creates the loan directly in ACTIVE at the
	// default annual rate.
	AutoApprovedIntake(ctx context.Context, memberID int64, amount Money, durationMonths int, purpose string) (*Loan, error)

	// Apply is the sole mutating entry point for loan status transitions.
	Apply(ctx context.Context, loanID int64, ev TransitionEvent, actor Actor) (*Loan, error)

	RecordPayment(ctx context.Context, loanID int64, amount Money, recordedBy int64) (*PaymentResult, error)

	GetLoan(ctx context.Context, loanID int64) (*Loan, error)
}

type loanServiceImpl struct {
	repo        Repository
	evaluator   eligibility.Service
	events      event.Publisher
	defaultRate Money
	logger      *slog.Logger
}

func NewLoanService(r Repository, evaluator eligibility.Service, events event.Publisher, defaultRate Money, logger *slog.Logger) LoanService {
	if r == nil || evaluator == nil {
		panic("loan service dependencies cannot be nil")
	}
	if events == nil {
		events = event.NoopPublisher{}
	}
	if defaultRate <= 0 {
		defaultRate = DefaultAnnualRate
	}
	return &loanServiceImpl{
		repo:        r,
		evaluator:   evaluator,
		events:      events,
		defaultRate: defaultRate,
		logger:      logger.With("component", "LoanService"),
	}
}

func (s *loanServiceImpl) ManualIntake(ctx context.Context, memberID int64, amount, rate Money, durationMonths int, purpose string) (*Loan, error) {
	s.logger.InfoContext(ctx, "Manual loan intake", "member_id", memberID, "amount", amount)

	newLoan, err := NewLoan(memberID, amount, rate, durationMonths, purpose, StatusPending)
	if err != nil {
		return nil, err
	}

	return s.createUnderMemberLock(ctx, newLoan)
}

func (s *loanServiceImpl) AutoApprovedIntake(ctx context.Context, memberID int64, amount Money, durationMonths int, purpose string) (*Loan, error) {
	s.logger.InfoContext(ctx, "Auto-approved loan intake", "member_id", memberID, "amount", amount)

	newLoan, err := NewLoan(memberID, amount, s.defaultRate, durationMonths, purpose, StatusActive)
	if err != nil {
		return nil, err
	}

	return s.createUnderMemberLock(ctx, newLoan)
}

// createUnderMemberLock runs the open-loan check and the insert as one atomic
// unit under a per-member advisory lock, closing the window in which two
// concurrent applications could both pass the check. For ACTIVE (auto
// approved) loans the eligibility evaluation also happens under the lock, so
// its own open-loan check reads serialized state.
func (s *loanServiceImpl) createUnderMemberLock(ctx context.Context, newLoan *Loan) (created *Loan, err error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: could not begin transaction: %v", apperrors.ErrDatabase, err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = s.repo.RollbackTx(ctx, tx)
			panic(p)
		} else if err != nil {
			_ = s.repo.RollbackTx(ctx, tx)
		}
	}()

	if err = s.repo.AcquireMemberLock(ctx, tx, newLoan.MemberID); err != nil {
		return nil, fmt.Errorf("could not lock member %d: %w", newLoan.MemberID, err)
	}

	if newLoan.Status == StatusActive {
		decision, evalErr := s.evaluator.Evaluate(ctx, newLoan.MemberID)
		if evalErr != nil {
			err = evalErr
			return nil, err
		}
		if !decision.Eligible {
			err = &apperrors.IneligibleError{
				MemberID: newLoan.MemberID,
				Reason:   decision.Reason,
				Limit:    decision.Limit,
				Factors:  decision.Factors.LimitFactors(),
			}
			return nil, err
		}
		requested := decimal.NewFromFloat(newLoan.Principal)
		if requested.GreaterThan(decision.Limit) {
			err = &apperrors.AmountExceedsLimitError{
				Requested: requested,
				Limit:     decision.Limit,
				Factors:   decision.Factors.LimitFactors(),
			}
			return nil, err
		}
	} else {
		hasOpen, checkErr := s.repo.HasOpenLoanInTx(ctx, tx, newLoan.MemberID)
		if checkErr != nil {
			err = checkErr
			return nil, err
		}
		if hasOpen {
			err = fmt.Errorf("%w: member %d", apperrors.ErrOpenLoanExists, newLoan.MemberID)
			return nil, err
		}
	}

	created, err = s.repo.InsertLoanInTx(ctx, tx, newLoan)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to insert loan", "member_id", newLoan.MemberID, "error", err)
		return nil, err
	}

	if err = s.repo.CommitTx(ctx, tx); err != nil {
		return nil, fmt.Errorf("%w: could not commit loan creation: %v", apperrors.ErrDatabase, err)
	}

	s.logger.InfoContext(ctx, "Loan created", "loan_id", created.ID, "member_id", created.MemberID, "status", created.Status)

	if pubErr := s.events.PublishLoanCreated(ctx, event.LoanCreatedEvent{
		LoanID:    created.ID,
		MemberID:  created.MemberID,
		Amount:    created.Principal,
		Status:    string(created.Status),
		Timestamp: time.Now(),
	}); pubErr != nil {
		s.logger.ErrorContext(ctx, "Failed to publish loan created event", "loan_id", created.ID, "error", pubErr)
	}

	return created, nil
}

func (s *loanServiceImpl) Apply(ctx context.Context, loanID int64, ev TransitionEvent, actor Actor) (updated *Loan, err error) {
	s.logger.InfoContext(ctx, "Applying loan transition", "loan_id", loanID, "event", ev, "actor_role", actor.Role)

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: could not begin transaction: %v", apperrors.ErrDatabase, err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = s.repo.RollbackTx(ctx, tx)
			panic(p)
		} else if err != nil {
			_ = s.repo.RollbackTx(ctx, tx)
		}
	}()

	current, err := s.repo.GetLoanForUpdate(ctx, tx, loanID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: loan %d", apperrors.ErrNotFound, loanID)
		}
		return nil, err
	}

	next, err := current.NextStatus(ev, actor)
	if err != nil {
		return nil, err
	}

	if err = s.repo.UpdateLoanStatusInTx(ctx, tx, loanID, next); err != nil {
		return nil, err
	}

	now := time.Now()
	if ev == EventApprove || ev == EventReject {
		if err = s.repo.SetApprovalInTx(ctx, tx, loanID, actor.MemberID, now); err != nil {
			return nil, err
		}
		current.ApproverID = &actor.MemberID
		current.ApprovedAt = &now
	}

	if err = s.repo.CommitTx(ctx, tx); err != nil {
		return nil, fmt.Errorf("%w: could not commit loan transition: %v", apperrors.ErrDatabase, err)
	}

	oldStatus := current.Status
	current.Status = next
	current.UpdatedAt = now
	monitoring.RecordLoanTransition(string(oldStatus), string(next))
	s.logger.InfoContext(ctx, "Loan transitioned", "loan_id", loanID, "from", oldStatus, "to", next)

	if pubErr := s.events.PublishLoanStatusChanged(ctx, event.LoanStatusChangedEvent{
		LoanID:    loanID,
		MemberID:  current.MemberID,
		OldStatus: string(oldStatus),
		NewStatus: string(next),
		Timestamp: now,
	}); pubErr != nil {
		s.logger.ErrorContext(ctx, "Failed to publish loan status changed event", "loan_id", loanID, "error", pubErr)
	}

	return current, nil
}

func (s *loanServiceImpl) RecordPayment(ctx context.Context, loanID int64, amount Money, recordedBy int64) (result *PaymentResult, err error) {
	s.logger.InfoContext(ctx, "Recording payment", "loan_id", loanID, "amount", amount)

	if amount <= 0 {
		monitoring.RecordPayment("failure_amount")
		return nil, apperrors.NewValidationError("amount", "payment amount must be greater than zero")
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		monitoring.RecordPayment("failure_internal")
		return nil, fmt.Errorf("%w: could not begin transaction: %v", apperrors.ErrDatabase, err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = s.repo.RollbackTx(ctx, tx)
			panic(p)
		} else if err != nil {
			_ = s.repo.RollbackTx(ctx, tx)
		}
	}()

	current, err := s.repo.GetLoanForUpdate(ctx, tx, loanID)
	if err != nil {
		monitoring.RecordPayment("failure_internal")
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: loan %d", apperrors.ErrNotFound, loanID)
		}
		return nil, err
	}

	if current.Status != StatusActive {
		monitoring.RecordPayment("failure_state")
		err = fmt.Errorf("%w: loan %d is %s", apperrors.ErrInvalidLoanState, loanID, current.Status)
		return nil, err
	}

	// Payments may settle the balance exactly but never exceed it, keeping
	// 0 <= paidAmount <= amountOwed an invariant rather than a hope.
	if amount > current.RemainingAmount() {
		monitoring.RecordPayment("failure_overpayment")
		err = fmt.Errorf("%w: remaining balance is %.2f", apperrors.ErrOverpayment, current.RemainingAmount())
		return nil, err
	}

	payment := &Payment{
		LoanID:     loanID,
		Amount:     amount,
		RecordedBy: recordedBy,
		RecordedAt: time.Now(),
	}
	if _, err = s.repo.InsertPaymentInTx(ctx, tx, payment); err != nil {
		monitoring.RecordPayment("failure_internal")
		return nil, err
	}

	totalPaid, err := s.repo.SumPaymentsInTx(ctx, tx, loanID)
	if err != nil {
		monitoring.RecordPayment("failure_internal")
		return nil, err
	}

	if err = s.repo.UpdatePaidAmountInTx(ctx, tx, loanID, totalPaid); err != nil {
		monitoring.RecordPayment("failure_internal")
		return nil, err
	}

	settled := totalPaid >= current.AmountOwed
	if settled {
		next, transErr := current.NextStatus(EventMarkPaid, SystemActor())
		if transErr != nil {
			monitoring.RecordPayment("failure_internal")
			err = transErr
			return nil, err
		}
		if err = s.repo.UpdateLoanStatusInTx(ctx, tx, loanID, next); err != nil {
			monitoring.RecordPayment("failure_internal")
			return nil, err
		}
	}

	if err = s.repo.CommitTx(ctx, tx); err != nil {
		monitoring.RecordPayment("failure_internal")
		return nil, fmt.Errorf("%w: could not commit payment: %v", apperrors.ErrDatabase, err)
	}

	oldStatus := current.Status
	current.PaidAmount = totalPaid
	if settled {
		current.Status = StatusPaid
		monitoring.RecordLoanTransition(string(oldStatus), string(StatusPaid))
		if pubErr := s.events.PublishLoanStatusChanged(ctx, event.LoanStatusChangedEvent{
			LoanID:    loanID,
			MemberID:  current.MemberID,
			OldStatus: string(oldStatus),
			NewStatus: string(StatusPaid),
			Timestamp: time.Now(),
		}); pubErr != nil {
			s.logger.ErrorContext(ctx, "Failed to publish loan status changed event", "loan_id", loanID, "error", pubErr)
		}
	}

	monitoring.RecordPayment("success")
	s.logger.InfoContext(ctx, "Payment recorded", "loan_id", loanID, "amount", amount, "total_paid", totalPaid, "status", current.Status)

	return &PaymentResult{Loan: current, TotalPaid: totalPaid}, nil
}

func (s *loanServiceImpl) GetLoan(ctx context.Context, loanID int64) (*Loan, error) {
	l, err := s.repo.GetLoanByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: loan %d", apperrors.ErrNotFound, loanID)
		}
		return nil, err
	}

	payments, err := s.repo.GetPaymentsByLoanID(ctx, loanID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load payment history", "loan_id", loanID, "error", err)
		return nil, err
	}
	l.Payments = payments

	return l, nil
}
