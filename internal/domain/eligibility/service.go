package eligibility

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gasanashema/Saving-and-credits-MS-sub000/internal/domain/member"
	"github.com/gasanashema/Saving-and-credits-MS-sub000/internal/infrastructure/monitoring"
	"github.com/gasanashema/Saving-and-credits-MS-sub000/internal/pkg/apperrors"
)

// Service computes a member's borrowing limit. Evaluate is read-only with
// respect to loan and payment state so it can be re-run safely; its only
// write is the insert-only audit log.
type Service interface {
	Evaluate(ctx context.Context, memberID int64) (*Decision, error)
}

// OpenLoanChecker is the one question the evaluator asks of the loan ledger.
type OpenLoanChecker interface {
	HasOpenLoan(ctx context.Context, memberID int64) (bool, error)
}

// AuditLog records every decision with its factor breakdown.
type AuditLog interface {
	SaveDecision(ctx context.Context, d *Decision) error
}

type evaluator struct {
	members   member.Repository
	savings   member.SavingsAggregator
	penalties member.PenaltyGate
	openLoans OpenLoanChecker
	audit     AuditLog
	policy    Policy
	logger    *slog.Logger
}

func NewService(
	members member.Repository,
	savings member.SavingsAggregator,
	penalties member.PenaltyGate,
	openLoans OpenLoanChecker,
	audit AuditLog,
	policy Policy,
	logger *slog.Logger,
) Service {
	if members == nil || savings == nil || penalties == nil || openLoans == nil {
		panic("eligibility service dependencies cannot be nil")
	}
	return &evaluator{
		members:   members,
		savings:   savings,
		penalties: penalties,
		openLoans: openLoans,
		audit:     audit,
		policy:    policy,
		logger:    logger.With("component", "EligibilityService"),
	}
}

func (s *evaluator) Evaluate(ctx context.Context, memberID int64) (*Decision, error) {
	s.logger.InfoContext(ctx, "Evaluating loan eligibility", "member_id", memberID)

	m, err := s.members.GetMember(ctx, memberID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: member %d not found", apperrors.ErrNotFound, memberID)
		}
		return nil, fmt.Errorf("failed to load member %d: %w", memberID, err)
	}

	now := time.Now()
	d := &Decision{MemberID: memberID, EvaluatedAt: now}

	if months := m.MembershipMonths(now); months < s.policy.MinMembershipMonths {
		s.logger.InfoContext(ctx, "Member rejected: membership too short", "member_id", memberID, "months", months)
		return s.conclude(ctx, d, ReasonMembershipTooShort)
	}

	hasOpen, err := s.openLoans.HasOpenLoan(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to check open loans for member %d: %w", memberID, err)
	}
	if hasOpen {
		s.logger.InfoContext(ctx, "Member rejected: open loan exists", "member_id", memberID)
		return s.conclude(ctx, d, ReasonOpenLoanExists)
	}

	totalSavings, err := s.savings.TotalSavings(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate savings for member %d: %w", memberID, err)
	}
	d.Factors.TotalSavings = totalSavings
	if totalSavings.LessThanOrEqual(decimal.Zero) {
		s.logger.InfoContext(ctx, "Member rejected: zero savings", "member_id", memberID)
		return s.conclude(ctx, d, ReasonZeroSavings)
	}

	d.Factors.BaseLimit = totalSavings.Mul(decimal.NewFromInt(s.policy.SavingsMultiplier))

	monthsSaved, err := s.savings.SavingsActivityMonths(ctx, memberID, s.policy.ConsistencyWindowMonths)
	if err != nil {
		return nil, fmt.Errorf("failed to count savings activity for member %d: %w", memberID, err)
	}
	d.Factors.ConsistencyFactor = s.policy.ConsistencyFactor(monthsSaved)

	// Binary gate: an unpaid penalty zeroes the limit outright. Modeled as a
	// repayment factor of 0 or 1 for the audit trail.
	hasPenalty, err := s.penalties.HasOutstandingPenalty(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to check penalties for member %d: %w", memberID, err)
	}
	if hasPenalty {
		d.Factors.RepaymentFactor = decimal.Zero
		s.logger.InfoContext(ctx, "Member rejected: unpaid penalties", "member_id", memberID)
		return s.conclude(ctx, d, ReasonUnpaidPenalties)
	}
	d.Factors.RepaymentFactor = decimal.NewFromInt(1)

	d.Limit = d.Factors.BaseLimit.
		Mul(d.Factors.ConsistencyFactor).
		Mul(d.Factors.RepaymentFactor).
		Floor()
	d.Eligible = d.Limit.GreaterThan(decimal.Zero)

	reason := d.Reason
	if !d.Eligible {
		reason = ReasonZeroSavings
		d.Reason = reason
	}
	return s.conclude(ctx, d, reason)
}

// conclude stamps the reason, audits the decision and records metrics. Audit
// failures are logged but never fail the evaluation: the decision itself is
// derived purely from reads.
func (s *evaluator) conclude(ctx context.Context, d *Decision, reason string) (*Decision, error) {
	d.Reason = reason
	if reason != "" {
		d.Eligible = false
		d.Limit = decimal.Zero
	}
	monitoring.RecordEligibilityDecision(reason)

	if s.audit != nil {
		if err := s.audit.SaveDecision(ctx, d); err != nil {
			s.logger.ErrorContext(ctx, "Failed to persist eligibility decision", "member_id", d.MemberID, "error", err)
		}
	}
	return d, nil
}
