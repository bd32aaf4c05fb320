package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gasanashema/Saving-and-credits-MS-sub000/internal/domain/eligibility"
	"github.com/gasanashema/Saving-and-credits-MS-sub000/internal/pkg/apperrors"
)

// EligibilityLogRepository is the insert-only audit log of eligibility
// decisions. Rows are never updated or deleted.
type EligibilityLogRepository struct {
	db     DBPool
	logger *slog.Logger
}

func NewEligibilityLogRepository(db DBPool, logger *slog.Logger) *EligibilityLogRepository {
	return &EligibilityLogRepository{db: db, logger: logger.With("component", "EligibilityLogRepository")}
}

func (r *EligibilityLogRepository) SaveDecision(ctx context.Context, d *eligibility.Decision) error {
	sql := `
        INSERT INTO eligibility_decisions
            (member_id, eligible, limit_amount, reason, total_savings, base_limit, consistency_factor, repayment_factor, evaluated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(ctx, sql,
		d.MemberID, d.Eligible, d.Limit, d.Reason,
		d.Factors.TotalSavings, d.Factors.BaseLimit,
		d.Factors.ConsistencyFactor, d.Factors.RepaymentFactor,
		d.EvaluatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert eligibility decision", "member_id", d.MemberID, "error", err)
		return fmt.Errorf("%w: failed to insert eligibility decision: %w", apperrors.ErrDatabase, err)
	}
	return nil
}

var _ eligibility.AuditLog = (*EligibilityLogRepository)(nil)
