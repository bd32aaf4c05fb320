package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/gasanashema/Saving-and-credits-MS-sub000/internal/domain/member"
	"github.com/gasanashema/Saving-and-credits-MS-sub000/internal/infrastructure/monitoring"
	"github.com/gasanashema/Saving-and-credits-MS-sub000/internal/pkg/apperrors"
)

// MemberRepository is the read-only adapter over tables owned by the
// membership, savings and penalty services. It implements member.Repository,
// member.SavingsAggregator and member.PenaltyGate.
type MemberRepository struct {
	db     DBPool
	logger *slog.Logger
}

func NewMemberRepository(db DBPool, logger *slog.Logger) *MemberRepository {
	return &MemberRepository{db: db, logger: logger.With("component", "MemberRepository")}
}

func (r *MemberRepository) GetMember(ctx context.Context, memberID int64) (*member.Member, error) {
	query := `SELECT id, joined_at FROM members WHERE id = $1`

	var m member.Member
	err := r.db.QueryRow(ctx, query, memberID).Scan(&m.ID, &m.JoinedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Member not found", "member_id", memberID)
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get member", "member_id", memberID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return &m, nil
}

// TotalSavings sums shares times share value over every deposit of the member.
func (r *MemberRepository) TotalSavings(ctx context.Context, memberID int64) (decimal.Decimal, error) {
	query := `
        SELECT COALESCE(SUM(number_of_shares * share_value), 0)::text
        FROM savings
        WHERE member_id = $1`

	status := "success"
	startTime := time.Now()

	var total decimal.Decimal
	var raw string
	err := r.db.QueryRow(ctx, query, memberID).Scan(&raw)
	if err == nil {
		total, err = decimal.NewFromString(raw)
	}

	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("TotalSavings", status, time.Since(startTime))

	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to aggregate savings", "member_id", memberID, "error", err)
		return decimal.Zero, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return total, nil
}

// SavingsActivityMonths counts the distinct calendar months with at least one
// deposit inside the trailing window.
func (r *MemberRepository) SavingsActivityMonths(ctx context.Context, memberID int64, windowMonths int) (int, error) {
	query := `
        SELECT COUNT(DISTINCT date_trunc('month', created_at))
        FROM savings
        WHERE member_id = $1
          AND created_at >= NOW() - make_interval(months => $2)`

	var months int
	if err := r.db.QueryRow(ctx, query, memberID, windowMonths).Scan(&months); err != nil {
		r.logger.ErrorContext(ctx, "Failed to count savings activity months", "member_id", memberID, "error", err)
		return 0, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return months, nil
}

// HasOutstandingPenalty reports whether any penalty row for the member is
// still waiting to be paid.
func (r *MemberRepository) HasOutstandingPenalty(ctx context.Context, memberID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM penalties WHERE member_id = $1 AND pstatus = 'wait')`

	var exists bool
	if err := r.db.QueryRow(ctx, query, memberID).Scan(&exists); err != nil {
		r.logger.ErrorContext(ctx, "Failed to check outstanding penalties", "member_id", memberID, "error", err)
		return false, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return exists, nil
}

var (
	_ member.Repository        = (*MemberRepository)(nil)
	_ member.SavingsAggregator = (*MemberRepository)(nil)
	_ member.PenaltyGate       = (*MemberRepository)(nil)
)
