package member

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Member is the slice of the member record this core reads. Profile CRUD is
// owned by the membership service; only the join date matters here.
type Member struct {
	ID       int64
	JoinedAt time.Time
}

// MembershipMonths returns the number of whole calendar months between the
// member's join date and now, floored at zero.
func (m Member) MembershipMonths(now time.Time) int {
	months := (now.Year()-m.JoinedAt.Year())*12 + int(now.Month()) - int(m.JoinedAt.Month())
	if now.Day() < m.JoinedAt.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

type Repository interface {
	GetMember(ctx context.Context, memberID int64) (*Member, error)
}

// SavingsAggregator is the read-only view over the savings ledger owned by the
// savings service.
type SavingsAggregator interface {
	// TotalSavings returns the sum of shares multiplied by share value over all
	// deposits of the member.
	TotalSavings(ctx context.Context, memberID int64) (decimal.Decimal, error)

	// SavingsActivityMonths returns the number of distinct calendar months with
	// at least one deposit within the trailing window.
	SavingsActivityMonths(ctx context.Context, memberID int64, windowMonths int) (int, error)
}

// PenaltyGate reports whether a member has any unpaid penalty. Penalty CRUD is
// owned by the penalty service; only the existence check matters here.
type PenaltyGate interface {
	HasOutstandingPenalty(ctx context.Context, memberID int64) (bool, error)
}
