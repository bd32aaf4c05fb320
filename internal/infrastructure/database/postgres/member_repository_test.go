package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/gasanashema/Saving-and-credits-MS-sub000/internal/pkg/apperrors"
)

func setupMemberRepo(t *testing.T) (context.Context, *MemberRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to open a stub database connection: %v", err)
	}

	ctx := context.Background()
	repo := NewMemberRepository(mockPool, logger)

	return ctx, repo, mockPool
}

func TestGetMember(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		ctx, repo, mockPool := setupMemberRepo(t)
		defer mockPool.Close()

		joined := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)
		mockPool.ExpectQuery(`SELECT id, joined_at FROM members`).
			WithArgs(int64(1)).
			WillReturnRows(pgxmock.NewRows([]string{"id", "joined_at"}).AddRow(int64(1), joined))

		m, err := repo.GetMember(ctx, 1)
		assert.NoError(t, err)
		assert.Equal(t, int64(1), m.ID)
		assert.Equal(t, joined, m.JoinedAt)
		assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
	})

	t.Run("not found", func(t *testing.T) {
		ctx, repo, mockPool := setupMemberRepo(t)
		defer mockPool.Close()

		mockPool.ExpectQuery(`SELECT id, joined_at FROM members`).
			WithArgs(int64(404)).
			WillReturnRows(pgxmock.NewRows([]string{"id", "joined_at"}))

		_, err := repo.GetMember(ctx, 404)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
	})
}

func TestTotalSavings(t *testing.T) {
	t.Run("sums shares times value", func(t *testing.T) {
		ctx, repo, mockPool := setupMemberRepo(t)
		defer mockPool.Close()

		mockPool.ExpectQuery(`SELECT COALESCE\(SUM\(number_of_shares \* share_value\), 0\)`).
			WithArgs(int64(1)).
			WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow("180000.00"))

		total, err := repo.TotalSavings(ctx, 1)
		assert.NoError(t, err)
		assert.True(t, total.Equal(decimal.NewFromInt(180000)), "total %s", total)
		assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
	})

	t.Run("member without deposits", func(t *testing.T) {
		ctx, repo, mockPool := setupMemberRepo(t)
		defer mockPool.Close()

		mockPool.ExpectQuery(`SELECT COALESCE\(SUM\(number_of_shares \* share_value\), 0\)`).
			WithArgs(int64(2)).
			WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow("0"))

		total, err := repo.TotalSavings(ctx, 2)
		assert.NoError(t, err)
		assert.True(t, total.IsZero())
		assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
	})
}

func TestSavingsActivityMonths(t *testing.T) {
	ctx, repo, mockPool := setupMemberRepo(t)
	defer mockPool.Close()

	mockPool.ExpectQuery(`SELECT COUNT\(DISTINCT date_trunc\('month', created_at\)\)`).
		WithArgs(int64(1), 6).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(4))

	months, err := repo.SavingsActivityMonths(ctx, 1, 6)
	assert.NoError(t, err)
	assert.Equal(t, 4, months)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}

func TestHasOutstandingPenalty(t *testing.T) {
	ctx, repo, mockPool := setupMemberRepo(t)
	defer mockPool.Close()

	mockPool.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM penalties`).
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	hasPenalty, err := repo.HasOutstandingPenalty(ctx, 1)
	assert.NoError(t, err)
	assert.True(t, hasPenalty)
	assert.NoError(t, mockPool.ExpectationsWereMet(), pgxmockExpectationsNotMetMsg)
}
