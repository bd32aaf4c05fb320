package eligibility

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestConsistencyFactor(t *testing.T) {
	policy := DefaultPolicy()

	tests := []struct {
		name        string
		monthsSaved int
		expected    string
	}{
		{"no deposits in window", 0, "0.5"},
		{"one active month", 1, "0.8"},
		{"two active months", 2, "0.8"},
		{"half the window", 3, "1"},
		{"full window", 6, "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expected, err := decimal.NewFromString(tt.expected)
			assert.NoError(t, err)
			assert.True(t, policy.ConsistencyFactor(tt.monthsSaved).Equal(expected),
				"got %s", policy.ConsistencyFactor(tt.monthsSaved))
		})
	}
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, 3, p.MinMembershipMonths)
	assert.Equal(t, int64(3), p.SavingsMultiplier)
	assert.Equal(t, 6, p.ConsistencyWindowMonths)
}
