package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBorrowStatus_CanTransition(t *testing.T) {
	tests := []struct {
		name     string
		from     BorrowStatus
		to       BorrowStatus
		expected bool
	}{
		{
			name:     "pending to approved",
			from:     BorrowPending,
			to:       BorrowApproved,
			expected: true,
		},
		{
			name:     "pending to rejected",
			from:     BorrowPending,
			to:       BorrowRejected,
			expected: true,
		},
		{
			name:     "pending to claimed skips approval",
			from:     BorrowPending,
			to:       BorrowClaimed,
			expected: false,
		},
		{
			name:     "approved to claimed",
			from:     BorrowApproved,
			to:       BorrowClaimed,
			expected: true,
		},
		{
			name:     "approved to unclaimed",
			from:     BorrowApproved,
			to:       BorrowUnclaimed,
			expected: true,
		},
		{
			name:     "approved back to pending",
			from:     BorrowApproved,
			to:       BorrowPending,
			expected: false,
		},
		{
			name:     "claimed to returned",
			from:     BorrowClaimed,
			to:       BorrowReturned,
			expected: true,
		},
		{
			name:     "returned is terminal",
			from:     BorrowReturned,
			to:       BorrowPending,
			expected: false,
		},
		{
			name:     "rejected is terminal",
			from:     BorrowRejected,
			to:       BorrowApproved,
			expected: false,
		},
		{
			name:     "unclaimed is terminal",
			from:     BorrowUnclaimed,
			to:       BorrowClaimed,
			expected: false,
		},
		{
			name:     "no self transition",
			from:     BorrowPending,
			to:       BorrowPending,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.from.CanTransition(tt.to))
		})
	}
}

func TestParseBorrowStatus(t *testing.T) {
	status, err := ParseBorrowStatus("approved")
	assert.NoError(t, err)
	assert.Equal(t, BorrowApproved, status)

	_, err = ParseBorrowStatus("fulfilled")
	assert.Error(t, err)

	_, err = ParseBorrowStatus("")
	assert.Error(t, err)
}

func TestParseUnitStatus(t *testing.T) {
	status, err := ParseUnitStatus("maintenance")
	assert.NoError(t, err)
	assert.Equal(t, UnitMaintenance, status)

	_, err = ParseUnitStatus("broken")
	assert.Error(t, err)
}

func TestUnitStatus_Reallocatable(t *testing.T) {
	assert.True(t, UnitAvailable.Reallocatable())
	assert.True(t, UnitDamaged.Reallocatable())
	assert.True(t, UnitLost.Reallocatable())
	assert.False(t, UnitReserved.Reallocatable())
	assert.False(t, UnitBorrowed.Reallocatable())
}

func TestClaimToken_Expired(t *testing.T) {
	now := time.Now()
	token := &ClaimToken{ExpiresAt: now.Add(30 * time.Minute)}
	assert.False(t, token.Expired(now))
	assert.True(t, token.Expired(now.Add(30*time.Minute)))
	assert.True(t, token.Expired(now.Add(time.Hour)))
}

func TestSession_Renewal(t *testing.T) {
	now := time.Now()
	session := &Session{ExpiresAt: now.Add(SessionLifetime)}

	assert.False(t, session.Expired(now))
	assert.False(t, session.NeedsRenewal(now))

	// 5 days in: less than 3 days of lifetime remain.
	later := now.Add(5 * 24 * time.Hour)
	assert.False(t, session.Expired(later))
	assert.True(t, session.NeedsRenewal(later))

	assert.True(t, session.Expired(now.Add(SessionLifetime)))
}
