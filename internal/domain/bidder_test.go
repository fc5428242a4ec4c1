package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestBidder_Validate(t *testing.T) {
	dup := uuid.New()

	tests := []struct {
		name      string
		bidder    *Bidder
		expectErr string
	}{
		{
			name:   "Valid Bidder",
			bidder: NewBidder("Team A", 50000),
		},
		{
			name:      "Empty Name",
			bidder:    NewBidder("", 50000),
			expectErr: "bidder name cannot be empty",
		},
		{
			name:      "Negative Purse",
			bidder:    &Bidder{ID: uuid.New(), Name: "Team B", Purse: -1},
			expectErr: "bidder purse cannot be negative",
		},
		{
			name:      "Duplicate Roster Entry",
			bidder:    &Bidder{ID: uuid.New(), Name: "Team C", Roster: []uuid.UUID{dup, dup}},
			expectErr: "same item twice",
		},
		{
			name:      "Missing ID",
			bidder:    &Bidder{Name: "Team D"},
			expectErr: "bidder id cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.bidder.Validate()
			if tt.expectErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectErr)
		})
	}
}

func TestBidder_RosterOperations(t *testing.T) {
	bidder := NewBidder("Team A", 50000)
	first, second := uuid.New(), uuid.New()

	bidder.AddToRoster(first)
	bidder.AddToRoster(second)
	bidder.AddToRoster(first)

	assert.Len(t, bidder.Roster, 2)
	assert.Equal(t, 6, bidder.SlotsLeft(8))
	assert.True(t, bidder.Owns(first))

	assert.True(t, bidder.RemoveFromRoster(first))
	assert.False(t, bidder.RemoveFromRoster(first))
	assert.Equal(t, []uuid.UUID{second}, bidder.Roster)
}

func TestBidder_CloneDoesNotShareRoster(t *testing.T) {
	bidder := NewBidder("Team A", 50000)
	bidder.AddToRoster(uuid.New())

	clone := bidder.Clone()
	clone.AddToRoster(uuid.New())
	clone.Purse = 10

	assert.Len(t, bidder.Roster, 1)
	assert.Equal(t, int64(50000), bidder.Purse)
}

func TestBidder_Reset(t *testing.T) {
	bidder := NewBidder("Team A", 12000)
	bidder.AddToRoster(uuid.New())

	bidder.Reset(50000)

	assert.Equal(t, int64(50000), bidder.Purse)
	assert.Empty(t, bidder.Roster)
	assert.NotNil(t, bidder.Roster)
}
