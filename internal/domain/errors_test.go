package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettlementError_IsMatchesByKind(t *testing.T) {
	err := NewError(KindBidTooLow, "bid %d must exceed %d", 100, 200)

	assert.True(t, errors.Is(err, ErrBidTooLow))
	assert.False(t, errors.Is(err, ErrNoBids))
	assert.Equal(t, "bid 100 must exceed 200", err.Error())

	wrapped := fmt.Errorf("place bid: %w", err)
	assert.True(t, errors.Is(wrapped, ErrBidTooLow))
	assert.Equal(t, KindBidTooLow, KindOf(wrapped))
}

func TestExceedsReserve_CarriesCeiling(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", ExceedsReserve(36001, 36000))

	var se *SettlementError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, KindBidExceedsReserve, se.Kind)
	assert.Equal(t, int64(36000), se.MaxAllowedBid)
	assert.True(t, errors.Is(err, ErrBidExceedsReserve))
}

func TestStoreFailure(t *testing.T) {
	assert.NoError(t, StoreFailure("save item", nil))

	cause := errors.New("connection reset")
	err := StoreFailure("save item", cause)
	assert.True(t, errors.Is(err, ErrStoreUnavailable))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "save item: connection reset", err.Error())

	// settlement errors are not re-classified
	notFound := NewError(KindNotFound, "item missing")
	assert.Same(t, notFound, StoreFailure("load item", notFound))
	assert.Equal(t, ErrorKind(""), KindOf(cause))
}

func TestRules_Validate(t *testing.T) {
	assert.NoError(t, DefaultRules().Validate())

	rules := DefaultRules()
	rules.SquadCap = 0
	assert.ErrorContains(t, rules.Validate(), "squad cap")

	rules = DefaultRules()
	rules.BasePriceFloor = -5
	assert.ErrorContains(t, rules.Validate(), "base price floor")

	rules = DefaultRules()
	rules.InitialPurse = -1
	assert.ErrorContains(t, rules.Validate(), "initial purse")
}
