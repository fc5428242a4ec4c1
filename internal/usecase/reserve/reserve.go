package reserve

import (
	"github.com/simaogato/auction-backend/internal/domain"
)

// Ceiling describes how much a bidder may put on a single item
type Ceiling struct {
	SlotsLeft     int
	MinReserve    int64 // funds that must stay in the purse to fill the remaining slots
	MaxAllowedBid int64
}

// CalculateCeiling computes the highest bid a bidder may place given its
// available purse and current roster size.
// Logic:
//  1. slotsLeft = squadCap - rosterSize. No slot left means the bidder cannot bid (SquadFull).
//  2. Every slot after this one must still be fillable at the floor price:
//     minReserve = (slotsLeft - 1) * basePriceFloor
//  3. maxAllowedBid = purse - minReserve. It may be negative when the purse is
//     already below the reserve, in which case no bid is acceptable.
func CalculateCeiling(purse int64, rosterSize int, rules domain.Rules) (Ceiling, error) {
	slotsLeft := rules.SquadCap - rosterSize
	if slotsLeft <= 0 {
		return Ceiling{SlotsLeft: slotsLeft}, domain.NewError(domain.KindSquadFull,
			"squad is full: %d of %d slots used", rosterSize, rules.SquadCap)
	}

	minReserve := int64(slotsLeft-1) * rules.BasePriceFloor

	return Ceiling{
		SlotsLeft:     slotsLeft,
		MinReserve:    minReserve,
		MaxAllowedBid: purse - minReserve,
	}, nil
}

// CheckBid validates amount against the ceiling and the raw purse.
// The raw purse check is redundant while a slot is left but is kept as the floor.
func CheckBid(amount, purse int64, rosterSize int, rules domain.Rules) (Ceiling, error) {
	ceiling, err := CalculateCeiling(purse, rosterSize, rules)
	if err != nil {
		return ceiling, err
	}

	if amount > ceiling.MaxAllowedBid {
		return ceiling, domain.ExceedsReserve(amount, ceiling.MaxAllowedBid)
	}

	if amount > purse {
		return ceiling, domain.ExceedsReserve(amount, purse)
	}

	return ceiling, nil
}
