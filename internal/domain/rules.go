package domain

import "errors"

const (
	DefaultSquadCap       = 8
	DefaultBasePriceFloor = int64(2000)
	DefaultInitialPurse   = int64(50000)
)

// Rules holds the configurable limits the settlement engine enforces
type Rules struct {
	SquadCap       int
	BasePriceFloor int64
	InitialPurse   int64
}

// DefaultRules returns the limits used when nothing is configured
func DefaultRules() Rules {
	return Rules{
		SquadCap:       DefaultSquadCap,
		BasePriceFloor: DefaultBasePriceFloor,
		InitialPurse:   DefaultInitialPurse,
	}
}

// Validate ensures the rules are usable
func (r Rules) Validate() error {
	if r.SquadCap < 1 {
		return errors.New("squad cap must be at least 1")
	}
	if r.BasePriceFloor < 0 {
		return errors.New("base price floor cannot be negative")
	}
	if r.InitialPurse < 0 {
		return errors.New("initial purse cannot be negative")
	}
	return nil
}
