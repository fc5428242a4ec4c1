package domain

import (
	"errors"

	"github.com/google/uuid"
)

// Bidder represents a team competing in the auction
type Bidder struct {
	ID    uuid.UUID
	Name  string
	Purse int64
	// Roster holds the ids of the items this bidder has won
	Roster []uuid.UUID
}

// NewBidder creates a bidder with a full purse and an empty roster
func NewBidder(name string, purse int64) *Bidder {
	return &Bidder{
		ID:     uuid.New(),
		Name:   name,
		Purse:  purse,
		Roster: []uuid.UUID{},
	}
}

// SlotsLeft returns how many more items the bidder may win under squadCap
func (b *Bidder) SlotsLeft(squadCap int) int {
	return squadCap - len(b.Roster)
}

// Owns reports whether itemID is on the bidder's roster
func (b *Bidder) Owns(itemID uuid.UUID) bool {
	for _, id := range b.Roster {
		if id == itemID {
			return true
		}
	}
	return false
}

// AddToRoster appends itemID to the roster if it is not already present
func (b *Bidder) AddToRoster(itemID uuid.UUID) {
	if b.Owns(itemID) {
		return
	}
	b.Roster = append(b.Roster, itemID)
}

// RemoveFromRoster drops itemID from the roster and reports whether it was there
func (b *Bidder) RemoveFromRoster(itemID uuid.UUID) bool {
	for i, id := range b.Roster {
		if id == itemID {
			b.Roster = append(b.Roster[:i:i], b.Roster[i+1:]...)
			return true
		}
	}
	return false
}

// Reset restores the bidder to the given purse with an empty roster
func (b *Bidder) Reset(purse int64) {
	b.Purse = purse
	b.Roster = []uuid.UUID{}
}

// Clone returns a deep copy of the bidder
func (b *Bidder) Clone() *Bidder {
	c := *b
	c.Roster = make([]uuid.UUID, len(b.Roster))
	copy(c.Roster, b.Roster)
	return &c
}

// Validate ensures the bidder adheres to domain rules
// Returns an error if validation fails
func (b *Bidder) Validate() error {
	if b.ID == uuid.Nil {
		return errors.New("bidder id cannot be empty")
	}
	if b.Name == "" {
		return errors.New("bidder name cannot be empty")
	}
	if b.Purse < 0 {
		return errors.New("bidder purse cannot be negative")
	}

	seen := make(map[uuid.UUID]bool, len(b.Roster))
	for _, id := range b.Roster {
		if seen[id] {
			return errors.New("bidder roster cannot contain the same item twice")
		}
		seen[id] = true
	}

	return nil
}
