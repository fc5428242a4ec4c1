package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// LedgerEntryType represents the direction of a purse movement
type LedgerEntryType string

const (
	// LedgerEntryCommit moves funds out of a purse into a leading bid
	LedgerEntryCommit LedgerEntryType = "COMMIT"
	// LedgerEntryRelease returns the funds of a bid that no longer leads
	LedgerEntryRelease LedgerEntryType = "RELEASE"
	// LedgerEntryRefund returns the price of a purchased item that was withdrawn
	LedgerEntryRefund LedgerEntryType = "REFUND"
)

// LedgerEntry records a single purse movement for one bidder on one item
type LedgerEntry struct {
	ID        uuid.UUID
	BidderID  uuid.UUID
	ItemID    uuid.UUID
	Type      LedgerEntryType
	Amount    int64 // ABSOLUTE VALUE (Always Positive)
	CreatedAt time.Time
}

// NewLedgerEntry builds an entry stamped with at
func NewLedgerEntry(bidderID, itemID uuid.UUID, entryType LedgerEntryType, amount int64, at time.Time) LedgerEntry {
	return LedgerEntry{
		ID:        uuid.New(),
		BidderID:  bidderID,
		ItemID:    itemID,
		Type:      entryType,
		Amount:    amount,
		CreatedAt: at,
	}
}

// Validate ensures the entry adheres to domain rules
func (e LedgerEntry) Validate() error {
	if e.BidderID == uuid.Nil || e.ItemID == uuid.Nil {
		return errors.New("ledger entry must reference a bidder and an item")
	}
	if e.Amount <= 0 {
		return errors.New("ledger entry amount must be positive (absolute value)")
	}
	switch e.Type {
	case LedgerEntryCommit, LedgerEntryRelease, LedgerEntryRefund:
	default:
		return errors.New("ledger entry type must be COMMIT, RELEASE or REFUND")
	}
	return nil
}

// NetOutflow returns the funds that have left a purse according to entries:
// commits minus releases and refunds. For a consistent bidder this equals
// initialPurse - purse.
func NetOutflow(entries []LedgerEntry) int64 {
	var total int64
	for _, entry := range entries {
		switch entry.Type {
		case LedgerEntryCommit:
			total += entry.Amount
		case LedgerEntryRelease, LedgerEntryRefund:
			total -= entry.Amount
		}
	}
	return total
}
