package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ItemStatus represents where an item is in the auction lifecycle
type ItemStatus string

const (
	ItemStatusPending ItemStatus = "pending"
	ItemStatusSold    ItemStatus = "sold"
	ItemStatusUnsold  ItemStatus = "unsold"
)

// Item represents a player put up for auction
type Item struct {
	ID           uuid.UUID
	Name         string
	Role         string
	Department   string
	Year         string
	BattingStyle string
	BowlingStyle string
	ImageURL     string
	BasePrice    int64
	Status       ItemStatus
	CurrentBid   int64
	// LeadingBidderID references the bidder currently ahead. Nil until the first accepted bid.
	LeadingBidderID *uuid.UUID
	// SoldToID, SoldPrice and SoldAt are written once, at finalization.
	SoldToID  *uuid.UUID
	SoldPrice *int64
	SoldAt    *time.Time
}

// NewItem creates a pending item with no bids
func NewItem(name, role string, basePrice int64) *Item {
	return &Item{
		ID:        uuid.New(),
		Name:      name,
		Role:      role,
		BasePrice: basePrice,
		Status:    ItemStatusPending,
	}
}

// IsSold reports whether the item has been settled to a bidder
func (i *Item) IsSold() bool {
	return i.Status == ItemStatusSold
}

// IsOpen reports whether the item can still receive bids
func (i *Item) IsOpen() bool {
	return i.Status == ItemStatusPending
}

// HasLeader reports whether any bid has been accepted on the item
func (i *Item) HasLeader() bool {
	return i.LeadingBidderID != nil
}

// IsLedBy reports whether bidderID currently leads the item
func (i *Item) IsLedBy(bidderID uuid.UUID) bool {
	return i.LeadingBidderID != nil && *i.LeadingBidderID == bidderID
}

// Reset returns the item to its freshly created state
func (i *Item) Reset() {
	i.Status = ItemStatusPending
	i.CurrentBid = 0
	i.LeadingBidderID = nil
	i.SoldToID = nil
	i.SoldPrice = nil
	i.SoldAt = nil
}

// Clone returns a deep copy of the item
func (i *Item) Clone() *Item {
	c := *i
	if i.LeadingBidderID != nil {
		id := *i.LeadingBidderID
		c.LeadingBidderID = &id
	}
	if i.SoldToID != nil {
		id := *i.SoldToID
		c.SoldToID = &id
	}
	if i.SoldPrice != nil {
		p := *i.SoldPrice
		c.SoldPrice = &p
	}
	if i.SoldAt != nil {
		t := *i.SoldAt
		c.SoldAt = &t
	}
	return &c
}

// Validate ensures the item adheres to domain rules
// Returns an error if validation fails
func (i *Item) Validate() error {
	if i.ID == uuid.Nil {
		return errors.New("item id cannot be empty")
	}
	if i.Name == "" {
		return errors.New("item name cannot be empty")
	}
	if i.BasePrice < 0 {
		return errors.New("item base price cannot be negative")
	}
	if i.CurrentBid < 0 {
		return errors.New("item current bid cannot be negative")
	}

	switch i.Status {
	case ItemStatusPending, ItemStatusUnsold:
		if i.SoldToID != nil || i.SoldPrice != nil {
			return errors.New("unsettled item cannot carry sale fields")
		}
		if i.LeadingBidderID == nil && i.CurrentBid != 0 {
			return errors.New("item without a leading bidder must have a zero current bid")
		}
		if i.Status == ItemStatusUnsold && i.LeadingBidderID != nil {
			return errors.New("unsold item cannot have a leading bidder")
		}
	case ItemStatusSold:
		// sold <=> soldTo and soldPrice set, soldPrice equal to the final bid
		if i.SoldToID == nil || i.SoldPrice == nil {
			return errors.New("sold item must have a buyer and a sold price")
		}
		if *i.SoldPrice != i.CurrentBid {
			return errors.New("sold price must equal the current bid")
		}
		if i.LeadingBidderID == nil || *i.LeadingBidderID != *i.SoldToID {
			return errors.New("sold item must be sold to its leading bidder")
		}
	default:
		return errors.New("item status must be pending, sold or unsold")
	}

	return nil
}

// ParseItemStatus converts s to an ItemStatus. The empty string means no filter.
func ParseItemStatus(s string) (ItemStatus, error) {
	switch ItemStatus(s) {
	case "", ItemStatusPending, ItemStatusSold, ItemStatusUnsold:
		return ItemStatus(s), nil
	default:
		return "", errors.New("status must be pending, sold or unsold")
	}
}
