package domain

import (
	"context"

	"github.com/google/uuid"
)

// ItemRepository defines the interface for item persistence operations
type ItemRepository interface {
	// GetByID retrieves an item by its ID. Missing items yield ErrNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*Item, error)

	// List retrieves items, optionally filtered by status
	// If statusFilter is empty, returns all items
	List(ctx context.Context, statusFilter ItemStatus) ([]*Item, error)

	// Create creates a new item
	Create(ctx context.Context, item *Item) error

	// Save overwrites an existing item
	Save(ctx context.Context, item *Item) error

	// Delete removes an item
	Delete(ctx context.Context, id uuid.UUID) error
}

// BidderRepository defines the interface for bidder persistence operations
type BidderRepository interface {
	// GetByID retrieves a bidder by its ID. Missing bidders yield ErrNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*Bidder, error)

	// List retrieves all bidders ordered by name
	List(ctx context.Context) ([]*Bidder, error)

	// Create creates a new bidder
	Create(ctx context.Context, bidder *Bidder) error

	// Save overwrites an existing bidder, roster included
	Save(ctx context.Context, bidder *Bidder) error
}

// LedgerRepository defines the interface for purse movement history
type LedgerRepository interface {
	// Append records entries
	Append(ctx context.Context, entries ...LedgerEntry) error

	// ListByBidder retrieves the entries of one bidder in insertion order
	ListByBidder(ctx context.Context, bidderID uuid.UUID) ([]LedgerEntry, error)

	// Clear removes every entry
	Clear(ctx context.Context) error
}

// Tx is one atomic unit of work against the store.
// Records locked through LockItem and LockBidders stay locked until the unit ends.
// Writes made through the repositories become visible only if the unit commits.
type Tx interface {
	// LockItem locks and returns an item
	LockItem(ctx context.Context, id uuid.UUID) (*Item, error)

	// LockBidders locks the given bidders and returns them keyed by id.
	// Call it at most once per unit, after LockItem.
	LockBidders(ctx context.Context, ids ...uuid.UUID) (map[uuid.UUID]*Bidder, error)

	Items() ItemRepository
	Bidders() BidderRepository
	Ledger() LedgerRepository
}

// Store is the entity store the settlement engine runs against
type Store interface {
	Items() ItemRepository
	Bidders() BidderRepository
	Ledger() LedgerRepository

	// WithinTx runs fn as one atomic unit. If fn returns an error nothing it wrote is kept.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// WithinExclusiveTx runs fn as one atomic unit while no other unit is in flight
	WithinExclusiveTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
