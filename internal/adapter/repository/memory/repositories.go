package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/simaogato/auction-backend/internal/domain"
)

// itemRepository implements domain.ItemRepository over committed state.
// Each write is a single-record atomic update.
type itemRepository struct {
	s *Store
}

func (r *itemRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	item, ok := r.s.getItem(id)
	if !ok {
		return nil, itemNotFound(id)
	}
	return item, nil
}

func (r *itemRepository) List(ctx context.Context, statusFilter domain.ItemStatus) ([]*domain.Item, error) {
	return filterItems(r.s.listItems(), statusFilter), nil
}

func (r *itemRepository) Create(ctx context.Context, item *domain.Item) error {
	r.s.barrier.RLock()
	defer r.s.barrier.RUnlock()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.items[item.ID]; exists {
		return fmt.Errorf("item %s already exists", item.ID)
	}
	r.s.items[item.ID] = item.Clone()
	return nil
}

func (r *itemRepository) Save(ctx context.Context, item *domain.Item) error {
	r.s.barrier.RLock()
	defer r.s.barrier.RUnlock()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.items[item.ID]; !exists {
		return itemNotFound(item.ID)
	}
	r.s.items[item.ID] = item.Clone()
	return nil
}

func (r *itemRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.barrier.RLock()
	defer r.s.barrier.RUnlock()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.items[id]; !exists {
		return itemNotFound(id)
	}
	delete(r.s.items, id)
	return nil
}

// bidderRepository implements domain.BidderRepository over committed state
type bidderRepository struct {
	s *Store
}

func (r *bidderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Bidder, error) {
	bidder, ok := r.s.getBidder(id)
	if !ok {
		return nil, bidderNotFound(id)
	}
	return bidder, nil
}

func (r *bidderRepository) List(ctx context.Context) ([]*domain.Bidder, error) {
	return sortBidders(r.s.listBidders()), nil
}

func (r *bidderRepository) Create(ctx context.Context, bidder *domain.Bidder) error {
	r.s.barrier.RLock()
	defer r.s.barrier.RUnlock()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.bidders[bidder.ID]; exists {
		return fmt.Errorf("bidder %s already exists", bidder.ID)
	}
	r.s.bidders[bidder.ID] = bidder.Clone()
	return nil
}

func (r *bidderRepository) Save(ctx context.Context, bidder *domain.Bidder) error {
	r.s.barrier.RLock()
	defer r.s.barrier.RUnlock()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.bidders[bidder.ID]; !exists {
		return bidderNotFound(bidder.ID)
	}
	r.s.bidders[bidder.ID] = bidder.Clone()
	return nil
}

// ledgerRepository implements domain.LedgerRepository over committed state
type ledgerRepository struct {
	s *Store
}

func (r *ledgerRepository) Append(ctx context.Context, entries ...domain.LedgerEntry) error {
	if err := validateEntries(entries); err != nil {
		return err
	}

	r.s.barrier.RLock()
	defer r.s.barrier.RUnlock()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.ledger = append(r.s.ledger, entries...)
	return nil
}

func (r *ledgerRepository) ListByBidder(ctx context.Context, bidderID uuid.UUID) ([]domain.LedgerEntry, error) {
	return r.s.ledgerFor(bidderID), nil
}

func (r *ledgerRepository) Clear(ctx context.Context) error {
	r.s.barrier.RLock()
	defer r.s.barrier.RUnlock()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.ledger = nil
	return nil
}

// validateEntries rejects the whole batch if any entry is malformed
func validateEntries(entries []domain.LedgerEntry) error {
	for _, entry := range entries {
		if err := entry.Validate(); err != nil {
			return fmt.Errorf("invalid ledger entry %s: %w", entry.ID, err)
		}
	}
	return nil
}
