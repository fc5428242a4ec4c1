// Package memory provides an in-process entity store with per-record locking.
package memory

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/simaogato/auction-backend/internal/domain"
)

// Store keeps items, bidders and the ledger in memory.
// mu guards the committed maps. barrier separates ordinary units of work
// (read side) from exclusive ones such as reset (write side).
type Store struct {
	barrier sync.RWMutex
	mu      sync.RWMutex
	items   map[uuid.UUID]*domain.Item
	bidders map[uuid.UUID]*domain.Bidder
	ledger  []domain.LedgerEntry
	locks   *lockTable
}

// New creates an empty store
func New() *Store {
	return &Store{
		items:   make(map[uuid.UUID]*domain.Item),
		bidders: make(map[uuid.UUID]*domain.Bidder),
		locks:   newLockTable(),
	}
}

// Items returns the committed item view
func (s *Store) Items() domain.ItemRepository {
	return &itemRepository{s: s}
}

// Bidders returns the committed bidder view
func (s *Store) Bidders() domain.BidderRepository {
	return &bidderRepository{s: s}
}

// Ledger returns the committed ledger view
func (s *Store) Ledger() domain.LedgerRepository {
	return &ledgerRepository{s: s}
}

// WithinTx runs fn as one unit. Staged writes are applied only when fn succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx domain.Tx) error) error {
	s.barrier.RLock()
	defer s.barrier.RUnlock()

	return s.run(ctx, false, fn)
}

// WithinExclusiveTx runs fn while no other unit holds the barrier
func (s *Store) WithinExclusiveTx(ctx context.Context, fn func(ctx context.Context, tx domain.Tx) error) error {
	s.barrier.Lock()
	defer s.barrier.Unlock()

	return s.run(ctx, true, fn)
}

func (s *Store) run(ctx context.Context, exclusive bool, fn func(ctx context.Context, tx domain.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t := newTx(s, exclusive)
	defer t.releaseLocks()

	if err := fn(ctx, t); err != nil {
		return err
	}

	t.commit()
	return nil
}

func (s *Store) getItem(id uuid.UUID) (*domain.Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		return nil, false
	}
	return item.Clone(), true
}

func (s *Store) getBidder(id uuid.UUID) (*domain.Bidder, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bidder, ok := s.bidders[id]
	if !ok {
		return nil, false
	}
	return bidder.Clone(), true
}

func (s *Store) listItems() []*domain.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]*domain.Item, 0, len(s.items))
	for _, item := range s.items {
		items = append(items, item.Clone())
	}
	return items
}

func (s *Store) listBidders() []*domain.Bidder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bidders := make([]*domain.Bidder, 0, len(s.bidders))
	for _, bidder := range s.bidders {
		bidders = append(bidders, bidder.Clone())
	}
	return bidders
}

func (s *Store) ledgerFor(bidderID uuid.UUID) []domain.LedgerEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]domain.LedgerEntry, 0)
	for _, entry := range s.ledger {
		if entry.BidderID == bidderID {
			entries = append(entries, entry)
		}
	}
	return entries
}

func filterItems(items []*domain.Item, statusFilter domain.ItemStatus) []*domain.Item {
	filtered := make([]*domain.Item, 0, len(items))
	for _, item := range items {
		if statusFilter == "" || item.Status == statusFilter {
			filtered = append(filtered, item)
		}
	}
	sort.Slice(filtered, func(i, j int) bool {
		if filtered[i].Name != filtered[j].Name {
			return filtered[i].Name < filtered[j].Name
		}
		return bytes.Compare(filtered[i].ID[:], filtered[j].ID[:]) < 0
	})
	return filtered
}

func sortBidders(bidders []*domain.Bidder) []*domain.Bidder {
	sort.Slice(bidders, func(i, j int) bool {
		if bidders[i].Name != bidders[j].Name {
			return bidders[i].Name < bidders[j].Name
		}
		return bytes.Compare(bidders[i].ID[:], bidders[j].ID[:]) < 0
	})
	return bidders
}

func itemNotFound(id uuid.UUID) error {
	return domain.NewError(domain.KindNotFound, "item %s not found", id)
}

func bidderNotFound(id uuid.UUID) error {
	return domain.NewError(domain.KindNotFound, "bidder %s not found", id)
}
