package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/simaogato/auction-backend/internal/domain"
)

// tx stages writes on top of the committed state until commit
type tx struct {
	s         *Store
	exclusive bool
	held      []uuid.UUID

	items       map[uuid.UUID]*domain.Item
	deleted     map[uuid.UUID]bool
	bidders     map[uuid.UUID]*domain.Bidder
	ledger      []domain.LedgerEntry
	clearLedger bool
}

func newTx(s *Store, exclusive bool) *tx {
	return &tx{
		s:         s,
		exclusive: exclusive,
		items:     make(map[uuid.UUID]*domain.Item),
		deleted:   make(map[uuid.UUID]bool),
		bidders:   make(map[uuid.UUID]*domain.Bidder),
	}
}

func (t *tx) lock(ctx context.Context, id uuid.UUID) error {
	// the barrier already keeps every other unit out
	if t.exclusive {
		return nil
	}
	for _, held := range t.held {
		if held == id {
			return nil
		}
	}
	if err := t.s.locks.acquire(ctx, id); err != nil {
		return fmt.Errorf("failed to lock record %s: %w", id, err)
	}
	t.held = append(t.held, id)
	return nil
}

func (t *tx) releaseLocks() {
	for i := len(t.held) - 1; i >= 0; i-- {
		t.s.locks.release(t.held[i])
	}
	t.held = nil
}

func (t *tx) commit() {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	for id := range t.deleted {
		delete(t.s.items, id)
	}
	for id, item := range t.items {
		t.s.items[id] = item
	}
	for id, bidder := range t.bidders {
		t.s.bidders[id] = bidder
	}
	if t.clearLedger {
		t.s.ledger = nil
	}
	t.s.ledger = append(t.s.ledger, t.ledger...)
}

// LockItem locks and returns an item
func (t *tx) LockItem(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	if err := t.lock(ctx, id); err != nil {
		return nil, err
	}
	return t.Items().GetByID(ctx, id)
}

// LockBidders locks bidders in id order and returns them keyed by id
func (t *tx) LockBidders(ctx context.Context, ids ...uuid.UUID) (map[uuid.UUID]*domain.Bidder, error) {
	ordered := sortedUnique(ids)
	for _, id := range ordered {
		if err := t.lock(ctx, id); err != nil {
			return nil, err
		}
	}

	bidders := make(map[uuid.UUID]*domain.Bidder, len(ordered))
	for _, id := range ordered {
		bidder, err := t.Bidders().GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		bidders[id] = bidder
	}
	return bidders, nil
}

func (t *tx) Items() domain.ItemRepository {
	return &txItemRepository{t: t}
}

func (t *tx) Bidders() domain.BidderRepository {
	return &txBidderRepository{t: t}
}

func (t *tx) Ledger() domain.LedgerRepository {
	return &txLedgerRepository{t: t}
}

type txItemRepository struct {
	t *tx
}

func (r *txItemRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	if r.t.deleted[id] {
		return nil, itemNotFound(id)
	}
	if item, ok := r.t.items[id]; ok {
		return item.Clone(), nil
	}
	item, ok := r.t.s.getItem(id)
	if !ok {
		return nil, itemNotFound(id)
	}
	return item, nil
}

func (r *txItemRepository) List(ctx context.Context, statusFilter domain.ItemStatus) ([]*domain.Item, error) {
	merged := make([]*domain.Item, 0)
	for _, item := range r.t.s.listItems() {
		if _, staged := r.t.items[item.ID]; staged || r.t.deleted[item.ID] {
			continue
		}
		merged = append(merged, item)
	}
	for _, item := range r.t.items {
		merged = append(merged, item.Clone())
	}
	return filterItems(merged, statusFilter), nil
}

func (r *txItemRepository) Create(ctx context.Context, item *domain.Item) error {
	if _, err := r.GetByID(ctx, item.ID); err == nil {
		return fmt.Errorf("item %s already exists", item.ID)
	}
	delete(r.t.deleted, item.ID)
	r.t.items[item.ID] = item.Clone()
	return nil
}

func (r *txItemRepository) Save(ctx context.Context, item *domain.Item) error {
	if _, err := r.GetByID(ctx, item.ID); err != nil {
		return err
	}
	r.t.items[item.ID] = item.Clone()
	return nil
}

func (r *txItemRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	delete(r.t.items, id)
	r.t.deleted[id] = true
	return nil
}

type txBidderRepository struct {
	t *tx
}

func (r *txBidderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Bidder, error) {
	if bidder, ok := r.t.bidders[id]; ok {
		return bidder.Clone(), nil
	}
	bidder, ok := r.t.s.getBidder(id)
	if !ok {
		return nil, bidderNotFound(id)
	}
	return bidder, nil
}

func (r *txBidderRepository) List(ctx context.Context) ([]*domain.Bidder, error) {
	merged := make([]*domain.Bidder, 0)
	for _, bidder := range r.t.s.listBidders() {
		if _, staged := r.t.bidders[bidder.ID]; !staged {
			merged = append(merged, bidder)
		}
	}
	for _, bidder := range r.t.bidders {
		merged = append(merged, bidder.Clone())
	}
	return sortBidders(merged), nil
}

func (r *txBidderRepository) Create(ctx context.Context, bidder *domain.Bidder) error {
	if _, err := r.GetByID(ctx, bidder.ID); err == nil {
		return fmt.Errorf("bidder %s already exists", bidder.ID)
	}
	r.t.bidders[bidder.ID] = bidder.Clone()
	return nil
}

func (r *txBidderRepository) Save(ctx context.Context, bidder *domain.Bidder) error {
	if _, err := r.GetByID(ctx, bidder.ID); err != nil {
		return err
	}
	r.t.bidders[bidder.ID] = bidder.Clone()
	return nil
}

type txLedgerRepository struct {
	t *tx
}

func (r *txLedgerRepository) Append(ctx context.Context, entries ...domain.LedgerEntry) error {
	if err := validateEntries(entries); err != nil {
		return err
	}
	r.t.ledger = append(r.t.ledger, entries...)
	return nil
}

func (r *txLedgerRepository) ListByBidder(ctx context.Context, bidderID uuid.UUID) ([]domain.LedgerEntry, error) {
	entries := make([]domain.LedgerEntry, 0)
	if !r.t.clearLedger {
		entries = append(entries, r.t.s.ledgerFor(bidderID)...)
	}
	for _, entry := range r.t.ledger {
		if entry.BidderID == bidderID {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (r *txLedgerRepository) Clear(ctx context.Context) error {
	r.t.clearLedger = true
	r.t.ledger = nil
	return nil
}
