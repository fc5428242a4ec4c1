package sqlstore

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/simaogato/auction-backend/internal/domain"
)

// Store implements domain.Store on top of a SQL database.
// Every unit of work is one database transaction.
type Store struct {
	db *DB
}

// NewStore creates a new SQL-backed store
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

func (s *Store) Items() domain.ItemRepository {
	return &itemRepository{q: s.db, dialect: s.db.dialect}
}

func (s *Store) Bidders() domain.BidderRepository {
	return &bidderRepository{db: s.db}
}

func (s *Store) Ledger() domain.LedgerRepository {
	return &ledgerRepository{q: s.db, dialect: s.db.dialect}
}

// WithinTx runs fn in a transaction, rolled back if fn fails
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx domain.Tx) error) error {
	return s.run(ctx, false, fn)
}

// WithinExclusiveTx runs fn in a transaction holding every table in exclusive mode
func (s *Store) WithinExclusiveTx(ctx context.Context, fn func(ctx context.Context, tx domain.Tx) error) error {
	return s.run(ctx, true, fn)
}

func (s *Store) run(ctx context.Context, exclusive bool, fn func(ctx context.Context, tx domain.Tx) error) error {
	// Logic:
	// 1. Begin transaction
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	// 2. Shut out every row-locking unit for the duration (postgres only; sqlite already runs one unit at a time)
	if exclusive && s.db.dialect.rowLocks {
		_, err := sqlTx.ExecContext(ctx, "LOCK TABLE items, bidders, roster_entries, ledger_entries IN EXCLUSIVE MODE")
		if err != nil {
			return fmt.Errorf("failed to lock tables: %w", err)
		}
	}

	// 3. Run the unit
	if err := fn(ctx, &tx{db: s.db, tx: sqlTx}); err != nil {
		return err
	}

	// 4. Commit
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// tx implements domain.Tx
type tx struct {
	db *DB
	tx *sql.Tx
}

// LockItem selects the item row for update
func (t *tx) LockItem(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	return (&itemRepository{q: t.tx, dialect: t.db.dialect}).get(ctx, id, true)
}

// LockBidders selects the bidder rows for update in id order
func (t *tx) LockBidders(ctx context.Context, ids ...uuid.UUID) (map[uuid.UUID]*domain.Bidder, error) {
	ordered := slices.Clone(ids)
	slices.SortFunc(ordered, func(a, b uuid.UUID) int {
		return bytes.Compare(a[:], b[:])
	})
	ordered = slices.Compact(ordered)

	repo := &bidderRepository{db: t.db, tx: t.tx}
	bidders := make(map[uuid.UUID]*domain.Bidder, len(ordered))
	for _, id := range ordered {
		bidder, err := repo.get(ctx, id, true)
		if err != nil {
			return nil, err
		}
		bidders[id] = bidder
	}
	return bidders, nil
}

func (t *tx) Items() domain.ItemRepository {
	return &itemRepository{q: t.tx, dialect: t.db.dialect}
}

func (t *tx) Bidders() domain.BidderRepository {
	return &bidderRepository{db: t.db, tx: t.tx}
}

func (t *tx) Ledger() domain.LedgerRepository {
	return &ledgerRepository{q: t.tx, dialect: t.db.dialect}
}
