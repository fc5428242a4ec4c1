package sqlstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/simaogato/auction-backend/internal/domain"
)

// ledgerRepository implements domain.LedgerRepository
type ledgerRepository struct {
	q       querier
	dialect dialect
}

// Append records entries in order
func (r *ledgerRepository) Append(ctx context.Context, entries ...domain.LedgerEntry) error {
	query := r.dialect.rebind(`
		INSERT INTO ledger_entries (id, bidder_id, item_id, entry_type, amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)

	for _, entry := range entries {
		if err := entry.Validate(); err != nil {
			return fmt.Errorf("invalid ledger entry %s: %w", entry.ID, err)
		}
	}

	for _, entry := range entries {
		_, err := r.q.ExecContext(ctx, query,
			entry.ID,
			entry.BidderID,
			entry.ItemID,
			string(entry.Type),
			entry.Amount,
			toMillis(entry.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to append ledger entry: %w", err)
		}
	}
	return nil
}

// ListByBidder retrieves the entries of one bidder in insertion order
func (r *ledgerRepository) ListByBidder(ctx context.Context, bidderID uuid.UUID) ([]domain.LedgerEntry, error) {
	query := `
		SELECT id, bidder_id, item_id, entry_type, amount, created_at
		FROM ledger_entries
		WHERE bidder_id = ?
		ORDER BY seq
	`

	rows, err := r.q.QueryContext(ctx, r.dialect.rebind(query), bidderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.LedgerEntry, 0)
	for rows.Next() {
		var entry domain.LedgerEntry
		var entryType string
		var createdAt int64

		if err := rows.Scan(&entry.ID, &entry.BidderID, &entry.ItemID, &entryType, &entry.Amount, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entry.Type = domain.LedgerEntryType(entryType)
		entry.CreatedAt = fromMillis(createdAt)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger entries: %w", err)
	}
	return entries, nil
}

// Clear removes every entry
func (r *ledgerRepository) Clear(ctx context.Context) error {
	if _, err := r.q.ExecContext(ctx, "DELETE FROM ledger_entries"); err != nil {
		return fmt.Errorf("failed to clear ledger: %w", err)
	}
	return nil
}
