package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/simaogato/auction-backend/internal/domain"
)

const itemColumns = `id, name, role, department, year, batting_style, bowling_style, image_url,
		base_price, status, current_bid, leading_bidder_id, sold_to_id, sold_price, sold_at`

// itemRepository implements domain.ItemRepository
type itemRepository struct {
	q       querier
	dialect dialect
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*domain.Item, error) {
	var item domain.Item
	var status string
	var leader, soldTo uuid.NullUUID
	var soldPrice, soldAt sql.NullInt64

	err := row.Scan(
		&item.ID,
		&item.Name,
		&item.Role,
		&item.Department,
		&item.Year,
		&item.BattingStyle,
		&item.BowlingStyle,
		&item.ImageURL,
		&item.BasePrice,
		&status,
		&item.CurrentBid,
		&leader,
		&soldTo,
		&soldPrice,
		&soldAt,
	)
	if err != nil {
		return nil, err
	}

	item.Status = domain.ItemStatus(status)
	if leader.Valid {
		item.LeadingBidderID = &leader.UUID
	}
	if soldTo.Valid {
		item.SoldToID = &soldTo.UUID
	}
	if soldPrice.Valid {
		item.SoldPrice = &soldPrice.Int64
	}
	if soldAt.Valid {
		at := fromMillis(soldAt.Int64)
		item.SoldAt = &at
	}
	return &item, nil
}

func (r *itemRepository) get(ctx context.Context, id uuid.UUID, lock bool) (*domain.Item, error) {
	query := "SELECT " + itemColumns + " FROM items WHERE id = ?" + r.dialect.forUpdate(lock)

	item, err := scanItem(r.q.QueryRowContext(ctx, r.dialect.rebind(query), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewError(domain.KindNotFound, "item %s not found", id)
		}
		return nil, fmt.Errorf("failed to get item by ID: %w", err)
	}
	return item, nil
}

// GetByID retrieves an item by its ID
func (r *itemRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	return r.get(ctx, id, false)
}

// List retrieves items ordered by name, optionally filtered by status
func (r *itemRepository) List(ctx context.Context, statusFilter domain.ItemStatus) ([]*domain.Item, error) {
	query := "SELECT " + itemColumns + " FROM items"
	var args []any
	if statusFilter != "" {
		query += " WHERE status = ?"
		args = append(args, string(statusFilter))
	}
	query += " ORDER BY name, id"

	rows, err := r.q.QueryContext(ctx, r.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	items := make([]*domain.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating items: %w", err)
	}
	return items, nil
}

// Create creates a new item
func (r *itemRepository) Create(ctx context.Context, item *domain.Item) error {
	query := `
		INSERT INTO items (` + itemColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.q.ExecContext(ctx, r.dialect.rebind(query),
		item.ID,
		item.Name,
		item.Role,
		item.Department,
		item.Year,
		item.BattingStyle,
		item.BowlingStyle,
		item.ImageURL,
		item.BasePrice,
		string(item.Status),
		item.CurrentBid,
		nullUUID(item.LeadingBidderID),
		nullUUID(item.SoldToID),
		nullInt(item.SoldPrice),
		nullMillis(item.SoldAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}
	return nil
}

// Save overwrites the mutable fields of an existing item
func (r *itemRepository) Save(ctx context.Context, item *domain.Item) error {
	query := `
		UPDATE items
		SET name = ?, role = ?, department = ?, year = ?, batting_style = ?, bowling_style = ?,
			image_url = ?, base_price = ?, status = ?, current_bid = ?, leading_bidder_id = ?,
			sold_to_id = ?, sold_price = ?, sold_at = ?
		WHERE id = ?
	`

	result, err := r.q.ExecContext(ctx, r.dialect.rebind(query),
		item.Name,
		item.Role,
		item.Department,
		item.Year,
		item.BattingStyle,
		item.BowlingStyle,
		item.ImageURL,
		item.BasePrice,
		string(item.Status),
		item.CurrentBid,
		nullUUID(item.LeadingBidderID),
		nullUUID(item.SoldToID),
		nullInt(item.SoldPrice),
		nullMillis(item.SoldAt),
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	return expectOneRow(result, "item", item.ID)
}

// Delete removes an item
func (r *itemRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.q.ExecContext(ctx, r.dialect.rebind("DELETE FROM items WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return expectOneRow(result, "item", id)
}

func expectOneRow(result sql.Result, kind string, id uuid.UUID) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return domain.NewError(domain.KindNotFound, "%s %s not found", kind, id)
	}
	return nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*t), Valid: true}
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}
