package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/simaogato/auction-backend/internal/domain"
)

// bidderRepository implements domain.BidderRepository.
// The roster lives in roster_entries, one row per won item, kept in win order.
type bidderRepository struct {
	db *DB
	// tx is set when the repository belongs to a unit of work
	tx *sql.Tx
}

func (r *bidderRepository) conn() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// write runs fn inside the unit's transaction, or a fresh one when outside a unit
func (r *bidderRepository) write(ctx context.Context, fn func(q querier) error) error {
	if r.tx != nil {
		return fn(r.tx)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *bidderRepository) get(ctx context.Context, id uuid.UUID, lock bool) (*domain.Bidder, error) {
	d := r.db.dialect
	q := r.conn()
	query := "SELECT id, name, purse FROM bidders WHERE id = ?" + d.forUpdate(lock)

	var bidder domain.Bidder
	err := q.QueryRowContext(ctx, d.rebind(query), id).Scan(&bidder.ID, &bidder.Name, &bidder.Purse)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewError(domain.KindNotFound, "bidder %s not found", id)
		}
		return nil, fmt.Errorf("failed to get bidder by ID: %w", err)
	}

	rosters, err := r.loadRosters(ctx, q, &id)
	if err != nil {
		return nil, err
	}
	bidder.Roster = rosters[id]
	if bidder.Roster == nil {
		bidder.Roster = []uuid.UUID{}
	}
	return &bidder, nil
}

// loadRosters returns the rosters of one bidder, or of all bidders when bidderID is nil
func (r *bidderRepository) loadRosters(ctx context.Context, q querier, bidderID *uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	query := "SELECT bidder_id, item_id FROM roster_entries"
	var args []any
	if bidderID != nil {
		query += " WHERE bidder_id = ?"
		args = append(args, *bidderID)
	}
	query += " ORDER BY bidder_id, position"

	rows, err := q.QueryContext(ctx, r.db.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load rosters: %w", err)
	}
	defer rows.Close()

	rosters := make(map[uuid.UUID][]uuid.UUID)
	for rows.Next() {
		var owner, itemID uuid.UUID
		if err := rows.Scan(&owner, &itemID); err != nil {
			return nil, fmt.Errorf("failed to scan roster entry: %w", err)
		}
		rosters[owner] = append(rosters[owner], itemID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating roster entries: %w", err)
	}
	return rosters, nil
}

// GetByID retrieves a bidder and its roster
func (r *bidderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Bidder, error) {
	return r.get(ctx, id, false)
}

// List retrieves all bidders ordered by name
func (r *bidderRepository) List(ctx context.Context) ([]*domain.Bidder, error) {
	q := r.conn()
	rows, err := q.QueryContext(ctx, "SELECT id, name, purse FROM bidders ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list bidders: %w", err)
	}

	bidders := make([]*domain.Bidder, 0)
	for rows.Next() {
		var bidder domain.Bidder
		if err := rows.Scan(&bidder.ID, &bidder.Name, &bidder.Purse); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan bidder: %w", err)
		}
		bidders = append(bidders, &bidder)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("error iterating bidders: %w", err)
	}
	// release the connection before the next query; sqlite runs with one
	rows.Close()

	rosters, err := r.loadRosters(ctx, q, nil)
	if err != nil {
		return nil, err
	}
	for _, bidder := range bidders {
		bidder.Roster = rosters[bidder.ID]
		if bidder.Roster == nil {
			bidder.Roster = []uuid.UUID{}
		}
	}
	return bidders, nil
}

// Create creates a new bidder with its roster
func (r *bidderRepository) Create(ctx context.Context, bidder *domain.Bidder) error {
	d := r.db.dialect
	return r.write(ctx, func(q querier) error {
		_, err := q.ExecContext(ctx, d.rebind("INSERT INTO bidders (id, name, purse) VALUES (?, ?, ?)"),
			bidder.ID, bidder.Name, bidder.Purse)
		if err != nil {
			return fmt.Errorf("failed to create bidder: %w", err)
		}
		return r.insertRoster(ctx, q, bidder)
	})
}

// Save overwrites name, purse and roster of an existing bidder
func (r *bidderRepository) Save(ctx context.Context, bidder *domain.Bidder) error {
	d := r.db.dialect
	return r.write(ctx, func(q querier) error {
		result, err := q.ExecContext(ctx, d.rebind("UPDATE bidders SET name = ?, purse = ? WHERE id = ?"),
			bidder.Name, bidder.Purse, bidder.ID)
		if err != nil {
			return fmt.Errorf("failed to update bidder: %w", err)
		}
		if err := expectOneRow(result, "bidder", bidder.ID); err != nil {
			return err
		}

		if _, err := q.ExecContext(ctx, d.rebind("DELETE FROM roster_entries WHERE bidder_id = ?"), bidder.ID); err != nil {
			return fmt.Errorf("failed to clear roster: %w", err)
		}
		return r.insertRoster(ctx, q, bidder)
	})
}

func (r *bidderRepository) insertRoster(ctx context.Context, q querier, bidder *domain.Bidder) error {
	query := r.db.dialect.rebind("INSERT INTO roster_entries (bidder_id, item_id, position) VALUES (?, ?, ?)")
	for i, itemID := range bidder.Roster {
		if _, err := q.ExecContext(ctx, query, bidder.ID, itemID, i); err != nil {
			return fmt.Errorf("failed to insert roster entry: %w", err)
		}
	}
	return nil
}
