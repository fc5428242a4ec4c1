package sqlstore

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"code.cloudfoundry.org/clock/fakeclock"
	"code.cloudfoundry.org/lager/v3/lagertest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/auction-backend/internal/domain"
	"github.com/simaogato/auction-backend/internal/usecase/settlement"
)

func openTestStore(t *testing.T) (*Store, *DB) {
	t.Helper()
	db, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "auction.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db), db
}

func TestRebind(t *testing.T) {
	query := "SELECT * FROM items WHERE id = ? AND status = ?"
	assert.Equal(t, query, sqliteDialect.rebind(query))
	assert.Equal(t, "SELECT * FROM items WHERE id = $1 AND status = $2", postgresDialect.rebind(query))
	assert.Equal(t, " FOR UPDATE", postgresDialect.forUpdate(true))
	assert.Empty(t, postgresDialect.forUpdate(false))
	assert.Empty(t, sqliteDialect.forUpdate(true))
}

func TestExtractUpMigration(t *testing.T) {
	content := "-- +migrate Up\nCREATE TABLE a (id TEXT);\n-- +migrate Down\nDROP TABLE a;\n"
	assert.Equal(t, "\nCREATE TABLE a (id TEXT);\n", extractUpMigration(content))
	assert.Equal(t, "CREATE TABLE b (id TEXT);", extractUpMigration("CREATE TABLE b (id TEXT);"))
}

func TestOpenSQLite_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auction.db")

	db, err := OpenSQLite(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = OpenSQLite(context.Background(), path)
	require.NoError(t, err)
	defer db.Close()

	var applied int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied))
	assert.Equal(t, 1, applied)
}

func TestOpenSQLite_RequiresPath(t *testing.T) {
	_, err := OpenSQLite(context.Background(), "  ")
	assert.ErrorContains(t, err, "storage path is required")
}

func TestItemRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t)

	buyer := domain.NewBidder("Team A", 50000)
	require.NoError(t, store.Bidders().Create(ctx, buyer))

	item := domain.NewItem("Pant", "Keeper", 2000)
	item.Department = "ECE"
	item.Year = "2nd"
	item.BattingStyle = "Left-hand"
	item.ImageURL = "https://example.test/pant.png"
	require.NoError(t, store.Items().Create(ctx, item))

	got, err := store.Items().GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, item, got)

	soldAt := time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC)
	price := int64(9000)
	got.Status = domain.ItemStatusSold
	got.CurrentBid = price
	got.LeadingBidderID = &buyer.ID
	got.SoldToID = &buyer.ID
	got.SoldPrice = &price
	got.SoldAt = &soldAt
	require.NoError(t, store.Items().Save(ctx, got))

	saved, err := store.Items().GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, got, saved)

	sold, err := store.Items().List(ctx, domain.ItemStatusSold)
	require.NoError(t, err)
	require.Len(t, sold, 1)
	pending, err := store.Items().List(ctx, domain.ItemStatusPending)
	require.NoError(t, err)
	assert.Empty(t, pending)

	require.NoError(t, store.Items().Delete(ctx, item.ID))
	_, err = store.Items().GetByID(ctx, item.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestItemRepository_MissingRows(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t)

	missing := domain.NewItem("Ghost", "Batsman", 2000)
	assert.True(t, errors.Is(store.Items().Save(ctx, missing), domain.ErrNotFound))
	assert.True(t, errors.Is(store.Items().Delete(ctx, missing.ID), domain.ErrNotFound))

	_, err := store.Bidders().GetByID(ctx, uuid.New())
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.True(t, errors.Is(store.Bidders().Save(ctx, domain.NewBidder("Nobody", 0)), domain.ErrNotFound))
}

func TestBidderRepository_RosterKeepsOrder(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t)

	bidder := domain.NewBidder("Team B", 50000)
	require.NoError(t, store.Bidders().Create(ctx, bidder))
	other := domain.NewBidder("Team A", 50000)
	require.NoError(t, store.Bidders().Create(ctx, other))

	first, second, third := uuid.New(), uuid.New(), uuid.New()
	bidder.AddToRoster(first)
	bidder.AddToRoster(second)
	bidder.AddToRoster(third)
	bidder.Purse = 41000
	require.NoError(t, store.Bidders().Save(ctx, bidder))

	got, err := store.Bidders().GetByID(ctx, bidder.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{first, second, third}, got.Roster)
	assert.Equal(t, int64(41000), got.Purse)

	got.RemoveFromRoster(second)
	require.NoError(t, store.Bidders().Save(ctx, got))

	bidders, err := store.Bidders().List(ctx)
	require.NoError(t, err)
	require.Len(t, bidders, 2)
	assert.Equal(t, "Team A", bidders[0].Name)
	assert.Empty(t, bidders[0].Roster)
	assert.Equal(t, []uuid.UUID{first, third}, bidders[1].Roster)
}

func TestLedgerRepository(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t)
	at := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)
	bidderID, itemID := uuid.New(), uuid.New()

	entries := []domain.LedgerEntry{
		domain.NewLedgerEntry(bidderID, itemID, domain.LedgerEntryCommit, 3000, at),
		domain.NewLedgerEntry(bidderID, itemID, domain.LedgerEntryRelease, 3000, at),
		domain.NewLedgerEntry(bidderID, itemID, domain.LedgerEntryCommit, 5000, at),
		domain.NewLedgerEntry(uuid.New(), itemID, domain.LedgerEntryCommit, 4000, at),
	}
	require.NoError(t, store.Ledger().Append(ctx, entries...))

	got, err := store.Ledger().ListByBidder(ctx, bidderID)
	require.NoError(t, err)
	assert.Equal(t, entries[:3], got)
	assert.Equal(t, int64(5000), domain.NetOutflow(got))

	require.NoError(t, store.Ledger().Clear(ctx))
	got, err = store.Ledger().ListByBidder(ctx, bidderID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLedgerRepository_RejectsMalformedEntries(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t)
	at := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)
	bidderID, itemID := uuid.New(), uuid.New()

	err := store.Ledger().Append(ctx,
		domain.NewLedgerEntry(bidderID, itemID, domain.LedgerEntryCommit, 3000, at),
		domain.NewLedgerEntry(bidderID, itemID, domain.LedgerEntryRefund, -3000, at),
	)
	assert.Error(t, err)

	got, err := store.Ledger().ListByBidder(ctx, bidderID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t)

	bidder := domain.NewBidder("Team A", 50000)
	require.NoError(t, store.Bidders().Create(ctx, bidder))
	item := domain.NewItem("Jadeja", "All-rounder", 2000)
	require.NoError(t, store.Items().Create(ctx, item))

	boom := errors.New("boom")
	err := store.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		locked, err := tx.LockItem(ctx, item.ID)
		require.NoError(t, err)
		bidders, err := tx.LockBidders(ctx, bidder.ID, bidder.ID)
		require.NoError(t, err)
		require.Len(t, bidders, 1)

		locked.CurrentBid = 4000
		locked.LeadingBidderID = &bidder.ID
		require.NoError(t, tx.Items().Save(ctx, locked))
		b := bidders[bidder.ID]
		b.Purse -= 4000
		require.NoError(t, tx.Bidders().Save(ctx, b))
		require.NoError(t, tx.Ledger().Append(ctx, domain.NewLedgerEntry(b.ID, item.ID, domain.LedgerEntryCommit, 4000, time.Now())))

		// writes are visible inside the unit
		inside, err := tx.Items().GetByID(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(4000), inside.CurrentBid)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := store.Items().GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Zero(t, got.CurrentBid)
	assert.Nil(t, got.LeadingBidderID)

	b, err := store.Bidders().GetByID(ctx, bidder.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), b.Purse)

	entries, err := store.Ledger().ListByBidder(ctx, bidder.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWithinTx_LockMissingRecord(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t)

	err := store.WithinExclusiveTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		_, err := tx.LockItem(ctx, uuid.New())
		return err
	})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestSettlementEngineOnSQLite(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t)
	rules := domain.DefaultRules()
	clk := fakeclock.NewFakeClock(time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC))
	engine := settlement.NewSettlementService(store, rules, clk, lagertest.NewTestLogger("test"))

	teamA := domain.NewBidder("Team A", rules.InitialPurse)
	teamB := domain.NewBidder("Team B", rules.InitialPurse)
	require.NoError(t, store.Bidders().Create(ctx, teamA))
	require.NoError(t, store.Bidders().Create(ctx, teamB))
	item := domain.NewItem("Gill", "Batsman", rules.BasePriceFloor)
	require.NoError(t, store.Items().Create(ctx, item))

	// ceiling is enforced
	_, err := engine.PlaceBid(ctx, settlement.PlaceBidInput{ItemID: item.ID, BidderID: teamA.ID, Amount: 36001})
	assert.True(t, errors.Is(err, domain.ErrBidExceedsReserve))

	// displaced leader is refunded
	_, err = engine.PlaceBid(ctx, settlement.PlaceBidInput{ItemID: item.ID, BidderID: teamA.ID, Amount: 5000})
	require.NoError(t, err)
	_, err = engine.PlaceBid(ctx, settlement.PlaceBidInput{ItemID: item.ID, BidderID: teamB.ID, Amount: 6000})
	require.NoError(t, err)

	a, err := store.Bidders().GetByID(ctx, teamA.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), a.Purse)

	sale, err := engine.FinalizeSale(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, teamB.ID, sale.BuyerID)
	assert.Equal(t, int64(6000), sale.SoldPrice)

	_, err = engine.FinalizeSale(ctx, item.ID)
	assert.True(t, errors.Is(err, domain.ErrAlreadySettled))

	b, err := store.Bidders().GetByID(ctx, teamB.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(44000), b.Purse)
	assert.Equal(t, []uuid.UUID{item.ID}, b.Roster)

	sold, err := store.Items().GetByID(ctx, item.ID)
	require.NoError(t, err)
	require.NotNil(t, sold.SoldAt)
	assert.True(t, sold.SoldAt.Equal(clk.Now()))

	entries, err := store.Ledger().ListByBidder(ctx, teamB.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(6000), domain.NetOutflow(entries))

	// reset restores everything and empties the ledger
	_, err = engine.ResetAuction(ctx)
	require.NoError(t, err)

	b, err = store.Bidders().GetByID(ctx, teamB.ID)
	require.NoError(t, err)
	assert.Equal(t, rules.InitialPurse, b.Purse)
	assert.Empty(t, b.Roster)

	reset, err := store.Items().GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ItemStatusPending, reset.Status)
	assert.Nil(t, reset.SoldToID)

	entries, err = store.Ledger().ListByBidder(ctx, teamB.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSettlementEngineOnSQLite_ConcurrentBids(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t)
	rules := domain.DefaultRules()
	engine := settlement.NewSettlementService(store, rules, fakeclock.NewFakeClock(time.Now()), lagertest.NewTestLogger("test"))

	bidders := make([]*domain.Bidder, 4)
	for i := range bidders {
		bidders[i] = domain.NewBidder(string(rune('A'+i)), rules.InitialPurse)
		require.NoError(t, store.Bidders().Create(ctx, bidders[i]))
	}
	item := domain.NewItem("Rashid", "Bowler", rules.BasePriceFloor)
	require.NoError(t, store.Items().Create(ctx, item))

	var wg sync.WaitGroup
	for i, bidder := range bidders {
		wg.Add(1)
		go func(bidder *domain.Bidder, amount int64) {
			defer wg.Done()
			_, _ = engine.PlaceBid(ctx, settlement.PlaceBidInput{ItemID: item.ID, BidderID: bidder.ID, Amount: amount})
		}(bidder, int64(3000+i*1000))
	}
	wg.Wait()

	got, err := store.Items().GetByID(ctx, item.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LeadingBidderID)

	var total int64
	for _, bidder := range bidders {
		b, err := store.Bidders().GetByID(ctx, bidder.ID)
		require.NoError(t, err)
		total += rules.InitialPurse - b.Purse
		if b.ID == *got.LeadingBidderID {
			assert.Equal(t, rules.InitialPurse-got.CurrentBid, b.Purse)
		} else {
			assert.Equal(t, rules.InitialPurse, b.Purse)
		}
	}
	assert.Equal(t, got.CurrentBid, total)
}
