package settlement

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"code.cloudfoundry.org/clock"
	"code.cloudfoundry.org/lager/v3"
	"github.com/google/uuid"

	"github.com/simaogato/auction-backend/internal/domain"
	"github.com/simaogato/auction-backend/internal/usecase/reserve"
)

// PlaceBidInput represents the input for placing a bid
type PlaceBidInput struct {
	ItemID   uuid.UUID
	BidderID uuid.UUID
	Amount   int64
}

// BidResult is returned for an accepted bid
type BidResult struct {
	ItemID        uuid.UUID
	CurrentBid    int64
	LeaderID      uuid.UUID
	LeaderName    string
	BidderPurse   int64
	MaxAllowedBid int64
	// PreviousLeaderID is the bidder whose standing bid was released, if any
	PreviousLeaderID *uuid.UUID
	Refunded         int64
}

// SaleResult is returned when an item is settled
type SaleResult struct {
	ItemID     uuid.UUID
	BuyerID    uuid.UUID
	BuyerName  string
	SoldPrice  int64
	SoldAt     time.Time
	RosterSize int
	BuyerPurse int64
}

// ReleaseResult is returned when an item leaves the auction without a sale
type ReleaseResult struct {
	ItemID           uuid.UUID
	WasSold          bool
	RefundedBidderID *uuid.UUID
	Refunded         int64
}

// ResetResult is returned by ResetAuction
type ResetResult struct {
	ItemsReset   int
	BiddersReset int
}

// SettlementService owns every state transition of the auction:
// selection, bidding, finalization, passing, withdrawal and reset.
type SettlementService struct {
	Store  domain.Store
	Rules  domain.Rules
	Clock  clock.Clock
	Logger lager.Logger
	// Pick returns a uniformly random index in [0, n)
	Pick func(n int) int

	selectMu sync.Mutex
	onBlock  *uuid.UUID
}

// NewSettlementService creates a new SettlementService instance
func NewSettlementService(
	store domain.Store,
	rules domain.Rules,
	clk clock.Clock,
	logger lager.Logger,
) *SettlementService {
	return &SettlementService{
		Store:  store,
		Rules:  rules,
		Clock:  clk,
		Logger: logger.Session("settlement"),
		Pick:   rand.IntN,
	}
}

// SelectNext picks a pending item uniformly at random.
// Returns nil and no error when nothing is left to auction.
// Calls are serialized; the item handed out last is skipped while other
// pending items remain, so two auctioneer sessions do not get the same item.
func (s *SettlementService) SelectNext(ctx context.Context) (*domain.Item, error) {
	logger := s.Logger.Session("select-next")

	s.selectMu.Lock()
	defer s.selectMu.Unlock()

	pending, err := s.Store.Items().List(ctx, domain.ItemStatusPending)
	if err != nil {
		logger.Error("failed-to-list-pending-items", err)
		return nil, domain.StoreFailure("failed to list pending items", err)
	}

	candidates := pending
	if s.onBlock != nil && len(pending) > 1 {
		candidates = make([]*domain.Item, 0, len(pending))
		for _, item := range pending {
			if item.ID != *s.onBlock {
				candidates = append(candidates, item)
			}
		}
	}

	if len(candidates) == 0 {
		s.onBlock = nil
		logger.Info("auction-complete")
		return nil, nil
	}

	chosen := candidates[s.Pick(len(candidates))]
	id := chosen.ID
	s.onBlock = &id

	logger.Info("selected", lager.Data{"item-id": chosen.ID, "name": chosen.Name, "pending": len(pending)})
	return chosen, nil
}

// PlaceBid validates and applies a bid as one atomic unit.
// Checks, in order:
//  1. Item and bidder exist (NotFound)
//  2. Item is still pending (AlreadySettled)
//  3. Amount is strictly above the current bid (BidTooLow)
//  4. Bidder has a free slot (SquadFull) and amount fits under the reserve ceiling (BidExceedsReserve)
//  5. Amount fits in the purse (BidExceedsReserve)
//
// Effects: the previous leader (possibly the same bidder) is refunded the old
// current bid, then the new amount is deducted from the bidder and the item's
// current bid and leader are updated. Every value is read inside the unit.
func (s *SettlementService) PlaceBid(ctx context.Context, input PlaceBidInput) (*BidResult, error) {
	logger := s.Logger.Session("place-bid", lager.Data{
		"item-id":   input.ItemID,
		"bidder-id": input.BidderID,
		"amount":    input.Amount,
	})

	var result *BidResult
	err := s.Store.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		// 1. Lock the item, then the bidder and the previous leader
		item, err := tx.LockItem(ctx, input.ItemID)
		if err != nil {
			return err
		}

		lockIDs := []uuid.UUID{input.BidderID}
		if item.LeadingBidderID != nil {
			lockIDs = append(lockIDs, *item.LeadingBidderID)
		}
		bidders, err := tx.LockBidders(ctx, lockIDs...)
		if err != nil {
			return err
		}
		bidder := bidders[input.BidderID]

		// 2. Settled items take no bids
		if !item.IsOpen() {
			return domain.NewError(domain.KindAlreadySettled, "item %s is already %s", item.ID, item.Status)
		}

		// 3. Strictly increasing bids
		if input.Amount <= item.CurrentBid {
			return domain.NewError(domain.KindBidTooLow,
				"bid %d must be greater than the current bid of %d", input.Amount, item.CurrentBid)
		}

		// 4 + 5. Ceiling is computed on the purse as it stands, before any refund
		ceiling, err := reserve.CheckBid(input.Amount, bidder.Purse, len(bidder.Roster), s.Rules)
		if err != nil {
			return err
		}

		// Phase one: release the standing bid
		now := s.Clock.Now()
		entries := make([]domain.LedgerEntry, 0, 2)
		var previousID *uuid.UUID
		var refunded int64
		if item.LeadingBidderID != nil && item.CurrentBid > 0 {
			previous := bidders[*item.LeadingBidderID]
			previous.Purse += item.CurrentBid
			refunded = item.CurrentBid
			id := previous.ID
			previousID = &id
			entries = append(entries, domain.NewLedgerEntry(previous.ID, item.ID, domain.LedgerEntryRelease, refunded, now))
		}

		// Phase two: commit the new bid
		bidder.Purse -= input.Amount
		entries = append(entries, domain.NewLedgerEntry(bidder.ID, item.ID, domain.LedgerEntryCommit, input.Amount, now))

		leaderID := bidder.ID
		item.CurrentBid = input.Amount
		item.LeadingBidderID = &leaderID

		if err := item.Validate(); err != nil {
			return err
		}
		if err := tx.Items().Save(ctx, item); err != nil {
			return err
		}
		for _, b := range bidders {
			if err := b.Validate(); err != nil {
				return err
			}
			if err := tx.Bidders().Save(ctx, b); err != nil {
				return err
			}
		}
		if err := tx.Ledger().Append(ctx, entries...); err != nil {
			return err
		}

		result = &BidResult{
			ItemID:           item.ID,
			CurrentBid:       item.CurrentBid,
			LeaderID:         bidder.ID,
			LeaderName:       bidder.Name,
			BidderPurse:      bidder.Purse,
			MaxAllowedBid:    ceiling.MaxAllowedBid,
			PreviousLeaderID: previousID,
			Refunded:         refunded,
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(logger, "failed to place bid", err)
	}

	logger.Info("bid-accepted", lager.Data{"purse": result.BidderPurse, "refunded": result.Refunded})
	return result, nil
}

// FinalizeSale converts the leading bid on an item into a purchase.
// The purse was already debited when the bid was accepted, so only the item
// and the buyer's roster change.
func (s *SettlementService) FinalizeSale(ctx context.Context, itemID uuid.UUID) (*SaleResult, error) {
	logger := s.Logger.Session("finalize-sale", lager.Data{"item-id": itemID})

	var result *SaleResult
	err := s.Store.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		item, err := tx.LockItem(ctx, itemID)
		if err != nil {
			return err
		}

		if !item.IsOpen() {
			return domain.NewError(domain.KindAlreadySettled, "item %s is already %s", item.ID, item.Status)
		}
		if !item.HasLeader() {
			return domain.NewError(domain.KindNoBids, "no bids placed on item %s", item.ID)
		}

		bidders, err := tx.LockBidders(ctx, *item.LeadingBidderID)
		if err != nil {
			return err
		}
		buyer := bidders[*item.LeadingBidderID]

		// capacity may have filled between the last bid and now
		if buyer.SlotsLeft(s.Rules.SquadCap) <= 0 {
			return domain.NewError(domain.KindSquadFull,
				"bidder %s already holds %d of %d items", buyer.Name, len(buyer.Roster), s.Rules.SquadCap)
		}

		soldAt := s.Clock.Now()
		price := item.CurrentBid
		buyerID := buyer.ID
		item.Status = domain.ItemStatusSold
		item.SoldToID = &buyerID
		item.SoldPrice = &price
		item.SoldAt = &soldAt
		buyer.AddToRoster(item.ID)

		if err := item.Validate(); err != nil {
			return err
		}
		if err := tx.Items().Save(ctx, item); err != nil {
			return err
		}
		if err := tx.Bidders().Save(ctx, buyer); err != nil {
			return err
		}

		result = &SaleResult{
			ItemID:     item.ID,
			BuyerID:    buyer.ID,
			BuyerName:  buyer.Name,
			SoldPrice:  price,
			SoldAt:     soldAt,
			RosterSize: len(buyer.Roster),
			BuyerPurse: buyer.Purse,
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(logger, "failed to finalize sale", err)
	}

	s.clearOnBlock(itemID)
	logger.Info("sold", lager.Data{"buyer": result.BuyerName, "price": result.SoldPrice})
	return result, nil
}

// PassItem closes a pending item as unsold. A standing bid is released back
// to its bidder first.
func (s *SettlementService) PassItem(ctx context.Context, itemID uuid.UUID) (*ReleaseResult, error) {
	logger := s.Logger.Session("pass-item", lager.Data{"item-id": itemID})

	var result *ReleaseResult
	err := s.Store.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		item, err := tx.LockItem(ctx, itemID)
		if err != nil {
			return err
		}
		if !item.IsOpen() {
			return domain.NewError(domain.KindAlreadySettled, "item %s is already %s", item.ID, item.Status)
		}

		result = &ReleaseResult{ItemID: item.ID}
		if err := s.releaseStandingBid(ctx, tx, item, result); err != nil {
			return err
		}

		item.Status = domain.ItemStatusUnsold
		if err := item.Validate(); err != nil {
			return err
		}
		return tx.Items().Save(ctx, item)
	})
	if err != nil {
		return nil, s.fail(logger, "failed to pass item", err)
	}

	s.clearOnBlock(itemID)
	logger.Info("passed", lager.Data{"refunded": result.Refunded})
	return result, nil
}

// WithdrawItem deletes an item from the auction. A sold item's price goes
// back to its owner and leaves the owner's roster; a standing bid on a
// pending item is released.
func (s *SettlementService) WithdrawItem(ctx context.Context, itemID uuid.UUID) (*ReleaseResult, error) {
	logger := s.Logger.Session("withdraw-item", lager.Data{"item-id": itemID})

	var result *ReleaseResult
	err := s.Store.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		item, err := tx.LockItem(ctx, itemID)
		if err != nil {
			return err
		}

		result = &ReleaseResult{ItemID: item.ID, WasSold: item.IsSold()}
		if item.IsSold() {
			if err := s.refundPurchase(ctx, tx, item, result); err != nil {
				return err
			}
		} else if err := s.releaseStandingBid(ctx, tx, item, result); err != nil {
			return err
		}

		return tx.Items().Delete(ctx, item.ID)
	})
	if err != nil {
		return nil, s.fail(logger, "failed to withdraw item", err)
	}

	s.clearOnBlock(itemID)
	logger.Info("withdrawn", lager.Data{"was-sold": result.WasSold, "refunded": result.Refunded})
	return result, nil
}

// ResetAuction returns every item to pending with no bid and every bidder to
// the initial purse with an empty roster, and clears the ledger. It runs as an
// exclusive unit so no partially reset state is ever visible.
func (s *SettlementService) ResetAuction(ctx context.Context) (*ResetResult, error) {
	logger := s.Logger.Session("reset-auction")

	var result ResetResult
	err := s.Store.WithinExclusiveTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		items, err := tx.Items().List(ctx, "")
		if err != nil {
			return err
		}
		for _, item := range items {
			item.Reset()
			if err := tx.Items().Save(ctx, item); err != nil {
				return err
			}
		}

		bidders, err := tx.Bidders().List(ctx)
		if err != nil {
			return err
		}
		for _, bidder := range bidders {
			bidder.Reset(s.Rules.InitialPurse)
			if err := tx.Bidders().Save(ctx, bidder); err != nil {
				return err
			}
		}

		if err := tx.Ledger().Clear(ctx); err != nil {
			return err
		}

		result = ResetResult{ItemsReset: len(items), BiddersReset: len(bidders)}
		return nil
	})
	if err != nil {
		return nil, s.fail(logger, "failed to reset auction", err)
	}

	s.selectMu.Lock()
	s.onBlock = nil
	s.selectMu.Unlock()

	logger.Info("reset", lager.Data{"items": result.ItemsReset, "bidders": result.BiddersReset})
	return &result, nil
}

// releaseStandingBid refunds the leader of a pending item and clears the bid
func (s *SettlementService) releaseStandingBid(ctx context.Context, tx domain.Tx, item *domain.Item, result *ReleaseResult) error {
	if !item.HasLeader() {
		return nil
	}

	bidders, err := tx.LockBidders(ctx, *item.LeadingBidderID)
	if err != nil {
		return err
	}
	leader := bidders[*item.LeadingBidderID]

	if item.CurrentBid > 0 {
		leader.Purse += item.CurrentBid
		entry := domain.NewLedgerEntry(leader.ID, item.ID, domain.LedgerEntryRelease, item.CurrentBid, s.Clock.Now())
		if err := tx.Ledger().Append(ctx, entry); err != nil {
			return err
		}
		if err := tx.Bidders().Save(ctx, leader); err != nil {
			return err
		}
	}

	id := leader.ID
	result.RefundedBidderID = &id
	result.Refunded = item.CurrentBid

	item.CurrentBid = 0
	item.LeadingBidderID = nil
	return nil
}

// refundPurchase returns a sold item's price to its owner
func (s *SettlementService) refundPurchase(ctx context.Context, tx domain.Tx, item *domain.Item, result *ReleaseResult) error {
	bidders, err := tx.LockBidders(ctx, *item.SoldToID)
	if err != nil {
		return err
	}
	owner := bidders[*item.SoldToID]

	price := *item.SoldPrice
	owner.Purse += price
	owner.RemoveFromRoster(item.ID)

	if price > 0 {
		entry := domain.NewLedgerEntry(owner.ID, item.ID, domain.LedgerEntryRefund, price, s.Clock.Now())
		if err := tx.Ledger().Append(ctx, entry); err != nil {
			return err
		}
	}
	if err := tx.Bidders().Save(ctx, owner); err != nil {
		return err
	}

	id := owner.ID
	result.RefundedBidderID = &id
	result.Refunded = price
	return nil
}

func (s *SettlementService) clearOnBlock(itemID uuid.UUID) {
	s.selectMu.Lock()
	defer s.selectMu.Unlock()
	if s.onBlock != nil && *s.onBlock == itemID {
		s.onBlock = nil
	}
}

// fail classifies err and logs it: rejections at info, store failures at error
func (s *SettlementService) fail(logger lager.Logger, op string, err error) error {
	err = domain.StoreFailure(op, err)
	kind := domain.KindOf(err)
	if kind == domain.KindStoreUnavailable {
		logger.Error("store-failure", err)
	} else {
		logger.Info("rejected", lager.Data{"reason": string(kind), "error": err.Error()})
	}
	return err
}
