package summary

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/simaogato/auction-backend/internal/domain"
)

// BidderSummary is one bidder with its roster resolved to items
type BidderSummary struct {
	Bidder     *domain.Bidder
	Items      []*domain.Item
	TotalSpent int64 // sum of sold prices on the roster
	Committed  int64 // sum of current bids the bidder leads on open items
}

// StatusBoard partitions every item by status
type StatusBoard struct {
	Sold    []*domain.Item
	Unsold  []*domain.Item
	Pending []*domain.Item
}

// Discrepancy describes a bidder whose funds do not add up
type Discrepancy struct {
	BidderID   uuid.UUID
	BidderName string
	Outflow    int64 // initial purse - purse
	Held       int64 // committed + spent according to the items
	Ledger     int64 // net outflow according to the ledger
	Reason     string
}

// SummaryService builds read models for reporting.
// Results are self-consistent only when no bid or sale is in flight.
type SummaryService struct {
	ItemRepo   domain.ItemRepository
	BidderRepo domain.BidderRepository
	LedgerRepo domain.LedgerRepository
	Rules      domain.Rules
}

// NewSummaryService creates a new SummaryService instance
func NewSummaryService(
	itemRepo domain.ItemRepository,
	bidderRepo domain.BidderRepository,
	ledgerRepo domain.LedgerRepository,
	rules domain.Rules,
) *SummaryService {
	return &SummaryService{
		ItemRepo:   itemRepo,
		BidderRepo: bidderRepo,
		LedgerRepo: ledgerRepo,
		Rules:      rules,
	}
}

// GetSummary returns every bidder with resolved roster and totals
// Logic:
//   - Items: roster ids resolved against the item list; unknown ids are an error
//   - TotalSpent: Sum of SoldPrice over the roster
//   - Committed: Sum of CurrentBid over pending items the bidder leads
func (s *SummaryService) GetSummary(ctx context.Context) ([]BidderSummary, error) {
	items, bidders, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]*domain.Item, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	summaries := make([]BidderSummary, 0, len(bidders))
	for _, bidder := range bidders {
		summary := BidderSummary{Bidder: bidder, Items: make([]*domain.Item, 0, len(bidder.Roster))}

		for _, itemID := range bidder.Roster {
			item, ok := byID[itemID]
			if !ok {
				return nil, fmt.Errorf("roster of %s references missing item %s", bidder.Name, itemID)
			}
			summary.Items = append(summary.Items, item)
			if item.SoldPrice != nil {
				summary.TotalSpent += *item.SoldPrice
			}
		}

		for _, item := range items {
			if item.IsOpen() && item.IsLedBy(bidder.ID) {
				summary.Committed += item.CurrentBid
			}
		}

		summaries = append(summaries, summary)
	}

	return summaries, nil
}

// GetStatusBoard returns the items grouped into sold, unsold and pending
func (s *SummaryService) GetStatusBoard(ctx context.Context) (*StatusBoard, error) {
	items, err := s.ItemRepo.List(ctx, "")
	if err != nil {
		return nil, domain.StoreFailure("failed to list items", err)
	}

	board := &StatusBoard{
		Sold:    make([]*domain.Item, 0),
		Unsold:  make([]*domain.Item, 0),
		Pending: make([]*domain.Item, 0),
	}
	for _, item := range items {
		switch item.Status {
		case domain.ItemStatusSold:
			board.Sold = append(board.Sold, item)
		case domain.ItemStatusUnsold:
			board.Unsold = append(board.Unsold, item)
		default:
			board.Pending = append(board.Pending, item)
		}
	}
	return board, nil
}

// Audit checks purse conservation for every bidder:
// initialPurse - purse must equal committed + spent, and must equal the
// ledger's net outflow. Returns one Discrepancy per bidder that fails.
func (s *SummaryService) Audit(ctx context.Context) ([]Discrepancy, error) {
	summaries, err := s.GetSummary(ctx)
	if err != nil {
		return nil, err
	}

	discrepancies := make([]Discrepancy, 0)
	for _, summary := range summaries {
		bidder := summary.Bidder
		entries, err := s.LedgerRepo.ListByBidder(ctx, bidder.ID)
		if err != nil {
			return nil, domain.StoreFailure("failed to read ledger", err)
		}

		d := Discrepancy{
			BidderID:   bidder.ID,
			BidderName: bidder.Name,
			Outflow:    s.Rules.InitialPurse - bidder.Purse,
			Held:       summary.Committed + summary.TotalSpent,
			Ledger:     domain.NetOutflow(entries),
		}

		switch {
		case bidder.Purse < 0:
			d.Reason = "purse is negative"
		case len(bidder.Roster) > s.Rules.SquadCap:
			d.Reason = "roster exceeds squad cap"
		case d.Outflow != d.Held:
			d.Reason = "purse does not match committed and spent funds"
		case d.Outflow != d.Ledger:
			d.Reason = "purse does not match the ledger"
		default:
			continue
		}
		discrepancies = append(discrepancies, d)
	}

	return discrepancies, nil
}

func (s *SummaryService) load(ctx context.Context) ([]*domain.Item, []*domain.Bidder, error) {
	items, err := s.ItemRepo.List(ctx, "")
	if err != nil {
		return nil, nil, domain.StoreFailure("failed to list items", err)
	}
	bidders, err := s.BidderRepo.List(ctx)
	if err != nil {
		return nil, nil, domain.StoreFailure("failed to list bidders", err)
	}
	return items, bidders, nil
}
