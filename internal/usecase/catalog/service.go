package catalog

import (
	"context"
	"strings"

	"code.cloudfoundry.org/lager/v3"

	"github.com/simaogato/auction-backend/internal/domain"
)

// AddItemInput represents the input for registering a player
type AddItemInput struct {
	Name         string
	Role         string
	Department   string
	Year         string
	BattingStyle string
	BowlingStyle string
	ImageURL     string
	// BasePrice defaults to the configured floor when nil
	BasePrice *int64
}

// CatalogService registers items and bidders and lists them
type CatalogService struct {
	ItemRepo   domain.ItemRepository
	BidderRepo domain.BidderRepository
	Rules      domain.Rules
	Logger     lager.Logger
}

// NewCatalogService creates a new CatalogService instance
func NewCatalogService(
	itemRepo domain.ItemRepository,
	bidderRepo domain.BidderRepository,
	rules domain.Rules,
	logger lager.Logger,
) *CatalogService {
	return &CatalogService{
		ItemRepo:   itemRepo,
		BidderRepo: bidderRepo,
		Rules:      rules,
		Logger:     logger.Session("catalog"),
	}
}

// AddItem creates a pending item with no bids
func (s *CatalogService) AddItem(ctx context.Context, input AddItemInput) (*domain.Item, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, domain.NewError(domain.KindInvalidInput, "item name is required")
	}

	basePrice := s.Rules.BasePriceFloor
	if input.BasePrice != nil {
		basePrice = *input.BasePrice
	}
	if basePrice < 0 {
		return nil, domain.NewError(domain.KindInvalidInput, "base price cannot be negative")
	}

	item := domain.NewItem(name, strings.TrimSpace(input.Role), basePrice)
	item.Department = strings.TrimSpace(input.Department)
	item.Year = strings.TrimSpace(input.Year)
	item.BattingStyle = strings.TrimSpace(input.BattingStyle)
	item.BowlingStyle = strings.TrimSpace(input.BowlingStyle)
	item.ImageURL = strings.TrimSpace(input.ImageURL)

	if err := item.Validate(); err != nil {
		return nil, domain.NewError(domain.KindInvalidInput, "%s", err.Error())
	}

	if err := s.ItemRepo.Create(ctx, item); err != nil {
		s.Logger.Error("failed-to-create-item", err)
		return nil, domain.StoreFailure("failed to create item", err)
	}

	s.Logger.Info("item-added", lager.Data{"item-id": item.ID, "name": item.Name})
	return item, nil
}

// AddBidder creates a bidder with the initial purse and an empty roster
func (s *CatalogService) AddBidder(ctx context.Context, name string) (*domain.Bidder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewError(domain.KindInvalidInput, "bidder name is required")
	}

	bidder := domain.NewBidder(name, s.Rules.InitialPurse)
	if err := s.BidderRepo.Create(ctx, bidder); err != nil {
		s.Logger.Error("failed-to-create-bidder", err)
		return nil, domain.StoreFailure("failed to create bidder", err)
	}

	s.Logger.Info("bidder-added", lager.Data{"bidder-id": bidder.ID, "name": bidder.Name})
	return bidder, nil
}

// ListItems returns the items with the given status, or all items when status is empty
func (s *CatalogService) ListItems(ctx context.Context, status string) ([]*domain.Item, error) {
	filter, err := domain.ParseItemStatus(status)
	if err != nil {
		return nil, domain.NewError(domain.KindInvalidInput, "%s", err.Error())
	}

	items, err := s.ItemRepo.List(ctx, filter)
	if err != nil {
		return nil, domain.StoreFailure("failed to list items", err)
	}
	return items, nil
}

// ListBidders returns every bidder
func (s *CatalogService) ListBidders(ctx context.Context) ([]*domain.Bidder, error) {
	bidders, err := s.BidderRepo.List(ctx)
	if err != nil {
		return nil, domain.StoreFailure("failed to list bidders", err)
	}
	return bidders, nil
}
