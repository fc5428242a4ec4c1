package seeder

import (
	"context"
	"errors"
	"strings"

	"code.cloudfoundry.org/lager/v3"
	"github.com/google/uuid"

	"github.com/simaogato/auction-backend/internal/domain"
)

// bidderNamespace scopes the name-derived bidder ids
var bidderNamespace = uuid.MustParse("6f1c2a4e-9d3b-5e8a-b7c0-41d2e3f4a5b6")

// BidderID returns the fixed id a seeded bidder gets for its name
func BidderID(name string) uuid.UUID {
	return uuid.NewSHA1(bidderNamespace, []byte(strings.TrimSpace(name)))
}

// BidderSeeder makes sure the configured bidders exist
type BidderSeeder struct {
	repo   domain.BidderRepository
	rules  domain.Rules
	logger lager.Logger
}

// NewBidderSeeder creates a new BidderSeeder instance
func NewBidderSeeder(repo domain.BidderRepository, rules domain.Rules, logger lager.Logger) *BidderSeeder {
	return &BidderSeeder{
		repo:   repo,
		rules:  rules,
		logger: logger.Session("seeder"),
	}
}

// Seed creates every named bidder that doesn't exist yet.
// Existing bidders are left untouched, so purses and rosters survive restarts.
func (s *BidderSeeder) Seed(ctx context.Context, names []string) error {
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		id := BidderID(name)
		_, err := s.repo.GetByID(ctx, id)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		bidder := domain.NewBidder(name, s.rules.InitialPurse)
		bidder.ID = id
		if err := bidder.Validate(); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, bidder); err != nil {
			return err
		}
		s.logger.Info("bidder-seeded", lager.Data{"bidder-id": id, "name": name})
	}

	return nil
}
