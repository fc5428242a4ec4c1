package grpc

import (
	"context"

	"code.cloudfoundry.org/lager/v3"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/auction-backend/internal/usecase/catalog"
	"github.com/simaogato/auction-backend/internal/usecase/settlement"
	"github.com/simaogato/auction-backend/internal/usecase/summary"
)

var _ AuctionServer = (*Server)(nil)

// Server implements the AuctionService gRPC server
type Server struct {
	SettlementService *settlement.SettlementService
	CatalogService    *catalog.CatalogService
	SummaryService    *summary.SummaryService
	Logger            lager.Logger
}

// NewServer creates a new gRPC server instance
func NewServer(
	settlementService *settlement.SettlementService,
	catalogService *catalog.CatalogService,
	summaryService *summary.SummaryService,
	logger lager.Logger,
) *Server {
	return &Server{
		SettlementService: settlementService,
		CatalogService:    catalogService,
		SummaryService:    summaryService,
		Logger:            logger.Session("grpc"),
	}
}

// SelectNext handles the SelectNext RPC.
// Response: {"item": {...} | null, "completed": bool}
func (s *Server) SelectNext(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	item, err := s.SettlementService.SelectNext(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	if item == nil {
		return toStruct(map[string]any{"item": nil, "completed": true})
	}
	return toStruct(map[string]any{"item": itemFields(item), "completed": false})
}

// PlaceBid handles the PlaceBid RPC.
// Request: {"item_id", "bidder_id", "amount"}
func (s *Server) PlaceBid(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	itemID, err := uuidField(req, "item_id")
	if err != nil {
		return nil, mapError(err)
	}
	bidderID, err := uuidField(req, "bidder_id")
	if err != nil {
		return nil, mapError(err)
	}
	amount, err := bidAmount(req, "amount")
	if err != nil {
		return nil, mapError(err)
	}

	result, err := s.SettlementService.PlaceBid(ctx, settlement.PlaceBidInput{
		ItemID:   itemID,
		BidderID: bidderID,
		Amount:   amount,
	})
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(bidResultFields(result))
}

// FinalizeSale handles the FinalizeSale RPC.
// Request: {"item_id"}
func (s *Server) FinalizeSale(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	itemID, err := uuidField(req, "item_id")
	if err != nil {
		return nil, mapError(err)
	}

	result, err := s.SettlementService.FinalizeSale(ctx, itemID)
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(saleResultFields(result))
}

// PassItem handles the PassItem RPC.
// Request: {"item_id"}
func (s *Server) PassItem(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	itemID, err := uuidField(req, "item_id")
	if err != nil {
		return nil, mapError(err)
	}

	result, err := s.SettlementService.PassItem(ctx, itemID)
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(releaseResultFields(result))
}

// WithdrawItem handles the WithdrawItem RPC.
// Request: {"item_id"}
func (s *Server) WithdrawItem(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	itemID, err := uuidField(req, "item_id")
	if err != nil {
		return nil, mapError(err)
	}

	result, err := s.SettlementService.WithdrawItem(ctx, itemID)
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(releaseResultFields(result))
}

// ResetAuction handles the ResetAuction RPC
func (s *Server) ResetAuction(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	result, err := s.SettlementService.ResetAuction(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(map[string]any{
		"items_reset":   result.ItemsReset,
		"bidders_reset": result.BiddersReset,
	})
}

// AddItem handles the AddItem RPC.
// Request: {"name", "role", "department", "year", "batting_style", "bowling_style", "image_url", "base_price"?}
func (s *Server) AddItem(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var input catalog.AddItemInput
	var err error

	text := map[string]*string{
		"name":          &input.Name,
		"role":          &input.Role,
		"department":    &input.Department,
		"year":          &input.Year,
		"batting_style": &input.BattingStyle,
		"bowling_style": &input.BowlingStyle,
		"image_url":     &input.ImageURL,
	}
	for name, dst := range text {
		if *dst, err = stringField(req, name); err != nil {
			return nil, mapError(err)
		}
	}
	if input.BasePrice, err = amountField(req, "base_price"); err != nil {
		return nil, mapError(err)
	}

	item, err := s.CatalogService.AddItem(ctx, input)
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(map[string]any{"item": itemFields(item)})
}

// AddBidder handles the AddBidder RPC.
// Request: {"name"}
func (s *Server) AddBidder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	name, err := stringField(req, "name")
	if err != nil {
		return nil, mapError(err)
	}

	bidder, err := s.CatalogService.AddBidder(ctx, name)
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(map[string]any{"bidder": bidderFields(bidder)})
}

// ListItems handles the ListItems RPC.
// Request: {"status"?}
func (s *Server) ListItems(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	filter, err := stringField(req, "status")
	if err != nil {
		return nil, mapError(err)
	}

	items, err := s.CatalogService.ListItems(ctx, filter)
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(map[string]any{"items": itemList(items)})
}

// ListBidders handles the ListBidders RPC
func (s *Server) ListBidders(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	bidders, err := s.CatalogService.ListBidders(ctx)
	if err != nil {
		return nil, mapError(err)
	}

	list := make([]any, 0, len(bidders))
	for _, bidder := range bidders {
		list = append(list, bidderFields(bidder))
	}
	return toStruct(map[string]any{"bidders": list})
}

// GetSummary handles the GetSummary RPC
func (s *Server) GetSummary(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	summaries, err := s.SummaryService.GetSummary(ctx)
	if err != nil {
		return nil, mapError(err)
	}

	list := make([]any, 0, len(summaries))
	for _, bidderSummary := range summaries {
		list = append(list, summaryFields(bidderSummary))
	}
	return toStruct(map[string]any{"bidders": list})
}

// GetStatusBoard handles the GetStatusBoard RPC
func (s *Server) GetStatusBoard(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	board, err := s.SummaryService.GetStatusBoard(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(map[string]any{
		"sold":    itemList(board.Sold),
		"unsold":  itemList(board.Unsold),
		"pending": itemList(board.Pending),
	})
}

// Audit handles the Audit RPC
func (s *Server) Audit(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	discrepancies, err := s.SummaryService.Audit(ctx)
	if err != nil {
		return nil, mapError(err)
	}

	list := make([]any, 0, len(discrepancies))
	for _, d := range discrepancies {
		list = append(list, discrepancyFields(d))
	}
	if len(discrepancies) > 0 {
		s.Logger.Info("audit-found-discrepancies", lager.Data{"count": len(discrepancies)})
	}
	return toStruct(map[string]any{
		"consistent":    len(discrepancies) == 0,
		"discrepancies": list,
	})
}
