package grpc

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/auction-backend/internal/domain"
	"github.com/simaogato/auction-backend/internal/usecase/settlement"
	"github.com/simaogato/auction-backend/internal/usecase/summary"
)

// Requests and responses travel as google.protobuf.Struct. The helpers below
// read typed fields out of a request and build response structs.

func invalid(format string, args ...any) error {
	return domain.NewError(domain.KindInvalidInput, format, args...)
}

func field(req *structpb.Struct, name string) (*structpb.Value, bool) {
	if req == nil {
		return nil, false
	}
	v, ok := req.GetFields()[name]
	if !ok {
		return nil, false
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return nil, false
	}
	return v, true
}

func stringField(req *structpb.Struct, name string) (string, error) {
	v, ok := field(req, name)
	if !ok {
		return "", nil
	}
	s, isString := v.GetKind().(*structpb.Value_StringValue)
	if !isString {
		return "", invalid("%s must be a string", name)
	}
	return strings.TrimSpace(s.StringValue), nil
}

func uuidField(req *structpb.Struct, name string) (uuid.UUID, error) {
	s, err := stringField(req, name)
	if err != nil {
		return uuid.Nil, err
	}
	if s == "" {
		return uuid.Nil, invalid("%s is required", name)
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, invalid("invalid %s format: %v", name, err)
	}
	return id, nil
}

// amountField reads a whole, non-negative amount given as a decimal string or a number
func amountField(req *structpb.Struct, name string) (*int64, error) {
	amount, err := wholeField(req, name)
	if err != nil || amount == nil {
		return amount, err
	}
	if *amount < 0 {
		return nil, invalid("%s cannot be negative", name)
	}
	return amount, nil
}

// wholeField reads a whole amount of either sign
func wholeField(req *structpb.Struct, name string) (*int64, error) {
	v, ok := field(req, name)
	if !ok {
		return nil, nil
	}

	var amount decimal.Decimal
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		parsed, err := decimal.NewFromString(strings.TrimSpace(kind.StringValue))
		if err != nil {
			return nil, invalid("invalid %s format: %v", name, err)
		}
		amount = parsed
	case *structpb.Value_NumberValue:
		if math.IsNaN(kind.NumberValue) || math.IsInf(kind.NumberValue, 0) {
			return nil, invalid("%s must be a finite number", name)
		}
		amount = decimal.NewFromFloat(kind.NumberValue)
	default:
		return nil, invalid("%s must be a number or a decimal string", name)
	}

	if !amount.IsInteger() {
		return nil, invalid("%s must be a whole amount", name)
	}
	if amount.Abs().GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		return nil, invalid("%s is too large", name)
	}
	n := amount.IntPart()
	return &n, nil
}

// bidAmount reads a required whole amount. The sign is left to the
// bidding rules, which reject anything not above the current bid.
func bidAmount(req *structpb.Struct, name string) (int64, error) {
	amount, err := wholeField(req, name)
	if err != nil {
		return 0, err
	}
	if amount == nil {
		return 0, invalid("%s is required", name)
	}
	return *amount, nil
}

func toStruct(fields map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}
	return out, nil
}

func optionalID(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}

func optionalTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func itemFields(item *domain.Item) map[string]any {
	fields := map[string]any{
		"id":                item.ID.String(),
		"name":              item.Name,
		"role":              item.Role,
		"department":        item.Department,
		"year":              item.Year,
		"batting_style":     item.BattingStyle,
		"bowling_style":     item.BowlingStyle,
		"image_url":         item.ImageURL,
		"base_price":        item.BasePrice,
		"status":            string(item.Status),
		"current_bid":       item.CurrentBid,
		"leading_bidder_id": optionalID(item.LeadingBidderID),
		"sold_to_id":        optionalID(item.SoldToID),
		"sold_at":           optionalTime(item.SoldAt),
		"sold_price":        nil,
	}
	if item.SoldPrice != nil {
		fields["sold_price"] = *item.SoldPrice
	}
	return fields
}

func itemList(items []*domain.Item) []any {
	list := make([]any, 0, len(items))
	for _, item := range items {
		list = append(list, itemFields(item))
	}
	return list
}

func bidderFields(bidder *domain.Bidder) map[string]any {
	roster := make([]any, 0, len(bidder.Roster))
	for _, id := range bidder.Roster {
		roster = append(roster, id.String())
	}
	return map[string]any{
		"id":     bidder.ID.String(),
		"name":   bidder.Name,
		"purse":  bidder.Purse,
		"roster": roster,
	}
}

func bidResultFields(r *settlement.BidResult) map[string]any {
	return map[string]any{
		"item_id":            r.ItemID.String(),
		"current_bid":        r.CurrentBid,
		"leader_id":          r.LeaderID.String(),
		"leader_name":        r.LeaderName,
		"bidder_purse":       r.BidderPurse,
		"max_allowed_bid":    r.MaxAllowedBid,
		"previous_leader_id": optionalID(r.PreviousLeaderID),
		"refunded":           r.Refunded,
	}
}

func saleResultFields(r *settlement.SaleResult) map[string]any {
	return map[string]any{
		"item_id":     r.ItemID.String(),
		"buyer_id":    r.BuyerID.String(),
		"buyer_name":  r.BuyerName,
		"sold_price":  r.SoldPrice,
		"sold_at":     r.SoldAt.UTC().Format(time.RFC3339Nano),
		"roster_size": r.RosterSize,
		"buyer_purse": r.BuyerPurse,
	}
}

func releaseResultFields(r *settlement.ReleaseResult) map[string]any {
	return map[string]any{
		"item_id":            r.ItemID.String(),
		"was_sold":           r.WasSold,
		"refunded_bidder_id": optionalID(r.RefundedBidderID),
		"refunded":           r.Refunded,
	}
}

func summaryFields(s summary.BidderSummary) map[string]any {
	fields := bidderFields(s.Bidder)
	fields["items"] = itemList(s.Items)
	fields["total_spent"] = s.TotalSpent
	fields["committed"] = s.Committed
	return fields
}

func discrepancyFields(d summary.Discrepancy) map[string]any {
	return map[string]any{
		"bidder_id":   d.BidderID.String(),
		"bidder_name": d.BidderName,
		"outflow":     d.Outflow,
		"held":        d.Held,
		"ledger":      d.Ledger,
		"reason":      d.Reason,
	}
}
