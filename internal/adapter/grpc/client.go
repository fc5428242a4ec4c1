package grpc

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls the AuctionService over an established connection
type Client struct {
	conn  grpc.ClientConnInterface
	token string
}

// NewClient creates a client that authenticates every call with token
func NewClient(conn grpc.ClientConnInterface, token string) *Client {
	return &Client{conn: conn, token: token}
}

// Call invokes method with the given request fields
func (c *Client) Call(ctx context.Context, method string, fields map[string]any) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	ctx = metadata.AppendToOutgoingContext(ctx, "authorization", c.token)
	if err := c.conn.Invoke(ctx, FullMethod(method), in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// SelectNext asks for the next item to auction
func (c *Client) SelectNext(ctx context.Context) (*structpb.Struct, error) {
	return c.Call(ctx, "SelectNext", nil)
}

// PlaceBid bids amount on an item. The amount travels as a decimal string.
func (c *Client) PlaceBid(ctx context.Context, itemID, bidderID uuid.UUID, amount int64) (*structpb.Struct, error) {
	return c.Call(ctx, "PlaceBid", map[string]any{
		"item_id":   itemID.String(),
		"bidder_id": bidderID.String(),
		"amount":    strconv.FormatInt(amount, 10),
	})
}

// FinalizeSale settles an item to its leading bidder
func (c *Client) FinalizeSale(ctx context.Context, itemID uuid.UUID) (*structpb.Struct, error) {
	return c.Call(ctx, "FinalizeSale", map[string]any{"item_id": itemID.String()})
}

// PassItem marks an item unsold
func (c *Client) PassItem(ctx context.Context, itemID uuid.UUID) (*structpb.Struct, error) {
	return c.Call(ctx, "PassItem", map[string]any{"item_id": itemID.String()})
}

// WithdrawItem removes an item from the auction
func (c *Client) WithdrawItem(ctx context.Context, itemID uuid.UUID) (*structpb.Struct, error) {
	return c.Call(ctx, "WithdrawItem", map[string]any{"item_id": itemID.String()})
}

// ResetAuction restores the initial state
func (c *Client) ResetAuction(ctx context.Context) (*structpb.Struct, error) {
	return c.Call(ctx, "ResetAuction", nil)
}

// AddItem registers an item
func (c *Client) AddItem(ctx context.Context, fields map[string]any) (*structpb.Struct, error) {
	return c.Call(ctx, "AddItem", fields)
}

// AddBidder registers a bidder
func (c *Client) AddBidder(ctx context.Context, name string) (*structpb.Struct, error) {
	return c.Call(ctx, "AddBidder", map[string]any{"name": name})
}

// ListItems lists items, filtered by status unless status is empty
func (c *Client) ListItems(ctx context.Context, status string) (*structpb.Struct, error) {
	return c.Call(ctx, "ListItems", map[string]any{"status": status})
}

// ListBidders lists every bidder
func (c *Client) ListBidders(ctx context.Context) (*structpb.Struct, error) {
	return c.Call(ctx, "ListBidders", nil)
}

// GetSummary returns every bidder with roster and totals
func (c *Client) GetSummary(ctx context.Context) (*structpb.Struct, error) {
	return c.Call(ctx, "GetSummary", nil)
}

// GetStatusBoard returns items grouped by status
func (c *Client) GetStatusBoard(ctx context.Context) (*structpb.Struct, error) {
	return c.Call(ctx, "GetStatusBoard", nil)
}

// Audit runs the purse conservation audit
func (c *Client) Audit(ctx context.Context) (*structpb.Struct, error) {
	return c.Call(ctx, "Audit", nil)
}
