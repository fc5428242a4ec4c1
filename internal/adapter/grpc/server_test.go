package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"code.cloudfoundry.org/clock/fakeclock"
	"code.cloudfoundry.org/lager/v3/lagertest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/auction-backend/internal/adapter/repository/memory"
	"github.com/simaogato/auction-backend/internal/domain"
	"github.com/simaogato/auction-backend/internal/usecase/catalog"
	"github.com/simaogato/auction-backend/internal/usecase/settlement"
	"github.com/simaogato/auction-backend/internal/usecase/summary"
)

const testToken = "auctioneer-token"

type harness struct {
	ctx    context.Context
	client *Client
	conn   *grpc.ClientConn
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := lagertest.NewTestLogger("test")
	rules := domain.DefaultRules()
	store := memory.New()

	settlementService := settlement.NewSettlementService(store, rules, fakeclock.NewFakeClock(time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)), logger)
	settlementService.Pick = func(n int) int { return 0 }
	catalogService := catalog.NewCatalogService(store.Items(), store.Bidders(), rules, logger)
	summaryService := summary.NewSummaryService(store.Items(), store.Bidders(), store.Ledger(), rules)

	listener := bufconn.Listen(1 << 20)
	server := grpc.NewServer(grpc.ChainUnaryInterceptor(LoggingInterceptor(logger), AuthInterceptor(testToken)))
	RegisterAuctionServer(server, NewServer(settlementService, catalogService, summaryService, logger))
	go func() { _ = server.Serve(listener) }()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &harness{ctx: context.Background(), client: NewClient(conn, testToken), conn: conn}
}

func (h *harness) addBidder(t *testing.T, name string) uuid.UUID {
	t.Helper()
	resp, err := h.client.AddBidder(h.ctx, name)
	require.NoError(t, err)
	return uuid.MustParse(resp.Fields["bidder"].GetStructValue().Fields["id"].GetStringValue())
}

func (h *harness) addItem(t *testing.T, name string) uuid.UUID {
	t.Helper()
	resp, err := h.client.AddItem(h.ctx, map[string]any{"name": name, "role": "Batsman", "department": "CSE"})
	require.NoError(t, err)
	return uuid.MustParse(resp.Fields["item"].GetStructValue().Fields["id"].GetStringValue())
}

func number(s *structpb.Struct, key string) int64 {
	return int64(s.Fields[key].GetNumberValue())
}

func requireCode(t *testing.T, err error, code codes.Code, reason domain.ErrorKind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, status.Code(err), err.Error())
	if reason != "" {
		got, _ := ErrorReason(err)
		assert.Equal(t, reason, got)
	}
}

func TestServer_AuctionRound(t *testing.T) {
	h := newHarness(t)
	teamA := h.addBidder(t, "Team A")
	teamB := h.addBidder(t, "Team B")
	itemID := h.addItem(t, "Kohli")

	next, err := h.client.SelectNext(h.ctx)
	require.NoError(t, err)
	assert.False(t, next.Fields["completed"].GetBoolValue())
	assert.Equal(t, itemID.String(), next.Fields["item"].GetStructValue().Fields["id"].GetStringValue())

	bid, err := h.client.PlaceBid(h.ctx, itemID, teamA, 5000)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), number(bid, "current_bid"))
	assert.Equal(t, int64(45000), number(bid, "bidder_purse"))

	// amounts may also travel as numbers
	bid, err = h.client.Call(h.ctx, "PlaceBid", map[string]any{
		"item_id":   itemID.String(),
		"bidder_id": teamB.String(),
		"amount":    7000,
	})
	require.NoError(t, err)
	assert.Equal(t, teamA.String(), bid.Fields["previous_leader_id"].GetStringValue())
	assert.Equal(t, int64(5000), number(bid, "refunded"))

	sale, err := h.client.FinalizeSale(h.ctx, itemID)
	require.NoError(t, err)
	assert.Equal(t, teamB.String(), sale.Fields["buyer_id"].GetStringValue())
	assert.Equal(t, int64(7000), number(sale, "sold_price"))
	assert.Equal(t, "2026-03-14T18:00:00Z", sale.Fields["sold_at"].GetStringValue())

	_, err = h.client.FinalizeSale(h.ctx, itemID)
	requireCode(t, err, codes.FailedPrecondition, domain.KindAlreadySettled)

	next, err = h.client.SelectNext(h.ctx)
	require.NoError(t, err)
	assert.True(t, next.Fields["completed"].GetBoolValue())

	board, err := h.client.GetStatusBoard(h.ctx)
	require.NoError(t, err)
	assert.Len(t, board.Fields["sold"].GetListValue().Values, 1)
	assert.Empty(t, board.Fields["pending"].GetListValue().Values)

	summaryResp, err := h.client.GetSummary(h.ctx)
	require.NoError(t, err)
	bidders := summaryResp.Fields["bidders"].GetListValue().Values
	require.Len(t, bidders, 2)
	teamBSummary := bidders[1].GetStructValue()
	assert.Equal(t, "Team B", teamBSummary.Fields["name"].GetStringValue())
	assert.Equal(t, int64(7000), number(teamBSummary, "total_spent"))
	assert.Equal(t, int64(43000), number(teamBSummary, "purse"))

	audit, err := h.client.Audit(h.ctx)
	require.NoError(t, err)
	assert.True(t, audit.Fields["consistent"].GetBoolValue())

	reset, err := h.client.ResetAuction(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), number(reset, "items_reset"))
	assert.Equal(t, int64(2), number(reset, "bidders_reset"))

	pending, err := h.client.ListItems(h.ctx, "pending")
	require.NoError(t, err)
	assert.Len(t, pending.Fields["items"].GetListValue().Values, 1)
}

func TestServer_BidExceedsReserveCarriesCeiling(t *testing.T) {
	h := newHarness(t)
	teamA := h.addBidder(t, "Team A")
	itemID := h.addItem(t, "Dhoni")

	_, err := h.client.PlaceBid(h.ctx, itemID, teamA, 36001)
	requireCode(t, err, codes.OutOfRange, domain.KindBidExceedsReserve)

	ceiling, ok := MaxAllowedBid(err)
	require.True(t, ok)
	assert.Equal(t, int64(36000), ceiling)
}

func TestServer_Rejections(t *testing.T) {
	h := newHarness(t)
	teamA := h.addBidder(t, "Team A")
	itemID := h.addItem(t, "Bumrah")

	tests := []struct {
		name   string
		method string
		fields map[string]any
		code   codes.Code
		reason domain.ErrorKind
	}{
		{
			name:   "Malformed Item ID",
			method: "PlaceBid",
			fields: map[string]any{"item_id": "not-a-uuid", "bidder_id": teamA.String(), "amount": "3000"},
			code:   codes.InvalidArgument,
			reason: domain.KindInvalidInput,
		},
		{
			name:   "Fractional Amount",
			method: "PlaceBid",
			fields: map[string]any{"item_id": itemID.String(), "bidder_id": teamA.String(), "amount": "2500.50"},
			code:   codes.InvalidArgument,
			reason: domain.KindInvalidInput,
		},
		{
			name:   "Negative Amount",
			method: "PlaceBid",
			fields: map[string]any{"item_id": itemID.String(), "bidder_id": teamA.String(), "amount": -10},
			code:   codes.FailedPrecondition,
			reason: domain.KindBidTooLow,
		},
		{
			name:   "Negative Base Price",
			method: "AddItem",
			fields: map[string]any{"name": "Shami", "base_price": -500},
			code:   codes.InvalidArgument,
			reason: domain.KindInvalidInput,
		},
		{
			name:   "Missing Amount",
			method: "PlaceBid",
			fields: map[string]any{"item_id": itemID.String(), "bidder_id": teamA.String()},
			code:   codes.InvalidArgument,
			reason: domain.KindInvalidInput,
		},
		{
			name:   "Unknown Bidder",
			method: "PlaceBid",
			fields: map[string]any{"item_id": itemID.String(), "bidder_id": uuid.NewString(), "amount": "3000"},
			code:   codes.NotFound,
			reason: domain.KindNotFound,
		},
		{
			name:   "Zero Bid",
			method: "PlaceBid",
			fields: map[string]any{"item_id": itemID.String(), "bidder_id": teamA.String(), "amount": "0"},
			code:   codes.FailedPrecondition,
			reason: domain.KindBidTooLow,
		},
		{
			name:   "Finalize Without Bids",
			method: "FinalizeSale",
			fields: map[string]any{"item_id": itemID.String()},
			code:   codes.FailedPrecondition,
			reason: domain.KindNoBids,
		},
		{
			name:   "Unknown Status Filter",
			method: "ListItems",
			fields: map[string]any{"status": "auctioned"},
			code:   codes.InvalidArgument,
			reason: domain.KindInvalidInput,
		},
		{
			name:   "Item Without Name",
			method: "AddItem",
			fields: map[string]any{"role": "Bowler"},
			code:   codes.InvalidArgument,
			reason: domain.KindInvalidInput,
		},
		{
			name:   "Name Of Wrong Type",
			method: "AddBidder",
			fields: map[string]any{"name": 42},
			code:   codes.InvalidArgument,
			reason: domain.KindInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.client.Call(h.ctx, tt.method, tt.fields)
			requireCode(t, err, tt.code, tt.reason)
		})
	}

	// nothing above moved any money
	audit, err := h.client.Audit(h.ctx)
	require.NoError(t, err)
	assert.True(t, audit.Fields["consistent"].GetBoolValue())
}

func TestServer_RequiresToken(t *testing.T) {
	h := newHarness(t)

	_, err := NewClient(h.conn, "wrong-token").ListItems(h.ctx, "")
	requireCode(t, err, codes.Unauthenticated, "")
}

func TestServer_PassAndWithdraw(t *testing.T) {
	h := newHarness(t)
	teamA := h.addBidder(t, "Team A")
	passed := h.addItem(t, "Rohit")
	withdrawn := h.addItem(t, "Hardik")

	_, err := h.client.PlaceBid(h.ctx, passed, teamA, 4000)
	require.NoError(t, err)

	release, err := h.client.PassItem(h.ctx, passed)
	require.NoError(t, err)
	assert.False(t, release.Fields["was_sold"].GetBoolValue())
	assert.Equal(t, teamA.String(), release.Fields["refunded_bidder_id"].GetStringValue())
	assert.Equal(t, int64(4000), number(release, "refunded"))

	unsold, err := h.client.ListItems(h.ctx, "unsold")
	require.NoError(t, err)
	assert.Len(t, unsold.Fields["items"].GetListValue().Values, 1)

	_, err = h.client.PlaceBid(h.ctx, withdrawn, teamA, 3000)
	require.NoError(t, err)
	_, err = h.client.FinalizeSale(h.ctx, withdrawn)
	require.NoError(t, err)

	release, err = h.client.WithdrawItem(h.ctx, withdrawn)
	require.NoError(t, err)
	assert.True(t, release.Fields["was_sold"].GetBoolValue())
	assert.Equal(t, int64(3000), number(release, "refunded"))

	_, err = h.client.WithdrawItem(h.ctx, withdrawn)
	requireCode(t, err, codes.NotFound, domain.KindNotFound)

	bidders, err := h.client.ListBidders(h.ctx)
	require.NoError(t, err)
	teamAFields := bidders.Fields["bidders"].GetListValue().Values[0].GetStructValue()
	assert.Equal(t, int64(50000), number(teamAFields, "purse"))
	assert.Empty(t, teamAFields.Fields["roster"].GetListValue().Values)
}
