package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"predictd/internal/domain"
	"predictd/internal/engine"
	"predictd/internal/persist"
	"predictd/internal/store/file"
	"predictd/internal/store/memory"
)

// stack is the full engine wired against the file backend in a temp dir.
type stack struct {
	markets *memory.MarketStore
	users   *memory.UserStore
	coord   *persist.Coordinator

	marketSvc *MarketService
	userSvc   *UserService
	tradeSvc  *TradeService
}

func newStack(t *testing.T, dir string) *stack {
	t.Helper()

	markets := memory.NewMarketStore()
	users := memory.NewUserStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	coord := persist.NewCoordinator(
		file.NewMarketRepository(dir),
		file.NewUserRepository(dir),
		file.NewTradeRepository(dir),
		markets, users, logger,
	)
	require.NoError(t, coord.LoadAll(context.Background()))

	var commit CommitLock
	s := &stack{
		markets: markets,
		users:   users,
		coord:   coord,
	}
	s.marketSvc = NewMarketService(markets, users, engine.NewSettlementEngine(), coord, nil, &commit, 100, logger)
	s.userSvc = NewUserService(users, coord, &commit, logger)
	s.tradeSvc = NewTradeService(markets, users, engine.NewTradeEngine(), coord, nil, &commit, logger)
	return s
}

func (s *stack) createMarket(t *testing.T, name string) string {
	t.Helper()
	view, err := s.marketSvc.CreateMarket(context.Background(), name, "", 100)
	require.NoError(t, err)
	return view.ID
}

func (s *stack) createUser(t *testing.T, id string) {
	t.Helper()
	_, err := s.userSvc.CreateUser(context.Background(), id)
	require.NoError(t, err)
}

func TestPricingAtOrigin(t *testing.T) {
	s := newStack(t, t.TempDir())
	id := s.createMarket(t, "Will the vote pass?")

	detail, err := s.marketSvc.GetMarket(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 0.5, detail.YesPrice)
	assert.Equal(t, 0.5, detail.NoPrice)
	assert.Equal(t, domain.MarketStatusOpen, detail.Status)
}

func TestSingleBuy(t *testing.T) {
	s := newStack(t, t.TempDir())
	ctx := context.Background()
	id := s.createMarket(t, "Will the vote pass?")
	s.createUser(t, "alice")

	trade, err := s.tradeSvc.Buy(ctx, "alice", id, domain.OutcomeYes, decimal.NewFromInt(10))
	require.NoError(t, err)

	// Spending 10 at the origin with b=100 buys ~19.09 shares for ~10.00.
	assert.InDelta(t, 19.09, trade.SharesBought, 0.01)
	cost, _ := trade.Cost.Float64()
	assert.InDelta(t, 10.0, cost, 1e-3)

	user, err := s.users.Get("alice")
	require.NoError(t, err)
	balance, _ := user.Balance.Float64()
	assert.InDelta(t, 990.0, balance, 1e-3)

	market, err := s.markets.Get(id)
	require.NoError(t, err)
	assert.Greater(t, market.QYes, 0.0)
	assert.Zero(t, market.QNo)
	assert.Greater(t, market.YesPrice(), 0.5)
}

func TestBuyInsufficientBalance(t *testing.T) {
	s := newStack(t, t.TempDir())
	ctx := context.Background()
	id := s.createMarket(t, "Will the vote pass?")
	s.createUser(t, "alice")

	user, err := s.users.Get("alice")
	require.NoError(t, err)
	require.NoError(t, user.SetBalance(decimal.RequireFromString("1.00")))

	_, err = s.tradeSvc.Buy(ctx, "alice", id, domain.OutcomeYes, decimal.NewFromInt(500))
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	market, _ := s.markets.Get(id)
	assert.Zero(t, market.QYes)
	assert.Zero(t, market.QNo)
	assert.True(t, user.Balance.Equal(decimal.RequireFromString("1.00")))
	assert.Nil(t, user.Position(id), "failed trade must not create a position")
}

func TestBuyRejectsBadAmounts(t *testing.T) {
	s := newStack(t, t.TempDir())
	ctx := context.Background()
	id := s.createMarket(t, "Will the vote pass?")
	s.createUser(t, "alice")

	_, err := s.tradeSvc.Buy(ctx, "alice", id, domain.OutcomeYes, decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = s.tradeSvc.Buy(ctx, "alice", id, domain.OutcomeYes, decimal.NewFromInt(-3))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	// A positive budget below the minimum buyable increment is its own kind.
	_, err = s.tradeSvc.Buy(ctx, "alice", id, domain.OutcomeYes, decimal.RequireFromString("0.0000001"))
	assert.ErrorIs(t, err, domain.ErrAmountTooSmall)
}

func TestResolveThenTrade(t *testing.T) {
	s := newStack(t, t.TempDir())
	ctx := context.Background()
	id := s.createMarket(t, "Will the vote pass?")
	s.createUser(t, "alice")

	require.NoError(t, s.marketSvc.ResolveMarket(ctx, id, domain.OutcomeYes))

	_, err := s.tradeSvc.Buy(ctx, "alice", id, domain.OutcomeYes, decimal.NewFromInt(10))
	assert.ErrorIs(t, err, domain.ErrIllegalState)

	market, _ := s.markets.Get(id)
	assert.Zero(t, market.QYes)
	assert.Equal(t, domain.MarketStatusResolved, market.Status)
}

func TestResolveUnknownAndTwice(t *testing.T) {
	s := newStack(t, t.TempDir())
	ctx := context.Background()
	id := s.createMarket(t, "Will the vote pass?")

	assert.ErrorIs(t, s.marketSvc.ResolveMarket(ctx, "missing", domain.OutcomeYes), domain.ErrNotFound)

	require.NoError(t, s.marketSvc.ResolveMarket(ctx, id, domain.OutcomeYes))
	assert.ErrorIs(t, s.marketSvc.ResolveMarket(ctx, id, domain.OutcomeYes), domain.ErrIllegalState)
}

func TestSettlementPayout(t *testing.T) {
	s := newStack(t, t.TempDir())
	ctx := context.Background()
	id := s.createMarket(t, "Will the vote pass?")
	s.createUser(t, "u1")
	s.createUser(t, "u2")

	// Fixture: both start at 100, u1 holds 25 YES, u2 holds 25 NO.
	u1, _ := s.users.Get("u1")
	u2, _ := s.users.Get("u2")
	require.NoError(t, u1.SetBalance(decimal.NewFromInt(100)))
	require.NoError(t, u2.SetBalance(decimal.NewFromInt(100)))
	require.NoError(t, u1.GetOrCreatePosition(id).SetYesShares(25))
	require.NoError(t, u2.GetOrCreatePosition(id).SetNoShares(25))

	require.NoError(t, s.marketSvc.ResolveMarket(ctx, id, domain.OutcomeYes))

	assert.True(t, u1.Balance.Equal(decimal.NewFromInt(125)), "u1 balance %s", u1.Balance)
	assert.True(t, u2.Balance.Equal(decimal.NewFromInt(100)), "u2 balance %s", u2.Balance)
	for _, u := range []*domain.User{u1, u2} {
		pos := u.Position(id)
		require.NotNil(t, pos)
		assert.True(t, pos.Settled)
		assert.Zero(t, pos.YesShares)
		assert.Zero(t, pos.NoShares)
	}
}

func TestSettlementIdempotence(t *testing.T) {
	s := newStack(t, t.TempDir())
	ctx := context.Background()
	id := s.createMarket(t, "Will the vote pass?")
	s.createUser(t, "u1")

	u1, _ := s.users.Get("u1")
	require.NoError(t, u1.SetBalance(decimal.NewFromInt(100)))
	require.NoError(t, u1.GetOrCreatePosition(id).SetYesShares(25))

	require.NoError(t, s.marketSvc.ResolveMarket(ctx, id, domain.OutcomeYes))
	require.True(t, u1.Balance.Equal(decimal.NewFromInt(125)))

	// Running the settlement sweep again over the same users is a no-op.
	market, _ := s.markets.Get(id)
	require.NoError(t, engine.NewSettlementEngine().SettleMarket(market, s.users.All()))
	assert.True(t, u1.Balance.Equal(decimal.NewFromInt(125)))
}

func TestDurabilityRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s := newStack(t, dir)
	resolvedID := s.createMarket(t, "Will the vote pass?")
	openID := s.createMarket(t, "Will turnout beat 60 percent?")
	s.createUser(t, "alice")
	s.createUser(t, "bob")

	_, err := s.tradeSvc.Buy(ctx, "alice", resolvedID, domain.OutcomeYes, decimal.NewFromInt(10))
	require.NoError(t, err)
	_, err = s.tradeSvc.Buy(ctx, "bob", openID, domain.OutcomeNo, decimal.NewFromInt(25))
	require.NoError(t, err)
	require.NoError(t, s.marketSvc.ResolveMarket(ctx, resolvedID, domain.OutcomeYes))

	aliceBalance, _ := s.users.Get("alice")
	wantAlice := aliceBalance.Balance
	openMarket, _ := s.markets.Get(openID)
	wantQNo := openMarket.QNo

	// Discard memory; reload from the same snapshot directory.
	s2 := newStack(t, dir)

	alice, err := s2.users.Get("alice")
	require.NoError(t, err)
	assert.True(t, alice.Balance.Equal(wantAlice))
	require.NotNil(t, alice.Position(resolvedID))
	assert.True(t, alice.Position(resolvedID).Settled)

	resolved, err := s2.markets.Get(resolvedID)
	require.NoError(t, err)
	assert.Equal(t, domain.MarketStatusResolved, resolved.Status)
	assert.Equal(t, domain.OutcomeYes, resolved.ResolvedOutcome)

	open, err := s2.markets.Get(openID)
	require.NoError(t, err)
	assert.Equal(t, wantQNo, open.QNo)

	// Resolved markets still reject trades; open markets still accept them.
	_, err = s2.tradeSvc.Buy(ctx, "bob", resolvedID, domain.OutcomeYes, decimal.NewFromInt(5))
	assert.ErrorIs(t, err, domain.ErrIllegalState)
	_, err = s2.tradeSvc.Buy(ctx, "bob", openID, domain.OutcomeNo, decimal.NewFromInt(5))
	assert.NoError(t, err)

	assert.Len(t, s2.coord.Trades(), 3)
}

func TestCreateMarketDuplicateName(t *testing.T) {
	s := newStack(t, t.TempDir())
	ctx := context.Background()
	s.createMarket(t, "Will the vote pass?")

	_, err := s.marketSvc.CreateMarket(ctx, "will the VOTE pass?", "", 100)
	assert.ErrorIs(t, err, domain.ErrDuplicateName)

	_, err = s.marketSvc.CreateMarket(ctx, "Second market", "", -1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCreateUserDuplicate(t *testing.T) {
	s := newStack(t, t.TempDir())
	ctx := context.Background()
	s.createUser(t, "alice")

	_, err := s.userSvc.CreateUser(ctx, "ALICE")
	assert.ErrorIs(t, err, domain.ErrDuplicateUser)

	_, err = s.userSvc.CreateUser(ctx, "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestListMarketsStatusFilter(t *testing.T) {
	s := newStack(t, t.TempDir())
	ctx := context.Background()
	openID := s.createMarket(t, "Stays open")
	resolvedID := s.createMarket(t, "Gets resolved")
	require.NoError(t, s.marketSvc.ResolveMarket(ctx, resolvedID, domain.OutcomeNo))

	all, err := s.marketSvc.ListMarkets(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	open, err := s.marketSvc.ListMarkets(ctx, "open")
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, openID, open[0].ID)

	resolved, err := s.marketSvc.ListMarkets(ctx, "RESOLVED")
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, resolvedID, resolved[0].ID)
	assert.Equal(t, domain.OutcomeNo, resolved[0].ResolvedOutcome)

	_, err = s.marketSvc.ListMarkets(ctx, "bogus")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestGetUserProjection(t *testing.T) {
	s := newStack(t, t.TempDir())
	ctx := context.Background()
	id := s.createMarket(t, "Will the vote pass?")
	s.createUser(t, "alice")

	_, err := s.tradeSvc.Buy(ctx, "alice", id, domain.OutcomeNo, decimal.NewFromInt(10))
	require.NoError(t, err)

	detail, err := s.userSvc.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", detail.ID)
	require.Len(t, detail.Positions, 1)
	assert.Equal(t, id, detail.Positions[0].MarketID)
	assert.Greater(t, detail.Positions[0].NoShares, 0.0)

	_, err = s.userSvc.GetUser(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	users, err := s.userSvc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].ID)
}

func TestNotFoundPaths(t *testing.T) {
	s := newStack(t, t.TempDir())
	ctx := context.Background()
	id := s.createMarket(t, "Will the vote pass?")
	s.createUser(t, "alice")

	_, err := s.tradeSvc.Buy(ctx, "nobody", id, domain.OutcomeYes, decimal.NewFromInt(10))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.tradeSvc.Buy(ctx, "alice", "missing", domain.OutcomeYes, decimal.NewFromInt(10))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.marketSvc.GetMarket(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTradeJournalOrdering(t *testing.T) {
	s := newStack(t, t.TempDir())
	ctx := context.Background()
	id := s.createMarket(t, "Will the vote pass?")
	s.createUser(t, "alice")

	for i := 0; i < 3; i++ {
		_, err := s.tradeSvc.Buy(ctx, "alice", id, domain.OutcomeYes, decimal.NewFromInt(5))
		require.NoError(t, err)
	}

	trades := s.tradeSvc.ListTrades(ctx, id)
	require.Len(t, trades, 3)

	// Prices strictly follow commit order: each successive trade on the same
	// side meets a higher price, so the same budget buys fewer shares than
	// the one before it.
	assert.Less(t, trades[1].SharesBought, trades[0].SharesBought)
	assert.Less(t, trades[2].SharesBought, trades[1].SharesBought)
}
