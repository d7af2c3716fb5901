package persist

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"predictd/internal/domain"
	"predictd/internal/store/file"
	"predictd/internal/store/memory"
)

type fixture struct {
	coord   *Coordinator
	markets *memory.MarketStore
	users   *memory.UserStore
}

func newFixture(t *testing.T, dir string) *fixture {
	t.Helper()
	markets := memory.NewMarketStore()
	users := memory.NewUserStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	coord := NewCoordinator(
		file.NewMarketRepository(dir),
		file.NewUserRepository(dir),
		file.NewTradeRepository(dir),
		markets, users, logger,
	)
	return &fixture{coord: coord, markets: markets, users: users}
}

func seedState(t *testing.T, f *fixture) {
	t.Helper()
	ctx := context.Background()

	m, err := domain.NewMarket("m1", "Will the heat wave break this week?", "", 100)
	require.NoError(t, err)
	require.NoError(t, m.ApplyTrade(domain.OutcomeYes, 10))
	require.NoError(t, f.markets.Put(m))

	u, err := domain.NewUserWithBalance("alice", decimal.RequireFromString("990"))
	require.NoError(t, err)
	pos := u.GetOrCreatePosition("m1")
	require.NoError(t, pos.SetYesShares(10))
	require.NoError(t, f.users.Put(u))

	f.coord.RecordTrade(&domain.Trade{
		ID:           "t1",
		UserID:       "alice",
		MarketID:     "m1",
		Outcome:      domain.OutcomeYes,
		SharesBought: 10,
		Cost:         decimal.RequireFromString("5.12"),
		CreatedAt:    time.Date(2026, 5, 2, 12, 0, 0, 0, time.UTC),
	})

	require.NoError(t, f.coord.SaveAll(ctx))
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	seedState(t, newFixture(t, dir))

	// Fresh stores, same backend: the restored state matches what was saved.
	f2 := newFixture(t, dir)
	require.NoError(t, f2.coord.LoadAll(context.Background()))

	m, err := f2.markets.Get("m1")
	require.NoError(t, err)
	assert.Equal(t, 10.0, m.QYes)

	u, err := f2.users.Get("alice")
	require.NoError(t, err)
	assert.True(t, u.Balance.Equal(decimal.RequireFromString("990")))
	require.Contains(t, u.Positions, "m1")

	trades := f2.coord.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, "t1", trades[0].ID)
}

func TestLoadDropsStrayPositions(t *testing.T) {
	dir := t.TempDir()
	f := newFixture(t, dir)
	seedState(t, f)

	// Add a position referencing a market that does not exist.
	u, err := f.users.Get("alice")
	require.NoError(t, err)
	u.GetOrCreatePosition("ghost-market")
	require.NoError(t, f.coord.SaveAll(context.Background()))

	f2 := newFixture(t, dir)
	require.NoError(t, f2.coord.LoadAll(context.Background()))

	restored, err := f2.users.Get("alice")
	require.NoError(t, err)
	assert.Contains(t, restored.Positions, "m1")
	assert.NotContains(t, restored.Positions, "ghost-market")
}

func TestLoadDropsStrayTrades(t *testing.T) {
	dir := t.TempDir()
	f := newFixture(t, dir)
	seedState(t, f)

	f.coord.RecordTrade(&domain.Trade{
		ID:           "t2",
		UserID:       "nobody",
		MarketID:     "m1",
		Outcome:      domain.OutcomeNo,
		SharesBought: 1,
		Cost:         decimal.RequireFromString("0.50"),
		CreatedAt:    time.Date(2026, 5, 2, 13, 0, 0, 0, time.UTC),
	})
	require.NoError(t, f.coord.SaveAll(context.Background()))

	f2 := newFixture(t, dir)
	require.NoError(t, f2.coord.LoadAll(context.Background()))

	trades := f2.coord.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, "t1", trades[0].ID)
}

func TestLoadFailsFastOnStructuralError(t *testing.T) {
	dir := t.TempDir()
	f := newFixture(t, dir)
	seedState(t, f)

	// Corrupt the snapshot: negative liquidity violates an invariant, and
	// load must refuse to repair it.
	m, err := f.markets.Get("m1")
	require.NoError(t, err)
	m.Liquidity = -1
	_ = file.NewMarketRepository(dir).SaveAll(context.Background(), []*domain.Market{m})

	f2 := newFixture(t, dir)
	err = f2.coord.LoadAll(context.Background())
	assert.ErrorIs(t, err, domain.ErrStructural)
}

func TestTradesByMarket(t *testing.T) {
	f := newFixture(t, t.TempDir())

	for i, marketID := range []string{"m1", "m2", "m1"} {
		f.coord.RecordTrade(&domain.Trade{
			ID:           string(rune('a' + i)),
			UserID:       "alice",
			MarketID:     marketID,
			Outcome:      domain.OutcomeYes,
			SharesBought: 1,
			Cost:         decimal.RequireFromString("1"),
			CreatedAt:    time.Date(2026, 5, 2, 12, i, 0, 0, time.UTC),
		})
	}

	m1 := f.coord.TradesByMarket("m1")
	require.Len(t, m1, 2)
	assert.Equal(t, "a", m1[0].ID)
	assert.Equal(t, "c", m1[1].ID)
	assert.Empty(t, f.coord.TradesByMarket("m3"))
}
