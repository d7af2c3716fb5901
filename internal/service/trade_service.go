package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"predictd/internal/domain"
	"predictd/internal/engine"
	"predictd/internal/persist"
	"predictd/internal/store/memory"
)

// TradeService executes purchases. It resolves the user and market, converts
// a budget into a share count where needed, runs the trade engine, persists
// the committed state, and publishes the new prices.
type TradeService struct {
	markets   *memory.MarketStore
	users     *memory.UserStore
	trader    *engine.TradeEngine
	coord     *persist.Coordinator
	publisher PricePublisher
	commit    *CommitLock
	logger    *slog.Logger
}

// NewTradeService creates a TradeService with all required dependencies.
// publisher may be nil when no side channel is configured.
func NewTradeService(
	markets *memory.MarketStore,
	users *memory.UserStore,
	trader *engine.TradeEngine,
	coord *persist.Coordinator,
	publisher PricePublisher,
	commit *CommitLock,
	logger *slog.Logger,
) *TradeService {
	return &TradeService{
		markets:   markets,
		users:     users,
		trader:    trader,
		coord:     coord,
		publisher: publisher,
		commit:    commit,
		logger:    logger.With(slog.String("component", "trade_service")),
	}
}

// Buy spends amount of currency on shares of the given outcome. The budget
// is converted to a share count by the kernel's bisection; a budget too
// small to buy any shares is rejected before the engine runs.
func (s *TradeService) Buy(ctx context.Context, userID, marketID string, outcome domain.Outcome, amount decimal.Decimal) (*domain.Trade, error) {
	s.commit.Lock()
	defer s.commit.Unlock()

	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive, got %s", domain.ErrInvalidInput, amount)
	}

	user, market, err := s.resolve(userID, marketID)
	if err != nil {
		return nil, err
	}

	shares := market.SharesForAmount(outcome, amount)
	if shares <= 0 {
		return nil, fmt.Errorf("%w: %s buys no shares", domain.ErrAmountTooSmall, amount)
	}

	return s.execute(ctx, user, market, outcome, shares)
}

// BuyShares buys an explicit share count of the given outcome at whatever it
// costs. Used by callers that think in shares rather than budget.
func (s *TradeService) BuyShares(ctx context.Context, userID, marketID string, outcome domain.Outcome, shares float64) (*domain.Trade, error) {
	s.commit.Lock()
	defer s.commit.Unlock()

	user, market, err := s.resolve(userID, marketID)
	if err != nil {
		return nil, err
	}
	return s.execute(ctx, user, market, outcome, shares)
}

// ListTrades returns the committed trades for one market, oldest first, or
// the whole journal when marketID is empty.
func (s *TradeService) ListTrades(ctx context.Context, marketID string) []*domain.Trade {
	if marketID == "" {
		return s.coord.Trades()
	}
	return s.coord.TradesByMarket(marketID)
}

func (s *TradeService) resolve(userID, marketID string) (*domain.User, *domain.Market, error) {
	user, err := s.users.Get(userID)
	if err != nil {
		return nil, nil, err
	}
	market, err := s.markets.Get(marketID)
	if err != nil {
		return nil, nil, err
	}
	return user, market, nil
}

// execute runs the engine and, only after the in-memory commit succeeded,
// records and persists the trade. Callers hold the commit lock.
func (s *TradeService) execute(ctx context.Context, user *domain.User, market *domain.Market, outcome domain.Outcome, shares float64) (*domain.Trade, error) {
	trade, err := s.trader.ExecuteTrade(user, market, outcome, shares)
	if err != nil {
		return nil, err
	}

	s.coord.RecordTrade(trade)
	if err := s.coord.SaveAll(ctx); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "trade committed",
		slog.String("trade_id", trade.ID),
		slog.String("user_id", trade.UserID),
		slog.String("market_id", trade.MarketID),
		slog.String("outcome", string(trade.Outcome)),
		slog.Float64("shares", trade.SharesBought),
		slog.String("cost", trade.Cost.String()),
	)

	if s.publisher != nil {
		if pubErr := s.publisher.PublishPrices(ctx, market.ID, market.YesPrice(), market.NoPrice()); pubErr != nil {
			s.logger.WarnContext(ctx, "publish prices failed",
				slog.String("market_id", market.ID),
				slog.String("error", pubErr.Error()),
			)
		}
	}
	return trade, nil
}
