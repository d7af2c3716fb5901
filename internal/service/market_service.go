package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"predictd/internal/domain"
	"predictd/internal/engine"
	"predictd/internal/persist"
	"predictd/internal/store/memory"
)

// MarketService creates, lists, resolves, and settles markets.
type MarketService struct {
	markets          *memory.MarketStore
	users            *memory.UserStore
	settlement       *engine.SettlementEngine
	coord            *persist.Coordinator
	publisher        PricePublisher
	commit           *CommitLock
	defaultLiquidity float64
	logger           *slog.Logger
}

// NewMarketService creates a MarketService with all required dependencies.
// publisher may be nil when no side channel is configured; defaultLiquidity
// zero selects the kernel default.
func NewMarketService(
	markets *memory.MarketStore,
	users *memory.UserStore,
	settlement *engine.SettlementEngine,
	coord *persist.Coordinator,
	publisher PricePublisher,
	commit *CommitLock,
	defaultLiquidity float64,
	logger *slog.Logger,
) *MarketService {
	return &MarketService{
		markets:          markets,
		users:            users,
		settlement:       settlement,
		coord:            coord,
		publisher:        publisher,
		commit:           commit,
		defaultLiquidity: defaultLiquidity,
		logger:           logger.With(slog.String("component", "market_service")),
	}
}

// CreateMarket opens a new market. Names are unique case-insensitively;
// liquidity zero selects the default, anything else must be positive and
// finite.
func (s *MarketService) CreateMarket(ctx context.Context, name, description string, liquidity float64) (MarketView, error) {
	s.commit.Lock()
	defer s.commit.Unlock()

	for _, m := range s.markets.All() {
		if strings.EqualFold(m.Name, name) {
			return MarketView{}, fmt.Errorf("%w: %q", domain.ErrDuplicateName, name)
		}
	}

	if liquidity == 0 {
		liquidity = s.defaultLiquidity
	}
	market, err := domain.NewMarket(uuid.NewString(), name, description, liquidity)
	if err != nil {
		return MarketView{}, err
	}
	if err := s.markets.Put(market); err != nil {
		return MarketView{}, err
	}
	if err := s.coord.SaveAll(ctx); err != nil {
		return MarketView{}, err
	}

	s.logger.InfoContext(ctx, "market created",
		slog.String("market_id", market.ID),
		slog.String("name", market.Name),
		slog.Float64("liquidity", market.Liquidity),
	)
	return marketView(market), nil
}

// ListMarkets returns public views of all markets, optionally filtered by
// status. An empty filter lists everything.
func (s *MarketService) ListMarkets(ctx context.Context, statusFilter string) ([]MarketView, error) {
	var status domain.MarketStatus
	if statusFilter != "" {
		parsed, err := domain.ParseMarketStatus(statusFilter)
		if err != nil {
			return nil, err
		}
		status = parsed
	}

	views := []MarketView{}
	for _, m := range s.markets.All() {
		if status != "" && m.Status != status {
			continue
		}
		views = append(views, marketView(m))
	}
	return views, nil
}

// GetMarket returns the internals projection of a single market.
func (s *MarketService) GetMarket(ctx context.Context, id string) (MarketDetail, error) {
	market, err := s.markets.Get(id)
	if err != nil {
		return MarketDetail{}, err
	}
	return marketDetail(market), nil
}

// ResolveMarket declares the winning outcome and settles every position in
// the market. Resolution and settlement commit together: the market flips to
// RESOLVED, holders of the winning side are paid one unit per share, and the
// whole state is persisted before the caller is acknowledged.
func (s *MarketService) ResolveMarket(ctx context.Context, id string, outcome domain.Outcome) error {
	s.commit.Lock()
	defer s.commit.Unlock()

	market, err := s.markets.Get(id)
	if err != nil {
		return err
	}
	if err := market.Resolve(outcome); err != nil {
		return err
	}
	if err := s.settlement.SettleMarket(market, s.users.All()); err != nil {
		return err
	}
	if err := s.coord.SaveAll(ctx); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "market resolved and settled",
		slog.String("market_id", market.ID),
		slog.String("outcome", string(outcome)),
	)

	if s.publisher != nil {
		if pubErr := s.publisher.PublishResolved(ctx, market.ID, outcome); pubErr != nil {
			s.logger.WarnContext(ctx, "publish resolution failed",
				slog.String("market_id", market.ID),
				slog.String("error", pubErr.Error()),
			)
		}
	}
	return nil
}
