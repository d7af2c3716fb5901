// Package engine contains the two mutating cores of the market: the trade
// engine and the settlement engine. They are the only code that moves money,
// mints shares, or changes positions. Neither engine persists or logs;
// durability is the caller's job.
package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"predictd/internal/domain"
)

// TradeEngine executes purchases against a market. Every trade runs a
// two-phase protocol: phase 1 computes and validates every new value without
// touching state, phase 2 applies them all. If phase 1 fails nothing has
// changed, not even an empty position.
type TradeEngine struct{}

// NewTradeEngine creates a TradeEngine.
func NewTradeEngine() *TradeEngine {
	return &TradeEngine{}
}

// ExecuteTrade buys sharesToBuy shares of outcome for the user. It returns
// the immutable trade record on success. On any validation failure the user,
// the market, and the positions map are exactly as they were before the call.
func (e *TradeEngine) ExecuteTrade(user *domain.User, market *domain.Market, outcome domain.Outcome, sharesToBuy float64) (*domain.Trade, error) {
	if sharesToBuy <= 0 {
		return nil, fmt.Errorf("%w: shares to buy must be positive, got %v", domain.ErrInvalidInput, sharesToBuy)
	}
	if outcome != domain.OutcomeYes && outcome != domain.OutcomeNo {
		return nil, fmt.Errorf("%w: unknown outcome %q", domain.ErrInvalidInput, outcome)
	}

	// Phase 1: compute every new value. Pure reads only.
	cost := market.CostToBuy(outcome, sharesToBuy)

	if err := e.validate(user, market, cost); err != nil {
		return nil, err
	}

	newQYes, newQNo := market.QYes, market.QNo
	if outcome == domain.OutcomeYes {
		newQYes += sharesToBuy
	} else {
		newQNo += sharesToBuy
	}

	newBalance := user.Balance.Sub(cost)

	// Read the position without creating it; a failed trade must not leave
	// an empty position behind.
	var curYes, curNo float64
	if pos := user.Position(market.ID); pos != nil {
		curYes, curNo = pos.YesShares, pos.NoShares
	}
	newYes, newNo := curYes, curNo
	if outcome == domain.OutcomeYes {
		newYes += sharesToBuy
	} else {
		newNo += sharesToBuy
	}

	// Phase 2: apply. Every write below is against values validated above
	// and cannot fail.
	if outcome == domain.OutcomeYes {
		if err := market.SetQYes(newQYes); err != nil {
			return nil, err
		}
	} else {
		if err := market.SetQNo(newQNo); err != nil {
			return nil, err
		}
	}

	if err := user.SetBalance(newBalance); err != nil {
		return nil, err
	}

	pos := user.GetOrCreatePosition(market.ID)
	if outcome == domain.OutcomeYes {
		if err := pos.SetYesShares(newYes); err != nil {
			return nil, err
		}
	} else {
		if err := pos.SetNoShares(newNo); err != nil {
			return nil, err
		}
	}

	// Phase 3: record. The caller persists market, user, and trade.
	return &domain.Trade{
		ID:           uuid.NewString(),
		UserID:       user.ID,
		MarketID:     market.ID,
		Outcome:      outcome,
		SharesBought: sharesToBuy,
		Cost:         cost,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// validate runs the phase-1 guards in order: pricing sanity, market
// lifecycle, then funds.
func (e *TradeEngine) validate(user *domain.User, market *domain.Market, cost decimal.Decimal) error {
	if cost.IsNegative() {
		return fmt.Errorf("%w: trade cost is negative (%s) for market %s", domain.ErrIllegalState, cost, market.ID)
	}
	if cost.IsZero() {
		// A purchase so small it rounds to zero money would mint free
		// shares; trades always carry a positive cost.
		return fmt.Errorf("%w: trade size prices at zero", domain.ErrAmountTooSmall)
	}
	if market.Status != domain.MarketStatusOpen {
		return fmt.Errorf("%w: market %s is not open for trading", domain.ErrIllegalState, market.ID)
	}
	if user.Balance.LessThan(cost) {
		return fmt.Errorf("%w: required %s, available %s", domain.ErrInsufficientBalance, cost, user.Balance)
	}
	return nil
}
