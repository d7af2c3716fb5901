package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"predictd/internal/domain"
)

// SettlementEngine pays out resolved markets. Each winning share pays exactly
// one unit of currency, so total payouts are bounded by the collected costs
// plus the b*ln(2) subsidy.
type SettlementEngine struct{}

// NewSettlementEngine creates a SettlementEngine.
func NewSettlementEngine() *SettlementEngine {
	return &SettlementEngine{}
}

// SettleMarket settles every user holding a position in the resolved market.
// Users without a position, and positions already settled, are skipped, so
// running the sweep twice changes nothing.
func (e *SettlementEngine) SettleMarket(market *domain.Market, users []*domain.User) error {
	if err := e.validateResolved(market); err != nil {
		return err
	}

	for _, user := range users {
		pos := user.Position(market.ID)
		if pos == nil || pos.Settled {
			continue
		}
		if err := e.SettleUser(user, market); err != nil {
			return err
		}
	}
	return nil
}

// SettleUser settles a single user's position in the resolved market. Unlike
// the sweep it is strict: a missing position or a second settlement is an
// error.
func (e *SettlementEngine) SettleUser(user *domain.User, market *domain.Market) error {
	if err := e.validateResolved(market); err != nil {
		return err
	}

	pos := user.Position(market.ID)
	if pos == nil {
		return fmt.Errorf("%w: user %s has no position in market %s", domain.ErrInvalidInput, user.ID, market.ID)
	}
	if pos.Settled {
		return fmt.Errorf("%w: position of user %s in market %s already settled", domain.ErrIllegalState, user.ID, market.ID)
	}

	winShares := pos.YesShares
	if market.ResolvedOutcome == domain.OutcomeNo {
		winShares = pos.NoShares
	}

	payout := decimal.NewFromFloat(winShares).RoundBank(domain.MoneyScale)
	newBalance := user.Balance.Add(payout)

	// All guards passed; apply balance, clear, and latch the settled flag.
	if err := user.SetBalance(newBalance); err != nil {
		return err
	}
	pos.ClearShares()
	return pos.MarkSettled()
}

func (e *SettlementEngine) validateResolved(market *domain.Market) error {
	if market == nil {
		return fmt.Errorf("%w: market must not be nil", domain.ErrInvalidInput)
	}
	if market.Status != domain.MarketStatusResolved {
		return fmt.Errorf("%w: market %s must be resolved before settlement, status is %s", domain.ErrIllegalState, market.ID, market.Status)
	}
	if market.ResolvedOutcome != domain.OutcomeYes && market.ResolvedOutcome != domain.OutcomeNo {
		return fmt.Errorf("%w: market %s is resolved without an outcome", domain.ErrIllegalState, market.ID)
	}
	return nil
}
