package domain

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"predictd/internal/lmsr"
)

// Market is a binary prediction market priced by the LMSR. It owns the
// outstanding share pool and the lifecycle status; prices are always derived
// from the pool, never stored.
//
// Share counts are only ever mutated through SetQYes/SetQNo/ApplyTrade, and
// only by the trade engine. Once resolved a market is immutable.
type Market struct {
	ID              string       `json:"marketId"`
	Name            string       `json:"name"`
	Description     string       `json:"description,omitempty"`
	QYes            float64      `json:"qYes"`
	QNo             float64      `json:"qNo"`
	Liquidity       float64      `json:"liquidity"`
	Status          MarketStatus `json:"status"`
	ResolvedOutcome Outcome      `json:"resolvedOutcome,omitempty"`
}

// NewMarket creates an OPEN market with an empty share pool. Liquidity must
// be strictly positive and finite; zero selects the default.
func NewMarket(id, name, description string, liquidity float64) (*Market, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: market id must not be empty", ErrInvalidInput)
	}
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: market name must not be empty", ErrInvalidInput)
	}
	if liquidity == 0 {
		liquidity = lmsr.DefaultLiquidity
	}
	if liquidity <= 0 || math.IsNaN(liquidity) || math.IsInf(liquidity, 0) {
		return nil, fmt.Errorf("%w: liquidity must be positive and finite, got %v", ErrInvalidInput, liquidity)
	}
	return &Market{
		ID:          id,
		Name:        name,
		Description: description,
		Liquidity:   liquidity,
		Status:      MarketStatusOpen,
	}, nil
}

// YesPrice returns the current YES price derived from the share pool.
func (m *Market) YesPrice() float64 {
	return lmsr.PriceYes(m.QYes, m.QNo, m.Liquidity)
}

// NoPrice returns the current NO price derived from the share pool.
func (m *Market) NoPrice() float64 {
	return lmsr.PriceNo(m.QYes, m.QNo, m.Liquidity)
}

// CostToBuy returns the exact-decimal cost of buying shares of the given
// outcome at the current pool state. The kernel computes the cost as a float;
// converting it to the money type here, with banker's rounding at scale 8, is
// the single controlled rounding point between shares and money.
func (m *Market) CostToBuy(outcome Outcome, shares float64) decimal.Decimal {
	cost := lmsr.CostToBuy(m.QYes, m.QNo, m.Liquidity, shares, outcome == OutcomeYes)
	return decimal.NewFromFloat(cost).RoundBank(MoneyScale)
}

// SharesForAmount returns how many shares of the given outcome the amount
// buys at the current pool state.
func (m *Market) SharesForAmount(outcome Outcome, amount decimal.Decimal) float64 {
	return lmsr.SharesForAmount(m.QYes, m.QNo, m.Liquidity, amount.InexactFloat64(), outcome == OutcomeYes)
}

// SetQYes overwrites the YES share count. Only the trade engine calls this.
func (m *Market) SetQYes(q float64) error {
	if m.Status != MarketStatusOpen {
		return fmt.Errorf("%w: cannot modify shares of market %s with status %s", ErrIllegalState, m.ID, m.Status)
	}
	if q < 0 {
		return fmt.Errorf("%w: qYes must not be negative, got %v", ErrInvalidInput, q)
	}
	m.QYes = q
	return nil
}

// SetQNo overwrites the NO share count. Only the trade engine calls this.
func (m *Market) SetQNo(q float64) error {
	if m.Status != MarketStatusOpen {
		return fmt.Errorf("%w: cannot modify shares of market %s with status %s", ErrIllegalState, m.ID, m.Status)
	}
	if q < 0 {
		return fmt.Errorf("%w: qNo must not be negative, got %v", ErrInvalidInput, q)
	}
	m.QNo = q
	return nil
}

// ApplyTrade adds shares of the given outcome to the pool.
func (m *Market) ApplyTrade(outcome Outcome, shares float64) error {
	if shares <= 0 {
		return fmt.Errorf("%w: shares must be positive, got %v", ErrInvalidInput, shares)
	}
	if outcome == OutcomeYes {
		return m.SetQYes(m.QYes + shares)
	}
	return m.SetQNo(m.QNo + shares)
}

// Resolve transitions the market OPEN -> RESOLVED with the winning outcome.
// The transition happens exactly once; a resolved market never reopens.
func (m *Market) Resolve(outcome Outcome) error {
	if outcome != OutcomeYes && outcome != OutcomeNo {
		return fmt.Errorf("%w: unknown outcome %q", ErrInvalidInput, outcome)
	}
	if m.Status == MarketStatusResolved {
		return fmt.Errorf("%w: market %s already resolved", ErrIllegalState, m.ID)
	}
	if m.Status != MarketStatusOpen {
		return fmt.Errorf("%w: only OPEN markets can be resolved, market %s is %s", ErrIllegalState, m.ID, m.Status)
	}
	m.ResolvedOutcome = outcome
	m.Status = MarketStatusResolved
	return nil
}

// Validate enforces the structural invariants. It is called on every object
// admitted into the in-memory store, in particular after loading a snapshot.
func (m *Market) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("%w: market id must not be empty", ErrStructural)
	}
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("%w: market %s has no name", ErrStructural, m.ID)
	}
	if m.Liquidity <= 0 || math.IsNaN(m.Liquidity) || math.IsInf(m.Liquidity, 0) {
		return fmt.Errorf("%w: market %s has invalid liquidity %v", ErrStructural, m.ID, m.Liquidity)
	}
	if m.QYes < 0 || m.QNo < 0 {
		return fmt.Errorf("%w: market %s has negative share counts (qYes=%v, qNo=%v)", ErrStructural, m.ID, m.QYes, m.QNo)
	}
	switch m.Status {
	case MarketStatusOpen:
		if m.ResolvedOutcome != "" {
			return fmt.Errorf("%w: open market %s carries a resolved outcome", ErrStructural, m.ID)
		}
	case MarketStatusResolved:
		if m.ResolvedOutcome != OutcomeYes && m.ResolvedOutcome != OutcomeNo {
			return fmt.Errorf("%w: resolved market %s has no valid outcome", ErrStructural, m.ID)
		}
	default:
		return fmt.Errorf("%w: market %s has unknown status %q", ErrStructural, m.ID, m.Status)
	}
	return nil
}
