package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Trade is an immutable record of a committed purchase. It captures what
// happened, not how; once written it is never mutated. Trades reference user
// and market by id only.
type Trade struct {
	ID           string          `json:"tradeId"`
	UserID       string          `json:"userId"`
	MarketID     string          `json:"marketId"`
	Outcome      Outcome         `json:"outcome"`
	SharesBought float64         `json:"sharesBought"`
	Cost         decimal.Decimal `json:"cost"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// Validate enforces the structural invariants on a loaded trade record.
func (t *Trade) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("%w: trade has no id", ErrStructural)
	}
	if strings.TrimSpace(t.UserID) == "" {
		return fmt.Errorf("%w: trade %s has no user id", ErrStructural, t.ID)
	}
	if strings.TrimSpace(t.MarketID) == "" {
		return fmt.Errorf("%w: trade %s has no market id", ErrStructural, t.ID)
	}
	if t.Outcome != OutcomeYes && t.Outcome != OutcomeNo {
		return fmt.Errorf("%w: trade %s has unknown outcome %q", ErrStructural, t.ID, t.Outcome)
	}
	if t.SharesBought < 0 {
		return fmt.Errorf("%w: trade %s has negative share count", ErrStructural, t.ID)
	}
	if !t.Cost.IsPositive() {
		return fmt.Errorf("%w: trade %s has non-positive cost %s", ErrStructural, t.ID, t.Cost)
	}
	if t.CreatedAt.IsZero() {
		return fmt.Errorf("%w: trade %s has no timestamp", ErrStructural, t.ID)
	}
	return nil
}
