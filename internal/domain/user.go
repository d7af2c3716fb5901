package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyScale is the fixed decimal scale for balances and trade costs.
const MoneyScale = 8

// DefaultStartingBalance is the balance granted to every new user.
var DefaultStartingBalance = decimal.RequireFromString("1000.00")

// User holds a balance in the virtual currency and one position per traded
// market. Positions reference markets by id only; the user never holds a
// market object.
type User struct {
	ID        string               `json:"userId"`
	Balance   decimal.Decimal      `json:"balance"`
	Positions map[string]*Position `json:"positions"`
}

// NewUser creates a user with the default starting balance.
func NewUser(id string) (*User, error) {
	return NewUserWithBalance(id, DefaultStartingBalance)
}

// NewUserWithBalance creates a user with an explicit starting balance.
func NewUserWithBalance(id string, balance decimal.Decimal) (*User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: user id must not be empty", ErrInvalidInput)
	}
	if balance.IsNegative() {
		return nil, fmt.Errorf("%w: balance must not be negative, got %s", ErrInvalidInput, balance)
	}
	return &User{
		ID:        id,
		Balance:   balance,
		Positions: make(map[string]*Position),
	}, nil
}

// SetBalance overwrites the balance, refusing negative values.
func (u *User) SetBalance(balance decimal.Decimal) error {
	if balance.IsNegative() {
		return fmt.Errorf("%w: balance must not be negative, got %s", ErrInvalidInput, balance)
	}
	u.Balance = balance
	return nil
}

// Position returns the user's position in the given market, or nil.
func (u *User) Position(marketID string) *Position {
	return u.Positions[marketID]
}

// GetOrCreatePosition returns the user's position in the given market,
// inserting an empty one first if none exists.
func (u *User) GetOrCreatePosition(marketID string) *Position {
	if u.Positions == nil {
		u.Positions = make(map[string]*Position)
	}
	pos, ok := u.Positions[marketID]
	if !ok {
		pos = NewPosition(marketID)
		u.Positions[marketID] = pos
	}
	return pos
}

// Validate enforces the structural invariants on a loaded user.
func (u *User) Validate() error {
	if strings.TrimSpace(u.ID) == "" {
		return fmt.Errorf("%w: user id must not be empty", ErrStructural)
	}
	if u.Balance.IsNegative() {
		return fmt.Errorf("%w: user %s has negative balance %s", ErrStructural, u.ID, u.Balance)
	}
	for marketID, pos := range u.Positions {
		if pos == nil {
			return fmt.Errorf("%w: user %s has nil position for market %s", ErrStructural, u.ID, marketID)
		}
		if pos.MarketID != marketID {
			return fmt.Errorf("%w: user %s position keyed %s but references market %s", ErrStructural, u.ID, marketID, pos.MarketID)
		}
		if err := pos.Validate(); err != nil {
			return fmt.Errorf("user %s: %w", u.ID, err)
		}
	}
	return nil
}
