package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUserDefaults(t *testing.T) {
	u, err := NewUser("alice")
	require.NoError(t, err)
	assert.True(t, u.Balance.Equal(DefaultStartingBalance))
	assert.Empty(t, u.Positions)

	_, err = NewUser("  ")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewUserWithBalance("bob", decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUserSetBalance(t *testing.T) {
	u, err := NewUser("alice")
	require.NoError(t, err)

	require.NoError(t, u.SetBalance(decimal.NewFromInt(42)))
	assert.True(t, u.Balance.Equal(decimal.NewFromInt(42)))

	assert.ErrorIs(t, u.SetBalance(decimal.NewFromInt(-1)), ErrInvalidInput)
	assert.True(t, u.Balance.Equal(decimal.NewFromInt(42)), "failed set must not change state")
}

func TestGetOrCreatePosition(t *testing.T) {
	u, err := NewUser("alice")
	require.NoError(t, err)

	assert.Nil(t, u.Position("m1"))

	p := u.GetOrCreatePosition("m1")
	require.NotNil(t, p)
	assert.Equal(t, "m1", p.MarketID)
	assert.Same(t, p, u.GetOrCreatePosition("m1"), "second call returns the same position")
	assert.Len(t, u.Positions, 1)
}

func TestPositionSetters(t *testing.T) {
	p := NewPosition("m1")

	require.NoError(t, p.SetYesShares(5))
	require.NoError(t, p.SetNoShares(3))
	assert.ErrorIs(t, p.SetYesShares(-1), ErrInvalidInput)
	assert.ErrorIs(t, p.SetNoShares(-1), ErrInvalidInput)
	assert.Equal(t, 5.0, p.YesShares)
	assert.Equal(t, 3.0, p.NoShares)
}

func TestPositionSettleOnce(t *testing.T) {
	p := NewPosition("m1")
	require.NoError(t, p.SetYesShares(5))

	p.ClearShares()
	require.NoError(t, p.MarkSettled())
	assert.True(t, p.Settled)
	assert.Zero(t, p.YesShares)
	assert.Zero(t, p.NoShares)

	assert.ErrorIs(t, p.MarkSettled(), ErrIllegalState)
}

func TestUserValidate(t *testing.T) {
	u, err := NewUser("alice")
	require.NoError(t, err)
	require.NoError(t, u.Validate())

	// Position keyed under the wrong market id.
	u.Positions["m2"] = NewPosition("m1")
	assert.ErrorIs(t, u.Validate(), ErrStructural)
	delete(u.Positions, "m2")

	// Settled position still holding shares.
	p := u.GetOrCreatePosition("m1")
	p.YesShares = 3
	p.Settled = true
	assert.ErrorIs(t, u.Validate(), ErrStructural)
}
