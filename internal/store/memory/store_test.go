package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"predictd/internal/domain"
)

func TestMarketStore(t *testing.T) {
	s := NewMarketStore()

	_, err := s.Get("missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	m, err := domain.NewMarket("m1", "Will the bridge reopen in June?", "", 100)
	require.NoError(t, err)
	require.NoError(t, s.Put(m))

	got, err := s.Get("m1")
	require.NoError(t, err)
	assert.Same(t, m, got, "store hands out the owned instance")
	assert.Equal(t, 1, s.Len())
}

func TestMarketStoreRejectsInvalid(t *testing.T) {
	s := NewMarketStore()

	m, err := domain.NewMarket("m1", "name", "", 100)
	require.NoError(t, err)
	m.Liquidity = -1

	assert.ErrorIs(t, s.Put(m), domain.ErrStructural)
	assert.Equal(t, 0, s.Len(), "malformed object fails fast at the boundary")
}

func TestMarketStoreAllSorted(t *testing.T) {
	s := NewMarketStore()
	for _, id := range []string{"c", "a", "b"} {
		m, err := domain.NewMarket(id, "market "+id, "", 100)
		require.NoError(t, err)
		require.NoError(t, s.Put(m))
	}

	all := s.All()
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, "b", all[1].ID)
	assert.Equal(t, "c", all[2].ID)
}

func TestUserStore(t *testing.T) {
	s := NewUserStore()

	_, err := s.Get("missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	u, err := domain.NewUser("alice")
	require.NoError(t, err)
	require.NoError(t, s.Put(u))

	got, err := s.Get("alice")
	require.NoError(t, err)
	assert.Same(t, u, got)

	// A user whose position is keyed under the wrong market id is refused.
	bad, err := domain.NewUser("bob")
	require.NoError(t, err)
	bad.Positions["m2"] = domain.NewPosition("m1")
	assert.ErrorIs(t, s.Put(bad), domain.ErrStructural)
	assert.Equal(t, 1, s.Len())
}
