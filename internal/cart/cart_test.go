package cart

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/manavault/internal/market"
	"github.com/five82/manavault/internal/market/markettest"
)

var (
	bolt    = market.Card{ID: "1", Name: "Lightning Bolt", Price: market.RequirePrice("59.90")}
	counter = market.Card{ID: "4", Name: "Counterspell", Price: market.RequirePrice("85.00")}
)

func newCart(t *testing.T) (*Manager, *markettest.Server) {
	t.Helper()
	srv := markettest.NewServer()
	t.Cleanup(srv.Close)
	m := New(srv.API(), nil)
	require.NoError(t, m.Load(context.Background(), "7"))
	return m, srv
}

func TestAdd_AnonymousIssuesNoRequest(t *testing.T) {
	srv := markettest.NewServer()
	t.Cleanup(srv.Close)
	m := New(srv.API(), nil)

	err := m.Add(context.Background(), bolt, 1, market.SourceCatalog)
	require.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Empty(t, m.Items())
	assert.Zero(t, srv.TotalHits())
}

func TestAdd_AdoptsServerCart(t *testing.T) {
	m, srv := newCart(t)
	ctx := context.Background()

	require.NoError(t, m.Add(ctx, bolt, 2, market.SourceCatalog))
	require.NoError(t, m.Add(ctx, bolt, 1, ""))
	require.NoError(t, m.Add(ctx, counter, 1, market.SourceMarketplace))

	items := m.Items()
	require.Len(t, items, 2)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, market.SourceCatalog, items[0].Source)
	assert.Equal(t, 4, m.Count())
	assert.True(t, m.Total().Equal(decimal.RequireFromString("264.70")), "Total = %s", m.Total())
	assert.Len(t, srv.Cart("7"), 2)

	assert.ErrorIs(t, m.Add(ctx, bolt, 0, market.SourceCatalog), ErrInvalidQuantity)
}

func TestUpdateQuantity(t *testing.T) {
	m, srv := newCart(t)
	ctx := context.Background()
	require.NoError(t, m.Add(ctx, bolt, 2, market.SourceCatalog))

	require.NoError(t, m.UpdateQuantity(ctx, "1", 5))
	item, ok := m.Item("1")
	require.True(t, ok)
	assert.Equal(t, 5, item.Quantity)

	// Lowering goes through the add path with a negative delta.
	removes := srv.Hits("/api/v1/cart/remove")
	require.NoError(t, m.UpdateQuantity(ctx, "1", 3))
	item, _ = m.Item("1")
	assert.Equal(t, 3, item.Quantity)
	assert.Equal(t, removes, srv.Hits("/api/v1/cart/remove"))

	hits := srv.TotalHits()
	require.NoError(t, m.UpdateQuantity(ctx, "1", 3))
	assert.Equal(t, hits, srv.TotalHits(), "unchanged quantity should not issue a request")

	assert.ErrorIs(t, m.UpdateQuantity(ctx, "missing", 2), ErrNotFound)
}

func TestUpdateQuantity_NonPositiveRemovesLine(t *testing.T) {
	for _, q := range []int{0, -1, -50} {
		m, srv := newCart(t)
		ctx := context.Background()
		require.NoError(t, m.Add(ctx, bolt, 2, market.SourceCatalog))
		require.NoError(t, m.Add(ctx, counter, 1, market.SourceCatalog))

		require.NoError(t, m.UpdateQuantity(ctx, "1", q))
		_, ok := m.Item("1")
		assert.False(t, ok, "q=%d left the line in the cart", q)

		require.NoError(t, m.Load(ctx, "7"))
		_, ok = m.Item("1")
		assert.False(t, ok, "q=%d left the line on the server", q)
		assert.Len(t, srv.Cart("7"), 1)
	}
}

func TestRemove(t *testing.T) {
	m, srv := newCart(t)
	ctx := context.Background()
	require.NoError(t, m.Add(ctx, bolt, 3, market.SourceCatalog))

	require.NoError(t, m.Remove(ctx, "1"))
	assert.Empty(t, m.Items())
	assert.Equal(t, 1, srv.Hits("/api/v1/cart/remove"))
	assert.True(t, m.Total().IsZero())
}

func TestClear(t *testing.T) {
	m, srv := newCart(t)
	ctx := context.Background()
	require.NoError(t, m.Add(ctx, bolt, 1, market.SourceCatalog))
	require.NoError(t, m.Add(ctx, counter, 2, market.SourceCatalog))

	require.NoError(t, m.Clear(ctx))
	assert.Empty(t, m.Items())
	assert.Empty(t, srv.Cart("7"))
}

func TestClear_PartialFailureReflectsServer(t *testing.T) {
	m, srv := newCart(t)
	ctx := context.Background()
	require.NoError(t, m.Add(ctx, bolt, 1, market.SourceCatalog))
	require.NoError(t, m.Add(ctx, counter, 2, market.SourceCatalog))

	srv.FailNext("/api/v1/cart/remove", 1)
	err := m.Clear(ctx)
	require.Error(t, err)
	assert.True(t, market.IsRejected(err))

	// The first removal failed, the second succeeded; no rollback.
	items := m.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "1", items[0].Card.ID)
	stored := srv.Cart("7")
	require.Len(t, stored, 1)
	assert.Equal(t, stored[0].Quantity, items[0].Quantity)
}

func TestApply_FailureKeepsState(t *testing.T) {
	m, srv := newCart(t)
	ctx := context.Background()
	require.NoError(t, m.Add(ctx, bolt, 1, market.SourceCatalog))
	before := m.Snapshot()

	srv.FailNext("/api/v1/cart/add", 1)
	require.Error(t, m.Add(ctx, bolt, 1, market.SourceCatalog))
	after := m.Snapshot()
	assert.Equal(t, before.Version, after.Version)
	assert.Equal(t, 1, after.Items[0].Quantity)
}

func TestReset_EmptiesAndBlocksMutations(t *testing.T) {
	m, srv := newCart(t)
	ctx := context.Background()
	require.NoError(t, m.Add(ctx, bolt, 1, market.SourceCatalog))

	m.Reset()
	assert.Empty(t, m.Items())
	assert.Zero(t, m.Count())

	hits := srv.TotalHits()
	assert.ErrorIs(t, m.Add(ctx, bolt, 1, market.SourceCatalog), ErrNotAuthenticated)
	assert.ErrorIs(t, m.Clear(ctx), ErrNotAuthenticated)
	assert.Equal(t, hits, srv.TotalHits())
}

func TestLoad_FailureKeepsItems(t *testing.T) {
	m, srv := newCart(t)
	ctx := context.Background()
	require.NoError(t, m.Add(ctx, bolt, 2, market.SourceCatalog))

	srv.FailNext("/api/v1/cart/7", 1)
	require.Error(t, m.Load(ctx, "7"))
	assert.Len(t, m.Items(), 1)

	require.NoError(t, m.Load(ctx, ""))
	assert.Empty(t, m.Items())
	assert.Empty(t, m.UserID())
}
