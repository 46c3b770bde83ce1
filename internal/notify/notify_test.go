package notify

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/manavault/internal/market"
	"github.com/five82/manavault/internal/market/markettest"
)

func newCenter(t *testing.T) (*Center, *markettest.Server) {
	t.Helper()
	srv := markettest.NewServer()
	t.Cleanup(srv.Close)
	srv.SetNotifications("7",
		market.Notification{ID: "n1", UserID: "7", Message: "ticket answered", Date: "2024-05-01T10:00:00Z"},
		market.Notification{ID: "n2", UserID: "7", Message: "welcome", Read: true},
	)
	return New(srv.API(), nil), srv
}

func TestFetch_ReplacesLocalState(t *testing.T) {
	c, _ := newCenter(t)
	ctx := context.Background()

	c.Add("7", "ephemeral")
	require.NoError(t, c.Fetch(ctx, "7"))

	all := c.All()
	require.Len(t, all, 2)
	assert.Equal(t, "n1", all[0].ID)
	assert.False(t, all[0].Ephemeral)
	assert.Equal(t, 1, c.UnreadCount())
}

func TestFetch_FailureEmpties(t *testing.T) {
	c, srv := newCenter(t)
	ctx := context.Background()
	require.NoError(t, c.Fetch(ctx, "7"))

	srv.FailNext("/api/v1/user/notifications", 1)
	require.Error(t, c.Fetch(ctx, "7"))
	assert.Empty(t, c.All())

	require.NoError(t, c.Fetch(ctx, "7"))
	hits := srv.TotalHits()
	require.NoError(t, c.Fetch(ctx, ""))
	assert.Empty(t, c.All())
	assert.Equal(t, hits, srv.TotalHits())
}

func TestAdd_PrependsEphemeral(t *testing.T) {
	c, _ := newCenter(t)
	fixed := time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC)
	c.now = func() time.Time { return fixed }
	require.NoError(t, c.Fetch(context.Background(), "7"))

	n := c.Add("s1", "Your card Serra Angel has been sold")
	_, err := uuid.Parse(n.ID)
	require.NoError(t, err)
	assert.True(t, n.Ephemeral)
	assert.False(t, n.Read)
	assert.True(t, fixed.Equal(n.ParsedDate()))

	all := c.All()
	require.Len(t, all, 3)
	assert.Equal(t, n.ID, all[0].ID)
	assert.Equal(t, 2, c.UnreadCount())

	forSeller := c.For("s1")
	require.Len(t, forSeller, 1)
	assert.Equal(t, "Your card Serra Angel has been sold", forSeller[0].Message)
	assert.Len(t, c.For("7"), 2)
}

func TestMarkRead(t *testing.T) {
	c, srv := newCenter(t)
	require.NoError(t, c.Fetch(context.Background(), "7"))
	before := c.All()
	hits := srv.TotalHits()

	assert.True(t, c.MarkRead("n1"))
	assert.False(t, c.MarkRead("missing"))
	assert.Zero(t, c.UnreadCount())
	assert.Equal(t, hits, srv.TotalHits())

	// Earlier copies are unaffected.
	assert.False(t, before[0].Read)

	c.Add("7", "again")
	c.MarkAllRead()
	assert.Zero(t, c.UnreadCount())

	c.Reset()
	assert.Empty(t, c.All())
}
