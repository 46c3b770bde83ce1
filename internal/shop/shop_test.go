package shop

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/manavault/internal/cart"
	"github.com/five82/manavault/internal/collection"
	"github.com/five82/manavault/internal/kvstore"
	"github.com/five82/manavault/internal/market"
	"github.com/five82/manavault/internal/market/markettest"
	"github.com/five82/manavault/internal/notify"
	"github.com/five82/manavault/internal/state"
)

var (
	bolt  = market.Card{ID: "1", Name: "Lightning Bolt", Color: "Red", Rarity: market.RarityCommon, Price: market.RequirePrice("59.90")}
	angel = market.Card{ID: "3", Name: "Serra Angel", Color: "White", Rarity: market.RarityRare, Price: market.RequirePrice("129.90")}

	buyer  = market.User{ID: "7", Name: "Buyer"}
	seller = market.User{ID: "9", Name: "Seller"}
)

type fixture struct {
	srv        *markettest.Server
	disk       kvstore.Store
	svc        *Service
	cart       *cart.Manager
	collection *collection.Manager
	notify     *notify.Center
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := markettest.NewServer()
	t.Cleanup(srv.Close)
	srv.SetCatalog(bolt, angel)
	srv.SetListings(
		market.Listing{ID: "l1", Card: angel, Seller: seller, Price: angel.Price},
		market.Listing{ID: "l2", Card: bolt, Seller: market.User{ID: "8"}, Price: bolt.Price},
	)

	f := &fixture{srv: srv, disk: kvstore.NewMemory()}
	api := srv.API()
	f.cart = cart.New(api, nil)
	f.collection = collection.New(api, f.disk, nil)
	f.notify = notify.New(api, nil)
	f.svc = f.service(api)
	return f
}

func (f *fixture) service(api API) *Service {
	return New(Deps{
		API:        api,
		Store:      &state.Store{},
		Cache:      f.disk,
		Cart:       f.cart,
		Collection: f.collection,
		Notify:     f.notify,
	})
}

func (f *fixture) signIn(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.cart.Load(ctx, buyer.ID))
	require.NoError(t, f.collection.Load(ctx, buyer.ID))
}

func ids[T any](items []T, id func(T) string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, id(item))
	}
	return out
}

func cardID(c market.Card) string       { return c.ID }
func listingID(l market.Listing) string { return l.ID }

func TestRefresh_PublishesCatalogAndListings(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.svc.Refresh(context.Background()))

	snap := f.svc.Store().Snapshot()
	assert.Equal(t, []string{"1", "3"}, ids(snap.Catalog, cardID))
	assert.Equal(t, []string{"l1", "l2"}, ids(snap.Listings, listingID))
	assert.Zero(t, snap.ConsecutiveFailures)
	assert.False(t, snap.LastUpdated.IsZero())
}

func TestRefresh_FailureKeepsLastCachedCatalog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Refresh(ctx))

	// A fresh service shares only the disk tier with the first one.
	f.srv.FailNext("/api/v1/cards/catalog", 1)
	svc := f.service(f.srv.API())
	err := svc.Refresh(ctx)
	require.Error(t, err)

	snap := svc.Store().Snapshot()
	assert.Equal(t, []string{"1", "3"}, ids(snap.Catalog, cardID))
	assert.Equal(t, []string{"l1", "l2"}, ids(snap.Listings, listingID))
	assert.Equal(t, 1, snap.ConsecutiveFailures)
	assert.Error(t, snap.LastError)
}

func TestRefresh_FailureWithoutCacheFallsBackToBuiltInCatalog(t *testing.T) {
	f := newFixture(t)
	f.srv.FailNext("/api/v1/", 2)

	require.Error(t, f.svc.Refresh(context.Background()))

	snap := f.svc.Store().Snapshot()
	assert.Len(t, snap.Catalog, len(DefaultCatalog()))
	assert.Empty(t, snap.Listings)
}

func TestSeed_UsesCacheWithoutNetwork(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Refresh(ctx))
	hits := f.srv.TotalHits()

	svc := f.service(f.srv.API())
	svc.Seed(ctx)

	snap := svc.Store().Snapshot()
	assert.Equal(t, []string{"1", "3"}, ids(snap.Catalog, cardID))
	assert.Equal(t, DefaultSets(), snap.Sets)
	assert.Equal(t, hits, f.srv.TotalHits())
}

func TestCheckout_EmptyIssuesNoRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Refresh(ctx))
	before := f.srv.TotalHits()

	_, err := f.svc.Checkout(ctx, buyer, nil)
	require.ErrorIs(t, err, ErrEmptyCheckout)

	_, err = f.svc.Checkout(ctx, market.User{}, []market.CartItem{{Card: angel, Quantity: 1}})
	require.ErrorIs(t, err, ErrNotAuthenticated)

	assert.Equal(t, before, f.srv.TotalHits())
	assert.Len(t, f.svc.Store().Snapshot().Listings, 2)
}

func TestCheckout_SettlesPurchase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signIn(t)
	require.NoError(t, f.svc.Refresh(ctx))
	require.NoError(t, f.cart.Add(ctx, angel, 2, market.SourceMarketplace))

	receipt, err := f.svc.Checkout(ctx, buyer, f.cart.Items())
	require.NoError(t, err)

	assert.Equal(t, 2, receipt.Items)
	assert.True(t, receipt.Total.Equal(decimal.RequireFromString("259.80")), "Total = %s", receipt.Total)
	assert.Equal(t, []string{seller.ID}, receipt.Sellers)

	assert.Equal(t, []string{"l2"}, ids(f.svc.Store().Snapshot().Listings, listingID))
	assert.Empty(t, f.cart.Items())
	assert.Empty(t, f.srv.Cart(buyer.ID))

	owned := f.collection.Cards()
	require.Len(t, owned, 1)
	assert.Equal(t, angel.ID, owned[0].OriginalID)
	assert.Equal(t, market.SourcePurchase, owned[0].Source)
	assert.Equal(t, 2, owned[0].Quantity)

	notes := f.notify.For(seller.ID)
	require.Len(t, notes, 1)
	assert.True(t, strings.Contains(notes[0].Message, "Serra Angel"), notes[0].Message)
	assert.Empty(t, f.notify.For(buyer.ID))

	cached, ok, err := kvstore.GetJSON[[]market.Listing](ctx, f.disk, kvstore.KeyListings)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"l2"}, ids(cached, listingID))
}

func TestCheckout_RejectedLeavesStateAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signIn(t)
	require.NoError(t, f.svc.Refresh(ctx))
	require.NoError(t, f.cart.Add(ctx, angel, 1, market.SourceMarketplace))
	f.srv.FailNext("/api/v1/marketplace/checkout", 1)

	_, err := f.svc.Checkout(ctx, buyer, f.cart.Items())
	require.Error(t, err)
	assert.True(t, market.IsRejected(err))

	assert.Len(t, f.svc.Store().Snapshot().Listings, 2)
	assert.Len(t, f.cart.Items(), 1)
	assert.Empty(t, f.collection.Cards())
	assert.Empty(t, f.notify.All())
}

func TestCatalogEdits_PersistAcrossRestart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Refresh(ctx))

	added, err := f.svc.AddCard(ctx, market.Card{Name: "Shivan Dragon", Rarity: market.RarityRare, Price: market.RequirePrice("30")})
	require.NoError(t, err)
	assert.NotEmpty(t, added.ID)
	assert.Equal(t, "Mint", added.Condition)

	added.Price = market.RequirePrice("45")
	require.NoError(t, f.svc.UpdateCard(ctx, added))
	require.NoError(t, f.svc.DeleteCard(ctx, bolt.ID))

	svc := f.service(f.srv.API())
	svc.Seed(ctx)
	catalog := svc.Store().Snapshot().Catalog
	assert.Equal(t, []string{added.ID, angel.ID}, ids(catalog, cardID))
	assert.True(t, catalog[0].Price.Equal(decimal.NewFromInt(45)))
}

func TestCatalogEdits_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Refresh(ctx))

	_, err := f.svc.AddCard(ctx, market.Card{Name: "  "})
	assert.ErrorIs(t, err, market.ErrCardNameRequired)
	_, err = f.svc.AddCard(ctx, market.Card{Name: "Mox", Rarity: "Mythic"})
	assert.ErrorIs(t, err, market.ErrUnknownRarity)

	assert.ErrorIs(t, f.svc.UpdateCard(ctx, market.Card{ID: "missing", Name: "x"}), ErrCardNotFound)
	assert.ErrorIs(t, f.svc.DeleteCard(ctx, "missing"), ErrCardNotFound)
	assert.Len(t, f.svc.Store().Snapshot().Catalog, 2)
}

func TestSets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.svc.Seed(ctx)

	added, err := f.svc.AddSet(ctx, "  Mirage ")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = f.svc.AddSet(ctx, "Mirage")
	require.NoError(t, err)
	assert.False(t, added)

	_, err = f.svc.AddSet(ctx, " ")
	assert.ErrorIs(t, err, ErrSetNameRequired)

	sets := f.svc.Store().Snapshot().Sets
	assert.Equal(t, "Mirage", sets[len(sets)-1])

	require.NoError(t, f.svc.DeleteSet(ctx, "Alpha"))
	assert.NotContains(t, f.svc.Store().Snapshot().Sets, "Alpha")

	cached, ok, err := kvstore.GetJSON[[]string](ctx, f.disk, kvstore.KeySets)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, f.svc.Store().Snapshot().Sets, cached)
}

func TestListings_AddAndRemove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Refresh(ctx))

	l, err := f.svc.AddListing(ctx, market.Listing{Card: bolt, Seller: buyer})
	require.NoError(t, err)
	assert.NotEmpty(t, l.ID)
	assert.True(t, l.Price.Equal(bolt.Price.Decimal))

	assert.Equal(t, []string{l.ID, "l1", "l2"}, ids(f.svc.Store().Snapshot().Listings, listingID))

	require.NoError(t, f.svc.RemoveListing(ctx, "l1"))
	assert.ErrorIs(t, f.svc.RemoveListing(ctx, "l1"), ErrListingNotFound)
	assert.Equal(t, []string{l.ID, "l2"}, ids(f.svc.Store().Snapshot().Listings, listingID))

	_, err = f.svc.AddListing(ctx, market.Listing{Card: bolt, Price: market.RequirePrice("-1")})
	assert.ErrorIs(t, err, market.ErrNegativePrice)
}

func TestRefresh_KeepsLocalEdits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Refresh(ctx))

	lotus, err := f.svc.AddCard(ctx, market.Card{Name: "Black Lotus", Rarity: market.RarityLegendary, Price: market.RequirePrice("900")})
	require.NoError(t, err)
	renamed := angel
	renamed.Name = "Serra Angel (foil)"
	require.NoError(t, f.svc.UpdateCard(ctx, renamed))
	require.NoError(t, f.svc.DeleteCard(ctx, bolt.ID))
	sale, err := f.svc.AddListing(ctx, market.Listing{Card: bolt, Seller: buyer})
	require.NoError(t, err)
	require.NoError(t, f.svc.RemoveListing(ctx, "l2"))

	require.NoError(t, f.svc.Refresh(ctx))

	snap := f.svc.Store().Snapshot()
	assert.Equal(t, []string{lotus.ID, angel.ID}, ids(snap.Catalog, cardID))
	assert.Equal(t, "Serra Angel (foil)", snap.Catalog[1].Name)
	assert.Equal(t, []string{sale.ID, "l1"}, ids(snap.Listings, listingID))

	// Edits survive a restart too.
	svc := f.service(f.srv.API())
	require.NoError(t, svc.Refresh(ctx))
	restored := svc.Store().Snapshot().Catalog
	assert.Equal(t, []string{lotus.ID, angel.ID}, ids(restored, cardID))
	assert.Equal(t, "Serra Angel (foil)", restored[1].Name)
	assert.Equal(t, []string{sale.ID, "l1"}, ids(svc.Store().Snapshot().Listings, listingID))
}

func TestRefresh_FailureStillAppliesLocalEdits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Refresh(ctx))
	sale, err := f.svc.AddListing(ctx, market.Listing{Card: angel, Seller: buyer})
	require.NoError(t, err)

	f.srv.FailNext("/api/v1/", 2)
	require.Error(t, f.svc.Refresh(ctx))

	assert.Equal(t, []string{sale.ID, "l1", "l2"}, ids(f.svc.Store().Snapshot().Listings, listingID))
}

func TestCheckout_DropsSoldLocalListings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Refresh(ctx))
	f.signIn(t)
	mine, err := f.svc.AddListing(ctx, market.Listing{Card: angel, Seller: seller})
	require.NoError(t, err)
	other := market.Card{ID: "5", Name: "Shivan Dragon", Rarity: market.RarityRare, Price: market.RequirePrice("30")}
	keep, err := f.svc.AddListing(ctx, market.Listing{Card: other, Seller: seller})
	require.NoError(t, err)
	require.NotEqual(t, mine.ID, keep.ID)

	_, err = f.svc.Checkout(ctx, buyer, []market.CartItem{{Card: angel, Quantity: 1, Source: market.SourceMarketplace}})
	require.NoError(t, err)

	listings := ids(f.svc.Store().Snapshot().Listings, listingID)
	assert.Contains(t, listings, keep.ID)
	assert.NotContains(t, listings, mine.ID)

	require.NoError(t, f.svc.Refresh(ctx))
	assert.NotContains(t, ids(f.svc.Store().Snapshot().Listings, listingID), mine.ID)
}
