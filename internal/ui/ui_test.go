package ui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"github.com/five82/manavault/internal/cart"
	"github.com/five82/manavault/internal/collection"
	"github.com/five82/manavault/internal/kvstore"
	"github.com/five82/manavault/internal/market"
	"github.com/five82/manavault/internal/market/markettest"
	"github.com/five82/manavault/internal/notify"
	"github.com/five82/manavault/internal/session"
	"github.com/five82/manavault/internal/shop"
	"github.com/five82/manavault/internal/state"
	"github.com/five82/manavault/internal/view"
)

var (
	testBolt   = market.Card{ID: "1", Name: "Lightning Bolt", Rarity: market.RarityCommon, Color: "Red", Price: market.RequirePrice("59.90")}
	testAngel  = market.Card{ID: "3", Name: "Serra Angel", Rarity: market.RarityRare, Color: "White", Price: market.RequirePrice("129.90")}
	testAna    = market.User{ID: "7", Name: "Ana", Username: "ana", Email: "ana@example.com", Password: "secret"}
	testSeller = market.User{ID: "9", Name: "Seller", Username: "seller"}
)

type harness struct {
	srv   *markettest.Server
	cache kvstore.Store
	sess  *session.Manager
	cart  *cart.Manager
	nav   *view.Controller
	m     Model
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	srv := markettest.NewServer()
	t.Cleanup(srv.Close)
	srv.SetCatalog(testBolt, testAngel)
	srv.SetListings(market.Listing{ID: "l1", Card: testAngel, Seller: testSeller, Price: testAngel.Price})
	srv.AddUser(testAna)

	ctx := context.Background()
	api := srv.API()
	cache := kvstore.NewMemory()
	store := &state.Store{}
	sess := session.New(api, cache, nil)
	c := cart.New(api, nil)
	coll := collection.New(api, cache, nil)
	notes := notify.New(api, nil)
	nav := view.New(cache, nil)
	svc := shop.New(shop.Deps{API: api, Store: store, Cache: cache, Cart: c, Collection: coll, Notify: notes})

	sess.OnChange(func(ctx context.Context, u market.User, ok bool) {
		if !ok {
			c.Reset()
			coll.Reset()
			nav.SignedOut()
			return
		}
		_ = c.Load(ctx, u.ID)
		_ = coll.Load(ctx, u.ID)
	})
	if err := svc.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	h := &harness{srv: srv, cache: cache, sess: sess, cart: c, nav: nav}
	h.m = New(Options{
		Context:    ctx,
		Cache:      cache,
		Store:      store,
		Session:    sess,
		Cart:       c,
		Collection: coll,
		Notify:     notes,
		Shop:       svc,
		View:       nav,
		ThemeName:  "Nightfox",
	})
	h.send(tea.WindowSizeMsg{Width: 140, Height: 40})
	return h
}

func (h *harness) signIn(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	if _, err := h.sess.Login(ctx, "ana", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	h.nav.AuthSucceeded(ctx)
}

func (h *harness) send(msg tea.Msg) tea.Cmd {
	next, cmd := h.m.Update(msg)
	h.m = next.(Model)
	return cmd
}

func (h *harness) press(keys ...string) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		cmd = h.send(keyMsg(k))
	}
	return cmd
}

func (h *harness) typeText(s string) {
	for _, r := range s {
		h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

// run executes cmd once and feeds its message back into the model.
func (h *harness) run(t *testing.T, cmd tea.Cmd) tea.Cmd {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	msg := cmd()
	if msg == nil {
		return nil
	}
	return h.send(msg)
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "ctrl+n":
		return tea.KeyMsg{Type: tea.KeyCtrlN}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func TestLogin_NavigatesToCatalog(t *testing.T) {
	h := newHarness(t)
	h.srv.SetCart("7", market.CartItem{Card: testBolt, Quantity: 2, Source: market.SourceCatalog})

	h.typeText("ana")
	h.press("tab")
	h.typeText("secret")
	h.run(t, h.press("enter"))

	if got := h.nav.Current(); got != view.Catalog {
		t.Fatalf("view = %q, want catalog", got)
	}
	if _, ok := h.sess.Current(); !ok {
		t.Fatal("expected a signed-in session")
	}
	if got := h.cart.Count(); got != 2 {
		t.Errorf("cart count = %d, want 2", got)
	}
	if !strings.Contains(h.m.status.text, "Welcome, Ana") {
		t.Errorf("status = %q", h.m.status.text)
	}
}

func TestLogin_WrongPasswordShowsProblem(t *testing.T) {
	h := newHarness(t)

	h.typeText("ana")
	h.press("tab")
	h.typeText("nope")
	h.run(t, h.press("enter"))

	if got := h.nav.Current(); got != view.Auth {
		t.Fatalf("view = %q, want auth", got)
	}
	if got := h.m.auth.login.problem; got != "Invalid username or password." {
		t.Errorf("problem = %q", got)
	}
}

func TestLogin_MissingFieldsIssuesNoRequest(t *testing.T) {
	h := newHarness(t)
	before := h.srv.Hits("/api/v1/auth")

	if cmd := h.press("ctrl+s"); cmd != nil {
		t.Fatal("expected no command")
	}
	if h.m.auth.login.problem == "" {
		t.Error("expected a problem")
	}
	if h.srv.Hits("/api/v1/auth") != before {
		t.Error("unexpected request")
	}
}

func TestAuthSubScreens(t *testing.T) {
	h := newHarness(t)

	h.press("ctrl+n")
	if got := h.nav.State().AuthView; got != view.Register {
		t.Fatalf("auth view = %q, want register", got)
	}
	h.press("esc")
	if got := h.nav.State().AuthView; got != view.Login {
		t.Fatalf("auth view = %q, want login", got)
	}
}

func TestClearCart_RequiresConfirmation(t *testing.T) {
	h := newHarness(t)
	h.srv.SetCart("7", market.CartItem{Card: testBolt, Quantity: 2, Source: market.SourceCatalog})
	h.signIn(t)

	h.press("5", "D")
	if _, ok := h.m.modal.(confirmModal); !ok {
		t.Fatalf("modal = %T, want confirmModal", h.m.modal)
	}
	if h.nav.State().Pending == nil {
		t.Fatal("expected a pending confirmation")
	}

	h.press("n")
	if h.m.modal != nil || h.nav.State().Pending != nil {
		t.Fatal("cancel should close the prompt")
	}
	if got := h.cart.Count(); got != 2 {
		t.Fatalf("cart count = %d after cancel, want 2", got)
	}
	if h.srv.Hits("/api/v1/cart/remove") != 0 {
		t.Fatal("cancelled clear reached the server")
	}

	h.press("D")
	h.run(t, h.press("y"))
	if got := h.cart.Count(); got != 0 {
		t.Errorf("cart count = %d, want 0", got)
	}
	if h.m.status.text != "Cart cleared" {
		t.Errorf("status = %q", h.m.status.text)
	}
}

func TestCheckout_Success(t *testing.T) {
	h := newHarness(t)
	h.srv.SetCart("7", market.CartItem{Card: testAngel, Quantity: 1, Source: market.SourceMarketplace})
	h.signIn(t)

	h.press("6")
	h.run(t, h.press("enter"))

	if got := len(h.srv.Checkouts()); got != 1 {
		t.Fatalf("checkouts = %d, want 1", got)
	}
	if got := h.cart.Count(); got != 0 {
		t.Errorf("cart count = %d, want 0", got)
	}
	if got := h.nav.Current(); got != view.Catalog {
		t.Errorf("view = %q, want catalog", got)
	}
	if !strings.HasPrefix(h.m.status.text, "Order placed: 1 cards for $129.90") {
		t.Errorf("status = %q", h.m.status.text)
	}
}

func TestCheckout_FailureAlertsAndKeepsCart(t *testing.T) {
	h := newHarness(t)
	h.srv.SetCart("7", market.CartItem{Card: testBolt, Quantity: 1, Source: market.SourceCatalog})
	h.signIn(t)
	h.srv.FailNext("/api/v1/marketplace/checkout", 1)

	h.press("6")
	h.run(t, h.press("enter"))

	if _, ok := h.m.modal.(alertModal); !ok {
		t.Fatalf("modal = %T, want alertModal", h.m.modal)
	}
	if got := h.nav.Current(); got != view.Catalog {
		t.Errorf("view = %q, want catalog", got)
	}
	if got := h.cart.Count(); got != 1 {
		t.Errorf("cart count = %d, want 1", got)
	}

	h.press("enter")
	if h.m.modal != nil {
		t.Error("alert should close on enter")
	}
}

func TestCheckout_EmptyCartStays(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)

	h.press("6")
	h.run(t, h.press("enter"))

	if got := h.nav.Current(); got != view.Checkout {
		t.Errorf("view = %q, want checkout", got)
	}
	if !h.m.status.danger {
		t.Error("expected an error status")
	}
	if len(h.srv.Checkouts()) != 0 {
		t.Error("empty checkout reached the server")
	}
}

func TestCatalogAddToCart(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)

	h.run(t, h.press("1", "a"))

	if got := h.cart.Count(); got != 1 {
		t.Fatalf("cart count = %d, want 1", got)
	}
	if h.m.status.danger {
		t.Errorf("status = %q", h.m.status.text)
	}
}

func TestCatalogSearchAndEscape(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)

	h.press("1", "/")
	h.typeText("serra")
	h.press("enter")

	cards := h.m.visibleCatalog()
	if len(cards) != 1 || cards[0].ID != testAngel.ID {
		t.Fatalf("visible = %v", cards)
	}

	h.press("esc")
	if h.m.catalog.filter.Active() {
		t.Error("escape should clear the filter")
	}
	if got := h.nav.Current(); got != view.Catalog {
		t.Errorf("view = %q, want catalog", got)
	}
}

func TestCatalogAdminGate(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)

	h.press("1", "n")
	if h.m.modal != nil {
		t.Fatal("non-admin opened the card editor")
	}
	if !h.m.status.danger || h.m.status.text != errAdminOnly.Error() {
		t.Errorf("status = %+v", h.m.status)
	}
}

func TestCardDetailOpensAndCloses(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)

	h.press("1", "enter")
	if h.nav.State().SelectedCard == nil {
		t.Fatal("expected a selected card")
	}
	if !strings.Contains(h.m.View(), "Add to cart") {
		t.Error("detail should render its hints")
	}
	h.press("esc")
	if h.nav.State().SelectedCard != nil {
		t.Error("escape should close the detail")
	}
}

func TestCycleThemePersists(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)
	before := h.m.theme.Name

	h.run(t, h.press("T"))

	if h.m.theme.Name == before {
		t.Fatal("theme did not change")
	}
	saved, ok, err := h.cache.Get(context.Background(), kvstore.KeyTheme)
	if err != nil || !ok || saved != h.m.theme.Name {
		t.Errorf("saved theme = %q, %v, %v", saved, ok, err)
	}

	again := New(Options{Cache: h.cache, View: h.nav, ThemeName: before})
	if again.theme.Name != h.m.theme.Name {
		t.Errorf("restored theme = %q, want %q", again.theme.Name, h.m.theme.Name)
	}
}

func TestCommunityBrowsesSeller(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)

	h.press("4")
	cmd := h.press("enter")
	st := h.nav.State()
	if st.View != view.OtherCollection || st.ViewedUser == nil || st.ViewedUser.ID != testSeller.ID {
		t.Fatalf("state = %+v", st)
	}
	h.run(t, cmd)
	if h.m.other.loading {
		t.Error("collection fetch did not finish")
	}

	h.press("esc")
	if got := h.nav.Current(); got != view.Community {
		t.Errorf("view = %q, want community", got)
	}
}

func TestMenuNavigates(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)

	h.press("m")
	if !h.nav.State().MenuOpen {
		t.Fatal("menu should be open")
	}
	h.press("j", "enter")
	if got := h.nav.Current(); got != view.Collection {
		t.Errorf("view = %q, want collection", got)
	}
	if h.nav.State().MenuOpen {
		t.Error("menu should close after navigating")
	}
}

func TestLogoutReturnsToAuth(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)

	h.run(t, h.press("8", "L"))

	if _, ok := h.sess.Current(); ok {
		t.Fatal("still signed in")
	}
	if got := h.nav.Current(); got != view.Auth {
		t.Errorf("view = %q, want auth", got)
	}
}

func TestViewRendersEveryScreen(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)
	for _, k := range []string{"1", "2", "3", "4", "5", "6", "7", "8"} {
		h.press(k)
		out := h.m.View()
		if !strings.Contains(out, "manavault") {
			t.Errorf("view %q lacks the header", h.nav.Current())
		}
	}
}

func TestMembersAndListingsBy(t *testing.T) {
	other := market.User{ID: "8", Username: "other"}
	listings := []market.Listing{
		{ID: "a", Seller: testSeller},
		{ID: "b", Seller: other},
		{ID: "c", Seller: testSeller},
		{ID: "d"},
	}

	got := members(listings)
	if len(got) != 2 || got[0].user.ID != "9" || got[0].listings != 2 || got[1].user.ID != "8" {
		t.Fatalf("members = %+v", got)
	}
	if n := len(listingsBy(listings, "9")); n != 2 {
		t.Errorf("listingsBy = %d, want 2", n)
	}
}

func TestCycle(t *testing.T) {
	values := []string{"Blue", "Red"}
	tests := []struct {
		current string
		want    string
	}{
		{"", "Blue"},
		{"Blue", "Red"},
		{"Red", ""},
		{"Green", "Blue"},
	}
	for _, tt := range tests {
		if got := cycle(values, tt.current); got != tt.want {
			t.Errorf("cycle(%q) = %q, want %q", tt.current, got, tt.want)
		}
	}
	if got := cycle(nil, "x"); got != "" {
		t.Errorf("cycle(nil) = %q", got)
	}
}

func TestCardFromForm(t *testing.T) {
	base := market.Card{ID: "1", Condition: "Mint"}
	card, err := cardFromForm(base, []string{"Shock", "Common", "Red", "Instant", "Alpha", "$1.50", "1", "Deal 2.", ""})
	if err != nil {
		t.Fatalf("cardFromForm: %v", err)
	}
	if card.ID != "1" || card.Condition != "Mint" || card.Name != "Shock" || card.ManaCost != 1 {
		t.Errorf("card = %+v", card)
	}
	if !card.Price.Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("price = %s", card.Price)
	}

	if _, err := cardFromForm(base, []string{"Shock", "", "", "", "", "abc", "", "", ""}); err == nil {
		t.Error("expected a price error")
	}
	if _, err := cardFromForm(base, []string{"Shock", "", "", "", "", "", "-1", "", ""}); err == nil {
		t.Error("expected a mana error")
	}
}
