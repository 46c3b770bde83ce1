package market

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	u, err := parseBaseURL("")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.String() != defaultBaseURL {
		t.Fatalf("default url = %q, want %q", u.String(), defaultBaseURL)
	}

	u, err = parseBaseURL("shop.local:9000/api?x=1#frag")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Scheme != "http" || u.Host != "shop.local:9000" {
		t.Fatalf("url = %q, want http://shop.local:9000", u.String())
	}
	if u.Path != "" || u.RawQuery != "" || u.Fragment != "" {
		t.Fatalf("url not normalized: %q", u.String())
	}

	if _, err := parseBaseURL("http://"); err == nil {
		t.Fatalf("parseBaseURL(http://) returned nil error, want missing host")
	}
}

func TestClient_EndpointsAndBodies(t *testing.T) {
	t.Parallel()

	type seen struct {
		method string
		path   string
		query  url.Values
		body   map[string]any
	}
	var calls []seen
	var userAgent string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		call := seen{method: r.Method, path: r.URL.Path, query: r.URL.Query()}
		if r.Body != nil {
			raw, _ := io.ReadAll(r.Body)
			if len(raw) > 0 {
				_ = json.Unmarshal(raw, &call.body)
			}
		}
		calls = append(calls, call)

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v1/cards/catalog":
			_, _ = io.WriteString(w, `[{"id":"1","name":"Lightning Bolt","price":59.9,"rarity":"Common","manaCost":1}]`)
		case "/api/v1/marketplace/listings":
			_, _ = io.WriteString(w, `[{"id":"l1","card":{"id":"3","name":"Serra Angel"},"seller":{"id":"s1"},"price":120}]`)
		case "/api/v1/marketplace/checkout":
			_, _ = io.WriteString(w, `{"remainingListings":[]}`)
		case "/api/v1/auth/login", "/api/v1/auth/register":
			_, _ = io.WriteString(w, `{"user":{"id":"7","username":"mara","email":"m@x.io"}}`)
		case "/api/v1/auth/change-password":
			_, _ = io.WriteString(w, `{"message":"password updated"}`)
		case "/api/v1/users/7":
			_, _ = io.WriteString(w, `{}`)
		case "/api/v1/cart/7", "/api/v1/cart/add", "/api/v1/cart/remove":
			_, _ = io.WriteString(w, `[{"card":{"id":"1"},"quantity":2,"source":"catalog"}]`)
		case "/api/v1/collection/7":
			_, _ = io.WriteString(w, `[{"id":"1-1","originalId":"1","source":"catalog","quantity":3,"isFavorite":true}]`)
		case "/api/v1/user/notifications":
			_, _ = io.WriteString(w, `[{"id":"n1","userId":"7","message":"hi","read":false}]`)
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	cards, err := c.FetchCatalog(ctx)
	if err != nil {
		t.Fatalf("FetchCatalog returned error: %v", err)
	}
	if len(cards) != 1 || !cards[0].Price.Equal(decimal.RequireFromString("59.9")) || cards[0].ManaCost != 1 {
		t.Fatalf("FetchCatalog = %#v, want one Lightning Bolt at 59.9", cards)
	}

	listings, err := c.FetchListings(ctx)
	if err != nil || len(listings) != 1 || listings[0].Seller.ID != "s1" {
		t.Fatalf("FetchListings = %#v err %v, want seller s1", listings, err)
	}

	remaining, err := c.Checkout(ctx, "7", []CartItem{{Card: Card{ID: "3"}, Quantity: 1, Source: SourceMarketplace}})
	if err != nil {
		t.Fatalf("Checkout returned error: %v", err)
	}
	if remaining == nil || len(remaining) != 0 {
		t.Fatalf("Checkout remaining = %#v, want empty non-nil", remaining)
	}

	user, err := c.Login(ctx, "mara", "pw")
	if err != nil || user.ID != "7" {
		t.Fatalf("Login = %#v err %v, want id 7", user, err)
	}
	if _, err := c.Register(ctx, RegisterRequest{Name: "Mara", Username: "mara", Email: "m@x.io", Password: "pw"}); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	msg, err := c.ChangePassword(ctx, "7", "pw", "pw2")
	if err != nil || msg != "password updated" {
		t.Fatalf("ChangePassword = %q err %v", msg, err)
	}
	if err := c.DeleteUser(ctx, "7", "7"); err != nil {
		t.Fatalf("DeleteUser returned error: %v", err)
	}

	items, err := c.FetchCart(ctx, "7")
	if err != nil || len(items) != 1 || items[0].Quantity != 2 {
		t.Fatalf("FetchCart = %#v err %v", items, err)
	}
	if _, err := c.AddToCart(ctx, "7", Card{ID: "1"}, -1, SourceCatalog); err != nil {
		t.Fatalf("AddToCart returned error: %v", err)
	}
	if _, err := c.RemoveFromCart(ctx, "7", "1", -10000); err != nil {
		t.Fatalf("RemoveFromCart returned error: %v", err)
	}

	owned, err := c.FetchCollection(ctx, "7")
	if err != nil || len(owned) != 1 || owned[0].OriginalID != "1" || !owned[0].IsFavorite {
		t.Fatalf("FetchCollection = %#v err %v", owned, err)
	}
	if err := c.AddOrUpdateCollection(ctx, "7", Card{ID: "1"}, SourceCatalog, 2); err != nil {
		t.Fatalf("AddOrUpdateCollection returned error: %v", err)
	}
	if err := c.RemoveCollectionQuantity(ctx, "7", "1-1", 1); err != nil {
		t.Fatalf("RemoveCollectionQuantity returned error: %v", err)
	}
	if err := c.UpdateCollectionCard(ctx, "7", owned[0]); err != nil {
		t.Fatalf("UpdateCollectionCard returned error: %v", err)
	}
	if err := c.ToggleCollectionFavorite(ctx, "7", "1-1"); err != nil {
		t.Fatalf("ToggleCollectionFavorite returned error: %v", err)
	}

	notes, err := c.FetchNotifications(ctx, "7")
	if err != nil || len(notes) != 1 || notes[0].UserID != "7" {
		t.Fatalf("FetchNotifications = %#v err %v", notes, err)
	}

	byPath := make(map[string]seen, len(calls))
	for _, call := range calls {
		byPath[call.method+" "+call.path] = call
	}

	if got := byPath["DELETE /api/v1/users/7"].query.Get("admin_id"); got != "7" {
		t.Fatalf("DeleteUser admin_id = %q, want 7", got)
	}
	if got := byPath["GET /api/v1/user/notifications"].query.Get("user_id"); got != "7" {
		t.Fatalf("FetchNotifications user_id = %q, want 7", got)
	}
	if got := byPath["POST /api/v1/cart/remove"].body["quantity"]; got != float64(-10000) {
		t.Fatalf("RemoveFromCart quantity = %v, want -10000", got)
	}
	if got := byPath["POST /api/v1/cart/add"].body["quantity"]; got != float64(-1) {
		t.Fatalf("AddToCart quantity = %v, want -1", got)
	}
	if got := byPath["POST /api/v1/collection/remove-quantity"].body["quantityToRemove"]; got != float64(1) {
		t.Fatalf("RemoveCollectionQuantity body = %v", byPath["POST /api/v1/collection/remove-quantity"].body)
	}
	if got := byPath["POST /api/v1/auth/login"].body["emailOrUsername"]; got != "mara" {
		t.Fatalf("Login body = %v", byPath["POST /api/v1/auth/login"].body)
	}
	checkout := byPath["POST /api/v1/marketplace/checkout"].body
	if checkout["userId"] != "7" {
		t.Fatalf("Checkout body = %v, want userId 7", checkout)
	}
	if purchased, ok := checkout["purchasedItems"].([]any); !ok || len(purchased) != 1 {
		t.Fatalf("Checkout purchasedItems = %v, want one item", checkout["purchasedItems"])
	}
	if update, ok := byPath["POST /api/v1/collection/update-card"].body["updatedCard"].(map[string]any); !ok || update["originalId"] != "1" {
		t.Fatalf("UpdateCollectionCard body = %v", byPath["POST /api/v1/collection/update-card"].body)
	}

	if !strings.HasPrefix(userAgent, "manavault/") {
		t.Fatalf("User-Agent = %q, want manavault/*", userAgent)
	}
}

func TestClient_PricesEncodeAsNumbers(t *testing.T) {
	raw, err := json.Marshal(Card{ID: "1", Price: RequirePrice("12.5")})
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	if !strings.Contains(string(raw), `"price":12.5`) {
		t.Fatalf("encoded card = %s, want unquoted price", raw)
	}

	var back Card
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if !back.Price.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("decoded price = %s, want 12.5", back.Price)
	}
	if err := json.Unmarshal([]byte(`{"price":"7.25"}`), &back); err != nil || !back.Price.Equal(decimal.RequireFromString("7.25")) {
		t.Errorf("quoted price = %s, %v", back.Price, err)
	}

	// Plain decimals keep the library's default encoding.
	plain, err := json.Marshal(decimal.RequireFromString("12.5"))
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	if string(plain) != `"12.5"` {
		t.Errorf("decimal encoded as %s, want quoted", plain)
	}
}

func TestClient_StatusErrorCarriesMessage(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/login":
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"message":"invalid credentials"}`)
		case "/api/v1/users/9":
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, `{"error":"not allowed"}`)
		default:
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	ctx := context.Background()

	_, err = c.Login(ctx, "x", "y")
	if !IsRejected(err) || StatusCode(err) != http.StatusUnauthorized {
		t.Fatalf("Login err = %v, want 401 rejection", err)
	}
	if RejectionMessage(err) != "invalid credentials" {
		t.Fatalf("RejectionMessage = %q, want invalid credentials", RejectionMessage(err))
	}
	if IsTransport(err) {
		t.Fatalf("rejection classified as transport error")
	}

	err = c.DeleteUser(ctx, "9", "7")
	if RejectionMessage(err) != "not allowed" || StatusCode(err) != http.StatusForbidden {
		t.Fatalf("DeleteUser err = %v, want 403 not allowed", err)
	}

	_, err = c.FetchCatalog(ctx)
	if StatusCode(err) != http.StatusInternalServerError || RejectionMessage(err) != "boom" {
		t.Fatalf("FetchCatalog err = %v, want 500 boom", err)
	}
}

func TestClient_DecodeError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/api/v1/marketplace/listings" {
			return
		}
		_, _ = io.WriteString(w, "{not json")
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	if _, err := c.FetchCatalog(context.Background()); !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("FetchCatalog err = %v, want ErrMalformedResponse", err)
	}
	if _, err := c.FetchListings(context.Background()); !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("FetchListings on empty body err = %v, want ErrMalformedResponse", err)
	}
}

func TestClient_TransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	c, err := NewClient(addr, WithTimeout(time.Second))
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	_, err = c.FetchCart(context.Background(), "7")
	if !IsTransport(err) {
		t.Fatalf("FetchCart err = %v, want transport error", err)
	}
	if IsRejected(err) || StatusCode(err) != 0 {
		t.Fatalf("transport error classified as rejection: %v", err)
	}
}

func TestClient_DeleteUserRequiresTarget(t *testing.T) {
	c, err := NewClient("127.0.0.1:1")
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	if err := c.DeleteUser(context.Background(), " ", "7"); err == nil {
		t.Fatalf("DeleteUser returned nil error, want error")
	}
}

func TestCard_Validate(t *testing.T) {
	tests := []struct {
		name string
		card Card
		want error
	}{
		{"ok", Card{Name: "Bolt", Rarity: RarityCommon, Price: RequirePrice("1")}, nil},
		{"blank name", Card{Name: "  "}, ErrCardNameRequired},
		{"negative price", Card{Name: "Bolt", Price: Price{Decimal: decimal.NewFromInt(-1)}}, ErrNegativePrice},
		{"bad rarity", Card{Name: "Bolt", Rarity: "Mythic"}, ErrUnknownRarity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.card.Validate()
			if tt.want == nil && err != nil {
				t.Fatalf("Validate() = %v, want nil", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCollectionCard_CountAndValue(t *testing.T) {
	c := CollectionCard{Card: Card{Price: RequirePrice("2.50")}}
	if c.Count() != 1 {
		t.Fatalf("Count() with missing quantity = %d, want 1", c.Count())
	}
	c.Quantity = 4
	if !c.LineValue().Equal(decimal.NewFromInt(10)) {
		t.Fatalf("LineValue() = %s, want 10", c.LineValue())
	}
	item := CartItem{Card: Card{Price: RequirePrice("0.10")}, Quantity: 3}
	if !item.Subtotal().Equal(decimal.RequireFromString("0.3")) {
		t.Fatalf("Subtotal() = %s, want 0.3", item.Subtotal())
	}
}

func TestParseTime(t *testing.T) {
	n := Notification{Date: "2024-05-01T10:00:00Z"}
	if n.ParsedDate().IsZero() {
		t.Fatalf("ParsedDate() is zero for RFC3339 input")
	}
	if !(Notification{Date: "yesterday"}).ParsedDate().IsZero() {
		t.Fatalf("ParsedDate() parsed garbage")
	}
}
