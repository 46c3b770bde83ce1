// Package markettest provides an in-memory marketplace backend served over
// httptest for exercising the client and the state machines built on it.
//
// The fake implements the server-side rules the client relies on: collection
// merges by (originalId, source), cart lines clamp at zero and disappear,
// checkout removes the purchased listings and answers with what remains.
package markettest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/five82/manavault/internal/market"
)

// Server is a fake marketplace backend.
type Server struct {
	*httptest.Server

	mu            sync.Mutex
	seq           int
	catalog       []market.Card
	listings      []market.Listing
	users         map[string]market.User
	carts         map[string][]market.CartItem
	collections   map[string][]market.CollectionCard
	notifications map[string][]market.Notification
	failures      map[string]int
	hits          map[string]int
	checkouts     [][]market.CartItem
}

// NewServer starts a fake backend. Close it when done.
func NewServer() *Server {
	s := &Server{
		users:         make(map[string]market.User),
		carts:         make(map[string][]market.CartItem),
		collections:   make(map[string][]market.CollectionCard),
		notifications: make(map[string][]market.Notification),
		failures:      make(map[string]int),
		hits:          make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.route))
	return s
}

// API returns a market.Client pointed at the fake.
func (s *Server) API() *market.Client {
	c, err := market.NewClient(s.URL)
	if err != nil {
		panic(err)
	}
	return c
}

// SetCatalog replaces the catalog.
func (s *Server) SetCatalog(cards ...market.Card) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog = append([]market.Card(nil), cards...)
}

// SetListings replaces the open listings.
func (s *Server) SetListings(listings ...market.Listing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings = append([]market.Listing(nil), listings...)
}

// Listings returns the open listings.
func (s *Server) Listings() []market.Listing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]market.Listing(nil), s.listings...)
}

// AddUser registers an account directly.
func (s *Server) AddUser(u market.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// User returns the stored account for id.
func (s *Server) User(id string) (market.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	return u, ok
}

// Cart returns the server-side cart of userID.
func (s *Server) Cart(userID string) []market.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]market.CartItem(nil), s.carts[userID]...)
}

// SetCart replaces the server-side cart of userID.
func (s *Server) SetCart(userID string, items ...market.CartItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[userID] = append([]market.CartItem(nil), items...)
}

// Collection returns the server-side collection of userID.
func (s *Server) Collection(userID string) []market.CollectionCard {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]market.CollectionCard(nil), s.collections[userID]...)
}

// SetCollection replaces the stored collection of userID.
func (s *Server) SetCollection(userID string, cards ...market.CollectionCard) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[userID] = append([]market.CollectionCard(nil), cards...)
}

// SetNotifications replaces the persisted notifications of userID.
func (s *Server) SetNotifications(userID string, notes ...market.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications[userID] = append([]market.Notification(nil), notes...)
}

// Checkouts returns the purchased item lists of every accepted checkout.
func (s *Server) Checkouts() [][]market.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]market.CartItem(nil), s.checkouts...)
}

// FailNext makes the next n requests whose path starts with prefix answer
// with a 500.
func (s *Server) FailNext(prefix string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[prefix] = n
}

// Hits returns how many requests reached paths starting with prefix.
func (s *Server) Hits(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for path, n := range s.hits {
		if strings.HasPrefix(path, prefix) {
			total += n
		}
	}
	return total
}

// TotalHits returns the number of requests received.
func (s *Server) TotalHits() int {
	return s.Hits("/")
}

func (s *Server) route(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := r.URL.Path
	s.hits[path]++
	for prefix, n := range s.failures {
		if n > 0 && strings.HasPrefix(path, prefix) {
			s.failures[prefix] = n - 1
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "injected failure"})
			return
		}
	}

	switch {
	case r.Method == http.MethodGet && path == "/api/v1/cards/catalog":
		writeJSON(w, http.StatusOK, nonNil(s.catalog))
	case r.Method == http.MethodGet && path == "/api/v1/marketplace/listings":
		writeJSON(w, http.StatusOK, nonNil(s.listings))
	case r.Method == http.MethodPost && path == "/api/v1/marketplace/checkout":
		s.checkout(w, r)
	case r.Method == http.MethodPost && path == "/api/v1/auth/login":
		s.login(w, r)
	case r.Method == http.MethodPost && path == "/api/v1/auth/register":
		s.register(w, r)
	case r.Method == http.MethodPost && path == "/api/v1/auth/change-password":
		s.changePassword(w, r)
	case r.Method == http.MethodDelete && strings.HasPrefix(path, "/api/v1/users/"):
		s.deleteUser(w, r, strings.TrimPrefix(path, "/api/v1/users/"))
	case r.Method == http.MethodGet && strings.HasPrefix(path, "/api/v1/cart/"):
		writeJSON(w, http.StatusOK, nonNil(s.carts[strings.TrimPrefix(path, "/api/v1/cart/")]))
	case r.Method == http.MethodPost && path == "/api/v1/cart/add":
		s.cartAdd(w, r)
	case r.Method == http.MethodPost && path == "/api/v1/cart/remove":
		s.cartRemove(w, r)
	case r.Method == http.MethodGet && strings.HasPrefix(path, "/api/v1/collection/"):
		writeJSON(w, http.StatusOK, nonNil(s.collections[strings.TrimPrefix(path, "/api/v1/collection/")]))
	case r.Method == http.MethodPost && path == "/api/v1/collection/add-or-update":
		s.collectionAdd(w, r)
	case r.Method == http.MethodPost && path == "/api/v1/collection/remove-quantity":
		s.collectionRemove(w, r)
	case r.Method == http.MethodPost && path == "/api/v1/collection/update-card":
		s.collectionUpdate(w, r)
	case r.Method == http.MethodPost && path == "/api/v1/collection/toggle-favorite":
		s.collectionToggle(w, r)
	case r.Method == http.MethodGet && path == "/api/v1/user/notifications":
		writeJSON(w, http.StatusOK, nonNil(s.notifications[r.URL.Query().Get("user_id")]))
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	}
}

func (s *Server) checkout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID         string            `json:"userId"`
		PurchasedItems []market.CartItem `json:"purchasedItems"`
	}
	if !decode(w, r, &req) {
		return
	}
	s.checkouts = append(s.checkouts, req.PurchasedItems)
	for _, item := range req.PurchasedItems {
		remaining := s.listings[:0]
		for _, l := range s.listings {
			if l.Card.ID != item.Card.ID {
				remaining = append(remaining, l)
			}
		}
		s.listings = remaining
		s.mergeCollection(req.UserID, item.Card, market.SourcePurchase, item.Quantity)
	}
	writeJSON(w, http.StatusOK, map[string]any{"remainingListings": nonNil(s.listings)})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EmailOrUsername string `json:"emailOrUsername"`
		Password        string `json:"password"`
	}
	if !decode(w, r, &req) {
		return
	}
	for _, u := range s.users {
		if (u.Email == req.EmailOrUsername || u.Username == req.EmailOrUsername) && u.Password == req.Password {
			writeJSON(w, http.StatusOK, map[string]any{"user": u})
			return
		}
	}
	writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid credentials"})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req market.RegisterRequest
	if !decode(w, r, &req) {
		return
	}
	for _, u := range s.users {
		if u.Username == req.Username || u.Email == req.Email {
			writeJSON(w, http.StatusConflict, map[string]string{"message": "user already exists"})
			return
		}
	}
	s.seq++
	u := market.User{
		ID:       fmt.Sprintf("u%d", s.seq),
		Name:     req.Name,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		IsOnline: true,
	}
	s.users[u.ID] = u
	writeJSON(w, http.StatusCreated, map[string]any{"user": u})
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID          string `json:"userId"`
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if !decode(w, r, &req) {
		return
	}
	u, ok := s.users[req.UserID]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "user not found"})
		return
	}
	if u.Password != req.CurrentPassword {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "current password is incorrect"})
		return
	}
	u.Password = req.NewPassword
	s.users[u.ID] = u
	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request, target string) {
	admin := r.URL.Query().Get("admin_id")
	if admin != target && admin != "1" {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not allowed"})
		return
	}
	if _, ok := s.users[target]; !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
		return
	}
	delete(s.users, target)
	writeJSON(w, http.StatusOK, map[string]string{})
}

func (s *Server) cartAdd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID   string            `json:"userId"`
		Card     market.Card       `json:"card"`
		Quantity int               `json:"quantity"`
		Source   market.CardSource `json:"source"`
	}
	if !decode(w, r, &req) {
		return
	}
	s.adjustCart(req.UserID, req.Card, req.Quantity, req.Source)
	writeJSON(w, http.StatusOK, nonNil(s.carts[req.UserID]))
}

func (s *Server) cartRemove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID   string `json:"userId"`
		CardID   string `json:"cardId"`
		Quantity int    `json:"quantity"`
	}
	if !decode(w, r, &req) {
		return
	}
	s.adjustCart(req.UserID, market.Card{ID: req.CardID}, req.Quantity, "")
	writeJSON(w, http.StatusOK, nonNil(s.carts[req.UserID]))
}

func (s *Server) adjustCart(userID string, card market.Card, delta int, source market.CardSource) {
	items := s.carts[userID]
	for i := range items {
		if items[i].Card.ID != card.ID {
			continue
		}
		items[i].Quantity += delta
		if items[i].Quantity <= 0 {
			items = append(items[:i], items[i+1:]...)
		}
		s.carts[userID] = items
		return
	}
	if delta > 0 {
		if source == "" {
			source = market.SourceCatalog
		}
		s.carts[userID] = append(items, market.CartItem{Card: card, Quantity: delta, Source: source})
	}
}

func (s *Server) collectionAdd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID   string            `json:"userId"`
		Card     market.Card       `json:"card"`
		Source   market.CardSource `json:"source"`
		Quantity int               `json:"quantity"`
	}
	if !decode(w, r, &req) {
		return
	}
	s.mergeCollection(req.UserID, req.Card, req.Source, req.Quantity)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) mergeCollection(userID string, card market.Card, source market.CardSource, qty int) {
	if qty <= 0 {
		qty = 1
	}
	cards := s.collections[userID]
	for i := range cards {
		if cards[i].OriginalID == card.ID && cards[i].Source == source {
			cards[i].Quantity += qty
			return
		}
	}
	s.seq++
	owned := market.CollectionCard{
		Card:       card,
		OriginalID: card.ID,
		Source:     source,
		Quantity:   qty,
		AddedAt:    "2024-05-01T10:00:00Z",
	}
	owned.ID = fmt.Sprintf("%s-%d", card.ID, s.seq)
	s.collections[userID] = append(cards, owned)
}

func (s *Server) collectionRemove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID           string `json:"userId"`
		CardID           string `json:"cardId"`
		QuantityToRemove int    `json:"quantityToRemove"`
	}
	if !decode(w, r, &req) {
		return
	}
	cards := s.collections[req.UserID]
	for i := range cards {
		if cards[i].ID != req.CardID {
			continue
		}
		cards[i].Quantity -= req.QuantityToRemove
		if cards[i].Quantity <= 0 {
			cards = append(cards[:i], cards[i+1:]...)
		}
		s.collections[req.UserID] = cards
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "card not found"})
}

func (s *Server) collectionUpdate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID      string                `json:"userId"`
		UpdatedCard market.CollectionCard `json:"updatedCard"`
	}
	if !decode(w, r, &req) {
		return
	}
	cards := s.collections[req.UserID]
	for i := range cards {
		if cards[i].ID == req.UpdatedCard.ID {
			cards[i] = req.UpdatedCard
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "card not found"})
}

func (s *Server) collectionToggle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
		CardID string `json:"cardId"`
	}
	if !decode(w, r, &req) {
		return
	}
	cards := s.collections[req.UserID]
	for i := range cards {
		if cards[i].ID == req.CardID {
			cards[i].IsFavorite = !cards[i].IsFavorite
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "card not found"})
}

func decode(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
