// Package cart mirrors the signed-in user's server-side cart.
//
// Every change is an Adjustment posted to the server; the cart the server
// answers with replaces the local one wholesale.
package cart

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/five82/manavault/internal/logging"
	"github.com/five82/manavault/internal/market"
)

// RemoveAllDelta is posted to drop a line entirely; the server clamps the
// quantity at zero and deletes it.
const RemoveAllDelta = -10000

var (
	ErrNotAuthenticated = errors.New("sign in to use the cart")
	ErrInvalidQuantity  = errors.New("quantity must be positive")
	ErrNotFound         = errors.New("card not in cart")
)

// Adjustment is an intent to change one cart line by Delta.
type Adjustment struct {
	CardID string
	Card   market.Card
	Source market.CardSource
	Delta  int
}

func (a Adjustment) clearsLine() bool {
	return a.Delta <= RemoveAllDelta
}

// Snapshot is an immutable view of the cart.
type Snapshot struct {
	UserID  string
	Items   []market.CartItem
	Version uint64
}

// Manager owns the cart state.
type Manager struct {
	api    market.CartAPI
	logger *zap.Logger

	mu   sync.RWMutex
	snap Snapshot
}

// New builds an empty cart.
func New(api market.CartAPI, logger *zap.Logger) *Manager {
	return &Manager{api: api, logger: logging.OrNop(logger)}
}

// Load fetches the cart of userID. An empty userID empties the cart. On
// failure the previous items are kept.
func (m *Manager) Load(ctx context.Context, userID string) error {
	if userID == "" {
		m.Reset()
		return nil
	}
	m.mu.Lock()
	if m.snap.UserID != userID {
		m.snap = Snapshot{UserID: userID, Version: m.snap.Version + 1}
	}
	m.mu.Unlock()

	items, err := m.api.FetchCart(ctx, userID)
	if err != nil {
		m.logger.Warn("cart load failed", zap.String("user", userID), zap.Error(err))
		return fmt.Errorf("load cart: %w", err)
	}
	m.adopt(userID, items)
	return nil
}

// Apply posts adj and adopts the server's cart. A line-clearing delta goes
// through the remove endpoint; everything else, negative or not, through add.
func (m *Manager) Apply(ctx context.Context, adj Adjustment) error {
	userID := m.UserID()
	if userID == "" {
		return ErrNotAuthenticated
	}
	if adj.Delta == 0 {
		return nil
	}
	if adj.CardID == "" {
		adj.CardID = adj.Card.ID
	}

	var (
		items []market.CartItem
		err   error
	)
	if adj.clearsLine() {
		items, err = m.api.RemoveFromCart(ctx, userID, adj.CardID, adj.Delta)
	} else {
		items, err = m.api.AddToCart(ctx, userID, adj.Card, adj.Delta, adj.Source)
	}
	if err != nil {
		return fmt.Errorf("adjust cart %s by %d: %w", adj.CardID, adj.Delta, err)
	}
	m.adopt(userID, items)
	m.logger.Debug("cart adjusted", zap.String("card", adj.CardID), zap.Int("delta", adj.Delta))
	return nil
}

// Add puts qty copies of card in the cart.
func (m *Manager) Add(ctx context.Context, card market.Card, qty int, source market.CardSource) error {
	if m.UserID() == "" {
		return ErrNotAuthenticated
	}
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if source == "" {
		source = market.SourceCatalog
	}
	return m.Apply(ctx, Adjustment{CardID: card.ID, Card: card, Source: source, Delta: qty})
}

// UpdateQuantity sets the quantity of a line already in the cart. A
// quantity of zero or less removes the line.
func (m *Manager) UpdateQuantity(ctx context.Context, cardID string, qty int) error {
	if m.UserID() == "" {
		return ErrNotAuthenticated
	}
	item, ok := m.Item(cardID)
	if !ok {
		return ErrNotFound
	}
	if qty <= 0 {
		return m.Remove(ctx, cardID)
	}
	return m.Apply(ctx, Adjustment{
		CardID: cardID,
		Card:   item.Card,
		Source: item.Source,
		Delta:  qty - item.Quantity,
	})
}

// Remove drops the line for cardID.
func (m *Manager) Remove(ctx context.Context, cardID string) error {
	if m.UserID() == "" {
		return ErrNotAuthenticated
	}
	return m.Apply(ctx, Adjustment{CardID: cardID, Delta: RemoveAllDelta})
}

// Clear removes every line one by one. Every removal is attempted even after
// a failure, then the cart is fetched again so the local state matches what
// the server kept.
func (m *Manager) Clear(ctx context.Context) error {
	userID := m.UserID()
	if userID == "" {
		return ErrNotAuthenticated
	}
	var errs []error
	for _, item := range m.Items() {
		if err := m.Remove(ctx, item.Card.ID); err != nil {
			errs = append(errs, err)
		}
	}
	if err := m.Load(ctx, userID); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Reset empties the cart locally, as after a sign-out.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = Snapshot{Version: m.snap.Version + 1}
}

// Snapshot returns the current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := m.snap
	snap.Items = slices.Clone(m.snap.Items)
	return snap
}

// Items returns a copy of the cart lines.
func (m *Manager) Items() []market.CartItem {
	return m.Snapshot().Items
}

// Item looks up the line for cardID.
func (m *Manager) Item(cardID string) (market.CartItem, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, item := range m.snap.Items {
		if item.Card.ID == cardID {
			return item, true
		}
	}
	return market.CartItem{}, false
}

// Count is the number of copies across all lines.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, item := range m.snap.Items {
		n += item.Quantity
	}
	return n
}

// Total is the sum of every line's subtotal.
func (m *Manager) Total() decimal.Decimal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := decimal.Zero
	for _, item := range m.snap.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// UserID returns the owner of the cart, or "" when signed out.
func (m *Manager) UserID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap.UserID
}

func (m *Manager) adopt(userID string, items []market.CartItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// A sign-out or user switch while the request was in flight wins.
	if m.snap.UserID != userID {
		return
	}
	m.snap = Snapshot{UserID: userID, Items: items, Version: m.snap.Version + 1}
}
