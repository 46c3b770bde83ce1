// Package collection keeps the signed-in user's owned cards in step with the
// server. Every mutation is posted and then the full list is fetched again;
// the client never computes merges or decrements itself.
package collection

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/five82/manavault/internal/kvstore"
	"github.com/five82/manavault/internal/logging"
	"github.com/five82/manavault/internal/market"
)

var (
	ErrNotAuthenticated = errors.New("collection requires a signed-in user")
	ErrNotFound         = errors.New("card not in collection")
	ErrInvalidQuantity  = errors.New("quantity must be positive")
)

// Snapshot is an immutable view of the loaded collection.
type Snapshot struct {
	UserID  string
	Cards   []market.CollectionCard
	Loaded  bool
	Version uint64
}

// Stats aggregates the loaded cards.
type Stats struct {
	TotalCards int
	Sets       int
	Favorites  int
	TotalValue decimal.Decimal
}

// Manager owns one user's collection.
type Manager struct {
	api    market.CollectionAPI
	store  kvstore.Store
	logger *zap.Logger

	mu   sync.RWMutex
	snap Snapshot
	// epoch advances on every Load and Reset. A fetch adopts its result
	// only if the epoch it started under is still current.
	epoch uint64
}

// New builds an empty Manager. store may be nil to skip the local mirror.
func New(api market.CollectionAPI, store kvstore.Store, logger *zap.Logger) *Manager {
	return &Manager{api: api, store: store, logger: logging.OrNop(logger)}
}

// Load fetches the collection of userID. An empty userID clears the state
// without a request. A failed fetch leaves an empty, loaded collection.
// A Load or Reset issued while the fetch is in flight wins over it.
func (m *Manager) Load(ctx context.Context, userID string) error {
	if userID == "" {
		m.Reset()
		return nil
	}
	m.mu.Lock()
	m.epoch++
	epoch := m.epoch
	m.mu.Unlock()
	if err := m.fetch(ctx, userID, epoch); err != nil {
		return fmt.Errorf("load collection: %w", err)
	}
	return nil
}

func (m *Manager) fetch(ctx context.Context, userID string, epoch uint64) error {
	cards, err := m.api.FetchCollection(ctx, userID)
	if err != nil {
		m.logger.Warn("collection load failed", zap.String("user", userID), zap.Error(err))
		m.adopt(epoch, Snapshot{UserID: userID, Loaded: true})
		return err
	}
	if m.adopt(epoch, Snapshot{UserID: userID, Cards: cards, Loaded: true}) {
		m.mirror(ctx)
	}
	return nil
}

// adopt installs next unless the manager moved on since epoch.
func (m *Manager) adopt(epoch uint64, next Snapshot) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != epoch {
		m.logger.Debug("dropping stale collection", zap.String("user", next.UserID))
		return false
	}
	next.Version = m.snap.Version + 1
	m.snap = next
	return true
}

// Add adds qty copies of card (one when qty is not positive). The server
// merges into an existing instance with the same original id and source.
func (m *Manager) Add(ctx context.Context, card market.Card, source market.CardSource, qty int) error {
	userID, epoch, err := m.requireUser()
	if err != nil {
		return err
	}
	if qty <= 0 {
		qty = 1
	}
	if source == "" {
		source = market.SourceCatalog
	}
	if err := m.api.AddOrUpdateCollection(ctx, userID, card, source, qty); err != nil {
		return fmt.Errorf("add to collection: %w", err)
	}
	return m.reload(ctx, userID, epoch)
}

// RemoveQuantity removes n copies of the instance id. The server deletes the
// instance when nothing is left.
func (m *Manager) RemoveQuantity(ctx context.Context, id string, n int) error {
	userID, epoch, err := m.requireUser()
	if err != nil {
		return err
	}
	if n <= 0 {
		return ErrInvalidQuantity
	}
	if err := m.api.RemoveCollectionQuantity(ctx, userID, id, n); err != nil {
		return fmt.Errorf("remove from collection: %w", err)
	}
	return m.reload(ctx, userID, epoch)
}

// Remove deletes the instance id outright.
func (m *Manager) Remove(ctx context.Context, id string) error {
	if _, _, err := m.requireUser(); err != nil {
		return err
	}
	card, ok := m.Card(id)
	if !ok {
		return ErrNotFound
	}
	return m.RemoveQuantity(ctx, id, card.Count())
}

// UpdateCard overwrites one owned instance.
func (m *Manager) UpdateCard(ctx context.Context, card market.CollectionCard) error {
	userID, epoch, err := m.requireUser()
	if err != nil {
		return err
	}
	if err := card.Validate(); err != nil {
		return err
	}
	if err := m.api.UpdateCollectionCard(ctx, userID, card); err != nil {
		return fmt.Errorf("update collection card: %w", err)
	}
	return m.reload(ctx, userID, epoch)
}

// ToggleFavorite flips the favorite flag of the instance id.
func (m *Manager) ToggleFavorite(ctx context.Context, id string) error {
	userID, epoch, err := m.requireUser()
	if err != nil {
		return err
	}
	if err := m.api.ToggleCollectionFavorite(ctx, userID, id); err != nil {
		return fmt.Errorf("toggle favorite: %w", err)
	}
	return m.reload(ctx, userID, epoch)
}

// SyncWithCatalog patches catalog-sourced cards whose catalog name or price
// changed. Instance metadata is kept. Nothing is sent to the server. It is a
// no-op until the first load completes, and reports whether anything changed.
func (m *Manager) SyncWithCatalog(ctx context.Context, catalog []market.Card) bool {
	m.mu.Lock()
	if !m.snap.Loaded || len(m.snap.Cards) == 0 {
		m.mu.Unlock()
		return false
	}

	byID := make(map[string]market.Card, len(catalog))
	for _, c := range catalog {
		byID[c.ID] = c
	}

	var next []market.CollectionCard
	for i, owned := range m.snap.Cards {
		if owned.Source != market.SourceCatalog || owned.OriginalID == "" {
			continue
		}
		current, ok := byID[owned.OriginalID]
		if !ok || (current.Name == owned.Name && current.Price.Equal(owned.Price.Decimal)) {
			continue
		}
		if next == nil {
			next = slices.Clone(m.snap.Cards)
		}
		patched := owned
		patched.Card = current
		patched.ID = owned.ID
		next[i] = patched
	}
	if next == nil {
		m.mu.Unlock()
		return false
	}
	m.snap = Snapshot{UserID: m.snap.UserID, Cards: next, Loaded: true, Version: m.snap.Version + 1}
	m.mu.Unlock()

	m.mirror(ctx)
	return true
}

// Stats aggregates the loaded cards.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := Stats{TotalValue: decimal.Zero}
	sets := make(map[string]struct{})
	for _, c := range m.snap.Cards {
		stats.TotalCards += c.Count()
		sets[c.Set] = struct{}{}
		if c.IsFavorite {
			stats.Favorites++
		}
		stats.TotalValue = stats.TotalValue.Add(c.LineValue())
	}
	stats.Sets = len(sets)
	return stats
}

// Snapshot returns the current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := m.snap
	snap.Cards = slices.Clone(m.snap.Cards)
	return snap
}

// Cards returns a copy of the loaded cards.
func (m *Manager) Cards() []market.CollectionCard {
	return m.Snapshot().Cards
}

// Card looks up an owned instance by id.
func (m *Manager) Card(id string) (market.CollectionCard, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.snap.Cards {
		if c.ID == id {
			return c, true
		}
	}
	return market.CollectionCard{}, false
}

// Loaded reports whether a load for the current user has completed.
func (m *Manager) Loaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap.Loaded
}

// Reset forgets everything, as after a sign-out.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.epoch++
	m.snap = Snapshot{Version: m.snap.Version + 1}
}

// Fetch returns another user's collection without touching local state.
func (m *Manager) Fetch(ctx context.Context, userID string) ([]market.CollectionCard, error) {
	cards, err := m.api.FetchCollection(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch collection of %s: %w", userID, err)
	}
	return cards, nil
}

func (m *Manager) reload(ctx context.Context, userID string, epoch uint64) error {
	if err := m.fetch(ctx, userID, epoch); err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	return nil
}

// requireUser returns the signed-in user and the epoch a follow-up reload
// must still match.
func (m *Manager) requireUser() (string, uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.snap.UserID == "" {
		return "", 0, ErrNotAuthenticated
	}
	return m.snap.UserID, m.epoch, nil
}

func (m *Manager) mirror(ctx context.Context) {
	if m.store == nil {
		return
	}
	snap := m.Snapshot()
	if snap.UserID == "" {
		return
	}
	cards := snap.Cards
	if cards == nil {
		cards = []market.CollectionCard{}
	}
	if err := kvstore.SetJSON(ctx, m.store, kvstore.CollectionKey(snap.UserID), cards); err != nil {
		m.logger.Warn("mirror collection", zap.Error(err))
	}
}
