// Package shop serves the storefront: catalog, marketplace listings and
// card sets, local catalog edits, and checkout.
//
// Catalog and listings come from the backend through a tiercache, so an
// unreachable backend falls back to the last cached copy (and finally to a
// built-in catalog). Sets have no endpoint and live in the cache only.
// Local catalog and listing edits are kept apart and applied over every
// fetch.
// Everything published lands in a state.Store for the UI to read.
package shop

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/five82/manavault/internal/cart"
	"github.com/five82/manavault/internal/collection"
	"github.com/five82/manavault/internal/kvstore"
	"github.com/five82/manavault/internal/logging"
	"github.com/five82/manavault/internal/market"
	"github.com/five82/manavault/internal/notify"
	"github.com/five82/manavault/internal/state"
	"github.com/five82/manavault/internal/tiercache"
)

const defaultCondition = "Mint"

var (
	ErrEmptyCheckout    = errors.New("nothing to check out")
	ErrNotAuthenticated = errors.New("sign in to check out")
	ErrCardNotFound     = errors.New("card not in catalog")
	ErrListingNotFound  = errors.New("listing not found")
	ErrSetNameRequired  = errors.New("set name is required")
)

// API is the part of the backend the storefront needs.
type API interface {
	market.CatalogAPI
	market.MarketplaceAPI
}

// Deps wires a Service.
type Deps struct {
	API        API
	Store      *state.Store
	Cache      kvstore.Store
	Memory     *lru.Cache
	Cart       *cart.Manager
	Collection *collection.Manager
	Notify     *notify.Center
	Logger     *zap.Logger
}

// Receipt summarises a completed checkout.
type Receipt struct {
	Items   int
	Total   decimal.Decimal
	Sellers []string
}

// Service implements the storefront operations.
type Service struct {
	api        API
	store      *state.Store
	catalog    *tiercache.Tiered[[]market.Card]
	listings   *tiercache.Tiered[[]market.Listing]
	sets       *tiercache.Tiered[[]string]
	cart       *cart.Manager
	collection *collection.Manager
	notify     *notify.Center
	cache      kvstore.Store
	logger     *zap.Logger

	// mu serialises local catalog, listing and set changes and their
	// merge with fetched data.
	mu          sync.Mutex
	local       edits
	editsLoaded bool
}

// New builds a Service.
func New(d Deps) *Service {
	logger := logging.OrNop(d.Logger)
	store := d.Store
	if store == nil {
		store = &state.Store{}
	}
	memory := d.Memory
	if memory == nil {
		memory = tiercache.NewMemory(0)
	}
	opt := tiercache.WithLogger(logger)
	return &Service{
		api:        d.API,
		store:      store,
		catalog:    tiercache.New(kvstore.KeyCatalog, memory, d.Cache, DefaultCatalog, opt),
		listings:   tiercache.New(kvstore.KeyListings, memory, d.Cache, func() []market.Listing { return []market.Listing{} }, opt),
		sets:       tiercache.New(kvstore.KeySets, memory, d.Cache, DefaultSets, opt),
		cart:       d.Cart,
		collection: d.Collection,
		notify:     d.Notify,
		cache:      d.Cache,
		logger:     logger,
	}
}

// Store returns the snapshot store the service publishes into.
func (s *Service) Store() *state.Store {
	return s.store
}

// Seed publishes the cached catalog, listings and sets without touching the
// network.
func (s *Service) Seed(ctx context.Context) {
	catalog, catalogOrigin := s.catalog.Peek(ctx)
	listings, listingsOrigin := s.listings.Peek(ctx)
	sets, _ := s.sets.Peek(ctx)

	s.mu.Lock()
	s.loadEdits(ctx)
	s.store.SetCatalog(s.local.catalog(catalog))
	s.store.SetListings(s.local.listings(listings))
	s.store.SetSets(sets)
	s.mu.Unlock()
	s.logger.Debug("storefront seeded",
		zap.Stringer("catalog", catalogOrigin),
		zap.Stringer("listings", listingsOrigin),
		zap.Int("cards", len(catalog)))
}

// Refresh fetches catalog and listings in parallel and publishes them with
// the local edits applied. On failure the best cached copies are published
// and the failure is recorded in the store.
func (s *Service) Refresh(ctx context.Context) error {
	var (
		catalog  []market.Card
		listings []market.Listing
		g        errgroup.Group
	)
	g.Go(func() error {
		var err error
		catalog, _, err = s.catalog.Load(ctx, s.api.FetchCatalog)
		if err != nil {
			return fmt.Errorf("refresh catalog: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		listings, _, err = s.listings.Load(ctx, s.api.FetchListings)
		if err != nil {
			return fmt.Errorf("refresh listings: %w", err)
		}
		return nil
	})
	err := g.Wait()

	s.mu.Lock()
	s.loadEdits(ctx)
	catalog = s.local.catalog(catalog)
	listings = s.local.listings(listings)
	if err != nil {
		s.logger.Warn("storefront refresh failed", zap.Error(err))
		s.store.SetCatalog(catalog)
		s.store.SetListings(listings)
		s.store.RecordFailure(err)
	} else {
		s.store.Update(catalog, listings, nil)
	}
	s.mu.Unlock()

	if s.collection != nil && s.collection.SyncWithCatalog(ctx, catalog) {
		s.logger.Debug("collection patched from catalog")
	}
	return err
}

// Search filters the published catalog.
func (s *Service) Search(f Filter) []market.Card {
	return Search(s.store.Snapshot().Catalog, f)
}

// Card looks up a catalog card by id.
func (s *Service) Card(id string) (market.Card, bool) {
	for _, c := range s.store.Snapshot().Catalog {
		if c.ID == id {
			return c, true
		}
	}
	return market.Card{}, false
}

// AddCard prepends card to the catalog. A missing id is generated and a
// missing condition defaults to Mint.
func (s *Service) AddCard(ctx context.Context, card market.Card) (market.Card, error) {
	if err := card.Validate(); err != nil {
		return market.Card{}, err
	}
	if card.ID == "" {
		card.ID = uuid.NewString()
	}
	if strings.TrimSpace(card.Condition) == "" {
		card.Condition = defaultCondition
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadEdits(ctx)
	s.local.putCard(card)
	next := append([]market.Card{card}, s.store.Snapshot().Catalog...)
	return card, s.publishCatalog(ctx, next)
}

// UpdateCard replaces the catalog card with the same id.
func (s *Service) UpdateCard(ctx context.Context, card market.Card) error {
	if err := card.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.store.Snapshot().Catalog
	i := slices.IndexFunc(next, func(c market.Card) bool { return c.ID == card.ID })
	if i < 0 {
		return ErrCardNotFound
	}
	next[i] = card
	s.loadEdits(ctx)
	s.local.putCard(card)
	return s.publishCatalog(ctx, next)
}

// DeleteCard drops a card from the catalog.
func (s *Service) DeleteCard(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.store.Snapshot().Catalog
	before := len(current)
	next := slices.DeleteFunc(current, func(c market.Card) bool { return c.ID == id })
	if len(next) == before {
		return ErrCardNotFound
	}
	s.loadEdits(ctx)
	s.local.deleteCard(id)
	return s.publishCatalog(ctx, next)
}

// AddSet appends a set name. It reports false when the set already exists.
func (s *Service) AddSet(ctx context.Context, name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, ErrSetNameRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sets := s.store.Snapshot().Sets
	if slices.Contains(sets, name) {
		return false, nil
	}
	return true, s.publishSets(ctx, append(sets, name))
}

// DeleteSet removes a set name. Cards in that set are left untouched.
func (s *Service) DeleteSet(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sets := s.store.Snapshot().Sets
	next := slices.DeleteFunc(slices.Clone(sets), func(v string) bool { return v == name })
	if len(next) == len(sets) {
		return nil
	}
	return s.publishSets(ctx, next)
}

// AddListing prepends a listing. A missing id is generated and a zero price
// defaults to the card's price.
func (s *Service) AddListing(ctx context.Context, l market.Listing) (market.Listing, error) {
	if err := l.Card.Validate(); err != nil {
		return market.Listing{}, err
	}
	if l.Price.IsNegative() {
		return market.Listing{}, market.ErrNegativePrice
	}
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.Price.IsZero() {
		l.Price = l.Card.Price
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadEdits(ctx)
	s.local.addListing(l)
	next := append([]market.Listing{l}, s.store.Snapshot().Listings...)
	return l, s.publishListings(ctx, next)
}

// RemoveListing drops a listing.
func (s *Service) RemoveListing(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.store.Snapshot().Listings
	before := len(current)
	next := slices.DeleteFunc(current, func(l market.Listing) bool { return l.ID == id })
	if len(next) == before {
		return ErrListingNotFound
	}
	s.loadEdits(ctx)
	s.local.withdraw(id)
	return s.publishListings(ctx, next)
}

// Checkout settles items for user. An empty purchase issues no request and
// changes nothing. On success the listings are replaced by what the server
// says remains, each seller whose listing was bought gets a notification,
// the cart is cleared and the collection reloaded. Follow-up failures are
// logged; the purchase itself has already succeeded.
func (s *Service) Checkout(ctx context.Context, user market.User, items []market.CartItem) (Receipt, error) {
	if len(items) == 0 {
		return Receipt{}, ErrEmptyCheckout
	}
	if user.ID == "" {
		return Receipt{}, ErrNotAuthenticated
	}

	prior := s.store.Snapshot().Listings
	remaining, err := s.api.Checkout(ctx, user.ID, items)
	if err != nil {
		s.logger.Error("checkout failed", zap.String("user", user.ID), zap.Error(err))
		return Receipt{}, fmt.Errorf("checkout: %w", err)
	}

	receipt := Receipt{Total: decimal.Zero}
	for _, item := range items {
		receipt.Items += item.Quantity
		receipt.Total = receipt.Total.Add(item.Subtotal())
	}

	s.mu.Lock()
	s.loadEdits(ctx)
	s.local.sold(items)
	if err := s.publishListings(ctx, s.local.listings(remaining)); err != nil {
		s.logger.Warn("cache listings after checkout", zap.Error(err))
	}
	s.mu.Unlock()

	for _, item := range items {
		i := slices.IndexFunc(prior, func(l market.Listing) bool { return l.Card.ID == item.Card.ID })
		if i < 0 {
			continue
		}
		sold := prior[i]
		receipt.Sellers = append(receipt.Sellers, sold.Seller.ID)
		if s.notify != nil {
			s.notify.Add(sold.Seller.ID, fmt.Sprintf("Your card %q has been sold!", sold.Card.Name))
		}
	}

	if s.cart != nil {
		if err := s.cart.Clear(ctx); err != nil {
			s.logger.Warn("clear cart after checkout", zap.Error(err))
		}
	}
	if s.collection != nil {
		if err := s.collection.Load(ctx, user.ID); err != nil {
			s.logger.Warn("reload collection after checkout", zap.Error(err))
		}
		s.collection.SyncWithCatalog(ctx, s.store.Snapshot().Catalog)
	}

	s.logger.Info("checkout complete",
		zap.String("user", user.ID),
		zap.Int("items", receipt.Items),
		zap.String("total", receipt.Total.String()))
	return receipt, nil
}

// publishCatalog and publishListings run under s.mu after a local edit.
func (s *Service) publishCatalog(ctx context.Context, cards []market.Card) error {
	s.store.SetCatalog(cards)
	if err := s.catalog.Put(ctx, slices.Clone(cards)); err != nil {
		return fmt.Errorf("save catalog: %w", err)
	}
	if err := s.saveEdits(ctx); err != nil {
		return fmt.Errorf("save local edits: %w", err)
	}
	return nil
}

func (s *Service) publishListings(ctx context.Context, listings []market.Listing) error {
	s.store.SetListings(listings)
	if err := s.listings.Put(ctx, slices.Clone(listings)); err != nil {
		return fmt.Errorf("save listings: %w", err)
	}
	if err := s.saveEdits(ctx); err != nil {
		return fmt.Errorf("save local edits: %w", err)
	}
	return nil
}

func (s *Service) publishSets(ctx context.Context, sets []string) error {
	s.store.SetSets(sets)
	if err := s.sets.Put(ctx, slices.Clone(sets)); err != nil {
		return fmt.Errorf("save sets: %w", err)
	}
	return nil
}
