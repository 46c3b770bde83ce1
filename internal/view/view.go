// Package view holds the navigation state of the storefront: which screen
// is active, the sign-in sub-screen, the user being browsed, and the
// confirmation gate that every destructive action passes through.
//
// The controller knows nothing about rendering. The terminal UI reads State
// and calls the transition methods in response to keys.
package view

import (
	"context"
	"errors"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/five82/manavault/internal/kvstore"
	"github.com/five82/manavault/internal/logging"
	"github.com/five82/manavault/internal/market"
)

// View names a screen.
type View string

const (
	Auth            View = "auth"
	Catalog         View = "catalog"
	Collection      View = "collection"
	Marketplace     View = "marketplace"
	Community       View = "community"
	Support         View = "support"
	Cart            View = "cart"
	Checkout        View = "checkout"
	Profile         View = "profile"
	OtherCollection View = "other-collection"
	UserHistory     View = "user-history"
)

// Views lists every screen in menu order.
var Views = []View{Catalog, Collection, Marketplace, Community, Support, Cart, Checkout, Profile, OtherCollection, UserHistory, Auth}

// Valid reports whether v names a known screen.
func (v View) Valid() bool {
	return slices.Contains(Views, v)
}

// Synthetic reports whether v depends on a transient browsed user and so
// cannot be restored after a restart.
func (v View) Synthetic() bool {
	return v == OtherCollection || v == UserHistory
}

// Title is the human label of v.
func (v View) Title() string {
	switch v {
	case Auth:
		return "Sign in"
	case Catalog:
		return "Catalog"
	case Collection:
		return "My collection"
	case Marketplace:
		return "Marketplace"
	case Community:
		return "Community"
	case Support:
		return "Support"
	case Cart:
		return "Cart"
	case Checkout:
		return "Checkout"
	case Profile:
		return "Profile"
	case OtherCollection:
		return "Collection"
	case UserHistory:
		return "History"
	}
	return string(v)
}

// AuthView is the sub-screen shown while signed out.
type AuthView string

const (
	Login          AuthView = "login"
	Register       AuthView = "register"
	ForgotPassword AuthView = "forgot-password"
)

// ErrNoPendingConfirmation is returned by Confirm when nothing is waiting.
var ErrNoPendingConfirmation = errors.New("no pending confirmation")

// Action is a destructive operation waiting behind the confirmation gate.
type Action func(ctx context.Context) error

// Confirmation describes the pending prompt.
type Confirmation struct {
	Title   string
	Message string
}

// State is a copy of the controller state.
type State struct {
	View         View
	Previous     View
	AuthView     AuthView
	ViewedUser   *market.User
	SelectedCard *market.Card
	MenuOpen     bool
	Pending      *Confirmation
}

// Controller tracks navigation. It is safe for concurrent use.
type Controller struct {
	store  kvstore.Store
	logger *zap.Logger

	mu      sync.Mutex
	state   State
	pending Action
}

// New builds a controller starting on the auth screen.
func New(store kvstore.Store, logger *zap.Logger) *Controller {
	return &Controller{
		store:  store,
		logger: logging.OrNop(logger),
		state:  State{View: Auth, AuthView: Login},
	}
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyLocked()
}

// Current returns the active view.
func (c *Controller) Current() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.View
}

// Restore picks the startup view. Anonymous users land on auth; signed-in
// users go back to the persisted view, or the catalog when that is missing
// or not restorable.
func (c *Controller) Restore(ctx context.Context, authenticated bool) View {
	next := Auth
	if authenticated {
		next = Catalog
		if c.store != nil {
			raw, ok, err := c.store.Get(ctx, kvstore.KeyLastView)
			if err != nil {
				c.logger.Warn("read last view", zap.Error(err))
			}
			if v := View(raw); ok && v.Valid() && !v.Synthetic() && v != Auth {
				next = v
			}
		}
	}

	c.mu.Lock()
	c.state = State{View: next, AuthView: Login}
	c.pending = nil
	c.mu.Unlock()
	return next
}

// Navigate switches to v. The menu and any selected card are closed, and v
// is persisted unless it is synthetic or the auth screen.
func (c *Controller) Navigate(ctx context.Context, v View) {
	if !v.Valid() {
		c.logger.Warn("ignoring unknown view", zap.String("view", string(v)))
		return
	}
	c.mu.Lock()
	c.moveLocked(v)
	if !v.Synthetic() {
		c.state.ViewedUser = nil
	}
	c.mu.Unlock()

	if v.Synthetic() || v == Auth || c.store == nil {
		return
	}
	if err := c.store.Set(ctx, kvstore.KeyLastView, string(v)); err != nil {
		c.logger.Warn("persist last view", zap.String("view", string(v)), zap.Error(err))
	}
}

// ViewUserCollection browses the collection of u.
func (c *Controller) ViewUserCollection(u market.User) {
	c.browse(u, OtherCollection)
}

// ViewUserHistory browses the activity of u.
func (c *Controller) ViewUserHistory(u market.User) {
	c.browse(u, UserHistory)
}

func (c *Controller) browse(u market.User, v View) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.moveLocked(v)
	c.state.ViewedUser = &u
}

// Back leaves a browsed user's screen for the community list. On any other
// screen it returns to the previous one, or the catalog.
func (c *Controller) Back(ctx context.Context) View {
	c.mu.Lock()
	current, previous := c.state.View, c.state.Previous
	c.mu.Unlock()

	next := Catalog
	switch {
	case current.Synthetic():
		next = Community
	case current == Auth:
		return Auth
	case previous != "" && previous != current && previous != Auth && !previous.Synthetic():
		next = previous
	}
	c.Navigate(ctx, next)
	return next
}

// AuthSucceeded moves a freshly signed-in user to the catalog.
func (c *Controller) AuthSucceeded(ctx context.Context) {
	c.Navigate(ctx, Catalog)
}

// SignedOut returns to the login screen and drops all transient state.
func (c *Controller) SignedOut() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = State{View: Auth, Previous: c.state.View, AuthView: Login}
	c.pending = nil
}

// SetAuthView switches the sign-in sub-screen.
func (c *Controller) SetAuthView(v AuthView) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.AuthView = v
}

// ToggleMenu opens or closes the navigation menu and reports the new state.
func (c *Controller) ToggleMenu() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.MenuOpen = !c.state.MenuOpen
	return c.state.MenuOpen
}

// Select opens the detail of card.
func (c *Controller) Select(card market.Card) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.SelectedCard = &card
}

// ClearSelection closes the card detail.
func (c *Controller) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.SelectedCard = nil
}

// RequestConfirmation parks action behind a prompt. A prompt already
// pending is replaced.
func (c *Controller) RequestConfirmation(title, message string, action Action) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Pending = &Confirmation{Title: title, Message: message}
	c.pending = action
}

// Confirm closes the prompt and runs its action once.
func (c *Controller) Confirm(ctx context.Context) error {
	c.mu.Lock()
	action := c.pending
	c.pending = nil
	c.state.Pending = nil
	c.mu.Unlock()

	if action == nil {
		return ErrNoPendingConfirmation
	}
	return action(ctx)
}

// Cancel closes the prompt without running its action.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = nil
	c.state.Pending = nil
}

func (c *Controller) moveLocked(v View) {
	if c.state.View != v {
		c.state.Previous = c.state.View
	}
	c.state.View = v
	c.state.MenuOpen = false
	c.state.SelectedCard = nil
}

func (c *Controller) copyLocked() State {
	out := c.state
	if c.state.ViewedUser != nil {
		u := *c.state.ViewedUser
		out.ViewedUser = &u
	}
	if c.state.SelectedCard != nil {
		card := *c.state.SelectedCard
		out.SelectedCard = &card
	}
	if c.state.Pending != nil {
		p := *c.state.Pending
		out.Pending = &p
	}
	return out
}
