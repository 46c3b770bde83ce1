package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/five82/manavault/internal/cart"
	"github.com/five82/manavault/internal/collection"
	"github.com/five82/manavault/internal/kvstore"
	"github.com/five82/manavault/internal/logging"
	"github.com/five82/manavault/internal/market"
	"github.com/five82/manavault/internal/notify"
	"github.com/five82/manavault/internal/session"
	"github.com/five82/manavault/internal/shop"
	"github.com/five82/manavault/internal/state"
	"github.com/five82/manavault/internal/view"
)

// Options configures the UI.
type Options struct {
	Context    context.Context
	Cache      kvstore.Store
	Store      *state.Store
	Session    *session.Manager
	Cart       *cart.Manager
	Collection *collection.Manager
	Notify     *notify.Center
	Shop       *shop.Service
	View       *view.Controller
	Logger     *zap.Logger
	LogPath    string
	ThemeName  string
	PollTick   time.Duration
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx        context.Context
	cache      kvstore.Store
	store      *state.Store
	session    *session.Manager
	cart       *cart.Manager
	collection *collection.Manager
	notify     *notify.Center
	shop       *shop.Service
	nav        *view.Controller
	logger     *zap.Logger
	logPath    string
	pollTick   time.Duration

	keys   keyMap
	theme  Theme
	width  int
	height int
	ready  bool

	snapshot    state.Snapshot
	lastUpdated time.Time

	modal    Modal
	showHelp bool
	status   statusLine

	// Per-view list cursors.
	cursors    map[view.View]int
	menuCursor int

	auth    authState
	catalog catalogState
	other   otherState
	support supportState

	// Card detail scrolls in detail; detailSource is used when the shown
	// card is added to the cart or collection.
	detail       viewport.Model
	detailSource market.CardSource
}

type statusLine struct {
	text   string
	danger bool
}

type catalogState struct {
	filter    shop.Filter
	search    textinput.Model
	searching bool
}

type otherState struct {
	userID  string
	cards   []market.CollectionCard
	err     error
	loading bool
}

// New creates the root model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	pollTick := opts.PollTick
	if pollTick == 0 {
		pollTick = time.Second
	}

	m := Model{
		ctx:        ctx,
		cache:      opts.Cache,
		store:      opts.Store,
		session:    opts.Session,
		cart:       opts.Cart,
		collection: opts.Collection,
		notify:     opts.Notify,
		shop:       opts.Shop,
		nav:        opts.View,
		logger:     logging.OrNop(opts.Logger),
		logPath:    opts.LogPath,
		pollTick:   pollTick,
		keys:       DefaultKeyMap(),
		theme:      GetTheme(loadThemeName(ctx, opts.Cache, opts.ThemeName)),
		cursors:    make(map[view.View]int),
		auth:       newAuthState(),
	}

	search := textinput.New()
	search.Placeholder = "Search cards..."
	search.CharLimit = 60
	search.Prompt = "/ "
	m.catalog.search = search

	if m.store != nil {
		m.snapshot = m.store.Snapshot()
	}
	return m
}

// loadThemeName prefers the theme saved from a previous run.
func loadThemeName(ctx context.Context, cache kvstore.Store, fallback string) string {
	if cache != nil {
		if name, ok, err := cache.Get(ctx, kvstore.KeyTheme); err == nil && ok && name != "" {
			return name
		}
	}
	return fallback
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(m.pollTick)}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		cmd := m.handleKey(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.detail = viewport.New(msg.Width-4, m.contentHeight()-2)
			m.support.logs = viewport.New(msg.Width-4, m.contentHeight()/2)
		}
		m.ready = true
		m.resizeViewports()
		return m, nil

	case tickMsg:
		return m, m.handleTick()

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		m.lastUpdated = time.Now()
		return m, nil

	case actionDoneMsg:
		return m, m.handleActionDone(msg)

	case authDoneMsg:
		return m, m.handleAuthDone(msg)

	case requestConfirmMsg:
		m.confirm(msg.title, msg.message, msg.done, msg.action)
		return m, nil

	case checkoutDoneMsg:
		return m, m.handleCheckoutDone(msg)

	case otherCollectionMsg:
		if msg.userID == m.other.userID {
			m.other.cards, m.other.err, m.other.loading = msg.cards, msg.err, false
		}
		return m, nil

	case logLinesMsg:
		m.handleLogLines(msg)
		return m, nil
	}

	// Cursor blink and other input internals.
	var cmd tea.Cmd
	switch {
	case m.modal != nil:
		m.modal, cmd, _ = m.modal.Update(msg, m.keys)
	case m.catalog.searching:
		m.catalog.search, cmd = m.catalog.search.Update(msg)
	case m.nav.Current() == view.Auth:
		cmd, _ = m.auth.current(m.nav.State().AuthView).update(msg, m.keys)
	}
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.modal != nil {
		return m.modal.View(m.theme, m.width, m.height)
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.nav.State().MenuOpen {
		return m.renderMenu()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	b.WriteString(m.renderContent())
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	return b.String()
}

// contentHeight is the room left under the header, command bar and status
// line.
func (m Model) contentHeight() int {
	return max(m.height-3, 3)
}

func (m *Model) resizeViewports() {
	m.detail.Width = m.width - 4
	m.detail.Height = max(m.contentHeight()-2, 1)
	m.support.logs.Width = m.width - 4
	m.support.logs.Height = max(m.contentHeight()/2-2, 1)
}

// handleKey processes keyboard input.
func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "ctrl+c" {
		return tea.Quit
	}

	if m.modal != nil {
		next, cmd, closed := m.modal.Update(msg, m.keys)
		if closed {
			m.modal = nil
		} else {
			m.modal = next
		}
		return cmd
	}

	if m.showHelp {
		m.showHelp = false
		return nil
	}

	st := m.nav.State()
	if st.View == view.Auth {
		return m.handleAuthKey(msg)
	}
	if st.SelectedCard != nil && !key.Matches(msg, m.keys.Quit) && !key.Matches(msg, m.keys.Escape) {
		return m.handleDetailKey(msg, *st.SelectedCard)
	}
	if st.View == view.Catalog && m.catalog.searching {
		return m.handleSearchKey(msg)
	}
	if st.MenuOpen {
		return m.handleMenuKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return nil
	case key.Matches(msg, m.keys.CycleTheme):
		return m.cycleTheme()
	case key.Matches(msg, m.keys.Menu):
		m.nav.ToggleMenu()
		m.menuCursor = 0
		return nil
	case key.Matches(msg, m.keys.Refresh):
		return m.refreshCmd()
	case key.Matches(msg, m.keys.Escape):
		return m.back()
	}

	if v, ok := m.viewForKey(msg); ok {
		return m.navigate(v)
	}

	switch st.View {
	case view.Catalog:
		return m.handleCatalogKey(msg)
	case view.Collection:
		return m.handleCollectionKey(msg)
	case view.Marketplace:
		return m.handleMarketplaceKey(msg)
	case view.Community:
		return m.handleCommunityKey(msg)
	case view.OtherCollection:
		m.moveCursor(msg, view.OtherCollection, len(m.other.cards))
	case view.UserHistory:
		return m.handleHistoryKey(msg)
	case view.Cart:
		return m.handleCartKey(msg)
	case view.Checkout:
		return m.handleCheckoutKey(msg)
	case view.Support:
		return m.handleSupportKey(msg)
	case view.Profile:
		return m.handleProfileKey(msg)
	}
	return nil
}

func (m *Model) viewForKey(msg tea.KeyMsg) (view.View, bool) {
	switch {
	case key.Matches(msg, m.keys.ViewCatalog):
		return view.Catalog, true
	case key.Matches(msg, m.keys.ViewCollection):
		return view.Collection, true
	case key.Matches(msg, m.keys.ViewMarketplace):
		return view.Marketplace, true
	case key.Matches(msg, m.keys.ViewCommunity):
		return view.Community, true
	case key.Matches(msg, m.keys.ViewCart):
		return view.Cart, true
	case key.Matches(msg, m.keys.ViewCheckout):
		return view.Checkout, true
	case key.Matches(msg, m.keys.ViewSupport):
		return view.Support, true
	case key.Matches(msg, m.keys.ViewProfile):
		return view.Profile, true
	}
	return "", false
}

// navigate switches views and starts whatever the new view needs.
func (m *Model) navigate(v view.View) tea.Cmd {
	m.nav.Navigate(m.ctx, v)
	m.status = statusLine{}
	if v == view.Support {
		return m.readLogsCmd()
	}
	return nil
}

// back closes the card detail, then leaves the current view.
func (m *Model) back() tea.Cmd {
	st := m.nav.State()
	if st.SelectedCard != nil {
		m.nav.ClearSelection()
		return nil
	}
	if st.View == view.Catalog && m.catalog.filter.Active() {
		m.catalog.filter = shop.Filter{}
		m.catalog.search.SetValue("")
		return nil
	}
	next := m.nav.Back(m.ctx)
	if next == view.Support {
		return m.readLogsCmd()
	}
	return nil
}

func (m *Model) cycleTheme() tea.Cmd {
	m.theme = GetTheme(NextTheme(m.theme.Name))
	if m.cache == nil {
		return nil
	}
	ctx, cache, name, logger := m.ctx, m.cache, m.theme.Name, m.logger
	return func() tea.Msg {
		if err := cache.Set(ctx, kvstore.KeyTheme, name); err != nil {
			logger.Warn("save theme", zap.Error(err))
		}
		return nil
	}
}

func (m *Model) handleMenuKey(msg tea.KeyMsg) tea.Cmd {
	entries := menuViews()
	switch {
	case key.Matches(msg, m.keys.Menu), key.Matches(msg, m.keys.Escape):
		m.nav.ToggleMenu()
	case key.Matches(msg, m.keys.Up):
		m.menuCursor = clamp(m.menuCursor-1, len(entries))
	case key.Matches(msg, m.keys.Down):
		m.menuCursor = clamp(m.menuCursor+1, len(entries))
	case key.Matches(msg, m.keys.Confirm):
		return m.navigate(entries[clamp(m.menuCursor, len(entries))])
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	}
	return nil
}

func menuViews() []view.View {
	return []view.View{view.Catalog, view.Collection, view.Marketplace, view.Community, view.Cart, view.Checkout, view.Support, view.Profile}
}

// moveCursor applies list navigation keys to the cursor of v and reports
// whether msg was one of them.
func (m *Model) moveCursor(msg tea.KeyMsg, v view.View, n int) bool {
	cur := m.cursors[v]
	page := max(m.contentHeight()-4, 1)
	switch {
	case key.Matches(msg, m.keys.Up):
		cur--
	case key.Matches(msg, m.keys.Down):
		cur++
	case key.Matches(msg, m.keys.Top):
		cur = 0
	case key.Matches(msg, m.keys.Bottom):
		cur = n - 1
	case key.Matches(msg, m.keys.PageUp):
		cur -= page
	case key.Matches(msg, m.keys.PageDown):
		cur += page
	default:
		return false
	}
	m.cursors[v] = clamp(cur, n)
	return true
}

func (m *Model) handleTick() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(m.pollTick)}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	if m.nav.Current() == view.Support {
		cmds = append(cmds, m.readLogsCmd())
	}
	return tea.Batch(cmds...)
}

func (m *Model) handleActionDone(msg actionDoneMsg) tea.Cmd {
	switch {
	case msg.err != nil && msg.alert:
		m.modal = alertModal{title: msg.label, message: msg.err.Error()}
		m.status = statusLine{}
	case msg.err != nil:
		m.status = statusLine{text: fmt.Sprintf("%s: %v", msg.label, msg.err), danger: true}
	default:
		m.status = statusLine{text: msg.status}
	}
	if msg.err == nil && msg.navigate != "" {
		m.nav.Navigate(m.ctx, msg.navigate)
	}
	if m.store == nil {
		return nil
	}
	return fetchSnapshotCmd(m.store)
}

// run executes fn in a command and reports the outcome. Failures go to the
// status line.
func (m *Model) run(label, success string, fn func(ctx context.Context) error) tea.Cmd {
	return runCmd(m.ctx, label, success, fn)
}

func runCmd(ctx context.Context, label, success string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(ctx); err != nil {
			return actionDoneMsg{label: label, err: err}
		}
		return actionDoneMsg{status: success}
	}
}

// confirm parks action behind the confirmation gate and opens the dialog.
func (m *Model) confirm(title, message, done string, action view.Action) {
	m.nav.RequestConfirmation(title, message, action)
	m.modal = newConfirmModal(m.ctx, m.nav, done)
}

func (m *Model) refreshCmd() tea.Cmd {
	if m.shop == nil {
		return nil
	}
	m.status = statusLine{text: "Refreshing..."}
	return m.run("Refresh", "Storefront refreshed", m.shop.Refresh)
}

// renderContent renders the main content area based on current view.
func (m Model) renderContent() string {
	st := m.nav.State()
	if st.SelectedCard != nil {
		return m.renderCardDetail(*st.SelectedCard)
	}
	switch st.View {
	case view.Catalog:
		return m.renderCatalog()
	case view.Collection:
		return m.renderCollection()
	case view.Marketplace:
		return m.renderMarketplace()
	case view.Community:
		return m.renderCommunity()
	case view.OtherCollection:
		return m.renderOtherCollection(st.ViewedUser)
	case view.UserHistory:
		return m.renderHistory(st.ViewedUser)
	case view.Cart:
		return m.renderCart()
	case view.Checkout:
		return m.renderCheckout()
	case view.Support:
		return m.renderSupport()
	case view.Profile:
		return m.renderProfile()
	case view.Auth:
		return m.renderAuth()
	}
	return ""
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

// actionDoneMsg reports a finished operation. On failure label names the
// operation; on success status is shown.
type actionDoneMsg struct {
	label    string
	status   string
	err      error
	alert    bool
	navigate view.View
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if err != nil && opts.Context != nil && opts.Context.Err() != nil {
		return nil
	}
	return err
}
