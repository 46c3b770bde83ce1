package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Menu       key.Binding
	Refresh    key.Binding
	Escape     key.Binding
	Tab        key.Binding
	ShiftTab   key.Binding

	// View switching
	ViewCatalog     key.Binding
	ViewCollection  key.Binding
	ViewMarketplace key.Binding
	ViewCommunity   key.Binding
	ViewCart        key.Binding
	ViewCheckout    key.Binding
	ViewSupport     key.Binding
	ViewProfile     key.Binding

	// Navigation
	Up       key.Binding
	Down     key.Binding
	Top      key.Binding
	Bottom   key.Binding
	PageUp   key.Binding
	PageDown key.Binding

	// Catalog
	Search       key.Binding
	CycleRarity  key.Binding
	CycleColor   key.Binding
	CycleType    key.Binding
	CycleSet     key.Binding
	ClearFilters key.Binding
	NewCard      key.Binding
	EditCard     key.Binding
	NewSet       key.Binding
	DeleteSet    key.Binding

	// Item actions
	AddToCart       key.Binding
	AddToCollection key.Binding
	Increase        key.Binding
	Decrease        key.Binding
	Delete          key.Binding
	Favorite        key.Binding
	Sell            key.Binding
	History         key.Binding
	ClearAll        key.Binding
	MarkAllRead     key.Binding
	LogLevel        key.Binding

	// Profile
	EditProfile    key.Binding
	ChangePassword key.Binding
	DeleteUser     key.Binding
	Logout         key.Binding

	// Forms and dialogs
	Confirm key.Binding
	Submit  key.Binding
	Yes     key.Binding
	No      key.Binding

	// Sign-in screens
	ToRegister key.Binding
	ToForgot   key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Menu: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "Menu"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "Refresh storefront"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Back"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Next field"),
		),
		ShiftTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "Previous field"),
		),

		ViewCatalog:     key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "Catalog")),
		ViewCollection:  key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "Collection")),
		ViewMarketplace: key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "Marketplace")),
		ViewCommunity:   key.NewBinding(key.WithKeys("4"), key.WithHelp("4", "Community")),
		ViewCart:        key.NewBinding(key.WithKeys("5"), key.WithHelp("5", "Cart")),
		ViewCheckout:    key.NewBinding(key.WithKeys("6"), key.WithHelp("6", "Checkout")),
		ViewSupport:     key.NewBinding(key.WithKeys("7"), key.WithHelp("7", "Support")),
		ViewProfile:     key.NewBinding(key.WithKeys("8"), key.WithHelp("8", "Profile")),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Go to top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Go to bottom"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("pgup", "Page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("pgdown", "Page down"),
		),

		Search:       key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "Search")),
		CycleRarity:  key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "Cycle rarity")),
		CycleColor:   key.NewBinding(key.WithKeys("C"), key.WithHelp("C", "Cycle color")),
		CycleType:    key.NewBinding(key.WithKeys("Y"), key.WithHelp("Y", "Cycle type")),
		CycleSet:     key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "Cycle set")),
		ClearFilters: key.NewBinding(key.WithKeys("0"), key.WithHelp("0", "Clear filters")),
		NewCard:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "New card (admin)")),
		EditCard:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "Edit card (admin)")),
		NewSet:       key.NewBinding(key.WithKeys("N"), key.WithHelp("N", "New set (admin)")),
		DeleteSet:    key.NewBinding(key.WithKeys("X"), key.WithHelp("X", "Delete filtered set (admin)")),

		AddToCart:       key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "Add to cart")),
		AddToCollection: key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "Add to collection")),
		Increase:        key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "Increase quantity")),
		Decrease:        key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "Decrease quantity")),
		Delete:          key.NewBinding(key.WithKeys("x", "delete"), key.WithHelp("x", "Remove")),
		Favorite:        key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "Toggle favorite")),
		Sell:            key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "Sell on marketplace")),
		History:         key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "User history")),
		ClearAll:        key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "Clear cart")),
		MarkAllRead:     key.NewBinding(key.WithKeys("A"), key.WithHelp("A", "Mark all read")),
		LogLevel:        key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "Cycle log level")),

		EditProfile:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "Edit profile")),
		ChangePassword: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "Change password")),
		DeleteUser:     key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "Delete account")),
		Logout:         key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "Sign out")),

		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Confirm"),
		),
		Submit: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "Submit form"),
		),
		Yes: key.NewBinding(key.WithKeys("y", "Y"), key.WithHelp("y", "Yes")),
		No:  key.NewBinding(key.WithKeys("n", "N"), key.WithHelp("n", "No")),

		ToRegister: key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "Create account")),
		ToForgot:   key.NewBinding(key.WithKeys("ctrl+f"), key.WithHelp("ctrl+f", "Forgot password")),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Menu, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.ViewCatalog, k.ViewCollection, k.ViewMarketplace, k.ViewCommunity, k.ViewCart, k.ViewCheckout, k.ViewSupport, k.ViewProfile},
		{k.Up, k.Down, k.Top, k.Bottom, k.PageUp, k.PageDown, k.Confirm, k.Escape},
		{k.Search, k.CycleRarity, k.CycleColor, k.CycleType, k.CycleSet, k.ClearFilters},
		{k.AddToCart, k.AddToCollection, k.Increase, k.Decrease, k.Delete, k.Favorite, k.Sell, k.History},
		{k.ClearAll, k.MarkAllRead, k.LogLevel},
		{k.NewCard, k.EditCard, k.NewSet, k.DeleteSet},
		{k.EditProfile, k.ChangePassword, k.DeleteUser, k.Logout},
		{k.Menu, k.Refresh, k.CycleTheme, k.Help, k.Quit},
	}
}
