// Package ui provides the terminal storefront for manavault.
//
// # Architecture Overview
//
// The UI is a Bubble Tea program. Model is a value type holding handles to
// the long-lived services (session, cart, collection, notifications, shop
// and the view.Controller) plus purely presentational state: cursors, the
// open modal, form inputs and viewports. Every operation that talks to the
// backend runs inside a tea.Cmd and reports back with a message, so Update
// never blocks.
//
// # Package Structure
//
//   - ui.go: Options, Model, Init/Update/View, key dispatch and Run
//   - header.go: status bar, command bar and status line
//   - auth.go: sign-in, registration and password reset screens
//   - catalog.go, detail.go: catalog table, filters, search and card detail
//   - collection.go, marketplace.go, community.go: owned cards, listings and
//     traders
//   - cart.go: cart and checkout
//   - support.go: notifications and the application log tail
//   - profile.go: account management
//   - form.go, modal.go: form inputs and dialogs
//   - help.go: help and navigation menu overlays
//   - keys.go, theme.go, style_helpers.go, strings.go: shared helpers
//
// # Event Flow
//
//  1. Run builds the Model and starts the program on the alternate screen.
//  2. A tick every PollTick re-reads the state.Store snapshot; the
//     background poller refreshes that store independently.
//  3. Keys are routed to the open modal first, then the auth screen, the
//     search input, the menu, global bindings and finally the active view.
//  4. Destructive actions park behind view.Controller.RequestConfirmation
//     and only run when the confirm dialog is accepted.
//  5. Cancelling Options.Context ends the program.
//
// # Key Bindings
//
//   - 1-8: Catalog, Collection, Marketplace, Community, Cart, Checkout,
//     Support, Profile
//   - m: Navigation menu
//   - j/k, g/G, PgUp/PgDn: Move
//   - Enter: Open or confirm
//   - Esc: Close the detail, clear filters or go back
//   - /: Search the catalog
//   - T: Cycle theme (persisted)
//   - ?: Help
//   - q or Ctrl+C: Quit
package ui
