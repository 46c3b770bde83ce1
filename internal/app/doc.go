// Package app is the composition root.
//
// Build constructs one instance of every service for an application
// session; nothing is global. Start wires the session listeners (sign-in
// loads the cart, collection and notifications; sign-out drops them),
// publishes the cached storefront and restores a cached session. Run adds
// logging, the first network refresh, the background poller and the UI.
//
// The poller refreshes catalog and listings every RefreshInterval. After a
// failure it waits calculateBackoff(failures, interval) instead, capped at
// maxBackoff, and resets on the next success.
package app
